package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"unicode/utf8"

	apiclient "github.com/donaldgifford/wishlist-tracker/internal/api/client"
	domain "github.com/donaldgifford/wishlist-tracker/pkg/types"
)

const timeLayout = "2006-01-02 15:04:05"

// tabWriter wraps tabwriter with error tracking.
type tabWriter struct {
	*tabwriter.Writer
	err error
}

func newTabWriter(w io.Writer) *tabWriter {
	return &tabWriter{Writer: tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)}
}

func (tw *tabWriter) writef(format string, args ...any) {
	if tw.err != nil {
		return
	}
	_, tw.err = fmt.Fprintf(tw.Writer, format, args...)
}

func (tw *tabWriter) finish() error {
	if tw.err != nil {
		return tw.err
	}
	return tw.Flush()
}

func printWishlistTable(w io.Writer, rows []domain.LatestViewRow) error {
	tw := newTabWriter(w)
	tw.writef("TITLE\tITEM\tPRICE\tCHECKED\n")
	for i := range rows {
		tw.writef("%s\t%s\t%s\t%s\n",
			truncate(rows[i].Title, 40),
			rows[i].ItemID,
			rows[i].LatestPrice.StringFixed(2),
			rows[i].LatestCapturedAt.Local().Format(timeLayout),
		)
	}
	return tw.finish()
}

func printHistoryTable(w io.Writer, history []apiclient.TitleHistory) error {
	tw := newTabWriter(w)
	tw.writef("TITLE\tCAPTURED\tPRICE\n")
	for i := range history {
		h := &history[i]
		for j, p := range h.Points {
			title := ""
			if j == 0 {
				title = truncate(h.Title, 40)
			}
			tw.writef("%s\t%s\t%s\n", title, p.CapturedAt.Local().Format(timeLayout), p.Price.StringFixed(2))
		}
	}
	return tw.finish()
}

func printDropsTable(w io.Writer, drops []domain.DropEvent) error {
	tw := newTabWriter(w)
	tw.writef("TITLE\tITEM\tWAS\tNOW\tSAVED\n")
	for i := range drops {
		d := &drops[i]
		tw.writef("%s\t%s\t%s\t%s\t%s\n",
			truncate(d.Title, 40),
			d.ItemID,
			d.PreviousPrice.StringFixed(2),
			d.CurrentPrice.StringFixed(2),
			d.PreviousPrice.Sub(d.CurrentPrice).StringFixed(2),
		)
	}
	return tw.finish()
}

func printJobsTable(w io.Writer, jobs []domain.JobSummary) error {
	tw := newTabWriter(w)
	tw.writef("JOB\tLAST STATUS\tLAST STARTED\tNEXT RUN\n")
	for i := range jobs {
		j := &jobs[i]
		status, started, next := "never run", "-", "-"
		if j.LastRun != nil {
			status = j.LastRun.Status
			started = j.LastRun.StartedAt.Local().Format(timeLayout)
		}
		if j.NextRunAt != nil {
			next = j.NextRunAt.Local().Format(timeLayout)
		}
		tw.writef("%s\t%s\t%s\t%s\n", j.JobName, status, started, next)
	}
	return tw.finish()
}

func printJobRunsTable(w io.Writer, runs []domain.JobRun) error {
	tw := newTabWriter(w)
	tw.writef("JOB\tSTATUS\tSTARTED\tCOMPLETED\tROWS\tERROR\n")
	for i := range runs {
		r := &runs[i]
		completed := "-"
		if r.CompletedAt != nil {
			completed = r.CompletedAt.Local().Format(timeLayout)
		}
		rows := "-"
		if r.RowsAffected != nil {
			rows = fmt.Sprintf("%d", *r.RowsAffected)
		}
		tw.writef("%s\t%s\t%s\t%s\t%s\t%s\n",
			r.JobName,
			r.Status,
			r.StartedAt.Local().Format(timeLayout),
			completed,
			rows,
			truncate(r.ErrorText, 40),
		)
	}
	return tw.finish()
}

func outputJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// truncate shortens s to maxLen runes. Titles are often CJK, so this counts
// runes rather than bytes.
func truncate(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	r := []rune(s)
	return string(r[:maxLen-3]) + "..."
}
