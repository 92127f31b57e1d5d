package handlers

import (
	"cmp"
	"context"
	"net/http"
	"slices"
	"time"

	"github.com/danielgtaylor/huma/v2"

	domain "github.com/donaldgifford/wishlist-tracker/pkg/types"
)

// JobsProvider defines the store methods required by the jobs handler.
type JobsProvider interface {
	ListLatestJobRuns(ctx context.Context) ([]domain.JobRun, error)
	ListJobRuns(ctx context.Context, jobName string, limit int) ([]domain.JobRun, error)
}

// JobSchedule reports which jobs are scheduled and when they next run.
type JobSchedule interface {
	JobNames() []string
	NextRun(jobName string) (time.Time, bool)
}

// JobsHandler serves scheduled job status and run history.
type JobsHandler struct {
	store    JobsProvider
	schedule JobSchedule
}

// NewJobsHandler creates a new JobsHandler. schedule may be nil when no
// scheduler runs in this process; summaries then come from history alone.
func NewJobsHandler(s JobsProvider, schedule JobSchedule) *JobsHandler {
	return &JobsHandler{store: s, schedule: schedule}
}

// ListJobsOutput is the status of every known job, ordered by name.
type ListJobsOutput struct {
	Body []domain.JobSummary
}

// ListJobs merges the latest recorded run of each job with the scheduler's
// view, so a registered job shows up before its first run.
func (h *JobsHandler) ListJobs(ctx context.Context, _ *struct{}) (*ListJobsOutput, error) {
	runs, err := h.store.ListLatestJobRuns(ctx)
	if err != nil {
		return nil, huma.Error500InternalServerError("listing jobs failed: " + err.Error())
	}

	byName := make(map[string]*domain.JobSummary, len(runs))
	for i := range runs {
		byName[runs[i].JobName] = &domain.JobSummary{JobName: runs[i].JobName, LastRun: &runs[i]}
	}

	if h.schedule != nil {
		for _, name := range h.schedule.JobNames() {
			sum, ok := byName[name]
			if !ok {
				sum = &domain.JobSummary{JobName: name}
				byName[name] = sum
			}
			if next, ok := h.schedule.NextRun(name); ok {
				sum.NextRunAt = &next
			}
		}
	}

	out := make([]domain.JobSummary, 0, len(byName))
	for _, sum := range byName {
		out = append(out, *sum)
	}
	slices.SortFunc(out, func(a, b domain.JobSummary) int {
		return cmp.Compare(a.JobName, b.JobName)
	})
	return &ListJobsOutput{Body: out}, nil
}

// GetJobHistoryInput is the request for a job's history.
type GetJobHistoryInput struct {
	JobName string `path:"job_name" doc:"Scheduled job name (e.g. wishlist_refresh)"`
	Limit   int    `query:"limit" default:"20" minimum:"1" maximum:"200" doc:"Maximum runs to return"`
}

// GetJobHistoryOutput is a job's runs, newest first.
type GetJobHistoryOutput struct {
	Body []domain.JobRun
}

// GetJobHistory returns the run history of one job. Names that are neither
// scheduled nor present in history are reported as not found.
func (h *JobsHandler) GetJobHistory(ctx context.Context, input *GetJobHistoryInput) (*GetJobHistoryOutput, error) {
	runs, err := h.store.ListJobRuns(ctx, input.JobName, input.Limit)
	if err != nil {
		return nil, huma.Error500InternalServerError("fetching job history failed: " + err.Error())
	}

	if len(runs) == 0 {
		if !h.isScheduled(input.JobName) {
			return nil, huma.Error404NotFound("unknown job: " + input.JobName)
		}
		runs = []domain.JobRun{}
	}
	return &GetJobHistoryOutput{Body: runs}, nil
}

func (h *JobsHandler) isScheduled(name string) bool {
	return h.schedule != nil && slices.Contains(h.schedule.JobNames(), name)
}

// RegisterJobRoutes registers scheduler job endpoints with the Huma API.
func RegisterJobRoutes(api huma.API, h *JobsHandler) {
	huma.Register(api, huma.Operation{
		OperationID: "list-jobs",
		Method:      http.MethodGet,
		Path:        "/api/v1/jobs",
		Summary:     "List scheduled jobs",
		Description: "Returns each job's latest run and, for jobs scheduled in this process, its next start time.",
		Tags:        []string{"scheduler"},
		Errors:      []int{http.StatusUnauthorized, http.StatusInternalServerError},
	}, h.ListJobs)

	huma.Register(api, huma.Operation{
		OperationID: "get-job-history",
		Method:      http.MethodGet,
		Path:        "/api/v1/jobs/{job_name}",
		Summary:     "Get job run history",
		Description: "Returns the recorded runs of one job, newest first.",
		Tags:        []string{"scheduler"},
		Errors:      []int{http.StatusUnauthorized, http.StatusNotFound, http.StatusInternalServerError},
	}, h.GetJobHistory)
}
