// Package history aggregates a user's raw snapshot history into the views the
// wishlist and drop detector work from. Every function here is pure and
// deterministic: identical input yields identical output regardless of how
// many times or in what order the functions are called.
package history

import (
	"slices"
	"sort"

	domain "github.com/donaldgifford/wishlist-tracker/pkg/types"
)

// LatestView returns one row per distinct title, built from the snapshot with
// the greatest CapturedAt for that title. When two snapshots of a title share
// the same CapturedAt, the one seen first in the input wins.
func LatestView(snapshots []domain.Snapshot) map[string]domain.LatestViewRow {
	latest := make(map[string]*domain.Snapshot, len(snapshots))
	for i := range snapshots {
		s := &snapshots[i]
		cur, ok := latest[s.Title]
		if !ok || s.CapturedAt.After(cur.CapturedAt) {
			latest[s.Title] = s
		}
	}

	view := make(map[string]domain.LatestViewRow, len(latest))
	for title, s := range latest {
		view[title] = domain.LatestViewRow{
			Title:            title,
			ItemID:           s.ItemID,
			LatestPrice:      s.Price,
			LatestCapturedAt: s.CapturedAt,
			ImageURL:         s.ImageURL,
		}
	}
	return view
}

// ComparisonPairs returns, per title, the two most recent snapshots ordered by
// CapturedAt descending. Titles with fewer than two snapshots are omitted.
func ComparisonPairs(snapshots []domain.Snapshot) map[string]domain.ComparisonPair {
	pairs := make(map[string]domain.ComparisonPair)
	for title, group := range groupByTitle(snapshots) {
		if len(group) < 2 {
			continue
		}
		sort.SliceStable(group, func(i, j int) bool {
			return group[i].CapturedAt.After(group[j].CapturedAt)
		})
		pairs[title] = domain.ComparisonPair{
			Current:  group[0],
			Previous: group[1],
		}
	}
	return pairs
}

// TrackedSet returns the distinct item IDs present in snapshots, sorted.
func TrackedSet(snapshots []domain.Snapshot) []string {
	seen := make(map[string]struct{}, len(snapshots))
	ids := make([]string, 0, len(snapshots))
	for i := range snapshots {
		id := snapshots[i].ItemID
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Series groups snapshots by title into price series ordered oldest first.
// The series ItemID is taken from the most recent snapshot of the title.
func Series(snapshots []domain.Snapshot) map[string]domain.PriceSeries {
	out := make(map[string]domain.PriceSeries)
	for title, group := range groupByTitle(snapshots) {
		sort.SliceStable(group, func(i, j int) bool {
			return group[i].CapturedAt.Before(group[j].CapturedAt)
		})
		points := make([]domain.PricePoint, len(group))
		for i := range group {
			points[i] = domain.PricePoint{
				CapturedAt: group[i].CapturedAt,
				Price:      group[i].Price,
			}
		}
		out[title] = domain.PriceSeries{
			ItemID: latestItemID(group),
			Points: points,
		}
	}
	return out
}

// SortedTitles returns the keys of m in lexical order.
func SortedTitles[V any](m map[string]V) []string {
	titles := make([]string, 0, len(m))
	for t := range m {
		titles = append(titles, t)
	}
	slices.Sort(titles)
	return titles
}

// groupByTitle copies snapshots into per-title slices, preserving input order
// within each group so stable sorts keep the first-seen tie-break.
func groupByTitle(snapshots []domain.Snapshot) map[string][]domain.Snapshot {
	groups := make(map[string][]domain.Snapshot)
	for i := range snapshots {
		s := snapshots[i]
		groups[s.Title] = append(groups[s.Title], s)
	}
	return groups
}

// latestItemID expects group sorted ascending by CapturedAt. Among snapshots
// sharing the maximum CapturedAt, the first one seen wins.
func latestItemID(group []domain.Snapshot) string {
	last := group[len(group)-1]
	for i := range group {
		if group[i].CapturedAt.Equal(last.CapturedAt) {
			return group[i].ItemID
		}
	}
	return last.ItemID
}
