package handlers

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	domain "github.com/donaldgifford/wishlist-tracker/pkg/types"
)

// Refresher refreshes one user's wishlist and reports price drops.
type Refresher interface {
	RefreshAndNotify(ctx context.Context, user *domain.User) ([]domain.DropEvent, error)
}

// JobRunner runs the scheduled refresh of every wishlist on demand.
type JobRunner interface {
	RunNow(ctx context.Context) (int, error)
}

// RefreshHandler handles manual refresh requests.
type RefreshHandler struct {
	refresher Refresher
	jobs      JobRunner
	wait      waitConfig
}

// NewRefreshHandler creates a new RefreshHandler.
func NewRefreshHandler(r Refresher, j JobRunner, opts ...WaitOption) *RefreshHandler {
	return &RefreshHandler{refresher: r, jobs: j, wait: newWaitConfig(opts)}
}

// Refresh statuses.
const (
	RefreshStatusCompleted = "completed"
	RefreshStatusRunning   = "running"
)

// RefreshOutput is the response body for a wishlist refresh.
type RefreshOutput struct {
	Status int
	Body   struct {
		Status string             `json:"status" enum:"completed,running" doc:"running when the refresh outlived the wait budget and continues in the background"`
		Count  int                `json:"count" example:"1" doc:"Number of price drops found"`
		Drops  []domain.DropEvent `json:"drops" doc:"Price drops, ordered by title"`
	}
}

// Refresh re-fetches every item on the caller's wishlist. The caller is
// notified about drops as well as receiving them in the response.
func (h *RefreshHandler) Refresh(ctx context.Context, _ *struct{}) (*RefreshOutput, error) {
	user, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}

	drops, done, err := runWithin(ctx, h.wait.budget, func(ctx context.Context) ([]domain.DropEvent, error) {
		return h.refresher.RefreshAndNotify(ctx, user)
	})
	if err != nil {
		return nil, huma.Error500InternalServerError("refresh failed: " + err.Error())
	}

	resp := &RefreshOutput{Status: http.StatusOK}
	resp.Body.Status = RefreshStatusCompleted
	if !done {
		// Drops found later still reach the notifiers.
		resp.Status = http.StatusAccepted
		resp.Body.Status = RefreshStatusRunning
	}
	if drops == nil {
		drops = []domain.DropEvent{}
	}
	resp.Body.Count = len(drops)
	resp.Body.Drops = drops
	return resp, nil
}

// RunRefreshJobOutput is the response body for a triggered refresh job.
type RunRefreshJobOutput struct {
	Status int
	Body   struct {
		Status string `json:"status" enum:"completed,running" doc:"running when the job outlived the wait budget and continues in the background"`
		Drops  int    `json:"drops" example:"3" doc:"Price drops found across all users"`
	}
}

// RunRefreshJob runs the all-users refresh job immediately.
func (h *RefreshHandler) RunRefreshJob(ctx context.Context, _ *struct{}) (*RunRefreshJobOutput, error) {
	drops, done, err := runWithin(ctx, h.wait.budget, h.jobs.RunNow)
	if err != nil {
		return nil, huma.Error500InternalServerError("refresh job failed: " + err.Error())
	}

	resp := &RunRefreshJobOutput{Status: http.StatusOK}
	resp.Body.Status = RefreshStatusCompleted
	resp.Body.Drops = drops
	if !done {
		resp.Status = http.StatusAccepted
		resp.Body.Status = RefreshStatusRunning
	}
	return resp, nil
}

// RegisterRefreshRoutes registers refresh endpoints with the Huma API.
func RegisterRefreshRoutes(api huma.API, h *RefreshHandler) {
	huma.Register(api, huma.Operation{
		OperationID: "refresh-wishlist",
		Method:      http.MethodPost,
		Path:        "/api/v1/wishlist/refresh",
		Summary:     "Refresh the wishlist",
		Description: "Fetches the current price of every tracked item, records the " +
			"snapshots, and notifies the caller about any price drops.",
		Tags:   []string{"wishlist"},
		Errors: []int{http.StatusUnauthorized, http.StatusInternalServerError},
	}, h.Refresh)

	if h.jobs == nil {
		return
	}

	huma.Register(api, huma.Operation{
		OperationID: "run-refresh-job",
		Method:      http.MethodPost,
		Path:        "/api/v1/jobs/refresh",
		Summary:     "Run the refresh job now",
		Description: "Refreshes every user's wishlist immediately, recording the run in the job history.",
		Tags:        []string{"scheduler"},
		Errors:      []int{http.StatusUnauthorized, http.StatusInternalServerError},
	}, h.RunRefreshJob)
}
