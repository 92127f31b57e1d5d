package client

import (
	"context"
	"fmt"
	"net/url"

	domain "github.com/donaldgifford/wishlist-tracker/pkg/types"
)

// RefreshJobResponse is returned when the scheduled refresh is run on demand.
type RefreshJobResponse struct {
	Status string `json:"status"`
	Drops  int    `json:"drops"`
}

// ListJobs returns every known job with its latest run and next start.
func (c *Client) ListJobs(ctx context.Context) ([]domain.JobSummary, error) {
	var jobs []domain.JobSummary
	if err := c.get(ctx, "/api/v1/jobs", &jobs); err != nil {
		return nil, err
	}
	return jobs, nil
}

// GetJobHistory returns up to limit recent runs of a scheduled job. A limit
// of zero uses the server default.
func (c *Client) GetJobHistory(ctx context.Context, jobName string, limit int) ([]domain.JobRun, error) {
	path := "/api/v1/jobs/" + url.PathEscape(jobName)
	if limit > 0 {
		path += fmt.Sprintf("?limit=%d", limit)
	}

	var runs []domain.JobRun
	if err := c.get(ctx, path, &runs); err != nil {
		return nil, err
	}
	return runs, nil
}

// RunRefreshJob refreshes every user's wishlist immediately.
func (c *Client) RunRefreshJob(ctx context.Context) (*RefreshJobResponse, error) {
	var resp RefreshJobResponse
	if err := c.post(ctx, "/api/v1/jobs/refresh", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
