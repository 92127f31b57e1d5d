package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

const defaultPingTimeout = 2 * time.Second

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// QueueStats reports how many fetch jobs are waiting to start.
type QueueStats interface {
	Pending() int
}

// ReadyResponse is the /readyz body. PendingFetches is informational and
// never fails readiness: a long queue is normal right after a refresh starts.
type ReadyResponse struct {
	Status         string `json:"status"`
	Store          string `json:"store"`
	PendingFetches *int   `json:"pending_fetches,omitempty"`
}

// HealthHandler provides health and readiness endpoints.
type HealthHandler struct {
	store       Pinger
	queue       QueueStats
	pingTimeout time.Duration
}

// HealthOption configures a HealthHandler.
type HealthOption func(*HealthHandler)

// WithQueueStats reports the fetch queue depth on /readyz.
func WithQueueStats(q QueueStats) HealthOption {
	return func(h *HealthHandler) {
		h.queue = q
	}
}

// WithPingTimeout bounds the store ping behind /readyz.
func WithPingTimeout(d time.Duration) HealthOption {
	return func(h *HealthHandler) {
		if d > 0 {
			h.pingTimeout = d
		}
	}
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(s Pinger, opts ...HealthOption) *HealthHandler {
	h := &HealthHandler{store: s, pingTimeout: defaultPingTimeout}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Healthz returns 200 while the process is serving.
func (*HealthHandler) Healthz(c echo.Context) error {
	return c.JSON(http.StatusOK, StatusResponse{Status: "ok"})
}

// Readyz returns 200 if the snapshot store answers a ping in time, 503
// otherwise.
func (h *HealthHandler) Readyz(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), h.pingTimeout)
	defer cancel()

	resp := ReadyResponse{Status: "ready", Store: "ok"}
	if h.queue != nil {
		n := h.queue.Pending()
		resp.PendingFetches = &n
	}

	if err := h.store.Ping(ctx); err != nil {
		resp.Status, resp.Store = "unavailable", "unreachable"
		return c.JSON(http.StatusServiceUnavailable, resp)
	}
	return c.JSON(http.StatusOK, resp)
}

// RegisterHealthRoutes mounts the health checks on e, outside the authenticated API.
func RegisterHealthRoutes(e *echo.Echo, h *HealthHandler) {
	e.GET("/healthz", h.Healthz)
	e.GET("/readyz", h.Readyz)
}
