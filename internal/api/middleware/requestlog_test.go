package middleware

import (
	"bufio"
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// logHarness runs requests through one RequestLog instance and decodes the
// JSON records it writes.
type logHarness struct {
	t   *testing.T
	e   *echo.Echo
	buf *bytes.Buffer
	mw  echo.MiddlewareFunc
}

func newLogHarness(t *testing.T) *logHarness {
	t.Helper()
	buf := &bytes.Buffer{}
	return &logHarness{
		t:   t,
		e:   echo.New(),
		buf: buf,
		mw:  RequestLog(slog.New(slog.NewJSONHandler(buf, nil))),
	}
}

func (h *logHarness) do(method, path, reqID string, status int) (*httptest.ResponseRecorder, echo.Context) {
	h.t.Helper()

	req := httptest.NewRequest(method, path, http.NoBody)
	if reqID != "" {
		req.Header.Set(requestIDHeader, reqID)
	}
	rec := httptest.NewRecorder()
	c := h.e.NewContext(req, rec)

	require.NoError(h.t, h.mw(func(c echo.Context) error {
		return c.String(status, "ok")
	})(c))
	return rec, c
}

func (h *logHarness) records() []map[string]any {
	h.t.Helper()

	var out []map[string]any
	sc := bufio.NewScanner(bytes.NewReader(h.buf.Bytes()))
	for sc.Scan() {
		var rec map[string]any
		require.NoError(h.t, json.Unmarshal(sc.Bytes(), &rec))
		out = append(out, rec)
	}
	return out
}

func TestRequestLog_Fields(t *testing.T) {
	t.Parallel()

	h := newLogHarness(t)
	rec, c := h.do(http.MethodPost, "/api/v1/items", "", http.StatusCreated)

	logs := h.records()
	require.Len(t, logs, 1)
	got := logs[0]

	assert.Equal(t, "request", got["msg"])
	assert.Equal(t, "POST", got["method"])
	assert.Equal(t, "/api/v1/items", got["path"])
	assert.InDelta(t, http.StatusCreated, got["status"], 0)
	assert.InDelta(t, len("ok"), got["bytes_out"], 0)
	assert.Contains(t, got, "duration_ms")
	assert.Contains(t, got, "route")

	id, _ := got["request_id"].(string)
	_, err := uuid.Parse(id)
	require.NoError(t, err, "generated ID should be a UUID")
	assert.Equal(t, id, rec.Header().Get(requestIDHeader))
	assert.Equal(t, id, c.Get("request_id"))
}

func TestRequestLog_CallerRequestID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		supplied string
		wantKept bool
	}{
		{name: "plain id kept", supplied: "custom-req-id-123", wantKept: true},
		{name: "trace style id kept", supplied: "svc.a:0001_x", wantKept: true},
		{name: "spaces replaced", supplied: "two words", wantKept: false},
		{name: "newline replaced", supplied: "id\nlevel=ERROR", wantKept: false},
		{name: "overlong replaced", supplied: strings.Repeat("a", maxRequestIDLen+1), wantKept: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := newLogHarness(t)
			rec, _ := h.do(http.MethodGet, "/api/v1/wishlist", tt.supplied, http.StatusOK)

			got := rec.Header().Get(requestIDHeader)
			if tt.wantKept {
				assert.Equal(t, tt.supplied, got)
				return
			}
			assert.NotEqual(t, tt.supplied, got)
			_, err := uuid.Parse(got)
			assert.NoError(t, err)
		})
	}
}

func TestRequestLog_HealthCheckSuppression(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		path       string
		statuses   []int
		wantLevels []string
	}{
		{
			name:       "only first healthz success logged",
			path:       "/healthz",
			statuses:   []int{200, 200, 200},
			wantLevels: []string{"INFO"},
		},
		{
			name:       "every readyz failure logged",
			path:       "/readyz",
			statuses:   []int{503, 503},
			wantLevels: []string{"WARN", "WARN"},
		},
		{
			name:       "failure after suppressed successes logged",
			path:       "/readyz",
			statuses:   []int{200, 200, 503, 200},
			wantLevels: []string{"INFO", "WARN"},
		},
		{
			name:       "api paths never suppressed",
			path:       "/api/v1/wishlist",
			statuses:   []int{200, 200},
			wantLevels: []string{"INFO", "INFO"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := newLogHarness(t)
			for _, status := range tt.statuses {
				h.do(http.MethodGet, tt.path, "", status)
			}

			var levels []string
			for _, rec := range h.records() {
				levels = append(levels, rec["level"].(string))
			}
			assert.Equal(t, tt.wantLevels, levels)
		})
	}
}

func TestRequestLog_LevelByStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status    int
		wantLevel string
	}{
		{status: http.StatusOK, wantLevel: "INFO"},
		{status: http.StatusConflict, wantLevel: "WARN"},
		{status: http.StatusBadGateway, wantLevel: "ERROR"},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			t.Parallel()

			h := newLogHarness(t)
			h.do(http.MethodPost, "/api/v1/items", "", tt.status)

			logs := h.records()
			require.Len(t, logs, 1)
			assert.Equal(t, tt.wantLevel, logs[0]["level"])
		})
	}
}

func TestRequestLog_RequestIDInContext(t *testing.T) {
	t.Parallel()

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/wishlist", http.NoBody)
	req.Header.Set(requestIDHeader, "ctx-req-id")

	var seen string
	handler := RequestLog(slog.New(slog.DiscardHandler))(func(c echo.Context) error {
		seen = RequestIDFromContext(c.Request().Context())
		return c.NoContent(http.StatusOK)
	})

	require.NoError(t, handler(e.NewContext(req, httptest.NewRecorder())))
	assert.Equal(t, "ctx-req-id", seen)
	assert.Empty(t, RequestIDFromContext(req.Context()))
}
