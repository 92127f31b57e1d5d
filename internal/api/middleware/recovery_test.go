package middleware

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/danielgtaylor/huma/v2"
	"github.com/labstack/echo/v4"
	ptestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/donaldgifford/wishlist-tracker/internal/metrics"
)

func TestRecovery(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		handler    echo.HandlerFunc
		wantStatus int
		wantPanic  bool
		wantLog    []string
	}{
		{
			name:       "no panic passes through",
			handler:    func(c echo.Context) error { return c.String(http.StatusOK, "ok") },
			wantStatus: http.StatusOK,
		},
		{
			name:       "string panic",
			handler:    func(echo.Context) error { panic("snapshot was nil") },
			wantStatus: http.StatusInternalServerError,
			wantPanic:  true,
			wantLog:    []string{"panic recovered", "snapshot was nil", "path=/api/v1/wishlist", "stack="},
		},
		{
			name:       "error panic",
			handler:    func(echo.Context) error { panic(errors.New("store closed")) },
			wantStatus: http.StatusInternalServerError,
			wantPanic:  true,
			wantLog:    []string{"store closed", "method=GET"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			e := echo.New()
			rec := httptest.NewRecorder()
			c := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/v1/wishlist", http.NoBody), rec)

			before := ptestutil.ToFloat64(metrics.HTTPPanicsTotal)
			require.NoError(t, Recovery(slog.New(slog.NewTextHandler(&buf, nil)))(tt.handler)(c))

			assert.Equal(t, tt.wantStatus, rec.Code)
			if !tt.wantPanic {
				assert.Empty(t, buf.String())
				return
			}

			assert.GreaterOrEqual(t, ptestutil.ToFloat64(metrics.HTTPPanicsTotal)-before, float64(1))
			for _, want := range tt.wantLog {
				assert.Contains(t, buf.String(), want)
			}
		})
	}
}

func TestRecovery_ProblemBodyCarriesRequestID(t *testing.T) {
	t.Parallel()

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/items", http.NoBody)
	req.Header.Set(requestIDHeader, "req-42")
	rec := httptest.NewRecorder()

	quiet := slog.New(slog.DiscardHandler)
	handler := RequestLog(quiet)(Recovery(quiet)(func(echo.Context) error {
		panic("boom")
	}))
	require.NoError(t, handler(e.NewContext(req, rec)))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "application/problem+json", rec.Header().Get(echo.HeaderContentType))

	var problem huma.ErrorModel
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
	assert.Equal(t, http.StatusInternalServerError, problem.Status)
	assert.Equal(t, "internal server error (request req-42)", problem.Detail)
	assert.NotContains(t, rec.Body.String(), "boom")
}

func TestRecovery_CommittedResponseLeftAlone(t *testing.T) {
	t.Parallel()

	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/v1/wishlist/history", http.NoBody), rec)

	handler := Recovery(slog.New(slog.DiscardHandler))(func(c echo.Context) error {
		c.Response().WriteHeader(http.StatusOK)
		_, _ = c.Response().Write([]byte(`[{"title":`))
		panic("encoder failed")
	})

	require.NoError(t, handler(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `[{"title":`, rec.Body.String())
}

func TestRecovery_AbortHandlerRepanics(t *testing.T) {
	t.Parallel()

	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/stream", http.NoBody), httptest.NewRecorder())

	handler := Recovery(slog.New(slog.DiscardHandler))(func(_ echo.Context) error {
		panic(http.ErrAbortHandler)
	})

	assert.PanicsWithValue(t, http.ErrAbortHandler, func() { _ = handler(c) })
}
