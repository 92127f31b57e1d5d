package openapi_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humaecho"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/donaldgifford/wishlist-tracker/api/openapi"
)

type pingOutput struct {
	Body struct {
		OK bool `json:"ok"`
	}
}

func newServer(t *testing.T) *echo.Echo {
	t.Helper()

	e := echo.New()
	api := humaecho.New(e, huma.DefaultConfig("wishlist-tracker API", "test"))
	openapi.RegisterRoutes(e, api)

	// Registered after the swagger routes on purpose.
	huma.Get(api, "/api/v1/ping", func(context.Context, *struct{}) (*pingOutput, error) {
		return &pingOutput{}, nil
	})
	return e
}

func get(e *echo.Echo, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, http.NoBody)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestSwaggerJSON(t *testing.T) {
	t.Parallel()

	rec := get(newServer(t), "/swagger/swagger.json")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get(echo.HeaderContentType))

	var doc struct {
		OpenAPI string                    `json:"openapi"`
		Paths   map[string]map[string]any `json:"paths"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	assert.Equal(t, "3.0.3", doc.OpenAPI)
	assert.Contains(t, doc.Paths, "/api/v1/ping")
}

func TestSwaggerYAML(t *testing.T) {
	t.Parallel()

	rec := get(newServer(t), "/swagger/swagger.yaml")
	require.Equal(t, http.StatusOK, rec.Code)

	var doc map[string]any
	require.NoError(t, yaml.Unmarshal(rec.Body.Bytes(), &doc))
	assert.Equal(t, "3.0.3", doc["openapi"])
}

func TestSwaggerUI(t *testing.T) {
	t.Parallel()

	e := newServer(t)

	for _, path := range []string{"/swagger", "/swagger/"} {
		rec := get(e, path)
		assert.Equal(t, http.StatusMovedPermanently, rec.Code, path)
		assert.Equal(t, "/swagger/index.html", rec.Header().Get(echo.HeaderLocation), path)
	}

	rec := get(e, "/swagger/index.html")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Wishlist Tracker API")
}
