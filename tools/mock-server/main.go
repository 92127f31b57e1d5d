// Package main implements a mock catalog server for local development.
// It renders item pages from a JSON fixture with the same markup the catalog
// client scrapes, and lets a developer change prices to simulate drops:
//
//	curl -X PUT localhost:8089/admin/items/dune-1/price -d '{"price":"199"}'
//
// Point catalog.base_url at http://localhost:8089/ebook/ to use it.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

type fixtureItem struct {
	ID       string          `json:"id"`
	Title    string          `json:"title"`
	Price    decimal.Decimal `json:"price"`
	ImageURL string          `json:"image_url"`
}

// catalog holds the fixture items, keyed by item ID.
type catalog struct {
	mu    sync.RWMutex
	items map[string]fixtureItem
}

func newCatalog(items []fixtureItem) *catalog {
	c := &catalog{items: make(map[string]fixtureItem, len(items))}
	for _, it := range items {
		c.items[it.ID] = it
	}
	return c
}

func (c *catalog) get(id string) (fixtureItem, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	it, ok := c.items[id]
	return it, ok
}

func (c *catalog) setPrice(id string, price decimal.Decimal) (fixtureItem, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	it, ok := c.items[id]
	if !ok {
		return fixtureItem{}, false
	}
	it.Price = price
	c.items[id] = it
	return it, true
}

var pageTemplate = template.Must(template.New("item").Parse(`<!DOCTYPE html>
<html lang="zh-TW">
<head>
  <meta charset="UTF-8">
  <title>{{.Title}}</title>
  <meta property="og:title" content="{{.Title}}">
  <meta property="og:price" content="{{.Price}}">
  <meta property="og:image" content="{{.ImageURL}}">
</head>
<body>
  <h1 class="title product-field">{{.Title}}</h1>
  <img src="{{.ImageURL}}" alt="{{.Title}}">
</body>
</html>`))

func main() {
	port := flag.Int("port", 8089, "port to listen on")
	fixtureFile := flag.String("fixture", "tools/mock-server/testdata/items.json", "path to catalog items fixture")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	items, err := loadFixture(*fixtureFile)
	if err != nil {
		logger.Error("failed to load fixture", "path", *fixtureFile, "error", err)
		os.Exit(1)
	}
	logger.Info("loaded fixture", "items", len(items))

	addr := fmt.Sprintf(":%d", *port)
	logger.Info("starting mock catalog server", "addr", addr)

	srv := &http.Server{
		Addr:         addr,
		Handler:      requestLogger(logger, newMux(logger, newCatalog(items))),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	if err := srv.ListenAndServe(); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func newMux(logger *slog.Logger, c *catalog) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ebook/{id}", pageHandler(logger, c))
	mux.HandleFunc("PUT /admin/items/{id}/price", priceHandler(logger, c))
	return mux
}

func loadFixture(path string) ([]fixtureItem, error) {
	data, err := os.ReadFile(path) //nolint:gosec // fixture path from trusted CLI flag
	if err != nil {
		return nil, fmt.Errorf("reading fixture: %w", err)
	}
	var items []fixtureItem
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("parsing fixture: %w", err)
	}
	return items, nil
}

func requestLogger(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger.Debug("request", "method", r.Method, "path", r.URL.Path,
			"accept_language", r.Header.Get("Accept-Language"))
		next.ServeHTTP(w, r)
	})
}

func pageHandler(logger *slog.Logger, c *catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		it, ok := c.get(id)
		if !ok {
			logger.Info("unknown item", "item_id", id)
			http.NotFound(w, r)
			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := pageTemplate.Execute(w, it); err != nil {
			logger.Error("rendering page", "item_id", id, "error", err)
		}
	}
}

func priceHandler(logger *slog.Logger, c *catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Price decimal.Decimal `json:"price"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "body must be {\"price\": \"<decimal>\"}", http.StatusBadRequest)
			return
		}
		if body.Price.IsNegative() {
			http.Error(w, "price must not be negative", http.StatusBadRequest)
			return
		}

		id := r.PathValue("id")
		it, ok := c.setPrice(id, body.Price)
		if !ok {
			http.NotFound(w, r)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		//nolint:errcheck,gosec // best-effort write to HTTP response in mock server
		json.NewEncoder(w).Encode(it)
		logger.Info("price changed", "item_id", id, "price", it.Price.String())
	}
}
