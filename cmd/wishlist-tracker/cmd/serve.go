package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humaecho"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/donaldgifford/wishlist-tracker/api/openapi"
	"github.com/donaldgifford/wishlist-tracker/internal/api/handlers"
	"github.com/donaldgifford/wishlist-tracker/internal/api/middleware"
	"github.com/donaldgifford/wishlist-tracker/internal/auth"
	"github.com/donaldgifford/wishlist-tracker/internal/engine"
	"github.com/donaldgifford/wishlist-tracker/internal/store"
	"github.com/donaldgifford/wishlist-tracker/internal/telemetry"
)

// shutdownTimeout bounds the graceful HTTP drain and telemetry flush.
const shutdownTimeout = 10 * time.Second

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server, fetch queue and refresh scheduler",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := telemetry.Setup(ctx, &cfg.Telemetry, Version)
	if err != nil {
		return fmt.Errorf("setting up telemetry: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := shutdownTelemetry(flushCtx); err != nil {
			log.Warn("flushing telemetry", "error", err)
		}
	}()

	st, closeStore, err := openStore(ctx, &cfg.Database)
	if err != nil {
		return err
	}
	defer closeStore()

	if err := st.Migrate(ctx); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	log.Info("store ready", "driver", cfg.Database.Driver)

	pages := newCatalogClient(&cfg.Catalog)
	queue := newFetchQueue(pages, &cfg.Scheduler, log)
	queue.Start(ctx)
	defer queue.Stop()

	eng := engine.NewEngine(st, queue, newNotifier(&cfg.Notifications, pages.ItemURL, log),
		engine.WithLogger(log),
		engine.WithBatchDeadline(cfg.Schedule.BatchDeadline),
	)

	sched, err := engine.NewScheduler(eng, st, cfg.Schedule.RefreshInterval, log)
	if err != nil {
		return fmt.Errorf("creating scheduler: %w", err)
	}
	sched.RecoverStaleJobRuns(ctx)
	sched.Start()
	defer func() { <-sched.Stop().Done() }()

	e := newServer(st, eng, sched, queue, auth.NewCache(st, auth.WithLogger(log)), cfg.Server.WaitBudget, log)
	e.Server.ReadTimeout = cfg.Server.ReadTimeout
	e.Server.WriteTimeout = cfg.Server.WriteTimeout

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	log.Info("starting server", "addr", addr, "version", Version)

	errCh := make(chan error, 1)
	go func() {
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("serving http: %w", err)
		}
	case <-ctx.Done():
	}

	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}

	log.Info("server stopped")
	return nil
}

// newServer builds the HTTP surface: health checks and metrics on the bare
// Echo router, and the API-key protected Huma operations under /api/v1.
// Track and refresh calls wait at most waitBudget before answering 202.
func newServer(
	st store.Store,
	eng *engine.Engine,
	sched *engine.Scheduler,
	queue handlers.QueueStats,
	keys middleware.Authenticator,
	waitBudget time.Duration,
	log *slog.Logger,
) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(log))
	e.Use(middleware.RequestLog(log))
	e.Use(middleware.Metrics())

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	handlers.RegisterHealthRoutes(e, handlers.NewHealthHandler(st, handlers.WithQueueStats(queue)))

	humaCfg := huma.DefaultConfig("wishlist-tracker API", Version)
	humaCfg.Info.Description = "Track catalog item prices and get notified when they drop."
	humaCfg.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"apiKey": {Type: "apiKey", In: "header", Name: auth.HeaderName},
	}
	humaCfg.Security = []map[string][]string{{"apiKey": {}}}

	api := humaecho.New(e, humaCfg)
	api.UseMiddleware(middleware.APIKey(api, keys, log))
	openapi.RegisterRoutes(e, api)

	handlers.RegisterItemRoutes(api, handlers.NewItemsHandler(eng, handlers.WithWaitBudget(waitBudget)))
	handlers.RegisterWishlistRoutes(api, handlers.NewWishlistHandler(st))
	handlers.RegisterRefreshRoutes(api, handlers.NewRefreshHandler(eng, sched, handlers.WithWaitBudget(waitBudget)))
	handlers.RegisterJobRoutes(api, handlers.NewJobsHandler(st, sched))

	return e
}
