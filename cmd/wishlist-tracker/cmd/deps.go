package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/donaldgifford/wishlist-tracker/internal/catalog"
	"github.com/donaldgifford/wishlist-tracker/internal/config"
	"github.com/donaldgifford/wishlist-tracker/internal/notify"
	"github.com/donaldgifford/wishlist-tracker/internal/store"
	"github.com/donaldgifford/wishlist-tracker/internal/taskq"
	"github.com/donaldgifford/wishlist-tracker/pkg/logger"
)

// loadConfig reads the config file and builds the process logger from it.
func loadConfig() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}
	log := logger.New(cfg.Logging.Level, cfg.Logging.Format,
		logger.WithSource(cfg.Logging.AddSource),
		logger.WithAttrs(slog.String("service", "wishlist-tracker"), slog.String("version", Version)),
	)
	slog.SetDefault(log)
	return cfg, log, nil
}

// openStore connects the backend selected by database.driver. The returned
// func releases it.
func openStore(ctx context.Context, cfg *config.DatabaseConfig) (store.Store, func(), error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		s, err := store.NewPostgresStore(ctx, cfg.DSN())
		if err != nil {
			return nil, nil, fmt.Errorf("connecting to postgres: %w", err)
		}
		return s, s.Close, nil
	case config.DriverSQLite:
		s, err := store.NewSQLiteStore(ctx, cfg.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("opening sqlite %s: %w", cfg.Path, err)
		}
		return s, func() { _ = s.Close() }, nil
	case config.DriverMemory:
		return store.NewMemoryStore(), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

func newCatalogClient(cfg *config.CatalogConfig) *catalog.PageClient {
	opts := []catalog.PageOption{
		catalog.WithBaseURL(cfg.BaseURL),
		catalog.WithAcceptLanguage(cfg.AcceptLanguage),
		catalog.WithTimeout(cfg.Timeout),
	}
	if cfg.UserAgent != "" {
		opts = append(opts, catalog.WithUserAgent(cfg.UserAgent))
	}
	return catalog.NewPageClient(opts...)
}

func newFetchQueue(f catalog.Fetcher, cfg *config.SchedulerConfig, log *slog.Logger) *taskq.Scheduler {
	return taskq.New(f,
		taskq.WithLogger(log),
		taskq.WithGate(taskq.NewGate(cfg.MinInterval)),
		taskq.WithWorkers(cfg.Workers),
		taskq.WithDefaultDelay(cfg.InitialDelay),
		taskq.WithFetchTimeout(cfg.FetchTimeout),
	)
}

// newNotifier returns the configured delivery channels, or a logging no-op
// when none are enabled.
func newNotifier(cfg *config.NotificationsConfig, itemURL func(string) string, log *slog.Logger) notify.Notifier {
	var ns []notify.Notifier
	if cfg.Discord.Enabled {
		ns = append(ns, notify.NewDiscordNotifier(cfg.Discord.WebhookURL, notify.WithItemURL(itemURL)))
		log.Info("discord notifications enabled")
	}
	if cfg.Webhook.Enabled {
		var opts []notify.WebhookOption
		for k, v := range cfg.Webhook.Headers {
			opts = append(opts, notify.WithWebhookHeader(k, v))
		}
		ns = append(ns, notify.NewWebhookNotifier(cfg.Webhook.URL, opts...))
		log.Info("webhook notifications enabled", "url", cfg.Webhook.URL)
	}

	switch len(ns) {
	case 0:
		log.Warn("no notifier enabled, price drops will only be logged")
		return notify.NewNoOpNotifier(log)
	case 1:
		return ns[0]
	default:
		return notify.NewMultiNotifier(ns...)
	}
}
