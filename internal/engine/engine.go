package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/donaldgifford/wishlist-tracker/internal/catalog"
	"github.com/donaldgifford/wishlist-tracker/internal/metrics"
	"github.com/donaldgifford/wishlist-tracker/internal/notify"
	"github.com/donaldgifford/wishlist-tracker/internal/store"
	"github.com/donaldgifford/wishlist-tracker/internal/taskq"
	"github.com/donaldgifford/wishlist-tracker/pkg/history"
	domain "github.com/donaldgifford/wishlist-tracker/pkg/types"
)

// Submitter is the subset of the task scheduler the engine needs.
type Submitter interface {
	Submit(itemID string, opts ...taskq.SubmitOption) *taskq.Future
	SubmitAndWait(ctx context.Context, itemID string, opts ...taskq.SubmitOption) (*domain.Snapshot, error)
}

// Engine orchestrates wishlist refreshes: fetch through the scheduler,
// persist, compare and notify.
type Engine struct {
	store     store.Store
	scheduler Submitter
	notifier  notify.Notifier
	log       *slog.Logger

	batchDeadline time.Duration
	submitOpts    []taskq.SubmitOption
}

// NewEngine creates a new Engine with injected dependencies.
func NewEngine(
	s store.Store,
	sched Submitter,
	n notify.Notifier,
	opts ...EngineOption,
) *Engine {
	eng := &Engine{
		store:     s,
		scheduler: sched,
		notifier:  n,
		log:       slog.Default(),
	}
	for _, opt := range opts {
		opt(eng)
	}
	return eng
}

// EngineOption configures the Engine.
type EngineOption func(*Engine)

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) {
		e.log = l
	}
}

// WithBatchDeadline bounds how long a refresh waits for its fetches. Items
// not fetched in time are skipped like any other fetch failure. Zero means
// no deadline.
func WithBatchDeadline(d time.Duration) EngineOption {
	return func(e *Engine) {
		e.batchDeadline = d
	}
}

// WithSubmitDelay sets the initial delay applied to every submitted fetch.
func WithSubmitDelay(d time.Duration) EngineOption {
	return func(e *Engine) {
		e.submitOpts = []taskq.SubmitOption{taskq.WithDelay(d)}
	}
}

// Track fetches a single item immediately and records it for the user.
// Fetch errors and store.ErrDuplicate are returned to the caller.
func (eng *Engine) Track(
	ctx context.Context,
	user *domain.User,
	itemID string,
) (*domain.Snapshot, error) {
	ctx, span := otel.Tracer("engine").Start(ctx, "engine.Track")
	defer span.End()
	span.SetAttributes(attribute.String("item.id", itemID))

	snap, err := eng.scheduler.SubmitAndWait(ctx, itemID, eng.submitOpts...)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, catalog.Reason(err))
		return nil, err
	}

	if err := eng.store.AppendSnapshot(ctx, user.ID, snap); err != nil {
		if !errors.Is(err, store.ErrDuplicate) {
			span.RecordError(err)
			span.SetStatus(codes.Error, "persist failed")
		}
		return snap, fmt.Errorf("recording snapshot for %s: %w", itemID, err)
	}

	eng.log.Info("item tracked",
		"user", user.Username,
		"item_id", itemID,
		"title", snap.Title,
		"price", snap.Price.StringFixed(2),
	)
	return snap, nil
}

// RefreshAndNotify refreshes every item the user tracks, records the new
// snapshots and notifies the user once about any price drops. Per-item
// failures are logged and skipped; only failing to read the user's history
// returns an error. Notifier failures are logged, not returned.
func (eng *Engine) RefreshAndNotify(
	ctx context.Context,
	user *domain.User,
) ([]domain.DropEvent, error) {
	start := time.Now()
	defer func() {
		metrics.RefreshDuration.Observe(time.Since(start).Seconds())
	}()

	ctx, span := otel.Tracer("engine").Start(ctx, "engine.RefreshAndNotify")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", user.ID))

	snapshots, err := eng.store.ListSnapshots(ctx, user.ID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "listing snapshots")
		return nil, fmt.Errorf("listing snapshots for %s: %w", user.Username, err)
	}

	tracked := history.TrackedSet(snapshots)
	span.SetAttributes(attribute.Int("items.tracked", len(tracked)))
	if len(tracked) == 0 {
		return nil, nil
	}

	eng.log.Info("refresh starting", "user", user.Username, "items", len(tracked))

	fresh := eng.fetchAll(ctx, tracked)
	persisted := eng.persistAll(ctx, user, fresh)

	snapshots, err = eng.store.ListSnapshots(ctx, user.ID)
	if err != nil {
		// The new snapshots are already stored; the next cycle compares them.
		eng.log.Error("re-reading snapshots failed", "user", user.Username, "error", err)
		return nil, nil
	}

	events := DetectDrops(user, history.ComparisonPairs(snapshots))
	metrics.DropEventsTotal.Add(float64(len(events)))
	span.SetAttributes(attribute.Int("drops", len(events)))

	eng.log.Info("refresh complete",
		"user", user.Username,
		"tracked", len(tracked),
		"fetched", len(fresh),
		"persisted", persisted,
		"drops", len(events),
	)

	if len(events) > 0 {
		eng.notify(ctx, user, events)
	}
	return events, nil
}

// RefreshAll runs RefreshAndNotify for every user in turn and returns the
// total number of drop events.
func (eng *Engine) RefreshAll(ctx context.Context) (int, error) {
	users, err := eng.store.ListUsers(ctx)
	if err != nil {
		return 0, fmt.Errorf("listing users: %w", err)
	}

	var total int
	for i := range users {
		if ctx.Err() != nil {
			return total, ctx.Err()
		}
		events, err := eng.RefreshAndNotify(ctx, &users[i])
		if err != nil {
			eng.log.Error("user refresh failed", "user", users[i].Username, "error", err)
			continue
		}
		total += len(events)
	}
	return total, nil
}

// DetectDrops returns a drop event for every pair whose current price is
// strictly below its previous price, ordered by title.
func DetectDrops(user *domain.User, pairs map[string]domain.ComparisonPair) []domain.DropEvent {
	var events []domain.DropEvent
	for _, title := range history.SortedTitles(pairs) {
		p := pairs[title]
		if !p.Dropped() {
			continue
		}
		events = append(events, domain.DropEvent{
			UserID:        user.ID,
			Title:         title,
			ItemID:        p.Current.ItemID,
			ImageURL:      p.Current.ImageURL,
			CurrentPrice:  p.Current.Price,
			PreviousPrice: p.Previous.Price,
		})
	}
	return events
}

// fetchAll submits every item and collects the snapshots that arrive. The
// result is ordered by item ID.
func (eng *Engine) fetchAll(ctx context.Context, itemIDs []string) []*domain.Snapshot {
	waitCtx := ctx
	if eng.batchDeadline > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, eng.batchDeadline)
		defer cancel()
	}

	futures := make([]*taskq.Future, len(itemIDs))
	for i, id := range itemIDs {
		futures[i] = eng.scheduler.Submit(id, eng.submitOpts...)
	}

	out := make([]*domain.Snapshot, 0, len(futures))
	for _, f := range futures {
		snap, err := f.Wait(waitCtx)
		if err != nil {
			if waitCtx.Err() != nil {
				f.Cancel()
			}
			eng.log.Warn("fetch failed, skipping",
				"item_id", f.ItemID(),
				"reason", catalog.Reason(err),
				"error", err,
			)
			metrics.RefreshItemsTotal.WithLabelValues("fetch_failed").Inc()
			continue
		}
		out = append(out, snap)
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].ItemID < out[j].ItemID })
	return out
}

func (eng *Engine) persistAll(ctx context.Context, user *domain.User, snaps []*domain.Snapshot) int {
	var n int
	for _, snap := range snaps {
		err := eng.store.AppendSnapshot(ctx, user.ID, snap)
		switch {
		case err == nil:
			n++
			metrics.RefreshItemsTotal.WithLabelValues("persisted").Inc()
		case errors.Is(err, store.ErrDuplicate):
			eng.log.Debug("snapshot already recorded", "item_id", snap.ItemID)
			metrics.RefreshItemsTotal.WithLabelValues("duplicate").Inc()
		default:
			eng.log.Error("persisting snapshot failed", "item_id", snap.ItemID, "error", err)
			metrics.RefreshItemsTotal.WithLabelValues("persist_failed").Inc()
		}
	}
	return n
}

func (eng *Engine) notify(ctx context.Context, user *domain.User, events []domain.DropEvent) {
	if err := eng.notifier.NotifyDrops(ctx, user, events); err != nil {
		eng.log.Error("sending drop notification failed",
			"user", user.Username,
			"drops", len(events),
			"error", err,
		)
		metrics.NotificationFailuresTotal.Inc()
		return
	}
	metrics.NotificationsSentTotal.Inc()
}
