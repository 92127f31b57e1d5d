package notify

import (
	"context"
	"log/slog"

	domain "github.com/donaldgifford/wishlist-tracker/pkg/types"
)

// NoOpNotifier implements Notifier by logging discarded drops. It is used
// when no notification backend is configured.
type NoOpNotifier struct {
	log *slog.Logger
}

// NewNoOpNotifier creates a notifier that discards drops with a log message.
func NewNoOpNotifier(log *slog.Logger) *NoOpNotifier {
	return &NoOpNotifier{log: log}
}

// NotifyDrops logs and discards the events.
func (n *NoOpNotifier) NotifyDrops(_ context.Context, user *domain.User, events []domain.DropEvent) error {
	n.log.Debug("drop notification discarded (no backend configured)",
		"user", user.Username,
		"count", len(events),
	)
	return nil
}
