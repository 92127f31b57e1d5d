package notify

import (
	"context"
	"errors"

	domain "github.com/donaldgifford/wishlist-tracker/pkg/types"
)

// MultiNotifier fans each batch of drops out to several notifiers.
type MultiNotifier struct {
	notifiers []Notifier
}

// NewMultiNotifier creates a MultiNotifier delivering to every n in order.
func NewMultiNotifier(n ...Notifier) *MultiNotifier {
	return &MultiNotifier{notifiers: n}
}

// NotifyDrops delivers events to every notifier, even after one fails. The
// returned error joins all delivery failures.
func (m *MultiNotifier) NotifyDrops(ctx context.Context, user *domain.User, events []domain.DropEvent) error {
	var errs []error
	for _, n := range m.notifiers {
		if err := n.NotifyDrops(ctx, user, events); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
