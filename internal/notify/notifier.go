// Package notify defines the notification interface and implementations
// for price drop delivery.
package notify

import (
	"context"

	domain "github.com/donaldgifford/wishlist-tracker/pkg/types"
)

// Notifier delivers the drop events found in one refresh cycle for a user.
// Callers invoke it at most once per cycle and only with a non-empty list.
type Notifier interface {
	NotifyDrops(ctx context.Context, user *domain.User, events []domain.DropEvent) error
}
