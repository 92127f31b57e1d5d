package notify

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	domain "github.com/donaldgifford/wishlist-tracker/pkg/types"
)

func TestNoOpNotifier_NotifyDrops(t *testing.T) {
	t.Parallel()

	n := NewNoOpNotifier(slog.New(slog.NewTextHandler(io.Discard, nil)))
	err := n.NotifyDrops(context.Background(), testUser(), testDrops(2))
	require.NoError(t, err)
}

func TestNoOpNotifier_NotifyDrops_Empty(t *testing.T) {
	t.Parallel()

	n := NewNoOpNotifier(slog.New(slog.NewTextHandler(io.Discard, nil)))
	err := n.NotifyDrops(context.Background(), &domain.User{Username: "empty"}, nil)
	require.NoError(t, err)
}

// compile-time interface checks.
var (
	_ Notifier = (*NoOpNotifier)(nil)
	_ Notifier = (*DiscordNotifier)(nil)
	_ Notifier = (*WebhookNotifier)(nil)
	_ Notifier = (*MultiNotifier)(nil)
)
