// Package catalog fetches point-in-time price snapshots from the external
// ebook catalog, abstracted behind the Fetcher interface for testability.
package catalog

import (
	"context"
	"errors"
	"fmt"

	domain "github.com/donaldgifford/wishlist-tracker/pkg/types"
)

// Fetcher retrieves one snapshot for a catalog item. Implementations perform
// exactly one outbound request per call and never retry.
type Fetcher interface {
	Fetch(ctx context.Context, itemID string) (*domain.Snapshot, error)
}

var (
	// ErrUnreachable is returned when the catalog could not be reached or
	// answered with a non-success status. Callers may resubmit later.
	ErrUnreachable = errors.New("catalog unreachable")

	// ErrUnparseable is returned when the catalog page is missing a required
	// field. This usually means the item does not exist.
	ErrUnparseable = errors.New("catalog page unparseable")
)

// FetchError describes a failed fetch for a single item. It matches
// ErrUnreachable or ErrUnparseable via errors.Is.
type FetchError struct {
	ItemID string
	Kind   error
	Err    error
}

func (e *FetchError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("fetching %s: %v", e.ItemID, e.Kind)
	}
	return fmt.Sprintf("fetching %s: %v: %v", e.ItemID, e.Kind, e.Err)
}

// Is reports whether target is this error's kind.
func (e *FetchError) Is(target error) bool {
	return target == e.Kind
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

func unreachable(itemID string, err error) *FetchError {
	return &FetchError{ItemID: itemID, Kind: ErrUnreachable, Err: err}
}

func unparseable(itemID string, err error) *FetchError {
	return &FetchError{ItemID: itemID, Kind: ErrUnparseable, Err: err}
}

// Reason returns a short label for a fetch error, suitable for metric labels.
func Reason(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrUnreachable):
		return "unreachable"
	case errors.Is(err, ErrUnparseable):
		return "unparseable"
	default:
		return "error"
	}
}
