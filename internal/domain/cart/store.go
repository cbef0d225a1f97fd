package cart

import (
	"context"
	"time"
)

// Store persists carts by key. Both backends satisfy it; callers never need
// to know which one served a cart. Stores do not compute totals.
type Store interface {
	// Get returns ErrNotFound when no cart exists for key.
	Get(ctx context.Context, key Key) (*Cart, error)
	Save(ctx context.Context, c *Cart) error
	Delete(ctx context.Context, key Key) error
}

// DurableStore keeps customer carts indefinitely. Get only returns the
// active cart of a customer.
type DurableStore interface {
	Store
	// LatestInactive returns the most recently updated inactive cart of the customer.
	LatestInactive(ctx context.Context, tenantID, customerID string) (*Cart, error)
	// PurgeInactiveBefore moves carts inactive since before cutoff to the purged state.
	PurgeInactiveBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
