package memory

import (
	"context"
	"sync"
	"time"

	"github.com/Zhima-Mochi/storefront/internal/domain/cart"
)

// EphemeralCartStore keeps session carts with a sliding expiry, mirroring
// the Redis store.
type EphemeralCartStore struct {
	mu   sync.Mutex
	ttl  time.Duration
	now  func() time.Time
	docs map[string]ephemeralEntry
}

type ephemeralEntry struct {
	cart      *cart.Cart
	expiresAt time.Time
}

func NewEphemeralCartStore(ttl time.Duration) *EphemeralCartStore {
	return &EphemeralCartStore{ttl: ttl, now: time.Now, docs: make(map[string]ephemeralEntry)}
}

// WithClock replaces the time source used for expiry.
func (r *EphemeralCartStore) WithClock(now func() time.Time) *EphemeralCartStore {
	r.now = now
	return r
}

func ephemeralKey(key cart.Key) string {
	return "cart:" + key.TenantID + ":" + key.SessionID
}

func (r *EphemeralCartStore) Get(ctx context.Context, key cart.Key) (*cart.Cart, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.docs[ephemeralKey(key)]
	if !ok {
		return nil, cart.ErrNotFound
	}
	if !r.now().Before(e.expiresAt) {
		delete(r.docs, ephemeralKey(key))
		return nil, cart.ErrNotFound
	}
	return e.cart.Clone(), nil
}

// Save stores c and resets its expiry.
func (r *EphemeralCartStore) Save(ctx context.Context, c *cart.Cart) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.docs[ephemeralKey(c.Key())] = ephemeralEntry{cart: c.Clone(), expiresAt: r.now().Add(r.ttl)}
	return nil
}

func (r *EphemeralCartStore) Delete(ctx context.Context, key cart.Key) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.docs, ephemeralKey(key))
	return nil
}
