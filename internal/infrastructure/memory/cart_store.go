package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/Zhima-Mochi/storefront/internal/domain/cart"
)

// CartStore is the durable customer cart store.
type CartStore struct {
	s *Store
}

func (s *Store) Carts() *CartStore { return &CartStore{s: s} }

func (r *CartStore) Get(ctx context.Context, key cart.Key) (*cart.Cart, error) {
	if key.Kind() != cart.KindDurable {
		return nil, cart.ErrNotFound
	}
	var out *cart.Cart
	err := r.s.do(ctx, func(st *state) error {
		for _, c := range st.carts {
			if c.TenantID == key.TenantID && c.CustomerID == key.CustomerID && c.IsActive() {
				out = c.Clone()
				return nil
			}
		}
		return cart.ErrNotFound
	})
	return out, err
}

// Save stores c. A second active cart for the same customer is rejected.
func (r *CartStore) Save(ctx context.Context, c *cart.Cart) error {
	if c == nil || c.ID == "" {
		return fmt.Errorf("cart store: id is required")
	}
	return r.s.do(ctx, func(st *state) error {
		if c.IsActive() {
			for id, other := range st.carts {
				if id != c.ID && other.TenantID == c.TenantID && other.CustomerID == c.CustomerID && other.IsActive() {
					return fmt.Errorf("%w: customer %s, cart %s", cart.ErrAlreadyActive, c.CustomerID, id)
				}
			}
		}
		st.carts[c.ID] = c.Clone()
		return nil
	})
}

func (r *CartStore) Delete(ctx context.Context, key cart.Key) error {
	return r.s.do(ctx, func(st *state) error {
		for id, c := range st.carts {
			if c.TenantID == key.TenantID && c.CustomerID == key.CustomerID && c.IsActive() {
				delete(st.carts, id)
			}
		}
		return nil
	})
}

func (r *CartStore) LatestInactive(ctx context.Context, tenantID, customerID string) (*cart.Cart, error) {
	var out *cart.Cart
	err := r.s.do(ctx, func(st *state) error {
		for _, c := range st.carts {
			if c.TenantID != tenantID || c.CustomerID != customerID || c.Lifecycle != cart.LifecycleInactive {
				continue
			}
			if out == nil || c.UpdatedAt.After(out.UpdatedAt) {
				out = c
			}
		}
		if out == nil {
			return cart.ErrNotFound
		}
		out = out.Clone()
		return nil
	})
	return out, err
}

func (r *CartStore) PurgeInactiveBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	var n int64
	err := r.s.do(ctx, func(st *state) error {
		for _, c := range st.carts {
			if c.Lifecycle == cart.LifecycleInactive && c.UpdatedAt.Before(cutoff) {
				c.Lifecycle = cart.LifecyclePurged
				c.Lines = nil
				n++
			}
		}
		return nil
	})
	return n, err
}
