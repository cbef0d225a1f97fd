package memory

import (
	"context"
	"fmt"

	"github.com/Zhima-Mochi/storefront/internal/domain/cart"
	"github.com/Zhima-Mochi/storefront/internal/domain/catalog"
	"github.com/Zhima-Mochi/storefront/internal/domain/failure"
	"github.com/Zhima-Mochi/storefront/internal/domain/tenant"

	"github.com/shopspring/decimal"
)

var (
	ErrShippingMethodNotFound = fmt.Errorf("shipping method %w", failure.ErrNotFound)
	ErrRateNotFound           = fmt.Errorf("exchange rate %w", failure.ErrNotFound)
)

func (s *Store) Resolve(ctx context.Context, tenantID, productID, variantID string) (*catalog.Item, error) {
	var out *catalog.Item
	err := s.do(ctx, func(st *state) error {
		item, ok := st.items[itemKey{tenantID, productID, variantID}]
		if !ok {
			return catalog.ErrNotFound
		}
		out = &item
		return nil
	})
	return out, err
}

func (s *Store) Lookup(ctx context.Context, tenantID string) (*tenant.Tenant, error) {
	var out *tenant.Tenant
	err := s.do(ctx, func(st *state) error {
		t, ok := st.tenants[tenantID]
		if !ok {
			return tenant.ErrNotFound
		}
		out = &t
		return nil
	})
	return out, err
}

// Quote returns the flat cost of a tenant's shipping method.
func (s *Store) Quote(ctx context.Context, tenantID, methodID string, _ *cart.Cart) (decimal.Decimal, error) {
	var cost decimal.Decimal
	err := s.do(ctx, func(st *state) error {
		c, ok := st.shipping[scoped(tenantID, methodID)]
		if !ok {
			return ErrShippingMethodNotFound
		}
		cost = c
		return nil
	})
	return cost, err
}

// Rate returns the multiplier converting one unit of from into to.
func (s *Store) Rate(ctx context.Context, from, to string) (decimal.Decimal, error) {
	var rate decimal.Decimal
	err := s.do(ctx, func(st *state) error {
		r, ok := st.rates[from+"/"+to]
		if !ok {
			return fmt.Errorf("%w: %s/%s", ErrRateNotFound, from, to)
		}
		rate = r
		return nil
	})
	return rate, err
}
