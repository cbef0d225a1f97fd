// Package memory keeps every repository in process memory. All tables share
// one lock; a unit of work holds it for its whole duration and restores a
// snapshot when it fails, which gives the same all-or-nothing behaviour as
// the SQL backend without row-level concurrency.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/Zhima-Mochi/storefront/internal/domain/cart"
	"github.com/Zhima-Mochi/storefront/internal/domain/catalog"
	"github.com/Zhima-Mochi/storefront/internal/domain/inventory"
	"github.com/Zhima-Mochi/storefront/internal/domain/loyalty"
	"github.com/Zhima-Mochi/storefront/internal/domain/order"
	"github.com/Zhima-Mochi/storefront/internal/domain/tenant"

	"github.com/shopspring/decimal"
)

type txKey struct{}

type Store struct {
	mu  sync.Mutex
	st  state
	now func() time.Time
}

func NewStore() *Store {
	return &Store{st: newState(), now: time.Now}
}

// WithinTx runs fn holding the store lock. Writes are discarded when fn fails.
// Nested calls on the same store join the outer unit.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.inTx(ctx) {
		return fn(ctx)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.st.clone()
	if err := fn(context.WithValue(ctx, txKey{}, s)); err != nil {
		s.st = snapshot
		return err
	}
	return nil
}

func (s *Store) inTx(ctx context.Context) bool {
	owner, _ := ctx.Value(txKey{}).(*Store)
	return owner == s
}

// do runs fn with the store lock held, reusing the lock of an open unit.
func (s *Store) do(ctx context.Context, fn func(st *state) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.inTx(ctx) {
		return fn(&s.st)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(&s.st)
}

type itemKey struct {
	tenantID  string
	productID string
	variantID string
}

type state struct {
	tenants    map[string]tenant.Tenant
	items      map[itemKey]catalog.Item
	shipping   map[string]decimal.Decimal // tenant/method
	rates      map[string]decimal.Decimal // from/to
	carts      map[string]*cart.Cart      // by cart id
	orders     map[string]*order.Order    // tenant/id
	numbers    map[string]string          // order number -> order id
	movements  []inventory.Movement
	programs   map[string]loyalty.Program
	accounts   map[string]*loyalty.Account // tenant/customer
	loyaltyTxs []loyalty.Transaction
}

func newState() state {
	return state{
		tenants:  make(map[string]tenant.Tenant),
		items:    make(map[itemKey]catalog.Item),
		shipping: make(map[string]decimal.Decimal),
		rates:    make(map[string]decimal.Decimal),
		carts:    make(map[string]*cart.Cart),
		orders:   make(map[string]*order.Order),
		numbers:  make(map[string]string),
		programs: make(map[string]loyalty.Program),
		accounts: make(map[string]*loyalty.Account),
	}
}

func (st state) clone() state {
	c := newState()
	for k, v := range st.tenants {
		c.tenants[k] = v
	}
	for k, v := range st.items {
		c.items[k] = v
	}
	for k, v := range st.shipping {
		c.shipping[k] = v
	}
	for k, v := range st.rates {
		c.rates[k] = v
	}
	for k, v := range st.carts {
		c.carts[k] = v.Clone()
	}
	for k, v := range st.orders {
		c.orders[k] = v.Clone()
	}
	for k, v := range st.numbers {
		c.numbers[k] = v
	}
	c.movements = append([]inventory.Movement(nil), st.movements...)
	for k, v := range st.programs {
		c.programs[k] = v
	}
	for k, v := range st.accounts {
		a := *v
		c.accounts[k] = &a
	}
	c.loyaltyTxs = append([]loyalty.Transaction(nil), st.loyaltyTxs...)
	return c
}

func scoped(tenantID, id string) string {
	return tenantID + "/" + id
}
