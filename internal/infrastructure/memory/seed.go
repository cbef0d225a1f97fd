package memory

import (
	"github.com/Zhima-Mochi/storefront/internal/domain/catalog"
	"github.com/Zhima-Mochi/storefront/internal/domain/loyalty"
	"github.com/Zhima-Mochi/storefront/internal/domain/tenant"

	"github.com/shopspring/decimal"
)

// Seeding helpers for tests and the memory backend.

func (s *Store) PutTenant(t tenant.Tenant) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.tenants[t.ID] = t
}

// PutItem stores a sellable product or variant. CurrentQuantity is its stock.
func (s *Store) PutItem(item catalog.Item) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.items[itemKey{item.TenantID, item.ProductID, item.VariantID}] = item
}

func (s *Store) PutProgram(p loyalty.Program) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.programs[p.TenantID] = p
}

func (s *Store) PutShippingMethod(tenantID, methodID string, cost decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.shipping[scoped(tenantID, methodID)] = cost
}

func (s *Store) PutRate(from, to string, rate decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.rates[from+"/"+to] = rate
}

// Quantity reports the current stock of a product or variant; ok is false when unknown.
func (s *Store) Quantity(tenantID, productID, variantID string) (qty int, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.st.items[itemKey{tenantID, productID, variantID}]
	return item.CurrentQuantity, ok
}

// OrderCount is the number of stored orders of a tenant.
func (s *Store) OrderCount(tenantID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, o := range s.st.orders {
		if o.TenantID == tenantID {
			n++
		}
	}
	return n
}
