package memory

import (
	"context"
	"fmt"

	domain "github.com/Zhima-Mochi/storefront/internal/domain/order"
)

type OrderRepository struct {
	s *Store
}

func (s *Store) Orders() *OrderRepository { return &OrderRepository{s: s} }

func (r *OrderRepository) Insert(ctx context.Context, order *domain.Order) error {
	if order == nil || order.ID == "" {
		return fmt.Errorf("order repository: id is required")
	}
	return r.s.do(ctx, func(st *state) error {
		key := scoped(order.TenantID, order.ID)
		if _, exists := st.orders[key]; exists {
			return domain.ErrConflict
		}
		if _, taken := st.numbers[order.Number]; taken {
			return domain.ErrConflict
		}
		st.orders[key] = order.Clone()
		st.numbers[order.Number] = order.ID
		return nil
	})
}

func (r *OrderRepository) Get(ctx context.Context, tenantID, id string) (*domain.Order, error) {
	var out *domain.Order
	err := r.s.do(ctx, func(st *state) error {
		order, ok := st.orders[scoped(tenantID, id)]
		if !ok {
			return domain.ErrNotFound
		}
		out = order.Clone()
		return nil
	})
	return out, err
}

// GetForUpdate is Get; the store lock held by the unit of work serialises writers.
func (r *OrderRepository) GetForUpdate(ctx context.Context, tenantID, id string) (*domain.Order, error) {
	return r.Get(ctx, tenantID, id)
}

func (r *OrderRepository) Update(ctx context.Context, order *domain.Order) error {
	if order == nil || order.ID == "" {
		return fmt.Errorf("order repository: id is required")
	}
	return r.s.do(ctx, func(st *state) error {
		key := scoped(order.TenantID, order.ID)
		existing, ok := st.orders[key]
		if !ok {
			return domain.ErrNotFound
		}
		updated := order.Clone()
		updated.Lines = existing.Lines
		st.orders[key] = updated
		return nil
	})
}
