package memory

import (
	"context"
	"sort"

	domain "github.com/Zhima-Mochi/storefront/internal/domain/inventory"
)

// InventoryRepository keeps stock on the catalog items and the ledger in a slice.
type InventoryRepository struct {
	s *Store
}

func (s *Store) Inventory() *InventoryRepository { return &InventoryRepository{s: s} }

func (r *InventoryRepository) LockStock(ctx context.Context, tenantID string, ref domain.StockRef) (*domain.Stock, error) {
	var out *domain.Stock
	err := r.s.do(ctx, func(st *state) error {
		item, ok := st.items[itemKey{tenantID, ref.ProductID, ref.VariantID}]
		if !ok {
			return domain.ErrNotFound
		}
		out = &domain.Stock{
			TenantID:       tenantID,
			Ref:            ref,
			Quantity:       item.CurrentQuantity,
			TrackInventory: item.TrackInventory,
			AllowBackorder: item.AllowBackorder,

			VirtualQuantity: item.VirtualStockQuantity,
		}
		return nil
	})
	return out, err
}

func (r *InventoryRepository) UpdateQuantity(ctx context.Context, tenantID string, ref domain.StockRef, quantity int) error {
	return r.s.do(ctx, func(st *state) error {
		key := itemKey{tenantID, ref.ProductID, ref.VariantID}
		item, ok := st.items[key]
		if !ok {
			return domain.ErrNotFound
		}
		item.CurrentQuantity = quantity
		st.items[key] = item
		return nil
	})
}

func (r *InventoryRepository) AppendMovement(ctx context.Context, m *domain.Movement) error {
	return r.s.do(ctx, func(st *state) error {
		st.movements = append(st.movements, *m)
		return nil
	})
}

func (r *InventoryRepository) Movements(ctx context.Context, tenantID string, ref domain.StockRef, limit int) ([]domain.Movement, error) {
	var out []domain.Movement
	err := r.s.do(ctx, func(st *state) error {
		for i := len(st.movements) - 1; i >= 0; i-- {
			m := st.movements[i]
			if m.TenantID == tenantID && m.ProductID == ref.ProductID && m.VariantID == ref.VariantID {
				out = append(out, m)
			}
		}
		return nil
	})
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, err
}
