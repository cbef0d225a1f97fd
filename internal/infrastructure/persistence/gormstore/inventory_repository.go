package gormstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/Zhima-Mochi/storefront/internal/domain/inventory"

	"gorm.io/gorm"
)

// InventoryRepository stores quantities on products and product_variants and
// the ledger in inventory_movements.
type InventoryRepository struct {
	s *Store
}

func (s *Store) Inventory() *InventoryRepository { return &InventoryRepository{s: s} }

// LockStock takes a row lock on the variant when ref names one and on the
// product otherwise. Variants take their tracking flags from the product.
func (r *InventoryRepository) LockStock(ctx context.Context, tenantID string, ref inventory.StockRef) (*inventory.Stock, error) {
	var product productRecord
	q := r.s.conn(ctx)
	if ref.VariantID == "" {
		q = r.s.forUpdate(ctx)
	}
	err := q.Where("tenant_id = ? AND id = ?", tenantID, ref.ProductID).Take(&product).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, inventory.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("gormstore: lock product: %w", err)
	}

	stock := &inventory.Stock{
		TenantID:       tenantID,
		Ref:            ref,
		Quantity:       product.CurrentQuantity,
		TrackInventory: product.TrackInventory,
		AllowBackorder: product.AllowBackorder,

		VirtualQuantity: product.VirtualStockQuantity,
	}
	if ref.VariantID == "" {
		return stock, nil
	}

	var variant variantRecord
	err = r.s.forUpdate(ctx).
		Where("tenant_id = ? AND product_id = ? AND id = ?", tenantID, ref.ProductID, ref.VariantID).
		Take(&variant).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, inventory.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("gormstore: lock variant: %w", err)
	}
	stock.Quantity = variant.CurrentQuantity
	return stock, nil
}

func (r *InventoryRepository) UpdateQuantity(ctx context.Context, tenantID string, ref inventory.StockRef, quantity int) error {
	var res *gorm.DB
	if ref.VariantID != "" {
		res = r.s.conn(ctx).Model(&variantRecord{}).
			Where("tenant_id = ? AND product_id = ? AND id = ?", tenantID, ref.ProductID, ref.VariantID).
			Update("current_quantity", quantity)
	} else {
		res = r.s.conn(ctx).Model(&productRecord{}).
			Where("tenant_id = ? AND id = ?", tenantID, ref.ProductID).
			Update("current_quantity", quantity)
	}
	if res.Error != nil {
		return fmt.Errorf("gormstore: update quantity: %w", res.Error)
	}
	return nil
}

func (r *InventoryRepository) AppendMovement(ctx context.Context, m *inventory.Movement) error {
	rec := movementRecord{
		ID:               m.ID,
		TenantID:         m.TenantID,
		ProductID:        m.ProductID,
		VariantID:        m.VariantID,
		Type:             string(m.Type),
		Quantity:         m.Quantity,
		PreviousQuantity: m.PreviousQuantity,
		NewQuantity:      m.NewQuantity,
		OrderID:          m.OrderID,
		OrderLineID:      m.OrderLineID,
		Reason:           m.Reason,
		Actor:            m.Actor,
		CreatedAt:        m.CreatedAt,
	}
	if err := r.s.conn(ctx).Create(&rec).Error; err != nil {
		return fmt.Errorf("gormstore: append movement: %w", err)
	}
	return nil
}

func (r *InventoryRepository) Movements(ctx context.Context, tenantID string, ref inventory.StockRef, limit int) ([]inventory.Movement, error) {
	var recs []movementRecord
	err := r.s.conn(ctx).
		Where("tenant_id = ? AND product_id = ? AND variant_id = ?", tenantID, ref.ProductID, ref.VariantID).
		Order("created_at DESC").
		Limit(limit).
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("gormstore: list movements: %w", err)
	}
	out := make([]inventory.Movement, len(recs))
	for i, rec := range recs {
		out[i] = inventory.Movement{
			ID:               rec.ID,
			TenantID:         rec.TenantID,
			ProductID:        rec.ProductID,
			VariantID:        rec.VariantID,
			Type:             inventory.MovementType(rec.Type),
			Quantity:         rec.Quantity,
			PreviousQuantity: rec.PreviousQuantity,
			NewQuantity:      rec.NewQuantity,
			OrderID:          rec.OrderID,
			OrderLineID:      rec.OrderLineID,
			Reason:           rec.Reason,
			Actor:            rec.Actor,
			CreatedAt:        rec.CreatedAt,
		}
	}
	return out, nil
}
