package gormstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Zhima-Mochi/storefront/internal/domain/cart"

	"gorm.io/gorm"
)

var activeSlot uint8 = 1

// CartStore keeps customer carts in carts and cart_lines.
type CartStore struct {
	s *Store
}

func (s *Store) Carts() *CartStore { return &CartStore{s: s} }

// Get returns the customer's active cart, locking its row inside a transaction.
func (r *CartStore) Get(ctx context.Context, key cart.Key) (*cart.Cart, error) {
	if key.Kind() != cart.KindDurable {
		return nil, cart.ErrNotFound
	}
	var rec cartRecord
	err := r.s.forUpdate(ctx).
		Where("tenant_id = ? AND customer_id = ? AND lifecycle = ?", key.TenantID, key.CustomerID, string(cart.LifecycleActive)).
		Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, cart.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("gormstore: load cart: %w", err)
	}
	if err := r.loadLines(ctx, &rec); err != nil {
		return nil, err
	}
	return rec.toDomain(), nil
}

// Save writes the cart row and replaces its lines.
func (r *CartStore) Save(ctx context.Context, c *cart.Cart) error {
	if c.CustomerID == "" {
		return fmt.Errorf("gormstore: durable carts need a customer")
	}
	rec := fromCart(c)
	return r.s.WithinTx(ctx, func(ctx context.Context) error {
		db := r.s.conn(ctx)
		if err := db.Omit("Lines").Save(&rec).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return fmt.Errorf("%w: customer %s", cart.ErrAlreadyActive, c.CustomerID)
			}
			return fmt.Errorf("gormstore: save cart: %w", err)
		}
		if err := db.Where("cart_id = ?", rec.ID).Delete(&cartLineRecord{}).Error; err != nil {
			return fmt.Errorf("gormstore: clear cart lines: %w", err)
		}
		if len(rec.Lines) == 0 {
			return nil
		}
		if err := db.Create(&rec.Lines).Error; err != nil {
			return fmt.Errorf("gormstore: save cart lines: %w", err)
		}
		return nil
	})
}

func (r *CartStore) Delete(ctx context.Context, key cart.Key) error {
	return r.s.WithinTx(ctx, func(ctx context.Context) error {
		db := r.s.conn(ctx)
		var ids []string
		if err := db.Model(&cartRecord{}).
			Where("tenant_id = ? AND customer_id = ? AND lifecycle = ?", key.TenantID, key.CustomerID, string(cart.LifecycleActive)).
			Pluck("id", &ids).Error; err != nil {
			return fmt.Errorf("gormstore: find cart: %w", err)
		}
		if len(ids) == 0 {
			return nil
		}
		if err := db.Where("cart_id IN ?", ids).Delete(&cartLineRecord{}).Error; err != nil {
			return fmt.Errorf("gormstore: delete cart lines: %w", err)
		}
		return db.Where("id IN ?", ids).Delete(&cartRecord{}).Error
	})
}

func (r *CartStore) LatestInactive(ctx context.Context, tenantID, customerID string) (*cart.Cart, error) {
	var rec cartRecord
	err := r.s.forUpdate(ctx).
		Where("tenant_id = ? AND customer_id = ? AND lifecycle = ?", tenantID, customerID, string(cart.LifecycleInactive)).
		Order("updated_at DESC").
		Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, cart.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("gormstore: load inactive cart: %w", err)
	}
	if err := r.loadLines(ctx, &rec); err != nil {
		return nil, err
	}
	return rec.toDomain(), nil
}

// PurgeInactiveBefore purges carts left inactive since before cutoff and drops their lines.
func (r *CartStore) PurgeInactiveBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	var purged int64
	err := r.s.WithinTx(ctx, func(ctx context.Context) error {
		db := r.s.conn(ctx)
		var ids []string
		if err := db.Model(&cartRecord{}).
			Where("lifecycle = ? AND updated_at < ?", string(cart.LifecycleInactive), cutoff.UTC()).
			Pluck("id", &ids).Error; err != nil {
			return fmt.Errorf("gormstore: find inactive carts: %w", err)
		}
		if len(ids) == 0 {
			return nil
		}
		if err := db.Where("cart_id IN ?", ids).Delete(&cartLineRecord{}).Error; err != nil {
			return fmt.Errorf("gormstore: purge cart lines: %w", err)
		}
		res := db.Model(&cartRecord{}).Where("id IN ?", ids).
			Updates(map[string]any{"lifecycle": string(cart.LifecyclePurged), "active_slot": nil})
		if res.Error != nil {
			return fmt.Errorf("gormstore: purge carts: %w", res.Error)
		}
		purged = res.RowsAffected
		return nil
	})
	return purged, err
}

func (r *CartStore) loadLines(ctx context.Context, rec *cartRecord) error {
	if err := r.s.conn(ctx).Where("cart_id = ?", rec.ID).Order("position").Find(&rec.Lines).Error; err != nil {
		return fmt.Errorf("gormstore: load cart lines: %w", err)
	}
	return nil
}

func fromCart(c *cart.Cart) cartRecord {
	rec := cartRecord{
		ID:               c.ID,
		TenantID:         c.TenantID,
		CustomerID:       c.CustomerID,
		Currency:         c.Currency,
		Subtotal:         c.Subtotal,
		ShippingCost:     c.ShippingCost,
		TaxAmount:        c.TaxAmount,
		DiscountAmount:   c.DiscountAmount,
		Total:            c.Total,
		CouponCode:       c.CouponCode,
		ShippingMethodID: c.ShippingMethodID,
		Lifecycle:        string(c.Lifecycle),
		ExpiresAt:        c.ExpiresAt,
		CreatedAt:        c.CreatedAt,
		UpdatedAt:        c.UpdatedAt,
	}
	if c.IsActive() {
		rec.ActiveSlot = &activeSlot
	}
	rec.Lines = make([]cartLineRecord, len(c.Lines))
	for i, l := range c.Lines {
		rec.Lines[i] = cartLineRecord{
			ID:        l.ID,
			CartID:    c.ID,
			Position:  i,
			ProductID: l.ProductID,
			VariantID: l.VariantID,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
			LineTotal: l.LineTotal,
			AddedAt:   l.AddedAt,
		}
	}
	return rec
}

func (rec cartRecord) toDomain() *cart.Cart {
	c := &cart.Cart{
		ID:               rec.ID,
		TenantID:         rec.TenantID,
		CustomerID:       rec.CustomerID,
		Currency:         rec.Currency,
		Subtotal:         rec.Subtotal,
		ShippingCost:     rec.ShippingCost,
		TaxAmount:        rec.TaxAmount,
		DiscountAmount:   rec.DiscountAmount,
		Total:            rec.Total,
		CouponCode:       rec.CouponCode,
		ShippingMethodID: rec.ShippingMethodID,
		Lifecycle:        cart.Lifecycle(rec.Lifecycle),
		ExpiresAt:        rec.ExpiresAt,
		CreatedAt:        rec.CreatedAt,
		UpdatedAt:        rec.UpdatedAt,
	}
	for _, l := range rec.Lines {
		c.Lines = append(c.Lines, cart.Line{
			ID:        l.ID,
			ProductID: l.ProductID,
			VariantID: l.VariantID,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
			LineTotal: l.LineTotal,
			AddedAt:   l.AddedAt,
		})
	}
	return c
}
