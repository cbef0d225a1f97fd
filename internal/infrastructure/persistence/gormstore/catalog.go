package gormstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/Zhima-Mochi/storefront/internal/domain/cart"
	"github.com/Zhima-Mochi/storefront/internal/domain/catalog"
	"github.com/Zhima-Mochi/storefront/internal/domain/failure"
	"github.com/Zhima-Mochi/storefront/internal/domain/tenant"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	ErrShippingMethodNotFound = fmt.Errorf("shipping method %w", failure.ErrNotFound)
	ErrRateNotFound           = fmt.Errorf("exchange rate %w", failure.ErrNotFound)
)

// Resolve reads a product, or a variant of it, scoped to the tenant.
func (s *Store) Resolve(ctx context.Context, tenantID, productID, variantID string) (*catalog.Item, error) {
	var p productRecord
	err := s.conn(ctx).Where("tenant_id = ? AND id = ?", tenantID, productID).Take(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, catalog.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("gormstore: load product: %w", err)
	}
	item := &catalog.Item{
		TenantID:             tenantID,
		ProductID:            p.ID,
		Name:                 p.Name,
		SKU:                  p.SKU,
		UnitPrice:            p.Price,
		Currency:             p.Currency,
		ImageURL:             p.ImageURL,
		TrackInventory:       p.TrackInventory,
		CurrentQuantity:      p.CurrentQuantity,
		AllowBackorder:       p.AllowBackorder,
		VirtualStockQuantity: p.VirtualStockQuantity,
	}
	if variantID == "" {
		return item, nil
	}

	var v variantRecord
	err = s.conn(ctx).Where("tenant_id = ? AND product_id = ? AND id = ?", tenantID, productID, variantID).Take(&v).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, catalog.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("gormstore: load variant: %w", err)
	}
	item.VariantID = v.ID
	item.CurrentQuantity = v.CurrentQuantity
	if v.Name != "" {
		item.Name = p.Name + " - " + v.Name
	}
	if v.SKU != "" {
		item.SKU = v.SKU
	}
	if v.Price != nil {
		item.UnitPrice = *v.Price
	}
	if v.ImageURL != "" {
		item.ImageURL = v.ImageURL
	}
	return item, nil
}

func (s *Store) Lookup(ctx context.Context, tenantID string) (*tenant.Tenant, error) {
	var rec tenantRecord
	err := s.conn(ctx).Where("id = ?", tenantID).Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, tenant.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("gormstore: load tenant: %w", err)
	}
	return &tenant.Tenant{
		ID:              rec.ID,
		Slug:            rec.Slug,
		DefaultCurrency: rec.DefaultCurrency,
		TaxRate:         rec.TaxRate,
	}, nil
}

// Quote prices an active shipping method, waiving it above its free threshold.
func (s *Store) Quote(ctx context.Context, tenantID, methodID string, c *cart.Cart) (decimal.Decimal, error) {
	var rec shippingMethodRecord
	err := s.conn(ctx).Where("tenant_id = ? AND id = ? AND active = ?", tenantID, methodID, true).Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return decimal.Zero, ErrShippingMethodNotFound
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("gormstore: load shipping method: %w", err)
	}
	if rec.FreeAbove != nil && c != nil && !c.IsEmpty() {
		subtotal := decimal.Zero
		for _, l := range c.Lines {
			subtotal = subtotal.Add(l.LineTotal)
		}
		if subtotal.GreaterThanOrEqual(*rec.FreeAbove) {
			return decimal.Zero, nil
		}
	}
	return rec.Cost, nil
}

func (s *Store) Rate(ctx context.Context, from, to string) (decimal.Decimal, error) {
	var rec exchangeRateRecord
	err := s.conn(ctx).Where("from_currency = ? AND to_currency = ?", from, to).Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return decimal.Zero, fmt.Errorf("%w: %s/%s", ErrRateNotFound, from, to)
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("gormstore: load exchange rate: %w", err)
	}
	return rec.Rate, nil
}
