// Package rediscart stores session carts as JSON documents under
// cart:{tenant}:{session} with a sliding expiry.
package rediscart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Zhima-Mochi/storefront/internal/domain/cart"
	"github.com/Zhima-Mochi/storefront/internal/observability"
	"github.com/Zhima-Mochi/storefront/internal/observability/logctx"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

const DefaultTTL = 30 * 24 * time.Hour

type Store struct {
	rdb redis.UniversalClient
	ttl time.Duration
	log observability.Logger
}

func New(rdb redis.UniversalClient, ttl time.Duration, logger observability.Logger) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &Store{rdb: rdb, ttl: ttl, log: logger.With(observability.F("component", "rediscart"))}
}

func Key(key cart.Key) string {
	return fmt.Sprintf("cart:%s:%s", key.TenantID, key.SessionID)
}

// Get returns cart.ErrNotFound for missing and for undecodable documents.
func (s *Store) Get(ctx context.Context, key cart.Key) (*cart.Cart, error) {
	raw, err := s.rdb.Get(ctx, Key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, cart.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("rediscart: get %s: %w", Key(key), err)
	}

	var doc document
	if err := json.Unmarshal(raw, &doc); err != nil {
		logctx.FromOr(ctx, s.log).Warn("ephemeral_cart_unreadable",
			observability.F("key", Key(key)),
			observability.Err(err),
		)
		return nil, cart.ErrNotFound
	}
	c := doc.toCart()
	if c.TenantID != key.TenantID || c.SessionID != key.SessionID {
		logctx.FromOr(ctx, s.log).Warn("ephemeral_cart_unreadable",
			observability.F("key", Key(key)),
			observability.F("error", "identity mismatch"),
		)
		return nil, cart.ErrNotFound
	}
	return c, nil
}

// Save writes c and resets the key's expiry.
func (s *Store) Save(ctx context.Context, c *cart.Cart) error {
	raw, err := json.Marshal(fromCart(c))
	if err != nil {
		return fmt.Errorf("rediscart: encode: %w", err)
	}
	if err := s.rdb.Set(ctx, Key(c.Key()), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("rediscart: set %s: %w", Key(c.Key()), err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, key cart.Key) error {
	if err := s.rdb.Del(ctx, Key(key)).Err(); err != nil {
		return fmt.Errorf("rediscart: del %s: %w", Key(key), err)
	}
	return nil
}

type document struct {
	ID               string          `json:"id"`
	TenantID         string          `json:"tenant_id"`
	SessionID        string          `json:"session_id"`
	Currency         string          `json:"currency"`
	Lines            []lineDocument  `json:"lines"`
	Subtotal         decimal.Decimal `json:"subtotal"`
	ShippingCost     decimal.Decimal `json:"shipping_cost"`
	TaxAmount        decimal.Decimal `json:"tax_amount"`
	DiscountAmount   decimal.Decimal `json:"discount_amount"`
	Total            decimal.Decimal `json:"total"`
	CouponCode       string          `json:"applied_coupon_code,omitempty"`
	ShippingMethodID string          `json:"applied_shipping_method_id,omitempty"`
	Lifecycle        cart.Lifecycle  `json:"lifecycle"`
	ExpiresAt        *time.Time      `json:"expires_at,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

type lineDocument struct {
	ID        string          `json:"id"`
	ProductID string          `json:"product_id"`
	VariantID string          `json:"variant_id,omitempty"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	LineTotal decimal.Decimal `json:"line_total"`
	AddedAt   time.Time       `json:"added_at"`
}

func fromCart(c *cart.Cart) document {
	d := document{
		ID:               c.ID,
		TenantID:         c.TenantID,
		SessionID:        c.SessionID,
		Currency:         c.Currency,
		Subtotal:         c.Subtotal,
		ShippingCost:     c.ShippingCost,
		TaxAmount:        c.TaxAmount,
		DiscountAmount:   c.DiscountAmount,
		Total:            c.Total,
		CouponCode:       c.CouponCode,
		ShippingMethodID: c.ShippingMethodID,
		Lifecycle:        c.Lifecycle,
		ExpiresAt:        c.ExpiresAt,
		CreatedAt:        c.CreatedAt,
		UpdatedAt:        c.UpdatedAt,
	}
	d.Lines = make([]lineDocument, len(c.Lines))
	for i, l := range c.Lines {
		d.Lines[i] = lineDocument(l)
	}
	return d
}

func (d document) toCart() *cart.Cart {
	c := &cart.Cart{
		ID:               d.ID,
		TenantID:         d.TenantID,
		SessionID:        d.SessionID,
		Currency:         d.Currency,
		Subtotal:         d.Subtotal,
		ShippingCost:     d.ShippingCost,
		TaxAmount:        d.TaxAmount,
		DiscountAmount:   d.DiscountAmount,
		Total:            d.Total,
		CouponCode:       d.CouponCode,
		ShippingMethodID: d.ShippingMethodID,
		Lifecycle:        d.Lifecycle,
		ExpiresAt:        d.ExpiresAt,
		CreatedAt:        d.CreatedAt,
		UpdatedAt:        d.UpdatedAt,
	}
	if c.Lifecycle == "" {
		c.Lifecycle = cart.LifecycleActive
	}
	for _, l := range d.Lines {
		c.Lines = append(c.Lines, cart.Line(l))
	}
	return c
}
