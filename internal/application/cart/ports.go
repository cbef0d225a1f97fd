package cart

import (
	"context"

	domcart "github.com/Zhima-Mochi/storefront/internal/domain/cart"

	"github.com/shopspring/decimal"
)

type IDGenerator interface {
	NewID() string
}

// CurrencyConverter converts an amount between ISO currency codes.
type CurrencyConverter interface {
	Convert(ctx context.Context, amount decimal.Decimal, from, to string) (decimal.Decimal, error)
}

// TaxRates supplies the rate applied to a cart subtotal.
type TaxRates interface {
	TaxRate(ctx context.Context, tenantID string) (decimal.Decimal, error)
}

// ShippingRates prices a shipping method for a cart. An unknown method
// yields an error matching failure.ErrNotFound.
type ShippingRates interface {
	Quote(ctx context.Context, tenantID, methodID string, c *domcart.Cart) (decimal.Decimal, error)
}
