package order

import (
	"context"
	"time"

	domcart "github.com/Zhima-Mochi/storefront/internal/domain/cart"
	dominv "github.com/Zhima-Mochi/storefront/internal/domain/inventory"
	domorder "github.com/Zhima-Mochi/storefront/internal/domain/order"

	"github.com/shopspring/decimal"
)

type IDGenerator interface {
	NewID() string
}

// SuffixGenerator yields the random part of an order number.
type SuffixGenerator interface {
	NewSuffix() string
}

// Locker serialises checkouts of one cart across processes. The returned
// release func must be called once the checkout is over.
type Locker interface {
	Lock(ctx context.Context, key string, ttl time.Duration) (release func(context.Context) error, err error)
}

// CartPort is the part of the cart service checkout relies on.
type CartPort interface {
	Load(ctx context.Context, key domcart.Key) (*domcart.Cart, error)
	SetShippingMethod(ctx context.Context, key domcart.Key, methodID string) (*domcart.Cart, error)
	Deactivate(ctx context.Context, c *domcart.Cart) error
}

// InventoryPort takes stock out for an order line inside the caller's unit of work.
type InventoryPort interface {
	DecrementForOrder(ctx context.Context, tenantID string, line domorder.Line, actor string) (*dominv.Movement, error)
}

type LoyaltyPort interface {
	AwardPointsForOrder(ctx context.Context, o *domorder.Order) (int64, error)
	UsePointsForOrder(ctx context.Context, o *domorder.Order, points int64) (int64, decimal.Decimal, error)
	RefundPointsForOrder(ctx context.Context, o *domorder.Order) (int64, error)
}
