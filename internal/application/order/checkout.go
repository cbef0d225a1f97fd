package order

import (
	"context"
	"errors"
	"fmt"

	domcart "github.com/Zhima-Mochi/storefront/internal/domain/cart"
	"github.com/Zhima-Mochi/storefront/internal/domain/catalog"
	"github.com/Zhima-Mochi/storefront/internal/domain/failure"
	domorder "github.com/Zhima-Mochi/storefront/internal/domain/order"
	"github.com/Zhima-Mochi/storefront/internal/observability"

	"go.opentelemetry.io/otel/attribute"
)

type CreateFromCartInput struct {
	Key             domcart.Key
	Customer        domorder.Customer
	BillingAddress  domorder.Address
	ShippingAddress *domorder.Address
	// ShippingMethodID re-prices the cart before checkout when it differs
	// from the method already on the cart.
	ShippingMethodID string
	Note             string
	Actor            string
}

// CreateFromCart converts the active cart into an order. For a customer cart
// the cart read, the order, its lines, the stock decrements and the cart
// deactivation form one unit: any failure after the cart was read leaves
// none of them behind and is reported as a failure.CheckoutError wrapping
// the cause. Precondition failures (missing, inactive or empty cart) are
// returned as they are.
func (s *Service) CreateFromCart(ctx context.Context, in CreateFromCartInput) (_ *domorder.Order, err error) {
	ctx, run := s.inst.Start(ctx, useCaseCreateFromCart, "CreateOrderFromCart",
		attribute.String("tenant.id", in.Key.TenantID),
		attribute.String("cart.kind", string(in.Key.Kind())),
	)
	run.Field("tenant_id", in.Key.TenantID)
	defer run.End(&err)

	if err := in.Key.Validate(); err != nil {
		return nil, err
	}

	if s.locker != nil {
		release, lockErr := s.locker.Lock(ctx, "checkout:"+in.Key.String(), s.lockTTL)
		if lockErr != nil {
			return nil, failure.Checkout(fmt.Errorf("%w: %w", ErrCheckoutInProgress, lockErr))
		}
		defer func() {
			if rerr := release(context.WithoutCancel(ctx)); rerr != nil {
				run.Logger().Warn("checkout_lock_release_failed", observability.Err(rerr))
			}
		}()
	}

	durable := in.Key.Kind() == domcart.KindDurable
	var (
		c       *domcart.Cart
		o       *domorder.Order
		prepErr error
	)
	prepare := func(ctx context.Context) error {
		c, o, prepErr = s.prepare(ctx, in)
		if prepErr != nil {
			return prepErr
		}
		run.Field("cart_id", c.ID)
		run.Field("order_id", o.ID)
		run.Span().SetAttributes(attribute.String("order.id", o.ID), attribute.String("order.number", o.Number))
		return nil
	}

	// Session carts have no transactional backend, so they are read up front.
	if !durable {
		if err := prepare(ctx); err != nil {
			return nil, err
		}
	}

	err = s.transactor.WithinTx(ctx, func(ctx context.Context) error {
		// A customer cart is read under its row lock, so no line added after
		// the snapshot can be lost when the cart is deactivated.
		if durable {
			if err := prepare(ctx); err != nil {
				return err
			}
		}
		if err := s.orders.Insert(ctx, o); err != nil {
			return wrapRepositoryError(err)
		}
		for _, line := range o.Lines {
			if _, err := s.inventory.DecrementForOrder(ctx, o.TenantID, line, actorOr(in.Actor, "checkout")); err != nil {
				return err
			}
		}
		if durable {
			return s.carts.Deactivate(ctx, c)
		}
		return nil
	})
	if prepErr != nil {
		return nil, prepErr
	}
	if err != nil {
		return nil, failure.Checkout(err)
	}

	// Session carts live outside the transactional store.
	if !durable {
		if derr := s.carts.Deactivate(ctx, c); derr != nil {
			run.Status("CART_DEACTIVATION_FAILED")
			run.Logger().Warn("cart_deactivation_failed",
				observability.F("cart_id", c.ID),
				observability.Err(derr),
			)
		}
	}

	s.publish(ctx, run, domorder.NewPlacedEvent(o))
	return o, nil
}

// prepare reads the active cart, re-prices shipping when asked to and drafts
// the order from that snapshot.
func (s *Service) prepare(ctx context.Context, in CreateFromCartInput) (*domcart.Cart, *domorder.Order, error) {
	c, err := s.carts.Load(ctx, in.Key)
	if err != nil {
		return nil, nil, err
	}
	if in.ShippingMethodID != "" && in.ShippingMethodID != c.ShippingMethodID {
		if c, err = s.carts.SetShippingMethod(ctx, in.Key, in.ShippingMethodID); err != nil {
			return nil, nil, err
		}
	}
	if c.IsEmpty() {
		return nil, nil, domcart.ErrEmpty
	}
	t, err := s.tenants.Lookup(ctx, in.Key.TenantID)
	if err != nil {
		return nil, nil, err
	}
	items, err := s.resolveLines(ctx, c)
	if err != nil {
		return nil, nil, err
	}
	return c, s.draft(c, t.OrderPrefix(), in, items), nil
}

// resolveLines loads the catalog data snapshotted onto order lines.
func (s *Service) resolveLines(ctx context.Context, c *domcart.Cart) ([]*catalog.Item, error) {
	items := make([]*catalog.Item, len(c.Lines))
	for i, l := range c.Lines {
		item, err := s.catalog.Resolve(ctx, c.TenantID, l.ProductID, l.VariantID)
		if err != nil {
			return nil, err
		}
		items[i] = item
	}
	return items, nil
}

func (s *Service) draft(c *domcart.Cart, prefix string, in CreateFromCartInput, items []*catalog.Item) *domorder.Order {
	now := s.now().UTC()
	customer := in.Customer
	if customer.CustomerID == "" {
		customer.CustomerID = c.CustomerID
	}

	o := &domorder.Order{
		ID:               s.ids.NewID(),
		TenantID:         c.TenantID,
		Number:           domorder.Number(prefix, now, s.suffixes.NewSuffix()),
		CartID:           c.ID,
		Customer:         customer,
		SessionID:        c.SessionID,
		BillingAddress:   in.BillingAddress,
		ShippingAddress:  in.ShippingAddress,
		Currency:         c.Currency,
		Subtotal:         c.Subtotal,
		ShippingCost:     c.ShippingCost,
		TaxAmount:        c.TaxAmount,
		DiscountAmount:   c.DiscountAmount,
		Total:            c.Total,
		CouponCode:       c.CouponCode,
		ShippingMethodID: c.ShippingMethodID,
		Note:             in.Note,
		Status:           domorder.StatusPending,
		PaymentStatus:    domorder.PaymentPending,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	o.Lines = make([]domorder.Line, len(c.Lines))
	for i, l := range c.Lines {
		o.Lines[i] = domorder.Line{
			ID:          s.ids.NewID(),
			OrderID:     o.ID,
			ProductID:   l.ProductID,
			VariantID:   l.VariantID,
			ProductName: items[i].Name,
			SKU:         items[i].SKU,
			ImageURL:    items[i].ImageURL,
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice,
			LineTotal:   l.LineTotal,
		}
	}
	return o
}

func actorOr(actor, fallback string) string {
	if actor == "" {
		return fallback
	}
	return actor
}

// IsCheckoutInProgress reports whether err came from a checkout that lost
// the race for the cart lock.
func IsCheckoutInProgress(err error) bool {
	return errors.Is(err, ErrCheckoutInProgress)
}
