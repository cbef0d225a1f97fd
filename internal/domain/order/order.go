package order

import (
	"fmt"
	"time"

	"github.com/Zhima-Mochi/storefront/internal/domain/failure"
	"github.com/shopspring/decimal"
)

var (
	ErrNotFound          = fmt.Errorf("order: %w", failure.ErrNotFound)
	ErrConflict          = fmt.Errorf("order: number already taken: %w", failure.ErrInvalidArgument)
	ErrInvalidTransition = fmt.Errorf("order: %w", failure.ErrInvalidTransition)
	ErrNoLines           = fmt.Errorf("order: at least one line is required: %w", failure.ErrInvalidArgument)
	ErrNegativeDiscount  = fmt.Errorf("order: discount must be zero or greater: %w", failure.ErrInvalidArgument)
)

// Address is captured verbatim at checkout.
type Address struct {
	FullName   string
	Line1      string
	Line2      string
	City       string
	State      string
	PostalCode string
	Country    string
	Phone      string
}

func (a Address) IsZero() bool { return a == Address{} }

// Customer holds the identity fields copied onto the order. CustomerID is
// empty for guest checkouts.
type Customer struct {
	CustomerID string
	Email      string
	FirstName  string
	LastName   string
	Phone      string
}

func (c Customer) IsGuest() bool { return c.CustomerID == "" }

// Line is a frozen copy of a cart line and the catalog data at order time.
type Line struct {
	ID          string
	OrderID     string
	ProductID   string
	VariantID   string
	ProductName string
	SKU         string
	ImageURL    string
	Quantity    int
	UnitPrice   decimal.Decimal
	LineTotal   decimal.Decimal
}

type Order struct {
	ID       string
	TenantID string
	Number   string
	CartID   string

	Customer        Customer
	SessionID       string
	BillingAddress  Address
	ShippingAddress *Address

	Currency       string
	Subtotal       decimal.Decimal
	ShippingCost   decimal.Decimal
	TaxAmount      decimal.Decimal
	DiscountAmount decimal.Decimal
	Total          decimal.Decimal

	CouponCode       string
	ShippingMethodID string
	Note             string

	Status         Status
	PaymentStatus  PaymentStatus
	TrackingNumber string

	Lines []Line

	CreatedAt   time.Time
	UpdatedAt   time.Time
	ShippedAt   *time.Time
	DeliveredAt *time.Time
	CancelledAt *time.Time
	PaidAt      *time.Time
}

// Number formats a tenant-scoped order number: ORD-{SLUG}-{unix}-{suffix}.
func Number(prefix string, at time.Time, suffix string) string {
	return fmt.Sprintf("ORD-%s-%d-%s", prefix, at.Unix(), suffix)
}

// ChangeStatus moves the order along the fulfilment axis. Re-entering the
// current status is accepted and reports changed=false; shipped/delivered
// timestamps are only set the first time the order enters those states.
func (o *Order) ChangeStatus(next Status, now time.Time) (changed bool, err error) {
	if !next.Valid() {
		return false, fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, next)
	}
	if o.Status == next {
		return false, nil
	}
	if !o.Status.CanTransitionTo(next) {
		return false, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, o.Status, next)
	}
	now = now.UTC()
	o.Status = next
	switch next {
	case StatusShipped:
		setOnce(&o.ShippedAt, now)
	case StatusDelivered:
		setOnce(&o.DeliveredAt, now)
	case StatusCancelled:
		setOnce(&o.CancelledAt, now)
	}
	o.touch(now)
	return true, nil
}

// ChangePaymentStatus moves the order along the payment axis, independent of Status.
func (o *Order) ChangePaymentStatus(next PaymentStatus, now time.Time) (changed bool, err error) {
	if !next.Valid() {
		return false, fmt.Errorf("%w: unknown payment status %q", ErrInvalidTransition, next)
	}
	if o.PaymentStatus == next {
		return false, nil
	}
	if !o.PaymentStatus.CanTransitionTo(next) {
		return false, fmt.Errorf("%w: payment %s -> %s", ErrInvalidTransition, o.PaymentStatus, next)
	}
	now = now.UTC()
	o.PaymentStatus = next
	if next == PaymentPaid {
		setOnce(&o.PaidAt, now)
	}
	o.touch(now)
	return true, nil
}

// ApplyDiscount adds amount to the discount and recomputes the total.
func (o *Order) ApplyDiscount(amount decimal.Decimal, now time.Time) error {
	if amount.IsNegative() {
		return ErrNegativeDiscount
	}
	o.DiscountAmount = o.DiscountAmount.Add(amount)
	o.RecalculateTotal()
	o.touch(now)
	return nil
}

// DiscountHeadroom is the part of the subtotal not yet covered by discounts.
func (o *Order) DiscountHeadroom() decimal.Decimal {
	h := o.Subtotal.Sub(o.DiscountAmount)
	if h.IsNegative() {
		return decimal.Zero
	}
	return h
}

// RecalculateTotal applies total = subtotal + shipping + tax - discount, never below zero.
func (o *Order) RecalculateTotal() {
	total := o.Subtotal.Add(o.ShippingCost).Add(o.TaxAmount).Sub(o.DiscountAmount)
	if total.IsNegative() {
		total = decimal.Zero
	}
	o.Total = total.Round(2)
}

func (o *Order) touch(now time.Time) {
	o.UpdatedAt = now.UTC()
}

func setOnce(dst **time.Time, now time.Time) {
	if *dst != nil {
		return
	}
	t := now
	*dst = &t
}

func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	clone := *o
	if o.Lines != nil {
		clone.Lines = append([]Line(nil), o.Lines...)
	}
	if o.ShippingAddress != nil {
		addr := *o.ShippingAddress
		clone.ShippingAddress = &addr
	}
	for _, p := range []**time.Time{&clone.ShippedAt, &clone.DeliveredAt, &clone.CancelledAt, &clone.PaidAt} {
		if *p != nil {
			t := **p
			*p = &t
		}
	}
	return &clone
}
