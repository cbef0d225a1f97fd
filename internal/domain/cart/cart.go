package cart

import (
	"fmt"
	"time"

	"github.com/Zhima-Mochi/storefront/internal/domain/failure"
	"github.com/shopspring/decimal"
)

var (
	ErrNotFound         = fmt.Errorf("cart: %w", failure.ErrNotFound)
	ErrLineNotFound     = fmt.Errorf("cart: line %w", failure.ErrNotFound)
	ErrIdentityRequired = fmt.Errorf("cart: customer or session identity is required: %w", failure.ErrInvalidArgument)
	ErrTenantRequired   = fmt.Errorf("cart: tenant is required: %w", failure.ErrInvalidArgument)
	ErrInvalidQuantity  = fmt.Errorf("cart: quantity must be greater than zero: %w", failure.ErrInvalidArgument)
	ErrInactive         = fmt.Errorf("cart: %w", failure.ErrInactiveCart)
	ErrEmpty            = fmt.Errorf("cart: %w", failure.ErrEmptyCart)
	ErrModified         = fmt.Errorf("cart: modified after it was read: %w", failure.ErrConflict)
	// ErrAlreadyActive is returned by a store asked to save a second active
	// cart for the same customer.
	ErrAlreadyActive = fmt.Errorf("cart: customer already has an active cart: %w", failure.ErrConflict)
)

// DefaultTaxRate is the flat rate applied when no tenant rate is configured.
var DefaultTaxRate = decimal.RequireFromString("0.18")

// Lifecycle replaces the soft-delete flag: active -> inactive -> purged.
type Lifecycle string

const (
	LifecycleActive   Lifecycle = "active"
	LifecycleInactive Lifecycle = "inactive"
	LifecyclePurged   Lifecycle = "purged"
)

type Line struct {
	ID        string
	ProductID string
	VariantID string
	Quantity  int
	UnitPrice decimal.Decimal
	LineTotal decimal.Decimal
	AddedAt   time.Time
}

// SameItem reports whether the line holds the given product/variant pair.
func (l Line) SameItem(productID, variantID string) bool {
	return l.ProductID == productID && l.VariantID == variantID
}

func (l *Line) setQuantity(qty int) {
	l.Quantity = qty
	l.LineTotal = l.UnitPrice.Mul(decimal.NewFromInt(int64(qty)))
}

type Cart struct {
	ID         string
	TenantID   string
	CustomerID string
	SessionID  string
	Currency   string
	Lines      []Line

	Subtotal       decimal.Decimal
	ShippingCost   decimal.Decimal
	TaxAmount      decimal.Decimal
	DiscountAmount decimal.Decimal
	Total          decimal.Decimal

	CouponCode       string
	ShippingMethodID string

	Lifecycle Lifecycle
	ExpiresAt *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SameContents reports whether both carts hold the same lines, in the same
// order and at the same prices, and the same shipping method.
func (c *Cart) SameContents(other *Cart) bool {
	if c.ID != other.ID || c.ShippingMethodID != other.ShippingMethodID || len(c.Lines) != len(other.Lines) {
		return false
	}
	for i, l := range c.Lines {
		o := other.Lines[i]
		if l.ID != o.ID || !l.SameItem(o.ProductID, o.VariantID) || l.Quantity != o.Quantity || !l.UnitPrice.Equal(o.UnitPrice) {
			return false
		}
	}
	return true
}

// New returns an empty, active cart for key.
func New(id string, key Key, currency string, now time.Time) (*Cart, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}
	now = now.UTC()
	return &Cart{
		ID:             id,
		TenantID:       key.TenantID,
		CustomerID:     key.CustomerID,
		SessionID:      key.SessionID,
		Currency:       currency,
		Subtotal:       decimal.Zero,
		ShippingCost:   decimal.Zero,
		TaxAmount:      decimal.Zero,
		DiscountAmount: decimal.Zero,
		Total:          decimal.Zero,
		Lifecycle:      LifecycleActive,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

func (c *Cart) Key() Key {
	return Key{TenantID: c.TenantID, Identity: Identity{CustomerID: c.CustomerID, SessionID: c.SessionID}}
}

func (c *Cart) IsActive() bool { return c.Lifecycle == LifecycleActive }

func (c *Cart) IsEmpty() bool { return len(c.Lines) == 0 }

// ItemCount is the number of units across all lines.
func (c *Cart) ItemCount() int {
	n := 0
	for _, l := range c.Lines {
		n += l.Quantity
	}
	return n
}

// AddLine adds qty units of the product/variant. An existing line for the
// same pair is incremented instead of a new line being appended; its unit
// price is refreshed to unitPrice.
func (c *Cart) AddLine(lineID, productID, variantID string, qty int, unitPrice decimal.Decimal, now time.Time) (*Line, error) {
	if qty <= 0 {
		return nil, ErrInvalidQuantity
	}
	for i := range c.Lines {
		if c.Lines[i].SameItem(productID, variantID) {
			c.Lines[i].UnitPrice = unitPrice
			c.Lines[i].setQuantity(c.Lines[i].Quantity + qty)
			c.touch(now)
			return &c.Lines[i], nil
		}
	}
	line := Line{
		ID:        lineID,
		ProductID: productID,
		VariantID: variantID,
		UnitPrice: unitPrice,
		AddedAt:   now.UTC(),
	}
	line.setQuantity(qty)
	c.Lines = append(c.Lines, line)
	c.touch(now)
	return &c.Lines[len(c.Lines)-1], nil
}

func (c *Cart) Line(lineID string) (*Line, error) {
	for i := range c.Lines {
		if c.Lines[i].ID == lineID {
			return &c.Lines[i], nil
		}
	}
	return nil, ErrLineNotFound
}

// SetLineQuantity updates a line; a quantity of zero or less removes it.
func (c *Cart) SetLineQuantity(lineID string, qty int, now time.Time) error {
	if qty <= 0 {
		return c.RemoveLine(lineID, now)
	}
	line, err := c.Line(lineID)
	if err != nil {
		return err
	}
	line.setQuantity(qty)
	c.touch(now)
	return nil
}

func (c *Cart) RemoveLine(lineID string, now time.Time) error {
	for i := range c.Lines {
		if c.Lines[i].ID == lineID {
			c.Lines = append(c.Lines[:i], c.Lines[i+1:]...)
			c.touch(now)
			return nil
		}
	}
	return ErrLineNotFound
}

func (c *Cart) ClearLines(now time.Time) {
	c.Lines = nil
	c.touch(now)
}

// Recalculate recomputes every cart-level amount from the lines:
// subtotal = sum of line totals, tax = subtotal * taxRate,
// total = subtotal + shipping - discount + tax, never below zero.
// It is a pure function of the lines and the stored shipping/discount amounts.
func (c *Cart) Recalculate(taxRate decimal.Decimal) {
	subtotal := decimal.Zero
	for _, l := range c.Lines {
		subtotal = subtotal.Add(l.LineTotal)
	}
	c.Subtotal = subtotal.Round(2)
	c.TaxAmount = c.Subtotal.Mul(taxRate).Round(2)
	total := c.Subtotal.Add(c.ShippingCost).Sub(c.DiscountAmount).Add(c.TaxAmount)
	if total.IsNegative() {
		total = decimal.Zero
	}
	c.Total = total.Round(2)
}

func (c *Cart) Deactivate(now time.Time) error {
	if !c.IsActive() {
		return ErrInactive
	}
	c.Lifecycle = LifecycleInactive
	c.touch(now)
	return nil
}

func (c *Cart) Reactivate(now time.Time) {
	c.Lifecycle = LifecycleActive
	c.touch(now)
}

// Touch stamps UpdatedAt and, when ttl is positive, slides the expiry.
func (c *Cart) Touch(now time.Time, ttl time.Duration) {
	c.touch(now)
	if ttl > 0 {
		exp := now.UTC().Add(ttl)
		c.ExpiresAt = &exp
	}
}

func (c *Cart) touch(now time.Time) {
	c.UpdatedAt = now.UTC()
}

func (c *Cart) Clone() *Cart {
	if c == nil {
		return nil
	}
	clone := *c
	if c.Lines != nil {
		clone.Lines = append([]Line(nil), c.Lines...)
	}
	if c.ExpiresAt != nil {
		exp := *c.ExpiresAt
		clone.ExpiresAt = &exp
	}
	return &clone
}
