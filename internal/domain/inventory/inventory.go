package inventory

import (
	"fmt"
	"time"

	"github.com/Zhima-Mochi/storefront/internal/domain/failure"
)

var (
	ErrNotFound            = fmt.Errorf("inventory: product %w", failure.ErrNotFound)
	ErrInvalidQuantity     = fmt.Errorf("inventory: quantity must be greater than zero: %w", failure.ErrInvalidArgument)
	ErrNegativeAdjustment  = fmt.Errorf("inventory: adjustment target must be zero or greater: %w", failure.ErrInvalidArgument)
	ErrUnknownMovementType = fmt.Errorf("inventory: unknown movement type: %w", failure.ErrInvalidArgument)
	ErrInsufficientStock   = fmt.Errorf("inventory: %w", failure.ErrInsufficientStock)
)

type MovementType string

const (
	MovementIn         MovementType = "IN"
	MovementOut        MovementType = "OUT"
	MovementAdjustment MovementType = "ADJUSTMENT"
)

func (t MovementType) Valid() bool {
	switch t {
	case MovementIn, MovementOut, MovementAdjustment:
		return true
	}
	return false
}

// StockRef points at the row that holds a stock quantity: the variant when
// VariantID is set, the product otherwise.
type StockRef struct {
	ProductID string
	VariantID string
}

func (r StockRef) String() string {
	if r.VariantID != "" {
		return r.ProductID + "/" + r.VariantID
	}
	return r.ProductID
}

// Stock is the denormalised current quantity stored on a product or variant.
type Stock struct {
	TenantID       string
	Ref            StockRef
	Quantity       int
	TrackInventory bool
	AllowBackorder bool
	// VirtualQuantity bounds how far a backorder may take Quantity below
	// zero. Zero leaves backorders unbounded.
	VirtualQuantity int
}

// Movement is one append-only ledger row.
type Movement struct {
	ID               string
	TenantID         string
	ProductID        string
	VariantID        string
	Type             MovementType
	Quantity         int
	PreviousQuantity int
	NewQuantity      int
	OrderID          string
	OrderLineID      string
	Reason           string
	Actor            string
	CreatedAt        time.Time
}

// Apply computes the quantity that results from moving qty units of type t.
// IN adds, OUT subtracts, ADJUSTMENT sets the absolute value. OUT may only
// go below zero when the stock allows backorders, and no further than
// -VirtualQuantity when that is set.
func (s Stock) Apply(t MovementType, qty int) (int, error) {
	switch t {
	case MovementIn:
		if qty <= 0 {
			return 0, ErrInvalidQuantity
		}
		return s.Quantity + qty, nil
	case MovementOut:
		if qty <= 0 {
			return 0, ErrInvalidQuantity
		}
		next := s.Quantity - qty
		if next < 0 && (!s.AllowBackorder || (s.VirtualQuantity > 0 && next < -s.VirtualQuantity)) {
			return 0, fmt.Errorf("%w: %s has %d, requested %d", ErrInsufficientStock, s.Ref, s.Quantity, qty)
		}
		return next, nil
	case MovementAdjustment:
		if qty < 0 {
			return 0, ErrNegativeAdjustment
		}
		return qty, nil
	default:
		return 0, ErrUnknownMovementType
	}
}

// NewMovement applies the movement to s and returns the ledger row describing it.
// s.Quantity holds the new quantity afterwards.
func NewMovement(id string, s *Stock, t MovementType, qty int, reason, actor string, now time.Time) (*Movement, error) {
	next, err := s.Apply(t, qty)
	if err != nil {
		return nil, err
	}
	m := &Movement{
		ID:               id,
		TenantID:         s.TenantID,
		ProductID:        s.Ref.ProductID,
		VariantID:        s.Ref.VariantID,
		Type:             t,
		Quantity:         qty,
		PreviousQuantity: s.Quantity,
		NewQuantity:      next,
		Reason:           reason,
		Actor:            actor,
		CreatedAt:        now.UTC(),
	}
	s.Quantity = next
	return m, nil
}

// Consistent checks new = previous +/- quantity for the movement type.
func (m Movement) Consistent() bool {
	switch m.Type {
	case MovementIn:
		return m.NewQuantity == m.PreviousQuantity+m.Quantity
	case MovementOut:
		return m.NewQuantity == m.PreviousQuantity-m.Quantity
	case MovementAdjustment:
		return m.NewQuantity == m.Quantity
	}
	return false
}
