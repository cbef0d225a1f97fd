package loyalty

import (
	"fmt"
	"time"

	"github.com/Zhima-Mochi/storefront/internal/domain/failure"
	"github.com/shopspring/decimal"
)

var (
	ErrNoProgram          = fmt.Errorf("loyalty: active program %w", failure.ErrNotFound)
	ErrAccountNotFound    = fmt.Errorf("loyalty: account %w", failure.ErrNotFound)
	ErrGuestOrder         = fmt.Errorf("loyalty: guest orders do not take part in the program: %w", failure.ErrInvalidArgument)
	ErrInvalidPoints      = fmt.Errorf("loyalty: points must be greater than zero: %w", failure.ErrInvalidArgument)
	ErrBelowMinimum       = fmt.Errorf("loyalty: below minimum redeemable points: %w", failure.ErrInvalidArgument)
	ErrAboveOrderMaximum  = fmt.Errorf("loyalty: above maximum points per order: %w", failure.ErrInvalidArgument)
	ErrInsufficientPoints = fmt.Errorf("loyalty: not enough available points: %w", failure.ErrInvalidArgument)
	ErrNothingToRedeem    = fmt.Errorf("loyalty: order subtotal leaves nothing to redeem: %w", failure.ErrInvalidArgument)
)

type TransactionType string

const (
	TransactionEarned   TransactionType = "earned"
	TransactionUsed     TransactionType = "used"
	TransactionRefunded TransactionType = "refunded"
)

// Program is the tenant's loyalty configuration.
type Program struct {
	TenantID string
	Active   bool
	// PointsPerCurrencyUnit is the earn rate applied to an order total.
	PointsPerCurrencyUnit decimal.Decimal
	// CurrencyPerPoint is the value of one point when redeemed.
	CurrencyPerPoint decimal.Decimal
	MinimumRedeem    int64
	// MaximumPerOrder caps redemption per order; zero means no cap.
	MaximumPerOrder int64
}

// EarnPolicy turns an order amount into earned points.
type EarnPolicy interface {
	PointsFor(p Program, amount decimal.Decimal) int64
}

// LinearPolicy earns floor(amount * PointsPerCurrencyUnit) points.
type LinearPolicy struct{}

func (LinearPolicy) PointsFor(p Program, amount decimal.Decimal) int64 {
	if amount.IsNegative() || p.PointsPerCurrencyUnit.IsNegative() {
		return 0
	}
	return amount.Mul(p.PointsPerCurrencyUnit).Floor().IntPart()
}

// Redemption is one request to spend points on an order. UsedOnOrder and
// Headroom carry what earlier redemptions already took from the same order.
type Redemption struct {
	Points    int64
	Available int64
	// UsedOnOrder is the net of used minus refunded points on the order.
	UsedOnOrder int64
	// Headroom is the subtotal not yet covered by a discount.
	Headroom decimal.Decimal
}

// Redeem validates r and returns the points actually consumed and the
// discount they buy. Checks run in order: positive, minimum, per-order
// maximum (including UsedOnOrder), available balance. A discount above
// Headroom is capped and fewer points are consumed.
func (p Program) Redeem(r Redemption) (int64, decimal.Decimal, error) {
	points := r.Points
	if points <= 0 {
		return 0, decimal.Zero, ErrInvalidPoints
	}
	if points < p.MinimumRedeem {
		return 0, decimal.Zero, fmt.Errorf("%w: %d < %d", ErrBelowMinimum, points, p.MinimumRedeem)
	}
	if p.MaximumPerOrder > 0 && r.UsedOnOrder+points > p.MaximumPerOrder {
		return 0, decimal.Zero, fmt.Errorf("%w: %d already used, %d requested, limit %d",
			ErrAboveOrderMaximum, r.UsedOnOrder, points, p.MaximumPerOrder)
	}
	if points > r.Available {
		return 0, decimal.Zero, fmt.Errorf("%w: %d > %d", ErrInsufficientPoints, points, r.Available)
	}
	if !p.CurrencyPerPoint.IsPositive() || !r.Headroom.IsPositive() {
		return 0, decimal.Zero, ErrNothingToRedeem
	}

	discount := p.CurrencyPerPoint.Mul(decimal.NewFromInt(points))
	if discount.GreaterThan(r.Headroom) {
		points = r.Headroom.Div(p.CurrencyPerPoint).Floor().IntPart()
		discount = p.CurrencyPerPoint.Mul(decimal.NewFromInt(points))
	}
	if points <= 0 {
		return 0, decimal.Zero, ErrNothingToRedeem
	}
	return points, discount.Round(2), nil
}

// Account is the points balance of one customer within a tenant.
// Invariant: AvailablePoints >= 0 and TotalPoints = Available + Used + Expired.
type Account struct {
	ID              string
	TenantID        string
	CustomerID      string
	TotalPoints     int64
	AvailablePoints int64
	UsedPoints      int64
	ExpiredPoints   int64
	UpdatedAt       time.Time
}

func (a *Account) Earn(points int64, now time.Time) error {
	if points <= 0 {
		return ErrInvalidPoints
	}
	a.AvailablePoints += points
	a.TotalPoints += points
	a.UpdatedAt = now.UTC()
	return nil
}

func (a *Account) Use(points int64, now time.Time) error {
	if points <= 0 {
		return ErrInvalidPoints
	}
	if points > a.AvailablePoints {
		return ErrInsufficientPoints
	}
	a.AvailablePoints -= points
	a.UsedPoints += points
	a.UpdatedAt = now.UTC()
	return nil
}

// Restore returns previously used points to the available balance.
func (a *Account) Restore(points int64, now time.Time) error {
	if points <= 0 {
		return ErrInvalidPoints
	}
	if points > a.UsedPoints {
		return fmt.Errorf("loyalty: restoring %d points but only %d used: %w", points, a.UsedPoints, failure.ErrInvalidArgument)
	}
	a.AvailablePoints += points
	a.UsedPoints -= points
	a.UpdatedAt = now.UTC()
	return nil
}

func (a Account) Consistent() bool {
	return a.AvailablePoints >= 0 && a.TotalPoints == a.AvailablePoints+a.UsedPoints+a.ExpiredPoints
}

// Transaction is one append-only entry of the points ledger.
type Transaction struct {
	ID         string
	TenantID   string
	CustomerID string
	Type       TransactionType
	Points     int64
	OrderID    string
	// RefundOf is the id of the used transaction a refunded entry restores.
	RefundOf  string
	Reason    string
	CreatedAt time.Time
}

// Signed is the effect of the entry on the available balance.
func (t Transaction) Signed() int64 {
	if t.Type == TransactionUsed {
		return -t.Points
	}
	return t.Points
}

// Reconcile sums the signed ledger; it must equal the account's available points.
func Reconcile(txs []Transaction) int64 {
	var sum int64
	for _, t := range txs {
		sum += t.Signed()
	}
	return sum
}

// UsedOnOrder is the net number of points redeemed on one order: used
// entries minus the refunds that restored them.
func UsedOnOrder(txs []Transaction) int64 {
	var net int64
	for _, t := range txs {
		switch t.Type {
		case TransactionUsed:
			net += t.Points
		case TransactionRefunded:
			net -= t.Points
		}
	}
	return max(net, 0)
}
