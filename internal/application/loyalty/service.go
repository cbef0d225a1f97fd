package loyalty

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Zhima-Mochi/storefront/internal/application"
	domloyalty "github.com/Zhima-Mochi/storefront/internal/domain/loyalty"
	domorder "github.com/Zhima-Mochi/storefront/internal/domain/order"
	"github.com/Zhima-Mochi/storefront/internal/domain/tx"
	"github.com/Zhima-Mochi/storefront/internal/observability"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
)

const (
	loyaltyService  = "loyalty-service"
	useCaseAward    = "loyalty.award_points_for_order"
	useCaseUse      = "loyalty.use_points_for_order"
	useCaseRefund   = "loyalty.refund_points_for_order"
	reasonOrderPaid = "order paid"
	reasonRedeemed  = "redeemed on order"
	reasonRefunded  = "order refunded"
)

var ErrRepository = errors.New("loyalty: repository failure")

type IDGenerator interface {
	NewID() string
}

type Service struct {
	repo       domloyalty.Repository
	transactor tx.Transactor
	ids        IDGenerator
	policy     domloyalty.EarnPolicy
	now        func() time.Time

	inst   application.Instrument
	points observability.Counter // loyalty_points_total{type}
}

type Option func(*Service)

// WithEarnPolicy replaces the default linear earn policy.
func WithEarnPolicy(p domloyalty.EarnPolicy) Option {
	return func(s *Service) { s.policy = p }
}

func NewService(repo domloyalty.Repository, transactor tx.Transactor, ids IDGenerator, tel observability.Observability, opts ...Option) *Service {
	inst := application.NewInstrument(tel, loyaltyService)
	s := &Service{
		repo:       repo,
		transactor: transactor,
		ids:        ids,
		policy:     domloyalty.LinearPolicy{},
		now:        time.Now,
		inst:       inst,
		points:     inst.Counter(observability.MLoyaltyPoints),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AwardPointsForOrder credits the points earned by a paid order. Guest orders,
// tenants without an active program and orders that already earned points
// are no-ops. The returned value is the number of points credited by this call.
func (s *Service) AwardPointsForOrder(ctx context.Context, o *domorder.Order) (awarded int64, err error) {
	ctx, run := s.inst.Start(ctx, useCaseAward, "AwardPointsForOrder", orderAttrs(o)...)
	run.Field("tenant_id", o.TenantID)
	run.Field("order_id", o.ID)
	defer func() {
		run.Field("points", awarded)
		run.End(&err)
	}()

	if o.Customer.IsGuest() {
		run.Status("GUEST")
		return 0, nil
	}

	err = s.transactor.WithinTx(ctx, func(ctx context.Context) error {
		program, err := s.repo.ActiveProgram(ctx, o.TenantID)
		if errors.Is(err, domloyalty.ErrNoProgram) {
			run.Status("NO_PROGRAM")
			return nil
		}
		if err != nil {
			return wrapRepositoryError(err)
		}

		account, err := s.repo.LockAccount(ctx, o.TenantID, o.Customer.CustomerID)
		if err != nil {
			return wrapRepositoryError(err)
		}
		// Checked under the account lock so concurrent awards see each other.
		existing, err := s.repo.OrderTransactions(ctx, o.TenantID, o.ID)
		if err != nil {
			return wrapRepositoryError(err)
		}
		for _, t := range existing {
			if t.Type == domloyalty.TransactionEarned {
				run.Status("ALREADY_AWARDED")
				return nil
			}
		}

		points := s.policy.PointsFor(*program, o.Total)
		if points <= 0 {
			run.Status("NOTHING_EARNED")
			return nil
		}
		now := s.now()
		if err := account.Earn(points, now); err != nil {
			return err
		}
		if err := s.record(ctx, account, domloyalty.Transaction{
			Type:    domloyalty.TransactionEarned,
			Points:  points,
			OrderID: o.ID,
			Reason:  reasonOrderPaid,
		}, now); err != nil {
			return err
		}
		awarded = points
		return nil
	})
	if err != nil {
		return 0, err
	}
	if awarded > 0 {
		s.points.Add(float64(awarded), observability.L("type", string(domloyalty.TransactionEarned)))
	}
	return awarded, nil
}

// UsePointsForOrder redeems points against the part of the order subtotal not
// yet discounted. Earlier redemptions on the same order count towards the
// program's per-order maximum. It returns the points actually consumed,
// which are fewer than requested when the discount would exceed the
// headroom, and the discount the caller must apply.
func (s *Service) UsePointsForOrder(ctx context.Context, o *domorder.Order, points int64) (consumed int64, discount decimal.Decimal, err error) {
	attrs := append(orderAttrs(o), attribute.Int64("loyalty.points_requested", points))
	ctx, run := s.inst.Start(ctx, useCaseUse, "UsePointsForOrder", attrs...)
	run.Field("tenant_id", o.TenantID)
	run.Field("order_id", o.ID)
	defer func() {
		run.Field("points", consumed)
		run.End(&err)
	}()

	if o.Customer.IsGuest() {
		return 0, decimal.Zero, domloyalty.ErrGuestOrder
	}

	err = s.transactor.WithinTx(ctx, func(ctx context.Context) error {
		program, err := s.repo.ActiveProgram(ctx, o.TenantID)
		if err != nil {
			return wrapRepositoryError(err)
		}
		account, err := s.repo.LockAccount(ctx, o.TenantID, o.Customer.CustomerID)
		if err != nil {
			return wrapRepositoryError(err)
		}

		txs, err := s.repo.OrderTransactions(ctx, o.TenantID, o.ID)
		if err != nil {
			return wrapRepositoryError(err)
		}

		used, amount, err := program.Redeem(domloyalty.Redemption{
			Points:      points,
			Available:   account.AvailablePoints,
			UsedOnOrder: domloyalty.UsedOnOrder(txs),
			Headroom:    o.DiscountHeadroom(),
		})
		if err != nil {
			return err
		}
		now := s.now()
		if err := account.Use(used, now); err != nil {
			return err
		}
		if err := s.record(ctx, account, domloyalty.Transaction{
			Type:    domloyalty.TransactionUsed,
			Points:  used,
			OrderID: o.ID,
			Reason:  reasonRedeemed,
		}, now); err != nil {
			return err
		}
		consumed, discount = used, amount
		return nil
	})
	if err != nil {
		return 0, decimal.Zero, err
	}
	s.points.Add(float64(consumed), observability.L("type", string(domloyalty.TransactionUsed)))
	return consumed, discount, nil
}

// RefundPointsForOrder restores every used transaction of the order that has
// not been refunded yet. Calling it again restores nothing.
func (s *Service) RefundPointsForOrder(ctx context.Context, o *domorder.Order) (restored int64, err error) {
	ctx, run := s.inst.Start(ctx, useCaseRefund, "RefundPointsForOrder", orderAttrs(o)...)
	run.Field("tenant_id", o.TenantID)
	run.Field("order_id", o.ID)
	defer func() {
		run.Field("points", restored)
		run.End(&err)
	}()

	if o.Customer.IsGuest() {
		run.Status("GUEST")
		return 0, nil
	}

	err = s.transactor.WithinTx(ctx, func(ctx context.Context) error {
		account, err := s.repo.LockAccount(ctx, o.TenantID, o.Customer.CustomerID)
		if err != nil {
			return wrapRepositoryError(err)
		}
		txs, err := s.repo.OrderTransactions(ctx, o.TenantID, o.ID)
		if err != nil {
			return wrapRepositoryError(err)
		}

		done := make(map[string]bool)
		for _, t := range txs {
			if t.Type == domloyalty.TransactionRefunded && t.RefundOf != "" {
				done[t.RefundOf] = true
			}
		}

		now := s.now()
		for _, t := range txs {
			if t.Type != domloyalty.TransactionUsed || done[t.ID] {
				continue
			}
			if err := account.Restore(t.Points, now); err != nil {
				return err
			}
			if err := s.record(ctx, account, domloyalty.Transaction{
				Type:     domloyalty.TransactionRefunded,
				Points:   t.Points,
				OrderID:  o.ID,
				RefundOf: t.ID,
				Reason:   reasonRefunded,
			}, now); err != nil {
				return err
			}
			restored += t.Points
		}
		if restored == 0 {
			run.Status("NOTHING_TO_REFUND")
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if restored > 0 {
		s.points.Add(float64(restored), observability.L("type", string(domloyalty.TransactionRefunded)))
	}
	return restored, nil
}

// Balance returns the customer's account; customers who never earned have an empty one.
func (s *Service) Balance(ctx context.Context, tenantID, customerID string) (*domloyalty.Account, error) {
	account, err := s.repo.GetAccount(ctx, tenantID, customerID)
	if errors.Is(err, domloyalty.ErrAccountNotFound) {
		return &domloyalty.Account{TenantID: tenantID, CustomerID: customerID}, nil
	}
	if err != nil {
		return nil, wrapRepositoryError(err)
	}
	return account, nil
}

// record saves the account and appends the ledger entry in the current unit of work.
func (s *Service) record(ctx context.Context, account *domloyalty.Account, t domloyalty.Transaction, now time.Time) error {
	if !account.Consistent() {
		return fmt.Errorf("loyalty: account %s out of balance", account.ID)
	}
	if err := s.repo.SaveAccount(ctx, account); err != nil {
		return wrapRepositoryError(err)
	}
	t.ID = s.ids.NewID()
	t.TenantID = account.TenantID
	t.CustomerID = account.CustomerID
	t.CreatedAt = now.UTC()
	if err := s.repo.AppendTransaction(ctx, &t); err != nil {
		return wrapRepositoryError(err)
	}
	return nil
}

func orderAttrs(o *domorder.Order) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("tenant.id", o.TenantID),
		attribute.String("order.id", o.ID),
		attribute.String("customer.id", o.Customer.CustomerID),
	}
}

func wrapRepositoryError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, domloyalty.ErrNoProgram) || errors.Is(err, domloyalty.ErrAccountNotFound) ||
		errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrRepository, err)
}
