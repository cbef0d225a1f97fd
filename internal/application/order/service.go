package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Zhima-Mochi/storefront/internal/application"
	"github.com/Zhima-Mochi/storefront/internal/domain/catalog"
	"github.com/Zhima-Mochi/storefront/internal/domain/failure"
	domorder "github.com/Zhima-Mochi/storefront/internal/domain/order"
	domoutbox "github.com/Zhima-Mochi/storefront/internal/domain/outbox"
	"github.com/Zhima-Mochi/storefront/internal/domain/tenant"
	"github.com/Zhima-Mochi/storefront/internal/domain/tx"
	"github.com/Zhima-Mochi/storefront/internal/observability"
	"github.com/Zhima-Mochi/storefront/internal/observability/logctx"

	"go.opentelemetry.io/otel/attribute"
)

const (
	orderService = "order-service"

	useCaseCreateFromCart       = "order.create_from_cart"
	useCaseUpdateStatus         = "order.update_status"
	useCaseUpdatePaymentStatus  = "order.update_payment_status"
	useCaseApplyLoyaltyDiscount = "order.apply_loyalty_discount"

	publishPeer    = "outbox"
	publishTimeout = 300 * time.Millisecond

	DefaultLockTTL = 30 * time.Second
)

var (
	ErrRepository         = errors.New("order: repository failure")
	ErrCheckoutInProgress = errors.New("order: checkout already in progress for this cart")
	ErrPaymentNotPending  = fmt.Errorf("order: loyalty points can only be applied while payment is pending: %w", failure.ErrInvalidArgument)
	ErrOrderClosed        = fmt.Errorf("order: loyalty points cannot be applied to a closed order: %w", failure.ErrInvalidTransition)
)

type Deps struct {
	Orders     domorder.Repository
	Carts      CartPort
	Inventory  InventoryPort
	Loyalty    LoyaltyPort
	Catalog    catalog.Catalog
	Tenants    tenant.Directory
	Transactor tx.Transactor
	Locker     Locker
	Publisher  domoutbox.Publisher
	IDs        IDGenerator
	Suffixes   SuffixGenerator
}

type Option func(*Service)

func WithLockTTL(ttl time.Duration) Option {
	return func(s *Service) { s.lockTTL = ttl }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// Service turns carts into orders and drives the order and payment state
// machines. Loyalty and notification effects are best-effort.
type Service struct {
	orders     domorder.Repository
	carts      CartPort
	inventory  InventoryPort
	loyalty    LoyaltyPort
	catalog    catalog.Catalog
	tenants    tenant.Directory
	transactor tx.Transactor
	locker     Locker
	publisher  domoutbox.Publisher
	ids        IDGenerator
	suffixes   SuffixGenerator

	lockTTL time.Duration
	now     func() time.Time

	inst application.Instrument
}

func NewService(deps Deps, tel observability.Observability, opts ...Option) *Service {
	s := &Service{
		orders:     deps.Orders,
		carts:      deps.Carts,
		inventory:  deps.Inventory,
		loyalty:    deps.Loyalty,
		catalog:    deps.Catalog,
		tenants:    deps.Tenants,
		transactor: deps.Transactor,
		locker:     deps.Locker,
		publisher:  deps.Publisher,
		ids:        deps.IDs,
		suffixes:   deps.Suffixes,
		lockTTL:    DefaultLockTTL,
		now:        time.Now,
		inst:       application.NewInstrument(tel, orderService),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Get(ctx context.Context, tenantID, orderID string) (*domorder.Order, error) {
	if tenantID == "" || orderID == "" {
		return nil, fmt.Errorf("order: tenant and order id are required: %w", failure.ErrInvalidArgument)
	}
	o, err := s.orders.Get(ctx, tenantID, orderID)
	if err != nil {
		return nil, wrapRepositoryError(err)
	}
	return o, nil
}

type UpdateStatusInput struct {
	TenantID string
	OrderID  string
	Status   domorder.Status
	Actor    string
	// TrackingNumber is recorded when set, typically on shipping.
	TrackingNumber string
}

// UpdateStatus moves the order along the fulfilment axis. Re-entering the
// current status is a no-op. A change is announced on the event bus after
// it is stored; publishing problems are logged only.
func (s *Service) UpdateStatus(ctx context.Context, in UpdateStatusInput) (_ *domorder.Order, err error) {
	ctx, run := s.inst.Start(ctx, useCaseUpdateStatus, "UpdateOrderStatus",
		attribute.String("tenant.id", in.TenantID),
		attribute.String("order.id", in.OrderID),
		attribute.String("order.status", string(in.Status)),
	)
	run.Field("tenant_id", in.TenantID)
	run.Field("order_id", in.OrderID)
	defer run.End(&err)

	var (
		o       *domorder.Order
		from    domorder.Status
		changed bool
	)
	err = s.transactor.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		o, err = s.orders.GetForUpdate(ctx, in.TenantID, in.OrderID)
		if err != nil {
			return wrapRepositoryError(err)
		}
		from = o.Status
		changed, err = o.ChangeStatus(in.Status, s.now())
		if err != nil {
			return err
		}
		if in.TrackingNumber != "" && in.TrackingNumber != o.TrackingNumber {
			o.TrackingNumber = in.TrackingNumber
			o.UpdatedAt = s.now().UTC()
			changed = true
		}
		if !changed {
			return nil
		}
		return wrapRepositoryError(s.orders.Update(ctx, o))
	})
	if err != nil {
		return nil, err
	}

	if !changed {
		run.Status("UNCHANGED")
		return o, nil
	}
	if from != o.Status {
		s.publish(ctx, run, domorder.NewStatusChangedEvent(o, from, in.Actor))
	}
	return o, nil
}

type UpdatePaymentStatusInput struct {
	TenantID      string
	OrderID       string
	PaymentStatus domorder.PaymentStatus
	Actor         string
}

// UpdatePaymentStatus moves the order along the payment axis. Entering paid
// awards loyalty points and entering refunded gives back redeemed points;
// loyalty failures are logged and never fail the update.
func (s *Service) UpdatePaymentStatus(ctx context.Context, in UpdatePaymentStatusInput) (_ *domorder.Order, err error) {
	ctx, run := s.inst.Start(ctx, useCaseUpdatePaymentStatus, "UpdateOrderPaymentStatus",
		attribute.String("tenant.id", in.TenantID),
		attribute.String("order.id", in.OrderID),
		attribute.String("order.payment_status", string(in.PaymentStatus)),
	)
	run.Field("tenant_id", in.TenantID)
	run.Field("order_id", in.OrderID)
	defer run.End(&err)

	var (
		o       *domorder.Order
		changed bool
	)
	err = s.transactor.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		o, err = s.orders.GetForUpdate(ctx, in.TenantID, in.OrderID)
		if err != nil {
			return wrapRepositoryError(err)
		}
		changed, err = o.ChangePaymentStatus(in.PaymentStatus, s.now())
		if err != nil || !changed {
			return err
		}
		return wrapRepositoryError(s.orders.Update(ctx, o))
	})
	if err != nil {
		return nil, err
	}
	if !changed {
		run.Status("UNCHANGED")
		return o, nil
	}

	if s.loyalty == nil {
		return o, nil
	}
	logger := run.Logger()
	switch o.PaymentStatus {
	case domorder.PaymentPaid:
		if _, lerr := s.loyalty.AwardPointsForOrder(ctx, o); lerr != nil {
			run.Status("LOYALTY_AWARD_FAILED")
			logger.Warn("loyalty_award_failed",
				observability.F("order_id", o.ID),
				observability.Err(lerr),
			)
		}
	case domorder.PaymentRefunded:
		if _, lerr := s.loyalty.RefundPointsForOrder(ctx, o); lerr != nil {
			run.Status("LOYALTY_REFUND_FAILED")
			logger.Warn("loyalty_refund_failed",
				observability.F("order_id", o.ID),
				observability.Err(lerr),
			)
		}
	}
	return o, nil
}

type ApplyLoyaltyDiscountInput struct {
	TenantID string
	OrderID  string
	Points   int64
}

// ApplyLoyaltyDiscount redeems points against an unpaid order and adds the
// resulting discount to it. Redemption and the order update commit together.
func (s *Service) ApplyLoyaltyDiscount(ctx context.Context, in ApplyLoyaltyDiscountInput) (_ *domorder.Order, err error) {
	ctx, run := s.inst.Start(ctx, useCaseApplyLoyaltyDiscount, "ApplyLoyaltyDiscount",
		attribute.String("tenant.id", in.TenantID),
		attribute.String("order.id", in.OrderID),
		attribute.Int64("loyalty.points", in.Points),
	)
	run.Field("tenant_id", in.TenantID)
	run.Field("order_id", in.OrderID)
	defer run.End(&err)

	if s.loyalty == nil {
		return nil, fmt.Errorf("order: loyalty program %w", failure.ErrNotFound)
	}

	var o *domorder.Order
	err = s.transactor.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		o, err = s.orders.GetForUpdate(ctx, in.TenantID, in.OrderID)
		if err != nil {
			return wrapRepositoryError(err)
		}
		if o.Status.Terminal() {
			return ErrOrderClosed
		}
		if o.PaymentStatus != domorder.PaymentPending {
			return ErrPaymentNotPending
		}
		consumed, discount, err := s.loyalty.UsePointsForOrder(ctx, o, in.Points)
		if err != nil {
			return err
		}
		run.Field("points_consumed", consumed)
		run.Field("discount", discount.String())
		if err := o.ApplyDiscount(discount, s.now()); err != nil {
			return err
		}
		return wrapRepositoryError(s.orders.Update(ctx, o))
	})
	if err != nil {
		return nil, err
	}
	return o, nil
}

// publish hands an event to the bus without letting a slow or full bus hold
// up the caller.
func (s *Service) publish(ctx context.Context, run *application.Run, e domoutbox.Event) {
	if s.publisher == nil {
		return
	}
	started := time.Now()
	pctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	if err := s.publisher.Publish(pctx, e); err != nil {
		s.inst.External(publishPeer, e.EventName(), "error", started)
		run.Span().RecordError(err)
		run.Status("EVENT_PUBLISH_FAILED")
		logctx.FromOr(ctx, run.Logger()).Warn("event_publish_failed",
			observability.F("event", e.EventName()),
			observability.Err(err),
		)
		return
	}
	s.inst.External(publishPeer, e.EventName(), "success", started)
}

func wrapRepositoryError(err error) error {
	if err == nil {
		return nil
	}
	if failure.Kind(err) != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrRepository, err)
}
