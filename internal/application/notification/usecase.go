package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/Zhima-Mochi/storefront/internal/application"
	domorder "github.com/Zhima-Mochi/storefront/internal/domain/order"
	domoutbox "github.com/Zhima-Mochi/storefront/internal/domain/outbox"
	"github.com/Zhima-Mochi/storefront/internal/observability"

	"go.opentelemetry.io/otel/attribute"
)

const (
	notificationService = "notification-service"
	useCaseNotify       = "notification.notify"
	notifierPeer        = "notifier"
	DefaultTimeout      = 5 * time.Second
)

type Result struct {
	Delivered bool
}

// NotifyUseCase delivers one notification within a bounded time.
type NotifyUseCase struct {
	notifier Notifier
	timeout  time.Duration
	inst     application.Instrument
}

var _ application.UseCase[Notification, Result] = (*NotifyUseCase)(nil)

func NewNotifyUseCase(notifier Notifier, timeout time.Duration, tel observability.Observability) *NotifyUseCase {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &NotifyUseCase{
		notifier: notifier,
		timeout:  timeout,
		inst:     application.NewInstrument(tel, notificationService),
	}
}

func (uc *NotifyUseCase) Execute(ctx context.Context, n Notification) (_ Result, err error) {
	ctx, run := uc.inst.Start(ctx, useCaseNotify, "Notify",
		attribute.String("tenant.id", n.TenantID),
		attribute.String("notification.type", string(n.Type)),
		attribute.String("order.id", n.OrderID),
	)
	run.Field("tenant_id", n.TenantID)
	run.Field("order_id", n.OrderID)
	run.Field("notification_type", string(n.Type))
	defer run.End(&err)

	started := time.Now()
	nctx, cancel := context.WithTimeout(ctx, uc.timeout)
	defer cancel()
	if err := uc.notifier.Notify(nctx, n); err != nil {
		uc.inst.External(notifierPeer, string(n.Type), "error", started)
		run.Fail("NOTIFY_FAILED")
		return Result{}, fmt.Errorf("notification: %s for order %s: %w", n.Type, n.OrderID, err)
	}
	uc.inst.External(notifierPeer, string(n.Type), "success", started)
	return Result{Delivered: true}, nil
}

// FromEvent maps an order event to the notification it triggers. A status
// change back into pending triggers nothing.
func FromEvent(e domoutbox.Event) (Notification, bool) {
	switch evt := e.(type) {
	case domorder.PlacedEvent:
		return Notification{
			Type:          TypeOrderPlaced,
			TenantID:      evt.TenantID,
			OrderID:       evt.OrderID,
			OrderNumber:   evt.OrderNumber,
			CustomerEmail: evt.CustomerEmail,
			Total:         evt.Total,
			Currency:      evt.Currency,
			OccurredAt:    evt.OccurredAt,
		}, true
	case domorder.StatusChangedEvent:
		var t Type
		switch evt.To {
		case domorder.StatusConfirmed:
			t = TypeOrderConfirmed
		case domorder.StatusShipped:
			t = TypeOrderShipped
		case domorder.StatusDelivered:
			t = TypeOrderDelivered
		case domorder.StatusCancelled:
			t = TypeOrderCancelled
		default:
			return Notification{}, false
		}
		return Notification{
			Type:           t,
			TenantID:       evt.TenantID,
			OrderID:        evt.OrderID,
			OrderNumber:    evt.OrderNumber,
			CustomerEmail:  evt.CustomerEmail,
			TrackingNumber: evt.TrackingNumber,
			OccurredAt:     evt.OccurredAt,
		}, true
	}
	return Notification{}, false
}
