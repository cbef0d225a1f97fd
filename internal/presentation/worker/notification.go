package workerpresentation

import (
	"context"

	"github.com/Zhima-Mochi/storefront/internal/application"
	"github.com/Zhima-Mochi/storefront/internal/application/notification"
	domorder "github.com/Zhima-Mochi/storefront/internal/domain/order"
	domoutbox "github.com/Zhima-Mochi/storefront/internal/domain/outbox"
	"github.com/Zhima-Mochi/storefront/internal/observability"
)

const notificationWorker = "notification-worker"

// NotificationWorker forwards order events from the bus to the notify use case.
type NotificationWorker struct {
	subscriber domoutbox.Subscriber
	notify     application.UseCase[notification.Notification, notification.Result]
	log        observability.Logger
}

func NewNotificationWorker(
	subscriber domoutbox.Subscriber,
	notify application.UseCase[notification.Notification, notification.Result],
	tel observability.Observability,
) *NotificationWorker {
	if tel == nil {
		tel = observability.Nop()
	}
	return &NotificationWorker{
		subscriber: subscriber,
		notify:     notify,
		log:        tel.Logger().With(observability.F("service", notificationWorker)),
	}
}

func (w *NotificationWorker) Start() {
	if w.subscriber == nil || w.notify == nil {
		return
	}
	w.subscriber.Subscribe(domorder.PlacedEvent{}.EventName(), w.handle)
	w.subscriber.Subscribe(domorder.StatusChangedEvent{}.EventName(), w.handle)
}

func (w *NotificationWorker) handle(ctx context.Context, e domoutbox.Event) error {
	n, ok := notification.FromEvent(e)
	if !ok {
		return nil
	}
	ctx = WithEventContext(ctx, w.log, e, observability.F("tenant_id", n.TenantID))
	_, err := w.notify.Execute(ctx, n)
	return err
}
