package notify

import (
	"context"

	"github.com/Zhima-Mochi/storefront/internal/application/notification"
	"github.com/Zhima-Mochi/storefront/internal/observability"
	"github.com/Zhima-Mochi/storefront/internal/observability/logctx"
)

// LogNotifier writes notifications to the log; used when no topic is configured.
type LogNotifier struct {
	log observability.Logger
}

func NewLogNotifier(logger observability.Logger) *LogNotifier {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &LogNotifier{log: logger.With(observability.F("component", "log_notifier"))}
}

func (n *LogNotifier) Notify(ctx context.Context, msg notification.Notification) error {
	logctx.FromOr(ctx, n.log).Info("notification",
		observability.F("type", string(msg.Type)),
		observability.F("tenant_id", msg.TenantID),
		observability.F("order_id", msg.OrderID),
		observability.F("order_number", msg.OrderNumber),
	)
	return nil
}
