package workerpresentation

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Zhima-Mochi/storefront/internal/application/notification"
	domorder "github.com/Zhima-Mochi/storefront/internal/domain/order"
	"github.com/Zhima-Mochi/storefront/internal/infrastructure/outbox"
	"github.com/Zhima-Mochi/storefront/internal/observability/logctx"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingNotifier struct {
	mu  sync.Mutex
	got []notification.Notification
}

func (r *recordingNotifier) Notify(_ context.Context, n notification.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, n)
	return nil
}

func TestNotificationWorkerForwardsOrderEvents(t *testing.T) {
	bus := outbox.NewBus(nil)
	notifier := &recordingNotifier{}
	NewNotificationWorker(bus, notification.NewNotifyUseCase(notifier, time.Second, nil), nil).Start()
	bus.Start(context.Background())

	ctx := context.Background()
	require.NoError(t, bus.Publish(ctx, domorder.PlacedEvent{TenantID: "t1", OrderID: "o1"}))
	require.NoError(t, bus.Publish(ctx, domorder.StatusChangedEvent{TenantID: "t1", OrderID: "o1", From: domorder.StatusPending, To: domorder.StatusConfirmed}))
	require.NoError(t, bus.Publish(ctx, domorder.StatusChangedEvent{TenantID: "t1", OrderID: "o1", To: domorder.StatusPending}))
	bus.Stop(ctx)

	require.Len(t, notifier.got, 2)
	assert.Equal(t, notification.TypeOrderPlaced, notifier.got[0].Type)
	assert.Equal(t, notification.TypeOrderConfirmed, notifier.got[1].Type)
}

func TestWithEventContextInstallsLogger(t *testing.T) {
	ctx := WithEventContext(context.Background(), nil, domorder.PlacedEvent{})
	assert.NotNil(t, logctx.From(ctx))
}
