package notification

import (
	"context"
	"errors"
	"testing"
	"time"

	domorder "github.com/Zhima-Mochi/storefront/internal/domain/order"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type notifierFunc func(ctx context.Context, n Notification) error

func (f notifierFunc) Notify(ctx context.Context, n Notification) error { return f(ctx, n) }

func TestExecuteDelivers(t *testing.T) {
	var got Notification
	uc := NewNotifyUseCase(notifierFunc(func(_ context.Context, n Notification) error {
		got = n
		return nil
	}), time.Second, nil)

	res, err := uc.Execute(context.Background(), Notification{Type: TypeOrderPlaced, TenantID: "t1", OrderID: "o1"})
	require.NoError(t, err)
	assert.True(t, res.Delivered)
	assert.Equal(t, "o1", got.OrderID)
}

func TestExecuteReportsNotifierErrors(t *testing.T) {
	uc := NewNotifyUseCase(notifierFunc(func(context.Context, Notification) error {
		return errors.New("topic not found")
	}), time.Second, nil)

	res, err := uc.Execute(context.Background(), Notification{Type: TypeOrderShipped, OrderID: "o1"})
	require.Error(t, err)
	assert.False(t, res.Delivered)
	assert.Contains(t, err.Error(), "order.shipped")
}

func TestExecuteBoundsSlowNotifiers(t *testing.T) {
	uc := NewNotifyUseCase(notifierFunc(func(ctx context.Context, _ Notification) error {
		<-ctx.Done()
		return ctx.Err()
	}), 10*time.Millisecond, nil)

	_, err := uc.Execute(context.Background(), Notification{Type: TypeOrderPlaced})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestFromEvent(t *testing.T) {
	placed := domorder.PlacedEvent{
		TenantID: "t1", OrderID: "o1", OrderNumber: "ORD-ACME-1-ABCD", CustomerEmail: "a@example.com",
		Total: decimal.RequireFromString("236.00"), Currency: "USD",
	}
	n, ok := FromEvent(placed)
	require.True(t, ok)
	assert.Equal(t, TypeOrderPlaced, n.Type)
	assert.Equal(t, "ORD-ACME-1-ABCD", n.OrderNumber)
	assert.True(t, n.Total.Equal(placed.Total))

	cases := map[domorder.Status]Type{
		domorder.StatusConfirmed: TypeOrderConfirmed,
		domorder.StatusShipped:   TypeOrderShipped,
		domorder.StatusDelivered: TypeOrderDelivered,
		domorder.StatusCancelled: TypeOrderCancelled,
	}
	for to, want := range cases {
		n, ok := FromEvent(domorder.StatusChangedEvent{OrderID: "o1", From: domorder.StatusPending, To: to, TrackingNumber: "1Z"})
		require.True(t, ok, to)
		assert.Equal(t, want, n.Type)
		assert.Equal(t, "1Z", n.TrackingNumber)
	}

	_, ok = FromEvent(domorder.StatusChangedEvent{To: domorder.StatusPending})
	assert.False(t, ok)
}
