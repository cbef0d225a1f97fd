package order

import (
	"testing"
	"time"

	"github.com/Zhima-Mochi/storefront/internal/domain/failure"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

func newOrder() *Order {
	return &Order{
		ID:            "o-1",
		TenantID:      "t-1",
		Status:        StatusPending,
		PaymentStatus: PaymentPending,
		Subtotal:      decimal.RequireFromString("200"),
		TaxAmount:     decimal.RequireFromString("36"),
		Total:         decimal.RequireFromString("236"),
	}
}

func TestStatusTransitions(t *testing.T) {
	legal := [][2]Status{
		{StatusPending, StatusConfirmed},
		{StatusConfirmed, StatusShipped},
		{StatusShipped, StatusDelivered},
		{StatusPending, StatusCancelled},
		{StatusConfirmed, StatusCancelled},
		{StatusShipped, StatusCancelled},
	}
	for _, tr := range legal {
		assert.True(t, tr[0].CanTransitionTo(tr[1]), "%s -> %s", tr[0], tr[1])
	}
	illegal := [][2]Status{
		{StatusPending, StatusShipped},
		{StatusPending, StatusDelivered},
		{StatusDelivered, StatusCancelled},
		{StatusCancelled, StatusPending},
		{StatusShipped, StatusConfirmed},
	}
	for _, tr := range illegal {
		assert.False(t, tr[0].CanTransitionTo(tr[1]), "%s -> %s", tr[0], tr[1])
	}
	assert.True(t, StatusDelivered.Terminal())
	assert.False(t, StatusShipped.Terminal())
}

func TestChangeStatusSetsTimestampsOnce(t *testing.T) {
	o := newOrder()
	_, err := o.ChangeStatus(StatusConfirmed, t0)
	require.NoError(t, err)

	changed, err := o.ChangeStatus(StatusShipped, t0.Add(time.Hour))
	require.NoError(t, err)
	assert.True(t, changed)
	require.NotNil(t, o.ShippedAt)
	shipped := *o.ShippedAt

	changed, err = o.ChangeStatus(StatusShipped, t0.Add(2*time.Hour))
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, shipped, *o.ShippedAt)

	_, err = o.ChangeStatus(StatusDelivered, t0.Add(3*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, t0.Add(3*time.Hour), *o.DeliveredAt)
}

func TestChangeStatusRejectsIllegal(t *testing.T) {
	o := newOrder()
	_, err := o.ChangeStatus(StatusDelivered, t0)
	require.ErrorIs(t, err, failure.ErrInvalidTransition)
	assert.Equal(t, StatusPending, o.Status)

	_, err = o.ChangeStatus(Status("lost"), t0)
	require.ErrorIs(t, err, failure.ErrInvalidTransition)
}

func TestPaymentTransitions(t *testing.T) {
	o := newOrder()
	_, err := o.ChangePaymentStatus(PaymentRefunded, t0)
	require.ErrorIs(t, err, failure.ErrInvalidTransition)

	_, err = o.ChangePaymentStatus(PaymentFailed, t0)
	require.NoError(t, err)
	_, err = o.ChangePaymentStatus(PaymentPaid, t0)
	require.NoError(t, err)
	require.NotNil(t, o.PaidAt)
	_, err = o.ChangePaymentStatus(PaymentPartiallyRefunded, t0)
	require.NoError(t, err)
	_, err = o.ChangePaymentStatus(PaymentRefunded, t0)
	require.NoError(t, err)
	_, err = o.ChangePaymentStatus(PaymentPaid, t0)
	require.ErrorIs(t, err, failure.ErrInvalidTransition)
}

func TestStatusAxesAreIndependent(t *testing.T) {
	o := newOrder()
	_, err := o.ChangePaymentStatus(PaymentPaid, t0)
	require.NoError(t, err)
	_, err = o.ChangeStatus(StatusCancelled, t0)
	require.NoError(t, err)
	_, err = o.ChangePaymentStatus(PaymentRefunded, t0)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, o.Status)
	assert.Equal(t, PaymentRefunded, o.PaymentStatus)
}

func TestApplyDiscount(t *testing.T) {
	o := newOrder()
	require.NoError(t, o.ApplyDiscount(decimal.RequireFromString("1.50"), t0))
	assert.Equal(t, "234.5", o.Total.String())

	require.ErrorIs(t, o.ApplyDiscount(decimal.NewFromInt(-1), t0), failure.ErrInvalidArgument)

	require.NoError(t, o.ApplyDiscount(decimal.NewFromInt(1000), t0))
	assert.True(t, o.Total.IsZero())
}

func TestNumber(t *testing.T) {
	assert.Equal(t, "ORD-ACME-1777626000-1A2B3C4D", Number("ACME", t0, "1A2B3C4D"))
}

func TestCloneIsDeep(t *testing.T) {
	o := newOrder()
	o.Lines = []Line{{ID: "l-1", Quantity: 1}}
	o.ShippingAddress = &Address{City: "Izmir"}
	_, _ = o.ChangePaymentStatus(PaymentPaid, t0)

	c := o.Clone()
	c.Lines[0].Quantity = 3
	c.ShippingAddress.City = "Ankara"
	*c.PaidAt = t0.Add(time.Hour)

	assert.Equal(t, 1, o.Lines[0].Quantity)
	assert.Equal(t, "Izmir", o.ShippingAddress.City)
	assert.Equal(t, t0, *o.PaidAt)
}
