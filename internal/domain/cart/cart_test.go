package cart

import (
	"testing"
	"time"

	"github.com/Zhima-Mochi/storefront/internal/domain/failure"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newCart(t *testing.T) *Cart {
	t.Helper()
	c, err := New("c-1", SessionKey("t-1", "s-1"), "TRY", now)
	require.NoError(t, err)
	return c
}

func TestNewRequiresIdentity(t *testing.T) {
	_, err := New("c-1", Key{TenantID: "t-1"}, "TRY", now)
	require.ErrorIs(t, err, failure.ErrInvalidArgument)

	_, err = New("c-1", Key{Identity: Identity{SessionID: "s"}}, "TRY", now)
	require.ErrorIs(t, err, failure.ErrInvalidArgument)
}

func TestAddLineMergesSameItem(t *testing.T) {
	c := newCart(t)
	for _, q := range []int{1, 2, 4} {
		_, err := c.AddLine("l-new", "p-1", "v-1", q, dec("10.00"), now)
		require.NoError(t, err)
	}
	_, err := c.AddLine("l-other", "p-1", "", 1, dec("9.00"), now)
	require.NoError(t, err)

	require.Len(t, c.Lines, 2)
	assert.Equal(t, 7, c.Lines[0].Quantity)
	assert.True(t, dec("70.00").Equal(c.Lines[0].LineTotal))
	assert.Equal(t, 8, c.ItemCount())
}

func TestAddLineRejectsNonPositiveQuantity(t *testing.T) {
	c := newCart(t)
	_, err := c.AddLine("l", "p", "", 0, dec("1"), now)
	require.ErrorIs(t, err, failure.ErrInvalidArgument)
}

func TestRecalculateExample(t *testing.T) {
	c := newCart(t)
	line, err := c.AddLine("l-1", "p-1", "", 2, dec("100.00"), now)
	require.NoError(t, err)

	c.Recalculate(DefaultTaxRate)
	assert.Equal(t, "200", c.Subtotal.String())
	assert.Equal(t, "36", c.TaxAmount.String())
	assert.Equal(t, "236", c.Total.String())

	// idempotent without mutation
	c.Recalculate(DefaultTaxRate)
	assert.Equal(t, "236", c.Total.String())

	require.NoError(t, c.SetLineQuantity(line.ID, 0, now))
	c.Recalculate(DefaultTaxRate)
	assert.Empty(t, c.Lines)
	assert.True(t, c.Total.IsZero())
}

func TestRecalculateClampsAtZero(t *testing.T) {
	c := newCart(t)
	_, err := c.AddLine("l-1", "p-1", "", 1, dec("10.00"), now)
	require.NoError(t, err)
	c.DiscountAmount = dec("50")
	c.Recalculate(DefaultTaxRate)
	assert.True(t, c.Total.IsZero())
}

func TestLineOperationsUnknownLine(t *testing.T) {
	c := newCart(t)
	require.ErrorIs(t, c.SetLineQuantity("nope", 2, now), ErrLineNotFound)
	require.ErrorIs(t, c.RemoveLine("nope", now), failure.ErrNotFound)
}

func TestLifecycle(t *testing.T) {
	c := newCart(t)
	require.NoError(t, c.Deactivate(now))
	assert.False(t, c.IsActive())
	require.ErrorIs(t, c.Deactivate(now), failure.ErrInactiveCart)
	c.Reactivate(now)
	assert.True(t, c.IsActive())
}

func TestCloneIsDeep(t *testing.T) {
	c := newCart(t)
	c.Touch(now, time.Hour)
	_, _ = c.AddLine("l-1", "p-1", "", 1, dec("1"), now)
	cl := c.Clone()
	cl.Lines[0].Quantity = 9
	*cl.ExpiresAt = now
	assert.Equal(t, 1, c.Lines[0].Quantity)
	assert.Equal(t, now.Add(time.Hour), *c.ExpiresAt)
}

func TestIdentityKind(t *testing.T) {
	assert.Equal(t, KindDurable, CustomerKey("t", "c").Kind())
	assert.Equal(t, KindEphemeral, SessionKey("t", "s").Kind())
	assert.Equal(t, "t:session:s", SessionKey("t", "s").String())
}

func TestSameContents(t *testing.T) {
	c := newCart(t)
	_, err := c.AddLine("l-1", "p-1", "", 2, dec("10.00"), now)
	require.NoError(t, err)

	copyOf := func(c *Cart) *Cart {
		cp := *c
		cp.Lines = append([]Line(nil), c.Lines...)
		return &cp
	}

	same := copyOf(c)
	same.UpdatedAt = now.Add(time.Minute)
	assert.True(t, c.SameContents(same))

	more := copyOf(c)
	_, err = more.AddLine("l-2", "p-2", "", 1, dec("5.00"), now)
	require.NoError(t, err)
	assert.False(t, c.SameContents(more))

	bumped := copyOf(c)
	bumped.Lines[0].Quantity = 3
	assert.False(t, c.SameContents(bumped))

	shipped := copyOf(c)
	shipped.ShippingMethodID = "std"
	assert.False(t, c.SameContents(shipped))
}
