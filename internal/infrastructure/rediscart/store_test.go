package rediscart

import (
	"context"
	"testing"
	"time"

	"github.com/Zhima-Mochi/storefront/internal/domain/cart"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T, ttl time.Duration) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return New(rdb, ttl, nil), mr
}

func sessionCart(t *testing.T) *cart.Cart {
	t.Helper()
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	c, err := cart.New("cart-1", cart.SessionKey("t1", "s1"), "TRY", now)
	require.NoError(t, err)
	_, err = c.AddLine("line-1", "p1", "", 2, decimal.RequireFromString("100.00"), now)
	require.NoError(t, err)
	c.Recalculate(cart.DefaultTaxRate)
	return c
}

func TestSaveAndGetRoundTrip(t *testing.T) {
	store, _ := newStore(t, time.Hour)
	ctx := context.Background()
	c := sessionCart(t)

	require.NoError(t, store.Save(ctx, c))
	got, err := store.Get(ctx, c.Key())
	require.NoError(t, err)

	assert.Equal(t, c.ID, got.ID)
	require.Len(t, got.Lines, 1)
	assert.Equal(t, 2, got.Lines[0].Quantity)
	assert.True(t, decimal.RequireFromString("236").Equal(got.Total))
	assert.True(t, got.IsActive())
}

func TestSaveSlidesTTL(t *testing.T) {
	store, mr := newStore(t, time.Hour)
	ctx := context.Background()
	c := sessionCart(t)

	require.NoError(t, store.Save(ctx, c))
	mr.FastForward(50 * time.Minute)
	require.NoError(t, store.Save(ctx, c))
	assert.Equal(t, time.Hour, mr.TTL("cart:t1:s1"))

	mr.FastForward(61 * time.Minute)
	_, err := store.Get(ctx, c.Key())
	assert.ErrorIs(t, err, cart.ErrNotFound)
}

func TestGetMissing(t *testing.T) {
	store, _ := newStore(t, time.Hour)
	_, err := store.Get(context.Background(), cart.SessionKey("t1", "nobody"))
	assert.ErrorIs(t, err, cart.ErrNotFound)
}

func TestGetCorruptDocumentIsNotFound(t *testing.T) {
	store, mr := newStore(t, time.Hour)
	require.NoError(t, mr.Set("cart:t1:s1", "{not json"))

	_, err := store.Get(context.Background(), cart.SessionKey("t1", "s1"))
	assert.ErrorIs(t, err, cart.ErrNotFound)
}

func TestDelete(t *testing.T) {
	store, mr := newStore(t, time.Hour)
	ctx := context.Background()
	c := sessionCart(t)
	require.NoError(t, store.Save(ctx, c))

	require.NoError(t, store.Delete(ctx, c.Key()))
	assert.False(t, mr.Exists("cart:t1:s1"))
}

func TestTenantsDoNotShareCarts(t *testing.T) {
	store, _ := newStore(t, time.Hour)
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, sessionCart(t)))

	_, err := store.Get(ctx, cart.SessionKey("t2", "s1"))
	assert.ErrorIs(t, err, cart.ErrNotFound)
}
