package cart

import (
	"context"
	"errors"
	"testing"
	"time"

	domcart "github.com/Zhima-Mochi/storefront/internal/domain/cart"
	"github.com/Zhima-Mochi/storefront/internal/domain/catalog"
	"github.com/Zhima-Mochi/storefront/internal/domain/failure"
	"github.com/Zhima-Mochi/storefront/internal/domain/tenant"
	"github.com/Zhima-Mochi/storefront/internal/infrastructure/id"
	"github.com/Zhima-Mochi/storefront/internal/infrastructure/memory"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tenantID = "t1"

var (
	customerKey = domcart.CustomerKey(tenantID, "c1")
	sessionKey  = domcart.SessionKey(tenantID, "s1")
)

type clock struct{ now time.Time }

func (c *clock) Now() time.Time          { return c.now }
func (c *clock) Advance(d time.Duration) { c.now = c.now.Add(d) }
func newClock() *clock                   { return &clock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)} }
func dec(s string) decimal.Decimal       { return decimal.RequireFromString(s) }
func assertDec(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, got.Equal(dec(want)), "want %s, got %s", want, got)
}

type fakeConverter struct {
	rate decimal.Decimal
	err  error
}

func (f fakeConverter) Convert(_ context.Context, amount decimal.Decimal, _, _ string) (decimal.Decimal, error) {
	if f.err != nil {
		return decimal.Zero, f.err
	}
	return amount.Mul(f.rate), nil
}

type fixture struct {
	svc   *Service
	store *memory.Store
	clock *clock
}

func newFixture(t *testing.T, converter CurrencyConverter) fixture {
	t.Helper()
	store := memory.NewStore()
	store.PutTenant(tenant.Tenant{ID: tenantID, Slug: "acme", DefaultCurrency: "USD"})
	store.PutItem(catalog.Item{
		TenantID: tenantID, ProductID: "p1", Name: "Kettle", UnitPrice: dec("100.00"), Currency: "USD",
		TrackInventory: true, CurrentQuantity: 4,
	})
	store.PutItem(catalog.Item{
		TenantID: tenantID, ProductID: "p2", Name: "Teapot", UnitPrice: dec("20.00"), Currency: "EUR",
	})
	store.PutShippingMethod(tenantID, "std", dec("10.00"))

	clk := newClock()
	svc := NewService(Deps{
		Durable:    store.Carts(),
		Ephemeral:  memory.NewEphemeralCartStore(DefaultGuestTTL).WithClock(clk.Now),
		Catalog:    store,
		Currency:   converter,
		Taxes:      TenantTaxRates{Directory: store, Default: domcart.DefaultTaxRate},
		Shipping:   store,
		Tenants:    store,
		Transactor: store,
		IDs:        id.New(),
	}, nil, WithClock(clk.Now))
	return fixture{svc: svc, store: store, clock: clk}
}

func (f fixture) open(t *testing.T, key domcart.Key) *domcart.Cart {
	t.Helper()
	c, err := f.svc.GetOrCreate(context.Background(), GetOrCreateInput{
		TenantID: key.TenantID, CustomerID: key.CustomerID, SessionID: key.SessionID,
	})
	require.NoError(t, err)
	return c
}

func TestGetOrCreateUsesTenantCurrency(t *testing.T) {
	f := newFixture(t, nil)

	c := f.open(t, customerKey)
	assert.Equal(t, "USD", c.Currency)
	assert.True(t, c.IsActive())

	again := f.open(t, customerKey)
	assert.Equal(t, c.ID, again.ID)
}

// lateStore hides the customer's active cart from the first read, as if it
// were created by another request between that read and the insert.
type lateStore struct {
	domcart.DurableStore
	reads int
}

func (s *lateStore) Get(ctx context.Context, key domcart.Key) (*domcart.Cart, error) {
	s.reads++
	if s.reads == 1 {
		return nil, domcart.ErrNotFound
	}
	return s.DurableStore.Get(ctx, key)
}

func TestGetOrCreateReturnsConcurrentlyCreatedCart(t *testing.T) {
	f := newFixture(t, nil)
	winner := f.open(t, customerKey)

	late := &lateStore{DurableStore: f.store.Carts()}
	svc := NewService(Deps{
		Durable:    late,
		Ephemeral:  memory.NewEphemeralCartStore(DefaultGuestTTL),
		Catalog:    f.store,
		Tenants:    f.store,
		Transactor: f.store,
		IDs:        id.New(),
	}, nil, WithClock(f.clock.Now))

	c, err := svc.GetOrCreate(context.Background(), GetOrCreateInput{TenantID: tenantID, CustomerID: customerKey.CustomerID})
	require.NoError(t, err)
	assert.Equal(t, winner.ID, c.ID)
	assert.Equal(t, 2, late.reads)
}

func TestGetOrCreateRequiresIdentity(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.svc.GetOrCreate(context.Background(), GetOrCreateInput{TenantID: tenantID})
	assert.ErrorIs(t, err, domcart.ErrIdentityRequired)

	_, err = f.svc.GetOrCreate(context.Background(), GetOrCreateInput{CustomerID: "c1"})
	assert.ErrorIs(t, err, domcart.ErrTenantRequired)
}

func TestAddItemComputesTotals(t *testing.T) {
	for _, key := range []domcart.Key{customerKey, sessionKey} {
		t.Run(string(key.Kind()), func(t *testing.T) {
			f := newFixture(t, nil)
			f.open(t, key)

			c, err := f.svc.AddItem(context.Background(), AddItemInput{Key: key, ProductID: "p1", Quantity: 2})
			require.NoError(t, err)
			require.Len(t, c.Lines, 1)
			assertDec(t, "200.00", c.Subtotal)
			assertDec(t, "36.00", c.TaxAmount)
			assertDec(t, "236.00", c.Total)
		})
	}
}

func TestAddItemMergesRepeatedProduct(t *testing.T) {
	f := newFixture(t, nil)
	f.open(t, customerKey)
	ctx := context.Background()

	_, err := f.svc.AddItem(ctx, AddItemInput{Key: customerKey, ProductID: "p1", Quantity: 1})
	require.NoError(t, err)
	c, err := f.svc.AddItem(ctx, AddItemInput{Key: customerKey, ProductID: "p1", Quantity: 2})
	require.NoError(t, err)

	require.Len(t, c.Lines, 1)
	assert.Equal(t, 3, c.Lines[0].Quantity)
	assertDec(t, "300.00", c.Lines[0].LineTotal)
}

func TestAddItemErrors(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	_, err := f.svc.AddItem(ctx, AddItemInput{Key: customerKey, ProductID: "p1", Quantity: 1})
	assert.ErrorIs(t, err, domcart.ErrNotFound)

	f.open(t, customerKey)
	_, err = f.svc.AddItem(ctx, AddItemInput{Key: customerKey, ProductID: "p1", Quantity: 0})
	assert.ErrorIs(t, err, domcart.ErrInvalidQuantity)

	_, err = f.svc.AddItem(ctx, AddItemInput{Key: customerKey, ProductID: "nope", Quantity: 1})
	assert.ErrorIs(t, err, catalog.ErrNotFound)

	other := domcart.CustomerKey("t2", "c1")
	_, err = f.svc.GetOrCreate(ctx, GetOrCreateInput{TenantID: "t2", CustomerID: "c1", Currency: "USD"})
	require.NoError(t, err)
	_, err = f.svc.AddItem(ctx, AddItemInput{Key: other, ProductID: "p1", Quantity: 1})
	assert.ErrorIs(t, err, catalog.ErrNotFound)
}

func TestAddItemConvertsForeignPrices(t *testing.T) {
	f := newFixture(t, fakeConverter{rate: dec("1.10")})
	f.open(t, customerKey)

	c, err := f.svc.AddItem(context.Background(), AddItemInput{Key: customerKey, ProductID: "p2", Quantity: 1})
	require.NoError(t, err)
	assertDec(t, "22.00", c.Lines[0].UnitPrice)
}

func TestAddItemKeepsSourcePriceWhenConversionFails(t *testing.T) {
	f := newFixture(t, fakeConverter{err: errors.New("rates offline")})
	f.open(t, customerKey)

	c, err := f.svc.AddItem(context.Background(), AddItemInput{Key: customerKey, ProductID: "p2", Quantity: 1})
	require.NoError(t, err)
	assertDec(t, "20.00", c.Lines[0].UnitPrice)
}

func TestAddItemTargetCurrency(t *testing.T) {
	f := newFixture(t, fakeConverter{rate: dec("0.50")})
	f.open(t, customerKey)
	ctx := context.Background()

	c, err := f.svc.AddItem(ctx, AddItemInput{Key: customerKey, ProductID: "p1", Quantity: 1, TargetCurrency: "GBP"})
	require.NoError(t, err)
	assert.Equal(t, "GBP", c.Currency)
	assertDec(t, "50.00", c.Lines[0].UnitPrice)

	_, err = f.svc.AddItem(ctx, AddItemInput{Key: customerKey, ProductID: "p1", Quantity: 1, TargetCurrency: "USD"})
	assert.ErrorIs(t, err, ErrCurrencyMismatch)
}

func TestUpdateQuantity(t *testing.T) {
	f := newFixture(t, nil)
	f.open(t, customerKey)
	ctx := context.Background()
	c, err := f.svc.AddItem(ctx, AddItemInput{Key: customerKey, ProductID: "p1", Quantity: 1})
	require.NoError(t, err)
	lineID := c.Lines[0].ID

	c, err = f.svc.UpdateQuantity(ctx, UpdateQuantityInput{Key: customerKey, LineID: lineID, Quantity: 3})
	require.NoError(t, err)
	assert.Equal(t, 3, c.Lines[0].Quantity)
	assertDec(t, "354.00", c.Total)

	_, err = f.svc.UpdateQuantity(ctx, UpdateQuantityInput{Key: customerKey, LineID: lineID, Quantity: 5})
	assert.ErrorIs(t, err, failure.ErrInsufficientStock)

	c, err = f.svc.UpdateQuantity(ctx, UpdateQuantityInput{Key: customerKey, LineID: lineID, Quantity: 0})
	require.NoError(t, err)
	assert.Empty(t, c.Lines)
	assertDec(t, "0", c.Total)

	_, err = f.svc.UpdateQuantity(ctx, UpdateQuantityInput{Key: customerKey, LineID: lineID, Quantity: 1})
	assert.ErrorIs(t, err, domcart.ErrLineNotFound)
}

func TestUpdateQuantityAllowsBackorderUpToVirtualStock(t *testing.T) {
	f := newFixture(t, nil)
	f.store.PutItem(catalog.Item{
		TenantID: tenantID, ProductID: "p3", Name: "Cup", UnitPrice: dec("5.00"), Currency: "USD",
		TrackInventory: true, CurrentQuantity: 2, AllowBackorder: true, VirtualStockQuantity: 3,
	})
	f.open(t, customerKey)
	ctx := context.Background()
	c, err := f.svc.AddItem(ctx, AddItemInput{Key: customerKey, ProductID: "p3", Quantity: 1})
	require.NoError(t, err)
	lineID := c.Lines[0].ID

	c, err = f.svc.UpdateQuantity(ctx, UpdateQuantityInput{Key: customerKey, LineID: lineID, Quantity: 5})
	require.NoError(t, err)
	assert.Equal(t, 5, c.Lines[0].Quantity)

	_, err = f.svc.UpdateQuantity(ctx, UpdateQuantityInput{Key: customerKey, LineID: lineID, Quantity: 6})
	assert.ErrorIs(t, err, failure.ErrInsufficientStock)
}

func TestUpdateQuantitySessionCartDefersStockCheck(t *testing.T) {
	f := newFixture(t, nil)
	f.open(t, sessionKey)
	ctx := context.Background()
	c, err := f.svc.AddItem(ctx, AddItemInput{Key: sessionKey, ProductID: "p1", Quantity: 1})
	require.NoError(t, err)

	c, err = f.svc.UpdateQuantity(ctx, UpdateQuantityInput{Key: sessionKey, LineID: c.Lines[0].ID, Quantity: 9})
	require.NoError(t, err)
	assert.Equal(t, 9, c.Lines[0].Quantity)
}

func TestRemoveItemAndClear(t *testing.T) {
	f := newFixture(t, nil)
	f.open(t, sessionKey)
	ctx := context.Background()
	_, err := f.svc.AddItem(ctx, AddItemInput{Key: sessionKey, ProductID: "p1", Quantity: 1})
	require.NoError(t, err)
	c, err := f.svc.AddItem(ctx, AddItemInput{Key: sessionKey, ProductID: "p2", Quantity: 1})
	require.NoError(t, err)
	require.Len(t, c.Lines, 2)

	c, err = f.svc.RemoveItem(ctx, sessionKey, c.Lines[0].ID)
	require.NoError(t, err)
	require.Len(t, c.Lines, 1)
	assert.Equal(t, "p2", c.Lines[0].ProductID)

	c, err = f.svc.Clear(ctx, sessionKey)
	require.NoError(t, err)
	assert.Empty(t, c.Lines)
	assertDec(t, "0", c.Subtotal)
}

func TestSetShippingMethod(t *testing.T) {
	f := newFixture(t, nil)
	f.open(t, customerKey)
	ctx := context.Background()
	_, err := f.svc.AddItem(ctx, AddItemInput{Key: customerKey, ProductID: "p1", Quantity: 2})
	require.NoError(t, err)

	c, err := f.svc.SetShippingMethod(ctx, customerKey, "std")
	require.NoError(t, err)
	assertDec(t, "10.00", c.ShippingCost)
	assertDec(t, "246.00", c.Total)

	_, err = f.svc.SetShippingMethod(ctx, customerKey, "express")
	assert.ErrorIs(t, err, failure.ErrNotFound)

	c, err = f.svc.SetShippingMethod(ctx, customerKey, "")
	require.NoError(t, err)
	assertDec(t, "236.00", c.Total)
}

func TestTenantTaxRateOverridesDefault(t *testing.T) {
	f := newFixture(t, nil)
	rate := dec("0.10")
	f.store.PutTenant(tenant.Tenant{ID: tenantID, Slug: "acme", DefaultCurrency: "USD", TaxRate: &rate})
	f.open(t, customerKey)

	c, err := f.svc.AddItem(context.Background(), AddItemInput{Key: customerKey, ProductID: "p1", Quantity: 2})
	require.NoError(t, err)
	assertDec(t, "20.00", c.TaxAmount)
	assertDec(t, "220.00", c.Total)
}

func TestDeactivatedCustomerCartIsReactivatedEmpty(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.open(t, customerKey)
	_, err := f.svc.AddItem(ctx, AddItemInput{Key: customerKey, ProductID: "p1", Quantity: 1})
	require.NoError(t, err)
	c, err := f.svc.SetShippingMethod(ctx, customerKey, "std")
	require.NoError(t, err)

	require.NoError(t, f.svc.Deactivate(ctx, c))
	assert.Equal(t, domcart.LifecycleInactive, c.Lifecycle)

	_, err = f.svc.Load(ctx, customerKey)
	assert.ErrorIs(t, err, domcart.ErrInactive)
	_, err = f.svc.AddItem(ctx, AddItemInput{Key: customerKey, ProductID: "p1", Quantity: 1})
	assert.ErrorIs(t, err, domcart.ErrNotFound)

	f.clock.Advance(time.Hour)
	back := f.open(t, customerKey)
	assert.Equal(t, c.ID, back.ID)
	assert.True(t, back.IsActive())
	assert.Empty(t, back.Lines)
	assert.Empty(t, back.ShippingMethodID)
	assertDec(t, "0", back.Total)
}

func TestDeactivatedSessionCartIsReplaced(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	c := f.open(t, sessionKey)

	require.NoError(t, f.svc.Deactivate(ctx, c))
	assert.ErrorIs(t, f.svc.Deactivate(ctx, c), domcart.ErrNotFound)

	fresh := f.open(t, sessionKey)
	assert.NotEqual(t, c.ID, fresh.ID)
	assert.True(t, fresh.IsActive())
}

func TestDeactivateRejectsStaleCopy(t *testing.T) {
	for _, key := range []domcart.Key{customerKey, sessionKey} {
		t.Run(string(key.Kind()), func(t *testing.T) {
			f := newFixture(t, nil)
			ctx := context.Background()
			f.open(t, key)
			stale, err := f.svc.AddItem(ctx, AddItemInput{Key: key, ProductID: "p1", Quantity: 1})
			require.NoError(t, err)
			_, err = f.svc.AddItem(ctx, AddItemInput{Key: key, ProductID: "p2", Quantity: 1})
			require.NoError(t, err)

			err = f.svc.Deactivate(ctx, stale)
			assert.ErrorIs(t, err, domcart.ErrModified)
			assert.ErrorIs(t, err, failure.ErrConflict)
			assert.True(t, stale.IsActive())

			current, err := f.svc.Load(ctx, key)
			require.NoError(t, err)
			assert.True(t, current.IsActive())
			assert.Len(t, current.Lines, 2)
		})
	}
}

func TestSessionCartExpires(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	c := f.open(t, sessionKey)

	f.clock.Advance(DefaultGuestTTL + time.Minute)
	_, err := f.svc.Load(ctx, sessionKey)
	assert.ErrorIs(t, err, domcart.ErrNotFound)

	fresh := f.open(t, sessionKey)
	assert.NotEqual(t, c.ID, fresh.ID)
}

func TestPurgeInactive(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	c := f.open(t, customerKey)
	require.NoError(t, f.svc.Deactivate(ctx, c))

	n, err := f.svc.PurgeInactive(ctx, 24*time.Hour)
	require.NoError(t, err)
	assert.Zero(t, n)

	f.clock.Advance(48 * time.Hour)
	n, err = f.svc.PurgeInactive(ctx, 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	fresh := f.open(t, customerKey)
	assert.NotEqual(t, c.ID, fresh.ID)
}
