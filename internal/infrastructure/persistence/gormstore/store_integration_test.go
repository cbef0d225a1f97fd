package gormstore

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/Zhima-Mochi/storefront/internal/domain/cart"
	"github.com/Zhima-Mochi/storefront/internal/domain/catalog"
	"github.com/Zhima-Mochi/storefront/internal/domain/inventory"
	"github.com/Zhima-Mochi/storefront/internal/domain/loyalty"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	if strings.TrimSpace(os.Getenv("INTEGRATION_TESTS")) == "" {
		t.Skip("set INTEGRATION_TESTS=1 and MYSQL_DSN to run integration tests")
	}
	dsn := os.Getenv("MYSQL_DSN")
	if dsn == "" {
		t.Skip("MYSQL_DSN is not set")
	}
	db, err := OpenDSN(dsn)
	require.NoError(t, err)
	require.NoError(t, Migrate(context.Background(), db))

	tenantID := uuid.NewString()
	require.NoError(t, db.Create(&tenantRecord{ID: tenantID, Slug: "it-" + tenantID[:8], DefaultCurrency: "USD"}).Error)
	return NewStore(db), tenantID
}

func TestIntegration_ResolveFallsBackToProductPrice(t *testing.T) {
	s, tenantID := openTestStore(t)
	ctx := context.Background()

	productID := uuid.NewString()
	require.NoError(t, s.DB().Create(&productRecord{
		ID: productID, TenantID: tenantID, Name: "Shirt", Price: decimal.RequireFromString("20.00"),
		Currency: "USD", TrackInventory: true, CurrentQuantity: 7,
	}).Error)
	variantID := uuid.NewString()
	require.NoError(t, s.DB().Create(&variantRecord{
		ID: variantID, TenantID: tenantID, ProductID: productID, Name: "L", CurrentQuantity: 3,
	}).Error)

	item, err := s.Resolve(ctx, tenantID, productID, variantID)
	require.NoError(t, err)
	assert.Equal(t, "Shirt - L", item.Name)
	assert.True(t, item.UnitPrice.Equal(decimal.RequireFromString("20.00")))
	assert.Equal(t, 3, item.CurrentQuantity)
	assert.True(t, item.TrackInventory)

	_, err = s.Resolve(ctx, uuid.NewString(), productID, "")
	assert.ErrorIs(t, err, catalog.ErrNotFound)
}

func TestIntegration_StockMovementUnderLock(t *testing.T) {
	s, tenantID := openTestStore(t)
	ctx := context.Background()

	productID := uuid.NewString()
	require.NoError(t, s.DB().Create(&productRecord{
		ID: productID, TenantID: tenantID, Name: "Mug", Price: decimal.RequireFromString("9.50"),
		Currency: "USD", TrackInventory: true, CurrentQuantity: 5,
	}).Error)
	ref := inventory.StockRef{ProductID: productID}
	repo := s.Inventory()

	err := s.WithinTx(ctx, func(ctx context.Context) error {
		stock, err := repo.LockStock(ctx, tenantID, ref)
		if err != nil {
			return err
		}
		m, err := inventory.NewMovement(uuid.NewString(), stock, inventory.MovementOut, 3, "order", "system", time.Now())
		if err != nil {
			return err
		}
		if err := repo.UpdateQuantity(ctx, tenantID, ref, stock.Quantity); err != nil {
			return err
		}
		return repo.AppendMovement(ctx, m)
	})
	require.NoError(t, err)

	stock, err := repo.LockStock(ctx, tenantID, ref)
	require.NoError(t, err)
	assert.Equal(t, 2, stock.Quantity)

	history, err := repo.Movements(ctx, tenantID, ref, 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, 5, history[0].PreviousQuantity)
	assert.Equal(t, 2, history[0].NewQuantity)
}

func TestIntegration_OneActiveCartPerCustomer(t *testing.T) {
	s, tenantID := openTestStore(t)
	ctx := context.Background()
	carts := s.Carts()
	key := cart.CustomerKey(tenantID, uuid.NewString())
	now := time.Now().UTC()

	first, err := cart.New(uuid.NewString(), key, "USD", now)
	require.NoError(t, err)
	_, err = first.AddLine(uuid.NewString(), "p1", "", 2, decimal.RequireFromString("10.00"), now)
	require.NoError(t, err)
	require.NoError(t, carts.Save(ctx, first))

	got, err := carts.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)
	require.Len(t, got.Lines, 1)
	assert.Equal(t, 2, got.Lines[0].Quantity)

	second, err := cart.New(uuid.NewString(), key, "USD", now)
	require.NoError(t, err)
	assert.ErrorIs(t, carts.Save(ctx, second), cart.ErrAlreadyActive)

	require.NoError(t, first.Deactivate(now))
	require.NoError(t, carts.Save(ctx, first))
	require.NoError(t, carts.Save(ctx, second))

	inactive, err := carts.LatestInactive(ctx, tenantID, key.CustomerID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, inactive.ID)
}

func TestIntegration_LockAccountCreatesMissingAccount(t *testing.T) {
	s, tenantID := openTestStore(t)
	ctx := context.Background()
	repo := s.Loyalty(uuid.NewString)
	customerID := uuid.NewString()

	_, err := repo.GetAccount(ctx, tenantID, customerID)
	assert.ErrorIs(t, err, loyalty.ErrAccountNotFound)

	err = s.WithinTx(ctx, func(ctx context.Context) error {
		acc, err := repo.LockAccount(ctx, tenantID, customerID)
		if err != nil {
			return err
		}
		acc.TotalPoints, acc.AvailablePoints = 150, 150
		return repo.SaveAccount(ctx, acc)
	})
	require.NoError(t, err)

	acc, err := repo.GetAccount(ctx, tenantID, customerID)
	require.NoError(t, err)
	assert.Equal(t, int64(150), acc.AvailablePoints)
}
