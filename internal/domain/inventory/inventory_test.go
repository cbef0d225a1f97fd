package inventory

import (
	"testing"
	"time"

	"github.com/Zhima-Mochi/storefront/internal/domain/failure"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApply(t *testing.T) {
	s := Stock{Ref: StockRef{ProductID: "p"}, Quantity: 5, TrackInventory: true}

	cases := []struct {
		name    string
		typ     MovementType
		qty     int
		want    int
		wantErr error
	}{
		{"in adds", MovementIn, 3, 8, nil},
		{"out subtracts", MovementOut, 5, 0, nil},
		{"out beyond stock", MovementOut, 6, 0, failure.ErrInsufficientStock},
		{"adjust sets", MovementAdjustment, 42, 42, nil},
		{"adjust to zero", MovementAdjustment, 0, 0, nil},
		{"adjust negative", MovementAdjustment, -1, 0, failure.ErrInvalidArgument},
		{"in zero", MovementIn, 0, 0, failure.ErrInvalidArgument},
		{"unknown", MovementType("MOVE"), 1, 0, failure.ErrInvalidArgument},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := s.Apply(tc.typ, tc.qty)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestApplyBackorderAllowsNegative(t *testing.T) {
	s := Stock{Quantity: 1, TrackInventory: true, AllowBackorder: true}
	got, err := s.Apply(MovementOut, 3)
	require.NoError(t, err)
	assert.Equal(t, -2, got)
}

func TestApplyBackorderStopsAtVirtualStock(t *testing.T) {
	s := Stock{Ref: StockRef{ProductID: "p"}, Quantity: 1, TrackInventory: true, AllowBackorder: true, VirtualQuantity: 2}

	got, err := s.Apply(MovementOut, 3)
	require.NoError(t, err)
	assert.Equal(t, -2, got)

	_, err = s.Apply(MovementOut, 4)
	assert.ErrorIs(t, err, failure.ErrInsufficientStock)
}

func TestNewMovementUpdatesStock(t *testing.T) {
	s := &Stock{TenantID: "t", Ref: StockRef{ProductID: "p", VariantID: "v"}, Quantity: 10}
	m, err := NewMovement("m-1", s, MovementOut, 4, "order", "system", time.Now())
	require.NoError(t, err)

	assert.Equal(t, 10, m.PreviousQuantity)
	assert.Equal(t, 6, m.NewQuantity)
	assert.Equal(t, 6, s.Quantity)
	assert.Equal(t, "v", m.VariantID)
	assert.True(t, m.Consistent())
}
