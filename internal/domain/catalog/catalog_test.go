package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAvailable(t *testing.T) {
	cases := []struct {
		name        string
		item        Item
		want        int
		wantBounded bool
	}{
		{"untracked", Item{CurrentQuantity: 3}, 0, false},
		{"tracked", Item{TrackInventory: true, CurrentQuantity: 3}, 3, true},
		{"backorder without virtual stock", Item{TrackInventory: true, AllowBackorder: true, CurrentQuantity: 3}, 0, false},
		{"backorder with virtual stock", Item{TrackInventory: true, AllowBackorder: true, CurrentQuantity: 3, VirtualStockQuantity: 2}, 5, true},
		{"virtual stock ignored without backorder", Item{TrackInventory: true, CurrentQuantity: 3, VirtualStockQuantity: 2}, 3, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, bounded := tc.item.Available()
			assert.Equal(t, tc.wantBounded, bounded)
			assert.Equal(t, tc.want, got)
		})
	}
}
