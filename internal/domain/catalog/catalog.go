// Package catalog describes what the checkout core needs to know about a
// sellable product or variant. Catalog management lives elsewhere.
package catalog

import (
	"context"
	"fmt"

	"github.com/Zhima-Mochi/storefront/internal/domain/failure"
	"github.com/shopspring/decimal"
)

var ErrNotFound = fmt.Errorf("catalog: product %w", failure.ErrNotFound)

type Item struct {
	TenantID  string
	ProductID string
	VariantID string

	Name      string
	SKU       string
	UnitPrice decimal.Decimal
	Currency  string
	ImageURL  string

	TrackInventory       bool
	CurrentQuantity      int
	AllowBackorder       bool
	VirtualStockQuantity int
}

// Available reports how many units can be sold right now. Untracked items
// report bounded=false. A backorderable item may be oversold by its
// VirtualStockQuantity; with no virtual stock set it is unbounded.
func (i Item) Available() (qty int, bounded bool) {
	if !i.TrackInventory {
		return 0, false
	}
	if i.AllowBackorder {
		if i.VirtualStockQuantity <= 0 {
			return 0, false
		}
		return i.CurrentQuantity + i.VirtualStockQuantity, true
	}
	return i.CurrentQuantity, true
}

// Catalog resolves a product, or one of its variants when variantID is set.
// Products of other tenants must resolve as ErrNotFound.
type Catalog interface {
	Resolve(ctx context.Context, tenantID, productID, variantID string) (*Item, error)
}
