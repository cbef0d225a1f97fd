package tenant

import (
	"context"
	"fmt"
	"strings"

	"github.com/Zhima-Mochi/storefront/internal/domain/failure"
	"github.com/shopspring/decimal"
)

var ErrNotFound = fmt.Errorf("tenant: %w", failure.ErrNotFound)

// Tenant is the merchant account every other entity is scoped to.
type Tenant struct {
	ID              string
	Slug            string
	DefaultCurrency string
	// TaxRate overrides the service-wide default when set.
	TaxRate *decimal.Decimal
}

// OrderPrefix is the slug as it appears in order numbers.
func (t Tenant) OrderPrefix() string {
	slug := strings.ToUpper(strings.TrimSpace(t.Slug))
	slug = strings.ReplaceAll(slug, " ", "-")
	if slug == "" {
		return "STORE"
	}
	return slug
}

type Directory interface {
	Lookup(ctx context.Context, tenantID string) (*Tenant, error)
}
