package cart

import (
	"context"
	"errors"

	"github.com/Zhima-Mochi/storefront/internal/domain/tenant"

	"github.com/shopspring/decimal"
)

// TenantTaxRates returns the tenant's own rate when configured and the
// default otherwise. Unknown tenants get the default.
type TenantTaxRates struct {
	Directory tenant.Directory
	Default   decimal.Decimal
}

func (r TenantTaxRates) TaxRate(ctx context.Context, tenantID string) (decimal.Decimal, error) {
	if r.Directory == nil {
		return r.Default, nil
	}
	t, err := r.Directory.Lookup(ctx, tenantID)
	if errors.Is(err, tenant.ErrNotFound) {
		return r.Default, nil
	}
	if err != nil {
		return decimal.Zero, err
	}
	if t.TaxRate != nil {
		return *t.TaxRate, nil
	}
	return r.Default, nil
}

// FlatTaxRate applies one rate to every tenant.
type FlatTaxRate decimal.Decimal

func (r FlatTaxRate) TaxRate(context.Context, string) (decimal.Decimal, error) {
	return decimal.Decimal(r), nil
}
