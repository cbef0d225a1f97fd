package inventory

import "context"

type Repository interface {
	// LockStock loads the stock row for ref and holds it until the surrounding
	// unit of work ends, so concurrent movements on one row are serialised.
	LockStock(ctx context.Context, tenantID string, ref StockRef) (*Stock, error)
	// UpdateQuantity writes the denormalised current quantity.
	UpdateQuantity(ctx context.Context, tenantID string, ref StockRef, quantity int) error
	AppendMovement(ctx context.Context, m *Movement) error
	// Movements lists the ledger for ref, newest first.
	Movements(ctx context.Context, tenantID string, ref StockRef, limit int) ([]Movement, error)
}
