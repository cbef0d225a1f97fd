package order

import "context"

type Repository interface {
	// Insert stores the order header and its lines. A taken order number yields ErrConflict.
	Insert(ctx context.Context, order *Order) error
	Get(ctx context.Context, tenantID, id string) (*Order, error)
	// GetForUpdate is Get holding the order row until the surrounding unit of work ends.
	GetForUpdate(ctx context.Context, tenantID, id string) (*Order, error)
	// Update stores the mutable header fields; lines are never rewritten.
	Update(ctx context.Context, order *Order) error
}
