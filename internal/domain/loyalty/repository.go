package loyalty

import "context"

type Repository interface {
	// ActiveProgram returns ErrNoProgram when the tenant has no active program.
	ActiveProgram(ctx context.Context, tenantID string) (*Program, error)
	// LockAccount loads the customer's account, creating an empty one when
	// missing, and holds it until the surrounding unit of work ends.
	LockAccount(ctx context.Context, tenantID, customerID string) (*Account, error)
	GetAccount(ctx context.Context, tenantID, customerID string) (*Account, error)
	SaveAccount(ctx context.Context, account *Account) error
	AppendTransaction(ctx context.Context, tx *Transaction) error
	// OrderTransactions lists entries referencing orderID, oldest first.
	OrderTransactions(ctx context.Context, tenantID, orderID string) ([]Transaction, error)
	// CustomerTransactions lists a customer's entries, oldest first.
	CustomerTransactions(ctx context.Context, tenantID, customerID string) ([]Transaction, error)
}
