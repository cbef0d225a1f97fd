package memory

import (
	"context"

	domain "github.com/Zhima-Mochi/storefront/internal/domain/loyalty"
)

type LoyaltyRepository struct {
	s   *Store
	ids func() string
}

// Loyalty returns the loyalty repository; ids names accounts it creates.
func (s *Store) Loyalty(ids func() string) *LoyaltyRepository {
	return &LoyaltyRepository{s: s, ids: ids}
}

func (r *LoyaltyRepository) ActiveProgram(ctx context.Context, tenantID string) (*domain.Program, error) {
	var out *domain.Program
	err := r.s.do(ctx, func(st *state) error {
		p, ok := st.programs[tenantID]
		if !ok || !p.Active {
			return domain.ErrNoProgram
		}
		out = &p
		return nil
	})
	return out, err
}

func (r *LoyaltyRepository) LockAccount(ctx context.Context, tenantID, customerID string) (*domain.Account, error) {
	var out *domain.Account
	err := r.s.do(ctx, func(st *state) error {
		key := scoped(tenantID, customerID)
		a, ok := st.accounts[key]
		if !ok {
			a = &domain.Account{ID: r.ids(), TenantID: tenantID, CustomerID: customerID, UpdatedAt: r.s.now().UTC()}
			st.accounts[key] = a
		}
		clone := *a
		out = &clone
		return nil
	})
	return out, err
}

func (r *LoyaltyRepository) GetAccount(ctx context.Context, tenantID, customerID string) (*domain.Account, error) {
	var out *domain.Account
	err := r.s.do(ctx, func(st *state) error {
		a, ok := st.accounts[scoped(tenantID, customerID)]
		if !ok {
			return domain.ErrAccountNotFound
		}
		clone := *a
		out = &clone
		return nil
	})
	return out, err
}

func (r *LoyaltyRepository) SaveAccount(ctx context.Context, account *domain.Account) error {
	return r.s.do(ctx, func(st *state) error {
		a := *account
		st.accounts[scoped(account.TenantID, account.CustomerID)] = &a
		return nil
	})
}

func (r *LoyaltyRepository) AppendTransaction(ctx context.Context, tx *domain.Transaction) error {
	return r.s.do(ctx, func(st *state) error {
		st.loyaltyTxs = append(st.loyaltyTxs, *tx)
		return nil
	})
}

func (r *LoyaltyRepository) OrderTransactions(ctx context.Context, tenantID, orderID string) ([]domain.Transaction, error) {
	return r.filter(ctx, func(t domain.Transaction) bool {
		return t.TenantID == tenantID && t.OrderID == orderID
	})
}

func (r *LoyaltyRepository) CustomerTransactions(ctx context.Context, tenantID, customerID string) ([]domain.Transaction, error) {
	return r.filter(ctx, func(t domain.Transaction) bool {
		return t.TenantID == tenantID && t.CustomerID == customerID
	})
}

func (r *LoyaltyRepository) filter(ctx context.Context, keep func(domain.Transaction) bool) ([]domain.Transaction, error) {
	var out []domain.Transaction
	err := r.s.do(ctx, func(st *state) error {
		for _, t := range st.loyaltyTxs {
			if keep(t) {
				out = append(out, t)
			}
		}
		return nil
	})
	return out, err
}
