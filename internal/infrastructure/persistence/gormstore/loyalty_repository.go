package gormstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/Zhima-Mochi/storefront/internal/domain/loyalty"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type LoyaltyRepository struct {
	s   *Store
	ids func() string
}

// Loyalty returns the loyalty repository; ids names accounts it creates.
func (s *Store) Loyalty(ids func() string) *LoyaltyRepository {
	return &LoyaltyRepository{s: s, ids: ids}
}

func (r *LoyaltyRepository) ActiveProgram(ctx context.Context, tenantID string) (*loyalty.Program, error) {
	var rec loyaltyProgramRecord
	err := r.s.conn(ctx).Where("tenant_id = ? AND active = ?", tenantID, true).Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, loyalty.ErrNoProgram
	}
	if err != nil {
		return nil, fmt.Errorf("gormstore: load loyalty program: %w", err)
	}
	return &loyalty.Program{
		TenantID:              rec.TenantID,
		Active:                rec.Active,
		PointsPerCurrencyUnit: rec.PointsPerCurrencyUnit,
		CurrencyPerPoint:      rec.CurrencyPerPoint,
		MinimumRedeem:         rec.MinimumRedeem,
		MaximumPerOrder:       rec.MaximumPerOrder,
	}, nil
}

// LockAccount creates the account row when missing and then locks it.
func (r *LoyaltyRepository) LockAccount(ctx context.Context, tenantID, customerID string) (*loyalty.Account, error) {
	fresh := loyaltyAccountRecord{ID: r.ids(), TenantID: tenantID, CustomerID: customerID}
	if err := r.s.conn(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&fresh).Error; err != nil {
		return nil, fmt.Errorf("gormstore: create loyalty account: %w", err)
	}
	var rec loyaltyAccountRecord
	err := r.s.forUpdate(ctx).Where("tenant_id = ? AND customer_id = ?", tenantID, customerID).Take(&rec).Error
	if err != nil {
		return nil, fmt.Errorf("gormstore: lock loyalty account: %w", err)
	}
	return rec.toDomain(), nil
}

func (r *LoyaltyRepository) GetAccount(ctx context.Context, tenantID, customerID string) (*loyalty.Account, error) {
	var rec loyaltyAccountRecord
	err := r.s.conn(ctx).Where("tenant_id = ? AND customer_id = ?", tenantID, customerID).Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, loyalty.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("gormstore: load loyalty account: %w", err)
	}
	return rec.toDomain(), nil
}

func (r *LoyaltyRepository) SaveAccount(ctx context.Context, a *loyalty.Account) error {
	rec := loyaltyAccountRecord{
		ID:              a.ID,
		TenantID:        a.TenantID,
		CustomerID:      a.CustomerID,
		TotalPoints:     a.TotalPoints,
		AvailablePoints: a.AvailablePoints,
		UsedPoints:      a.UsedPoints,
		ExpiredPoints:   a.ExpiredPoints,
		UpdatedAt:       a.UpdatedAt,
	}
	if err := r.s.conn(ctx).Save(&rec).Error; err != nil {
		return fmt.Errorf("gormstore: save loyalty account: %w", err)
	}
	return nil
}

func (r *LoyaltyRepository) AppendTransaction(ctx context.Context, t *loyalty.Transaction) error {
	rec := loyaltyTransactionRecord{
		ID:         t.ID,
		TenantID:   t.TenantID,
		CustomerID: t.CustomerID,
		Type:       string(t.Type),
		Points:     t.Points,
		OrderID:    t.OrderID,
		RefundOf:   t.RefundOf,
		Reason:     t.Reason,
		CreatedAt:  t.CreatedAt,
	}
	if err := r.s.conn(ctx).Create(&rec).Error; err != nil {
		return fmt.Errorf("gormstore: append loyalty transaction: %w", err)
	}
	return nil
}

func (r *LoyaltyRepository) OrderTransactions(ctx context.Context, tenantID, orderID string) ([]loyalty.Transaction, error) {
	return r.list(ctx, "tenant_id = ? AND order_id = ?", tenantID, orderID)
}

func (r *LoyaltyRepository) CustomerTransactions(ctx context.Context, tenantID, customerID string) ([]loyalty.Transaction, error) {
	return r.list(ctx, "tenant_id = ? AND customer_id = ?", tenantID, customerID)
}

func (r *LoyaltyRepository) list(ctx context.Context, where string, args ...any) ([]loyalty.Transaction, error) {
	var recs []loyaltyTransactionRecord
	if err := r.s.conn(ctx).Where(where, args...).Order("created_at, id").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("gormstore: list loyalty transactions: %w", err)
	}
	out := make([]loyalty.Transaction, len(recs))
	for i, rec := range recs {
		out[i] = loyalty.Transaction{
			ID:         rec.ID,
			TenantID:   rec.TenantID,
			CustomerID: rec.CustomerID,
			Type:       loyalty.TransactionType(rec.Type),
			Points:     rec.Points,
			OrderID:    rec.OrderID,
			RefundOf:   rec.RefundOf,
			Reason:     rec.Reason,
			CreatedAt:  rec.CreatedAt,
		}
	}
	return out, nil
}

func (rec loyaltyAccountRecord) toDomain() *loyalty.Account {
	return &loyalty.Account{
		ID:              rec.ID,
		TenantID:        rec.TenantID,
		CustomerID:      rec.CustomerID,
		TotalPoints:     rec.TotalPoints,
		AvailablePoints: rec.AvailablePoints,
		UsedPoints:      rec.UsedPoints,
		ExpiredPoints:   rec.ExpiredPoints,
		UpdatedAt:       rec.UpdatedAt,
	}
}
