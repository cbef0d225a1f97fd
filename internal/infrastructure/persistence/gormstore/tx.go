package gormstore

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type txKey struct{}

// Store bundles the repositories over one database handle.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store { return &Store{db: db} }

func (s *Store) DB() *gorm.DB { return s.db }

// WithinTx runs fn in a database transaction carried by ctx. Repositories
// called with that ctx use the transaction; nested calls join it.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return fn(ctx)
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
}

// conn returns the open transaction or a plain session.
func (s *Store) conn(ctx context.Context) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return tx.WithContext(ctx)
	}
	return s.db.WithContext(ctx)
}

// forUpdate adds SELECT ... FOR UPDATE when a transaction is open; outside
// one the lock would be released immediately.
func (s *Store) forUpdate(ctx context.Context) *gorm.DB {
	q := s.conn(ctx)
	if _, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return q
}
