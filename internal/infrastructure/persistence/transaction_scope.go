package persistence

import (
	"context"

	appinv "github.com/catalogmirror/backend/internal/application/inventory"
	"github.com/catalogmirror/backend/internal/domain/catalog"
	"github.com/catalogmirror/backend/internal/domain/inventory"
	"gorm.io/gorm"
)

// GormTransactionScope implements TransactionScope using GORM transactions.
// The ledger entry and the stock write it causes commit or roll back together.
type GormTransactionScope struct {
	db *gorm.DB
}

// NewGormTransactionScope creates a new GormTransactionScope.
func NewGormTransactionScope(db *gorm.DB) *GormTransactionScope {
	return &GormTransactionScope{db: db}
}

// Execute runs the given function within a database transaction.
// If the function returns an error, the transaction is rolled back.
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos appinv.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTransactionalRepositories{tx: tx})
	})
}

// gormTransactionalRepositories provides access to all repositories within a transaction.
type gormTransactionalRepositories struct {
	tx *gorm.DB
}

// MirrorRepo returns the mirror repository scoped to the current transaction.
func (r *gormTransactionalRepositories) MirrorRepo() catalog.MirrorRepository {
	return NewGormMirrorRepository(r.tx)
}

// AdjustmentRepo returns the ledger repository scoped to the current transaction.
func (r *gormTransactionalRepositories) AdjustmentRepo() inventory.StockAdjustmentRepository {
	return NewGormStockAdjustmentRepository(r.tx)
}

var _ appinv.TransactionScope = (*GormTransactionScope)(nil)

var _ appinv.TransactionalRepositories = (*gormTransactionalRepositories)(nil)
