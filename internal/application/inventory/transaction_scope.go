package inventory

import (
	"context"

	"github.com/catalogmirror/backend/internal/domain/catalog"
	"github.com/catalogmirror/backend/internal/domain/inventory"
)

// TransactionScope provides transactional access to the ledger and the mirror.
// All repository operations inside fn are committed or rolled back together.
type TransactionScope interface {
	// Execute runs fn within a database transaction.
	// If fn returns an error, the transaction is rolled back.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories exposes repositories bound to one transaction
type TransactionalRepositories interface {
	// MirrorRepo returns the mirror repository scoped to the current transaction
	MirrorRepo() catalog.MirrorRepository
	// AdjustmentRepo returns the ledger repository scoped to the current transaction
	AdjustmentRepo() inventory.StockAdjustmentRepository
}

// NoOpTransactionScope runs fn against plain repositories without a transaction.
// Useful for tests.
type NoOpTransactionScope struct {
	mirrorRepo     catalog.MirrorRepository
	adjustmentRepo inventory.StockAdjustmentRepository
}

// NewNoOpTransactionScope creates a NoOpTransactionScope with the given repositories.
func NewNoOpTransactionScope(mirrorRepo catalog.MirrorRepository, adjustmentRepo inventory.StockAdjustmentRepository) *NoOpTransactionScope {
	return &NoOpTransactionScope{
		mirrorRepo:     mirrorRepo,
		adjustmentRepo: adjustmentRepo,
	}
}

// Execute runs the function without a real transaction.
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

// MirrorRepo returns the mirror repository.
func (s *NoOpTransactionScope) MirrorRepo() catalog.MirrorRepository {
	return s.mirrorRepo
}

// AdjustmentRepo returns the ledger repository.
func (s *NoOpTransactionScope) AdjustmentRepo() inventory.StockAdjustmentRepository {
	return s.adjustmentRepo
}

var _ TransactionScope = (*NoOpTransactionScope)(nil)
var _ TransactionalRepositories = (*NoOpTransactionScope)(nil)
