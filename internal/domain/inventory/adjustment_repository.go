package inventory

import (
	"context"
	"time"

	"github.com/catalogmirror/backend/internal/domain/catalog"
	"github.com/catalogmirror/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// AdjustmentFilter narrows a ledger listing
type AdjustmentFilter struct {
	ProductID   *int64
	VariationID *int64
	From        *time.Time
	To          *time.Time
	shared.Pagination
}

// StockAdjustmentRepository is the append-only ledger store. It offers no update or delete.
type StockAdjustmentRepository interface {
	Append(ctx context.Context, adjustment *StockAdjustment) error
	// List returns entries most recent first
	List(ctx context.Context, organizationID uuid.UUID, filter AdjustmentFilter) ([]StockAdjustment, int64, error)
	// ListSince returns the entries of one target created after the given time, oldest first
	ListSince(ctx context.Context, organizationID uuid.UUID, target catalog.StockTarget, after time.Time) ([]StockAdjustment, error)
}
