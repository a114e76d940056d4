package persistence

import (
	"context"
	"time"

	"github.com/catalogmirror/backend/internal/domain/catalog"
	"github.com/catalogmirror/backend/internal/domain/inventory"
	"github.com/catalogmirror/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormStockAdjustmentRepository implements inventory.StockAdjustmentRepository using GORM.
// It only inserts and reads.
type GormStockAdjustmentRepository struct {
	db *gorm.DB
}

// NewGormStockAdjustmentRepository creates a new GormStockAdjustmentRepository
func NewGormStockAdjustmentRepository(db *gorm.DB) *GormStockAdjustmentRepository {
	return &GormStockAdjustmentRepository{db: db}
}

// Append inserts a ledger entry
func (r *GormStockAdjustmentRepository) Append(ctx context.Context, adjustment *inventory.StockAdjustment) error {
	if err := adjustment.CheckInvariant(); err != nil {
		return err
	}
	return r.db.WithContext(ctx).Create(models.StockAdjustmentModelFromDomain(adjustment)).Error
}

// List returns entries matching filter, most recent first, with the total match count
func (r *GormStockAdjustmentRepository) List(ctx context.Context, organizationID uuid.UUID, filter inventory.AdjustmentFilter) ([]inventory.StockAdjustment, int64, error) {
	query := r.db.WithContext(ctx).
		Model(&models.StockAdjustmentModel{}).
		Where("organization_id = ?", organizationID)
	if filter.ProductID != nil {
		query = query.Where("product_id = ?", *filter.ProductID)
	}
	if filter.VariationID != nil {
		query = query.Where("variation_id = ?", *filter.VariationID)
	}
	if filter.From != nil {
		query = query.Where("created_at >= ?", filter.From.UTC())
	}
	if filter.To != nil {
		query = query.Where("created_at <= ?", filter.To.UTC())
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page := filter.Pagination.Normalize()
	var rows []models.StockAdjustmentModel
	if err := query.
		Order("created_at DESC").
		Offset(page.Offset()).
		Limit(page.PageSize).
		Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return toAdjustments(rows), total, nil
}

// ListSince returns the target's entries created after the given time, oldest first
func (r *GormStockAdjustmentRepository) ListSince(ctx context.Context, organizationID uuid.UUID, target catalog.StockTarget, after time.Time) ([]inventory.StockAdjustment, error) {
	query := r.db.WithContext(ctx).
		Where("organization_id = ? AND product_id = ?", organizationID, target.ProductID)
	if target.IsVariation() {
		query = query.Where("variation_id = ?", *target.VariationID)
	} else {
		query = query.Where("variation_id IS NULL")
	}

	var rows []models.StockAdjustmentModel
	if err := query.
		Where("created_at > ?", after.UTC()).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return toAdjustments(rows), nil
}

func toAdjustments(rows []models.StockAdjustmentModel) []inventory.StockAdjustment {
	out := make([]inventory.StockAdjustment, len(rows))
	for i := range rows {
		out[i] = *rows[i].ToDomain()
	}
	return out
}

var _ inventory.StockAdjustmentRepository = (*GormStockAdjustmentRepository)(nil)
