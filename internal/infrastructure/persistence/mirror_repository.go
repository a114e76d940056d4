package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/catalogmirror/backend/internal/domain/catalog"
	"github.com/catalogmirror/backend/internal/domain/shared"
	"github.com/catalogmirror/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormMirrorRepository implements catalog.MirrorRepository using GORM
type GormMirrorRepository struct {
	db *gorm.DB
}

// NewGormMirrorRepository creates a new GormMirrorRepository
func NewGormMirrorRepository(db *gorm.DB) *GormMirrorRepository {
	return &GormMirrorRepository{db: db}
}

// FindProduct finds a mirrored product by its external id
func (r *GormMirrorRepository) FindProduct(ctx context.Context, organizationID uuid.UUID, productID int64) (*catalog.MirroredProduct, error) {
	var model models.MirroredProductModel
	if err := r.db.WithContext(ctx).
		Where("organization_id = ? AND id = ?", organizationID, productID).
		Take(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound(catalog.ProductTarget(productID))
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindVariation finds a mirrored variation of a parent product
func (r *GormMirrorRepository) FindVariation(ctx context.Context, organizationID uuid.UUID, parentID, variationID int64) (*catalog.MirroredVariation, error) {
	var model models.MirroredVariationModel
	if err := r.db.WithContext(ctx).
		Where("organization_id = ? AND parent_id = ? AND id = ?", organizationID, parentID, variationID).
		Take(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound(catalog.VariationTarget(parentID, variationID))
		}
		return nil, err
	}
	return model.ToDomain()
}

// ListVariations lists the variations of a product ordered by id
func (r *GormMirrorRepository) ListVariations(ctx context.Context, organizationID uuid.UUID, parentID int64) ([]catalog.MirroredVariation, error) {
	var rows []models.MirroredVariationModel
	if err := r.db.WithContext(ctx).
		Where("organization_id = ? AND parent_id = ?", organizationID, parentID).
		Order("id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]catalog.MirroredVariation, len(rows))
	for i := range rows {
		v, err := rows[i].ToDomain()
		if err != nil {
			return nil, err
		}
		out[i] = *v
	}
	return out, nil
}

// ListVariableProductIDs lists the ids of variable products
func (r *GormMirrorRepository) ListVariableProductIDs(ctx context.Context, organizationID uuid.UUID) ([]int64, error) {
	var ids []int64
	if err := r.db.WithContext(ctx).
		Model(&models.MirroredProductModel{}).
		Where("organization_id = ? AND type = ?", organizationID, catalog.ProductTypeVariable).
		Order("id ASC").
		Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// ExistingProductIDs reports which ids are mirrored for the organization
func (r *GormMirrorRepository) ExistingProductIDs(ctx context.Context, organizationID uuid.UUID, ids []int64) (map[int64]bool, error) {
	found := make(map[int64]bool, len(ids))
	if len(ids) == 0 {
		return found, nil
	}
	var existing []int64
	if err := r.db.WithContext(ctx).
		Model(&models.MirroredProductModel{}).
		Where("organization_id = ? AND id IN ?", organizationID, ids).
		Pluck("id", &existing).Error; err != nil {
		return nil, err
	}
	for _, id := range existing {
		found[id] = true
	}
	return found, nil
}

// InsertProduct stores a new product
func (r *GormMirrorRepository) InsertProduct(ctx context.Context, product *catalog.MirroredProduct) error {
	return r.db.WithContext(ctx).Create(models.MirroredProductModelFromDomain(product)).Error
}

// UpdateProduct overwrites a product under an optimistic lock on version
func (r *GormMirrorRepository) UpdateProduct(ctx context.Context, product *catalog.MirroredProduct) error {
	result := r.db.WithContext(ctx).
		Model(&models.MirroredProductModel{}).
		Where("organization_id = ? AND id = ? AND version = ?", product.OrganizationID, product.ID, product.Version).
		Updates(map[string]interface{}{
			"sku":                     product.SKU,
			"name":                    product.Name,
			"type":                    product.Type,
			"status":                  product.Status,
			"price":                   product.Price,
			"regular_price":           product.RegularPrice,
			"sale_price":              product.SalePrice,
			"on_sale":                 product.OnSale,
			"manage_stock":            product.ManageStock,
			"stock_quantity":          product.StockQuantity,
			"stock_status":            product.StockStatus,
			"external_stock_quantity": product.ExternalStockQuantity,
			"reconciliation_conflict": product.ReconciliationConflict,
			"external_updated_at":     product.UpdatedAt.UTC(),
			"synced_at":               product.SyncedAt.UTC(),
			"version":                 gorm.Expr("version + 1"),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.NewDomainError(shared.CodeStaleBaseline, catalog.ProductTarget(product.ID).String()+" was modified concurrently")
	}
	product.Version++
	return nil
}

// InsertVariation stores a new variation
func (r *GormMirrorRepository) InsertVariation(ctx context.Context, variation *catalog.MirroredVariation) error {
	return r.db.WithContext(ctx).Create(models.MirroredVariationModelFromDomain(variation)).Error
}

// UpdateVariation overwrites a variation under an optimistic lock on version
func (r *GormMirrorRepository) UpdateVariation(ctx context.Context, variation *catalog.MirroredVariation) error {
	model := models.MirroredVariationModelFromDomain(variation)
	result := r.db.WithContext(ctx).
		Model(&models.MirroredVariationModel{}).
		Where("organization_id = ? AND parent_id = ? AND id = ? AND version = ?",
			variation.OrganizationID, variation.ParentID, variation.ID, variation.Version).
		Updates(map[string]interface{}{
			"sku":                     model.SKU,
			"price":                   model.Price,
			"regular_price":           model.RegularPrice,
			"sale_price":              model.SalePrice,
			"stock_quantity":          model.StockQuantity,
			"stock_status":            model.StockStatus,
			"attributes":              model.AttributesJSON,
			"external_stock_quantity": model.ExternalStockQuantity,
			"reconciliation_conflict": model.ReconciliationConflict,
			"external_updated_at":     model.ExternalUpdatedAt,
			"synced_at":               model.SyncedAt,
			"version":                 gorm.Expr("version + 1"),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		target := catalog.VariationTarget(variation.ParentID, variation.ID)
		return shared.NewDomainError(shared.CodeStaleBaseline, target.String()+" was modified concurrently")
	}
	variation.Version++
	return nil
}

// TouchSynced refreshes synced_at without bumping the version
func (r *GormMirrorRepository) TouchSynced(ctx context.Context, organizationID uuid.UUID, target catalog.StockTarget) error {
	result := r.scoped(ctx, organizationID, target).
		Update("synced_at", r.now())
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return notFound(target)
	}
	return nil
}

// FindStock reads the stock columns of a product or variation
func (r *GormMirrorRepository) FindStock(ctx context.Context, organizationID uuid.UUID, target catalog.StockTarget) (*catalog.StockLevel, error) {
	var row models.StockRow
	if err := r.scoped(ctx, organizationID, target).
		Select("stock_quantity", "stock_status", "reconciliation_conflict",
			"external_stock_quantity", "external_updated_at", "synced_at", "version").
		Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound(target)
		}
		return nil, err
	}
	return row.ToDomain(target), nil
}

// CompareAndSetStock writes stock if the stored version still equals expectedVersion
func (r *GormMirrorRepository) CompareAndSetStock(ctx context.Context, organizationID uuid.UUID, target catalog.StockTarget, expectedVersion int, quantity int64, status catalog.StockStatus) error {
	return r.swapStock(ctx, organizationID, target, expectedVersion, map[string]interface{}{
		"stock_quantity": quantity,
		"stock_status":   status,
	})
}

// SetStock writes a reconciled stock and its conflict marker if the stored
// version still equals expectedVersion
func (r *GormMirrorRepository) SetStock(ctx context.Context, organizationID uuid.UUID, target catalog.StockTarget, expectedVersion int, quantity int64, status catalog.StockStatus, conflict bool) error {
	return r.swapStock(ctx, organizationID, target, expectedVersion, map[string]interface{}{
		"stock_quantity":          quantity,
		"stock_status":            status,
		"reconciliation_conflict": conflict,
	})
}

func (r *GormMirrorRepository) swapStock(ctx context.Context, organizationID uuid.UUID, target catalog.StockTarget, expectedVersion int, columns map[string]interface{}) error {
	columns["version"] = gorm.Expr("version + 1")
	result := r.scoped(ctx, organizationID, target).
		Where("version = ?", expectedVersion).
		Updates(columns)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		return nil
	}

	var count int64
	if err := r.scoped(ctx, organizationID, target).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return notFound(target)
	}
	return shared.NewDomainError(shared.CodeStaleBaseline, "stock of "+target.String()+" changed concurrently")
}

// scoped selects the product or variation row of target
func (r *GormMirrorRepository) scoped(ctx context.Context, organizationID uuid.UUID, target catalog.StockTarget) *gorm.DB {
	if target.IsVariation() {
		return r.db.WithContext(ctx).
			Model(&models.MirroredVariationModel{}).
			Where("organization_id = ? AND parent_id = ? AND id = ?", organizationID, target.ProductID, *target.VariationID)
	}
	return r.db.WithContext(ctx).
		Model(&models.MirroredProductModel{}).
		Where("organization_id = ? AND id = ?", organizationID, target.ProductID)
}

func (r *GormMirrorRepository) now() time.Time {
	return r.db.NowFunc().UTC()
}

func notFound(target catalog.StockTarget) error {
	return shared.NewDomainError(shared.CodeNotFound, target.String()+" is not mirrored")
}

var _ catalog.MirrorRepository = (*GormMirrorRepository)(nil)
