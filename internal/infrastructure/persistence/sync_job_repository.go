package persistence

import (
	"context"
	"errors"

	"github.com/catalogmirror/backend/internal/domain/integration"
	"github.com/catalogmirror/backend/internal/domain/shared"
	"github.com/catalogmirror/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormSyncJobArchive implements integration.SyncJobArchive using GORM
type GormSyncJobArchive struct {
	db *gorm.DB
}

// NewGormSyncJobArchive creates a new GormSyncJobArchive
func NewGormSyncJobArchive(db *gorm.DB) *GormSyncJobArchive {
	return &GormSyncJobArchive{db: db}
}

// Save inserts or replaces an archived job
func (r *GormSyncJobArchive) Save(ctx context.Context, job *integration.SyncJob) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).
		Create(models.SyncJobModelFromDomain(job)).Error
}

// FindByID finds an archived job of the organization
func (r *GormSyncJobArchive) FindByID(ctx context.Context, organizationID, jobID uuid.UUID) (*integration.SyncJob, error) {
	var model models.SyncJobModel
	if err := r.db.WithContext(ctx).
		Where("organization_id = ? AND id = ?", organizationID, jobID).
		Take(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewDomainError(shared.CodeNotFound, "sync job "+jobID.String()+" not found")
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// List returns archived jobs most recent first
func (r *GormSyncJobArchive) List(ctx context.Context, organizationID uuid.UUID, syncType *integration.SyncType, page shared.Pagination) ([]integration.SyncJob, int64, error) {
	query := r.db.WithContext(ctx).
		Model(&models.SyncJobModel{}).
		Where("organization_id = ?", organizationID)
	if syncType != nil {
		query = query.Where("sync_type = ?", *syncType)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page = page.Normalize()
	var rows []models.SyncJobModel
	if err := query.
		Order("started_at DESC").
		Offset(page.Offset()).
		Limit(page.PageSize).
		Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	out := make([]integration.SyncJob, len(rows))
	for i := range rows {
		out[i] = *rows[i].ToDomain()
	}
	return out, total, nil
}

var _ integration.SyncJobArchive = (*GormSyncJobArchive)(nil)
