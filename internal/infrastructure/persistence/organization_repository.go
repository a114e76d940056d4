package persistence

import (
	"context"

	"github.com/catalogmirror/backend/internal/domain/shared"
	"github.com/catalogmirror/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormOrganizationResolver implements shared.OrganizationResolver against the organizations table
type GormOrganizationResolver struct {
	db *gorm.DB
}

// NewGormOrganizationResolver creates a new GormOrganizationResolver
func NewGormOrganizationResolver(db *gorm.DB) *GormOrganizationResolver {
	return &GormOrganizationResolver{db: db}
}

// Exists reports whether the organization is provisioned
func (r *GormOrganizationResolver) Exists(ctx context.Context, organizationID uuid.UUID) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.OrganizationModel{}).
		Where("id = ?", organizationID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

var _ shared.OrganizationResolver = (*GormOrganizationResolver)(nil)
