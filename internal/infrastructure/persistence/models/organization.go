package models

import (
	"time"

	"github.com/google/uuid"
)

// OrganizationModel is the tenant boundary. Rows are provisioned by the tenant
// service; this service only reads them.
type OrganizationModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name      string    `gorm:"type:varchar(200);not null"`
	CreatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (OrganizationModel) TableName() string {
	return "organizations"
}

// AllModels lists every model for schema bootstrap in tests
func AllModels() []any {
	return []any{
		&OrganizationModel{},
		&MirroredProductModel{},
		&MirroredVariationModel{},
		&StockAdjustmentModel{},
		&SyncJobModel{},
	}
}
