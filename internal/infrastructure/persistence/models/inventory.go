package models

import (
	"time"

	"github.com/catalogmirror/backend/internal/domain/inventory"
	"github.com/google/uuid"
)

// StockAdjustmentModel is the persistence model for a ledger entry.
// Rows are inserted once and never updated.
type StockAdjustmentModel struct {
	ID               uuid.UUID                `gorm:"type:uuid;primaryKey"`
	OrganizationID   uuid.UUID                `gorm:"type:uuid;not null;index:idx_stock_adjustments_target,priority:1"`
	ProductID        int64                    `gorm:"not null;index:idx_stock_adjustments_target,priority:2"`
	VariationID      *int64                   `gorm:"index:idx_stock_adjustments_target,priority:3"`
	AdjustmentType   inventory.AdjustmentType `gorm:"type:varchar(20);not null"`
	QuantityBefore   int64                    `gorm:"not null"`
	QuantityAfter    int64                    `gorm:"not null"`
	QuantityAdjusted int64                    `gorm:"not null"`
	Reason           string                   `gorm:"type:varchar(255);not null"`
	Notes            *string                  `gorm:"type:text"`
	ActorID          *uuid.UUID               `gorm:"type:uuid"`
	CreatedAt        time.Time                `gorm:"not null;index:idx_stock_adjustments_target,priority:4"`
}

// TableName returns the table name for GORM
func (StockAdjustmentModel) TableName() string {
	return "stock_adjustments"
}

// ToDomain converts the persistence model to a domain StockAdjustment
func (m *StockAdjustmentModel) ToDomain() *inventory.StockAdjustment {
	return &inventory.StockAdjustment{
		ID:               m.ID,
		OrganizationID:   m.OrganizationID,
		ProductID:        m.ProductID,
		VariationID:      m.VariationID,
		AdjustmentType:   m.AdjustmentType,
		QuantityBefore:   m.QuantityBefore,
		QuantityAfter:    m.QuantityAfter,
		QuantityAdjusted: m.QuantityAdjusted,
		Reason:           m.Reason,
		Notes:            m.Notes,
		ActorID:          m.ActorID,
		CreatedAt:        m.CreatedAt.UTC(),
	}
}

// StockAdjustmentModelFromDomain creates a persistence model from a domain StockAdjustment
func StockAdjustmentModelFromDomain(a *inventory.StockAdjustment) *StockAdjustmentModel {
	return &StockAdjustmentModel{
		ID:               a.ID,
		OrganizationID:   a.OrganizationID,
		ProductID:        a.ProductID,
		VariationID:      a.VariationID,
		AdjustmentType:   a.AdjustmentType,
		QuantityBefore:   a.QuantityBefore,
		QuantityAfter:    a.QuantityAfter,
		QuantityAdjusted: a.QuantityAdjusted,
		Reason:           a.Reason,
		Notes:            a.Notes,
		ActorID:          a.ActorID,
		CreatedAt:        a.CreatedAt.UTC(),
	}
}
