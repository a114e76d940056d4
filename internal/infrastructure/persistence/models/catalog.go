package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/catalogmirror/backend/internal/domain/catalog"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MirroredProductModel is the persistence model for a mirrored product.
// The external id is only unique within an organization.
type MirroredProductModel struct {
	OrganizationID         uuid.UUID           `gorm:"type:uuid;primaryKey"`
	ID                     int64               `gorm:"primaryKey;autoIncrement:false"`
	SKU                    string              `gorm:"type:varchar(100);index"`
	Name                   string              `gorm:"type:varchar(255);not null;default:''"`
	Type                   catalog.ProductType `gorm:"type:varchar(20);not null;default:'simple'"`
	Status                 string              `gorm:"type:varchar(20);not null;default:'publish'"`
	Price                  decimal.Decimal     `gorm:"type:decimal(18,4);not null;default:0"`
	RegularPrice           decimal.Decimal     `gorm:"type:decimal(18,4);not null;default:0"`
	SalePrice              decimal.Decimal     `gorm:"type:decimal(18,4);not null;default:0"`
	OnSale                 bool                `gorm:"not null;default:false"`
	ManageStock            bool                `gorm:"not null;default:false"`
	StockQuantity          int64               `gorm:"not null;default:0"`
	StockStatus            catalog.StockStatus `gorm:"type:varchar(20);not null;default:'outofstock'"`
	ExternalStockQuantity  int64               `gorm:"not null;default:0"`
	ReconciliationConflict bool                `gorm:"not null;default:false"`
	ExternalUpdatedAt      time.Time           `gorm:"not null"`
	SyncedAt               time.Time           `gorm:"not null"`
	Version                int                 `gorm:"not null;default:1"`
}

// TableName returns the table name for GORM
func (MirroredProductModel) TableName() string {
	return "mirrored_products"
}

// ToDomain converts the persistence model to a domain MirroredProduct
func (m *MirroredProductModel) ToDomain() *catalog.MirroredProduct {
	return &catalog.MirroredProduct{
		ID:                     m.ID,
		OrganizationID:         m.OrganizationID,
		SKU:                    m.SKU,
		Name:                   m.Name,
		Type:                   m.Type,
		Status:                 m.Status,
		Price:                  m.Price,
		RegularPrice:           m.RegularPrice,
		SalePrice:              m.SalePrice,
		OnSale:                 m.OnSale,
		ManageStock:            m.ManageStock,
		StockQuantity:          m.StockQuantity,
		StockStatus:            m.StockStatus,
		ExternalStockQuantity:  m.ExternalStockQuantity,
		ReconciliationConflict: m.ReconciliationConflict,
		UpdatedAt:              m.ExternalUpdatedAt.UTC(),
		SyncedAt:               m.SyncedAt.UTC(),
		Version:                m.Version,
	}
}

// FromDomain populates the persistence model from a domain MirroredProduct
func (m *MirroredProductModel) FromDomain(p *catalog.MirroredProduct) {
	m.OrganizationID = p.OrganizationID
	m.ID = p.ID
	m.SKU = p.SKU
	m.Name = p.Name
	m.Type = p.Type
	m.Status = p.Status
	m.Price = p.Price
	m.RegularPrice = p.RegularPrice
	m.SalePrice = p.SalePrice
	m.OnSale = p.OnSale
	m.ManageStock = p.ManageStock
	m.StockQuantity = p.StockQuantity
	m.StockStatus = p.StockStatus
	m.ExternalStockQuantity = p.ExternalStockQuantity
	m.ReconciliationConflict = p.ReconciliationConflict
	m.ExternalUpdatedAt = p.UpdatedAt.UTC()
	m.SyncedAt = p.SyncedAt.UTC()
	m.Version = p.Version
}

// MirroredProductModelFromDomain creates a new persistence model from a domain MirroredProduct
func MirroredProductModelFromDomain(p *catalog.MirroredProduct) *MirroredProductModel {
	m := &MirroredProductModel{}
	m.FromDomain(p)
	return m
}

// MirroredVariationModel is the persistence model for a mirrored variation.
// Attributes are stored as a JSON array of {name, option} pairs.
type MirroredVariationModel struct {
	OrganizationID         uuid.UUID           `gorm:"type:uuid;primaryKey"`
	ID                     int64               `gorm:"primaryKey;autoIncrement:false"`
	ParentID               int64               `gorm:"not null;index"`
	SKU                    string              `gorm:"type:varchar(100);index"`
	Price                  decimal.Decimal     `gorm:"type:decimal(18,4);not null;default:0"`
	RegularPrice           decimal.Decimal     `gorm:"type:decimal(18,4);not null;default:0"`
	SalePrice              decimal.Decimal     `gorm:"type:decimal(18,4);not null;default:0"`
	StockQuantity          int64               `gorm:"not null;default:0"`
	StockStatus            catalog.StockStatus `gorm:"type:varchar(20);not null;default:'outofstock'"`
	AttributesJSON         string              `gorm:"column:attributes;type:jsonb;not null;default:'[]'"`
	ExternalStockQuantity  int64               `gorm:"not null;default:0"`
	ReconciliationConflict bool                `gorm:"not null;default:false"`
	ExternalUpdatedAt      time.Time           `gorm:"not null"`
	SyncedAt               time.Time           `gorm:"not null"`
	Version                int                 `gorm:"not null;default:1"`
}

// TableName returns the table name for GORM
func (MirroredVariationModel) TableName() string {
	return "mirrored_variations"
}

// ToDomain converts the persistence model to a domain MirroredVariation
func (m *MirroredVariationModel) ToDomain() (*catalog.MirroredVariation, error) {
	var attrs []catalog.VariationAttribute
	if m.AttributesJSON != "" {
		if err := json.Unmarshal([]byte(m.AttributesJSON), &attrs); err != nil {
			return nil, fmt.Errorf("decode attributes of variation %d: %w", m.ID, err)
		}
	}
	return &catalog.MirroredVariation{
		ID:                     m.ID,
		ParentID:               m.ParentID,
		OrganizationID:         m.OrganizationID,
		SKU:                    m.SKU,
		Price:                  m.Price,
		RegularPrice:           m.RegularPrice,
		SalePrice:              m.SalePrice,
		StockQuantity:          m.StockQuantity,
		StockStatus:            m.StockStatus,
		Attributes:             attrs,
		ExternalStockQuantity:  m.ExternalStockQuantity,
		ReconciliationConflict: m.ReconciliationConflict,
		UpdatedAt:              m.ExternalUpdatedAt.UTC(),
		SyncedAt:               m.SyncedAt.UTC(),
		Version:                m.Version,
	}, nil
}

// FromDomain populates the persistence model from a domain MirroredVariation
func (m *MirroredVariationModel) FromDomain(v *catalog.MirroredVariation) {
	m.OrganizationID = v.OrganizationID
	m.ID = v.ID
	m.ParentID = v.ParentID
	m.SKU = v.SKU
	m.Price = v.Price
	m.RegularPrice = v.RegularPrice
	m.SalePrice = v.SalePrice
	m.StockQuantity = v.StockQuantity
	m.StockStatus = v.StockStatus
	m.AttributesJSON = "[]"
	if len(v.Attributes) > 0 {
		if b, err := json.Marshal(v.Attributes); err == nil {
			m.AttributesJSON = string(b)
		}
	}
	m.ExternalStockQuantity = v.ExternalStockQuantity
	m.ReconciliationConflict = v.ReconciliationConflict
	m.ExternalUpdatedAt = v.UpdatedAt.UTC()
	m.SyncedAt = v.SyncedAt.UTC()
	m.Version = v.Version
}

// MirroredVariationModelFromDomain creates a new persistence model from a domain MirroredVariation
func MirroredVariationModelFromDomain(v *catalog.MirroredVariation) *MirroredVariationModel {
	m := &MirroredVariationModel{}
	m.FromDomain(v)
	return m
}

// StockRow is the stock projection shared by products and variations
type StockRow struct {
	StockQuantity          int64
	StockStatus            catalog.StockStatus
	ReconciliationConflict bool
	ExternalStockQuantity  int64
	ExternalUpdatedAt      time.Time
	SyncedAt               time.Time
	Version                int
}

// ToDomain converts the row to a StockLevel of target
func (r *StockRow) ToDomain(target catalog.StockTarget) *catalog.StockLevel {
	return &catalog.StockLevel{
		Target:                 target,
		StockQuantity:          r.StockQuantity,
		StockStatus:            r.StockStatus,
		ReconciliationConflict: r.ReconciliationConflict,
		ExternalStock:          r.ExternalStockQuantity,
		ExternalUpdatedAt:      r.ExternalUpdatedAt.UTC(),
		SyncedAt:               r.SyncedAt.UTC(),
		Version:                r.Version,
	}
}
