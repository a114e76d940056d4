package catalog

import (
	"time"

	"github.com/catalogmirror/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProductType distinguishes products that carry their own stock from those whose stock lives on variations
type ProductType string

const (
	ProductTypeSimple   ProductType = "simple"
	ProductTypeVariable ProductType = "variable"
)

// MirroredProduct is the local copy of a product owned by the external catalog.
// UpdatedAt is the external modification time and drives last-write-wins;
// SyncedAt is the local refresh time and drives staleness.
type MirroredProduct struct {
	ID                     int64
	OrganizationID         uuid.UUID
	SKU                    string
	Name                   string
	Type                   ProductType
	Status                 string
	Price                  decimal.Decimal
	RegularPrice           decimal.Decimal
	SalePrice              decimal.Decimal
	OnSale                 bool
	ManageStock            bool
	StockQuantity          int64
	StockStatus            StockStatus
	ExternalStockQuantity  int64
	ReconciliationConflict bool
	UpdatedAt              time.Time
	SyncedAt               time.Time
	Version                int
}

// ValidateForUpsert checks that the record may be written into the given organization
func (p *MirroredProduct) ValidateForUpsert(organizationID uuid.UUID) error {
	if p.ID <= 0 {
		return shared.NewDomainError(shared.CodeValidation, "product id is required")
	}
	if p.OrganizationID == uuid.Nil {
		return shared.NewDomainError(shared.CodeInvalidScope, "product organization_id is required")
	}
	if p.OrganizationID != organizationID {
		return shared.NewDomainError(shared.CodeInvalidScope, "product belongs to a different organization")
	}
	if p.StockStatus != "" && !p.StockStatus.IsValid() {
		return shared.NewDomainError(shared.CodeValidation, "unknown stock status "+string(p.StockStatus))
	}
	return nil
}

// IsVariable reports whether stock is tracked on the product's variations
func (p *MirroredProduct) IsVariable() bool {
	return p.Type == ProductTypeVariable
}

// SupersededBy reports whether incoming should replace p under last-write-wins.
// Equal timestamps replace, so re-applying the same page converges.
func (p *MirroredProduct) SupersededBy(incoming *MirroredProduct) bool {
	return !p.UpdatedAt.After(incoming.UpdatedAt)
}

// SameContent reports whether incoming carries exactly the mirrored values already stored
func (p *MirroredProduct) SameContent(incoming *MirroredProduct) bool {
	return p.SKU == incoming.SKU &&
		p.Name == incoming.Name &&
		p.Type == incoming.Type &&
		p.Status == incoming.Status &&
		p.Price.Equal(incoming.Price) &&
		p.RegularPrice.Equal(incoming.RegularPrice) &&
		p.SalePrice.Equal(incoming.SalePrice) &&
		p.OnSale == incoming.OnSale &&
		p.ManageStock == incoming.ManageStock &&
		p.StockQuantity == incoming.StockQuantity &&
		p.StockStatus == incoming.StockStatus &&
		p.ExternalStockQuantity == incoming.StockQuantity &&
		!p.ReconciliationConflict &&
		p.UpdatedAt.Equal(incoming.UpdatedAt)
}

// ApplyExternal overwrites the mirrored values with incoming, keeping identity and version
func (p *MirroredProduct) ApplyExternal(incoming *MirroredProduct, syncedAt time.Time) {
	p.SKU = incoming.SKU
	p.Name = incoming.Name
	p.Type = incoming.Type
	p.Status = incoming.Status
	p.Price = incoming.Price
	p.RegularPrice = incoming.RegularPrice
	p.SalePrice = incoming.SalePrice
	p.OnSale = incoming.OnSale
	p.ManageStock = incoming.ManageStock
	p.StockQuantity = incoming.StockQuantity
	p.StockStatus = incoming.StockStatus
	p.ExternalStockQuantity = incoming.StockQuantity
	p.ReconciliationConflict = false
	p.UpdatedAt = incoming.UpdatedAt
	p.SyncedAt = syncedAt
}

// PrepareNew fills derived fields of a record that is about to be inserted
func (p *MirroredProduct) PrepareNew(syncedAt time.Time) {
	if p.Type == "" {
		p.Type = ProductTypeSimple
	}
	if p.StockStatus == "" {
		p.StockStatus = StockStatusFor(p.StockQuantity)
	}
	p.ExternalStockQuantity = p.StockQuantity
	p.ReconciliationConflict = false
	p.SyncedAt = syncedAt
	p.Version = 1
}

// StockLevel returns the product's own stock reading
func (p *MirroredProduct) StockLevel() StockLevel {
	return StockLevel{
		Target:                 ProductTarget(p.ID),
		StockQuantity:          p.StockQuantity,
		StockStatus:            p.StockStatus,
		ReconciliationConflict: p.ReconciliationConflict,
		ExternalStock:          p.ExternalStockQuantity,
		ExternalUpdatedAt:      p.UpdatedAt,
		SyncedAt:               p.SyncedAt,
		Version:                p.Version,
	}
}
