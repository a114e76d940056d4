package catalog

import (
	"time"

	"github.com/catalogmirror/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MirroredVariation is the local copy of one variation of a variable product
type MirroredVariation struct {
	ID                     int64
	ParentID               int64
	OrganizationID         uuid.UUID
	SKU                    string
	Price                  decimal.Decimal
	RegularPrice           decimal.Decimal
	SalePrice              decimal.Decimal
	StockQuantity          int64
	StockStatus            StockStatus
	Attributes             []VariationAttribute
	ExternalStockQuantity  int64
	ReconciliationConflict bool
	UpdatedAt              time.Time
	SyncedAt               time.Time
	Version                int
}

// ValidateForUpsert checks identity and scope; parent resolution is checked against the store
func (v *MirroredVariation) ValidateForUpsert(organizationID uuid.UUID) error {
	if v.ID <= 0 {
		return shared.NewDomainError(shared.CodeValidation, "variation id is required")
	}
	if v.ParentID <= 0 {
		return shared.NewDomainError(shared.CodeValidation, "variation parent_id is required")
	}
	if v.OrganizationID == uuid.Nil {
		return shared.NewDomainError(shared.CodeInvalidScope, "variation organization_id is required")
	}
	if v.OrganizationID != organizationID {
		return shared.NewDomainError(shared.CodeInvalidScope, "variation belongs to a different organization")
	}
	if v.StockStatus != "" && !v.StockStatus.IsValid() {
		return shared.NewDomainError(shared.CodeValidation, "unknown stock status "+string(v.StockStatus))
	}
	return nil
}

// SupersededBy reports whether incoming should replace v under last-write-wins
func (v *MirroredVariation) SupersededBy(incoming *MirroredVariation) bool {
	return !v.UpdatedAt.After(incoming.UpdatedAt)
}

// SameContent reports whether incoming carries exactly the mirrored values already stored
func (v *MirroredVariation) SameContent(incoming *MirroredVariation) bool {
	if len(v.Attributes) != len(incoming.Attributes) {
		return false
	}
	for i := range v.Attributes {
		if v.Attributes[i] != incoming.Attributes[i] {
			return false
		}
	}
	return v.ParentID == incoming.ParentID &&
		v.SKU == incoming.SKU &&
		v.Price.Equal(incoming.Price) &&
		v.RegularPrice.Equal(incoming.RegularPrice) &&
		v.SalePrice.Equal(incoming.SalePrice) &&
		v.StockQuantity == incoming.StockQuantity &&
		v.StockStatus == incoming.StockStatus &&
		v.ExternalStockQuantity == incoming.StockQuantity &&
		!v.ReconciliationConflict &&
		v.UpdatedAt.Equal(incoming.UpdatedAt)
}

// ApplyExternal overwrites the mirrored values with incoming, keeping identity and version
func (v *MirroredVariation) ApplyExternal(incoming *MirroredVariation, syncedAt time.Time) {
	v.ParentID = incoming.ParentID
	v.SKU = incoming.SKU
	v.Price = incoming.Price
	v.RegularPrice = incoming.RegularPrice
	v.SalePrice = incoming.SalePrice
	v.StockQuantity = incoming.StockQuantity
	v.StockStatus = incoming.StockStatus
	v.Attributes = incoming.Attributes
	v.ExternalStockQuantity = incoming.StockQuantity
	v.ReconciliationConflict = false
	v.UpdatedAt = incoming.UpdatedAt
	v.SyncedAt = syncedAt
}

// PrepareNew fills derived fields of a record that is about to be inserted
func (v *MirroredVariation) PrepareNew(syncedAt time.Time) {
	if v.StockStatus == "" {
		v.StockStatus = StockStatusFor(v.StockQuantity)
	}
	if v.Attributes == nil {
		v.Attributes = []VariationAttribute{}
	}
	v.ExternalStockQuantity = v.StockQuantity
	v.ReconciliationConflict = false
	v.SyncedAt = syncedAt
	v.Version = 1
}

// StockLevel returns the variation's stock reading
func (v *MirroredVariation) StockLevel() StockLevel {
	return StockLevel{
		Target:                 VariationTarget(v.ParentID, v.ID),
		StockQuantity:          v.StockQuantity,
		StockStatus:            v.StockStatus,
		ReconciliationConflict: v.ReconciliationConflict,
		ExternalStock:          v.ExternalStockQuantity,
		ExternalUpdatedAt:      v.UpdatedAt,
		SyncedAt:               v.SyncedAt,
		Version:                v.Version,
	}
}
