package catalog

import (
	"fmt"
	"time"
)

// StockStatus is the externally visible availability of a product or variation
type StockStatus string

const (
	StockStatusInStock     StockStatus = "instock"
	StockStatusOutOfStock  StockStatus = "outofstock"
	StockStatusOnBackorder StockStatus = "onbackorder"
)

// IsValid checks if the stock status is valid
func (s StockStatus) IsValid() bool {
	switch s {
	case StockStatusInStock, StockStatusOutOfStock, StockStatusOnBackorder:
		return true
	}
	return false
}

// String returns the string representation
func (s StockStatus) String() string {
	return string(s)
}

// StockStatusFor derives the availability for a managed stock quantity
func StockStatusFor(quantity int64) StockStatus {
	if quantity > 0 {
		return StockStatusInStock
	}
	return StockStatusOutOfStock
}

// StockTarget identifies the stock-bearing record: a product, or one of its variations
type StockTarget struct {
	ProductID   int64
	VariationID *int64
}

// ProductTarget returns a target addressing a product's own stock
func ProductTarget(productID int64) StockTarget {
	return StockTarget{ProductID: productID}
}

// VariationTarget returns a target addressing a variation's stock
func VariationTarget(productID, variationID int64) StockTarget {
	return StockTarget{ProductID: productID, VariationID: &variationID}
}

// IsVariation reports whether the target addresses a variation
func (t StockTarget) IsVariation() bool {
	return t.VariationID != nil
}

// Key returns a stable map key for the target
func (t StockTarget) Key() string {
	if t.VariationID == nil {
		return fmt.Sprintf("%d", t.ProductID)
	}
	return fmt.Sprintf("%d/%d", t.ProductID, *t.VariationID)
}

// String implements fmt.Stringer
func (t StockTarget) String() string {
	if t.VariationID == nil {
		return fmt.Sprintf("product %d", t.ProductID)
	}
	return fmt.Sprintf("product %d variation %d", t.ProductID, *t.VariationID)
}

// StockLevel is a point-in-time read of mirrored stock
type StockLevel struct {
	Target                 StockTarget
	StockQuantity          int64
	StockStatus            StockStatus
	ReconciliationConflict bool
	// ExternalStock and ExternalUpdatedAt are the last external baseline applied
	ExternalStock          int64
	ExternalUpdatedAt      time.Time
	SyncedAt               time.Time
	Version                int
	RefreshAdvised         bool
}

// MarkStaleness sets RefreshAdvised when the last refresh is older than maxStaleness.
// A non-positive maxStaleness disables the check.
func (l *StockLevel) MarkStaleness(now time.Time, maxStaleness time.Duration) {
	if maxStaleness <= 0 {
		l.RefreshAdvised = false
		return
	}
	l.RefreshAdvised = l.SyncedAt.Before(now.Add(-maxStaleness))
}

// StockStatusAfter derives the status for a new quantity, keeping a backorder
// status when stock stays at zero
func StockStatusAfter(current StockStatus, quantity int64) StockStatus {
	if quantity <= 0 && current == StockStatusOnBackorder {
		return StockStatusOnBackorder
	}
	return StockStatusFor(quantity)
}
