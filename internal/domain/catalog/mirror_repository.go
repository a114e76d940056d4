package catalog

import (
	"context"

	"github.com/google/uuid"
)

// MirrorRepository persists mirrored products, variations and their stock.
// Every method is scoped by organization.
type MirrorRepository interface {
	// FindProduct returns NOT_FOUND when the product is not mirrored for the organization
	FindProduct(ctx context.Context, organizationID uuid.UUID, productID int64) (*MirroredProduct, error)
	FindVariation(ctx context.Context, organizationID uuid.UUID, parentID, variationID int64) (*MirroredVariation, error)
	// ListVariations returns the variations of a product ordered by id ascending
	ListVariations(ctx context.Context, organizationID uuid.UUID, parentID int64) ([]MirroredVariation, error)
	// ListVariableProductIDs returns ids of variable products ordered ascending
	ListVariableProductIDs(ctx context.Context, organizationID uuid.UUID) ([]int64, error)
	// ExistingProductIDs reports which of ids are mirrored for the organization
	ExistingProductIDs(ctx context.Context, organizationID uuid.UUID, ids []int64) (map[int64]bool, error)

	// InsertProduct stores a product that is not yet mirrored
	InsertProduct(ctx context.Context, product *MirroredProduct) error
	// UpdateProduct overwrites a product if its stored version equals product.Version,
	// then increments product.Version. A version mismatch returns STALE_BASELINE.
	UpdateProduct(ctx context.Context, product *MirroredProduct) error
	InsertVariation(ctx context.Context, variation *MirroredVariation) error
	UpdateVariation(ctx context.Context, variation *MirroredVariation) error
	// TouchSynced refreshes the local sync time of an unchanged record
	TouchSynced(ctx context.Context, organizationID uuid.UUID, target StockTarget) error

	// FindStock reads the stock of a product or variation
	FindStock(ctx context.Context, organizationID uuid.UUID, target StockTarget) (*StockLevel, error)
	// CompareAndSetStock writes stock only if the stored version equals expectedVersion.
	// A mismatch returns STALE_BASELINE; a missing target returns NOT_FOUND.
	CompareAndSetStock(ctx context.Context, organizationID uuid.UUID, target StockTarget, expectedVersion int, quantity int64, status StockStatus) error
	// SetStock is CompareAndSetStock that also records the reconciliation conflict marker
	SetStock(ctx context.Context, organizationID uuid.UUID, target StockTarget, expectedVersion int, quantity int64, status StockStatus, conflict bool) error
}
