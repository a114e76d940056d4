package catalog

import (
	"time"

	"github.com/catalogmirror/backend/internal/domain/catalog"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProductResponse represents a mirrored product in API responses
type ProductResponse struct {
	ID                     int64           `json:"id"`
	OrganizationID         uuid.UUID       `json:"organization_id"`
	SKU                    string          `json:"sku"`
	Name                   string          `json:"name"`
	Type                   string          `json:"type"`
	Status                 string          `json:"status"`
	Price                  decimal.Decimal `json:"price"`
	RegularPrice           decimal.Decimal `json:"regular_price"`
	SalePrice              decimal.Decimal `json:"sale_price"`
	OnSale                 bool            `json:"on_sale"`
	ManageStock            bool            `json:"manage_stock"`
	StockQuantity          int64           `json:"stock_quantity"`
	StockStatus            string          `json:"stock_status"`
	ReconciliationConflict bool            `json:"reconciliation_conflict"`
	UpdatedAt              time.Time       `json:"updated_at"`
	SyncedAt               time.Time       `json:"synced_at"`
}

// VariationResponse represents a mirrored variation in API responses
type VariationResponse struct {
	ID                     int64                        `json:"id"`
	ParentID               int64                        `json:"parent_id"`
	SKU                    string                       `json:"sku"`
	Price                  decimal.Decimal              `json:"price"`
	RegularPrice           decimal.Decimal              `json:"regular_price"`
	SalePrice              decimal.Decimal              `json:"sale_price"`
	StockQuantity          int64                        `json:"stock_quantity"`
	StockStatus            string                       `json:"stock_status"`
	Attributes             []catalog.VariationAttribute `json:"attributes"`
	ReconciliationConflict bool                         `json:"reconciliation_conflict"`
	UpdatedAt              time.Time                    `json:"updated_at"`
	SyncedAt               time.Time                    `json:"synced_at"`
}

// StockResponse represents a stock reading in API responses
type StockResponse struct {
	ProductID              int64     `json:"product_id"`
	VariationID            *int64    `json:"variation_id,omitempty"`
	StockQuantity          int64     `json:"stock_quantity"`
	StockStatus            string    `json:"stock_status"`
	ReconciliationConflict bool      `json:"reconciliation_conflict"`
	SyncedAt               time.Time `json:"synced_at"`
	RefreshAdvised         bool      `json:"refresh_advised"`
}

// ToProductResponse converts a domain product to a response DTO
func ToProductResponse(p *catalog.MirroredProduct) ProductResponse {
	return ProductResponse{
		ID:                     p.ID,
		OrganizationID:         p.OrganizationID,
		SKU:                    p.SKU,
		Name:                   p.Name,
		Type:                   string(p.Type),
		Status:                 p.Status,
		Price:                  p.Price,
		RegularPrice:           p.RegularPrice,
		SalePrice:              p.SalePrice,
		OnSale:                 p.OnSale,
		ManageStock:            p.ManageStock,
		StockQuantity:          p.StockQuantity,
		StockStatus:            string(p.StockStatus),
		ReconciliationConflict: p.ReconciliationConflict,
		UpdatedAt:              p.UpdatedAt,
		SyncedAt:               p.SyncedAt,
	}
}

// ToVariationResponses converts domain variations to response DTOs
func ToVariationResponses(variations []catalog.MirroredVariation) []VariationResponse {
	out := make([]VariationResponse, 0, len(variations))
	for _, v := range variations {
		out = append(out, VariationResponse{
			ID:                     v.ID,
			ParentID:               v.ParentID,
			SKU:                    v.SKU,
			Price:                  v.Price,
			RegularPrice:           v.RegularPrice,
			SalePrice:              v.SalePrice,
			StockQuantity:          v.StockQuantity,
			StockStatus:            string(v.StockStatus),
			Attributes:             v.Attributes,
			ReconciliationConflict: v.ReconciliationConflict,
			UpdatedAt:              v.UpdatedAt,
			SyncedAt:               v.SyncedAt,
		})
	}
	return out
}

// ToStockResponse converts a stock level to a response DTO
func ToStockResponse(l *catalog.StockLevel) StockResponse {
	return StockResponse{
		ProductID:              l.Target.ProductID,
		VariationID:            l.Target.VariationID,
		StockQuantity:          l.StockQuantity,
		StockStatus:            string(l.StockStatus),
		ReconciliationConflict: l.ReconciliationConflict,
		SyncedAt:               l.SyncedAt,
		RefreshAdvised:         l.RefreshAdvised,
	}
}
