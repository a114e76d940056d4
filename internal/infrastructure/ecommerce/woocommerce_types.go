package ecommerce

import (
	"fmt"
	"time"

	"github.com/catalogmirror/backend/internal/domain/catalog"
	"github.com/shopspring/decimal"
)

// wooTimeLayout is the store's GMT timestamp format, which carries no zone suffix
const wooTimeLayout = "2006-01-02T15:04:05"

// WooProduct is the subset of the products resource that is mirrored
type WooProduct struct {
	ID              int64  `json:"id"`
	Name            string `json:"name"`
	SKU             string `json:"sku"`
	Type            string `json:"type"`
	Status          string `json:"status"`
	Price           string `json:"price"`
	RegularPrice    string `json:"regular_price"`
	SalePrice       string `json:"sale_price"`
	OnSale          bool   `json:"on_sale"`
	ManageStock     bool   `json:"manage_stock"`
	StockQuantity   *int64 `json:"stock_quantity"`
	StockStatus     string `json:"stock_status"`
	DateModified    string `json:"date_modified"`
	DateModifiedGMT string `json:"date_modified_gmt"`
}

// WooAttribute is a chosen attribute option on a variation
type WooAttribute struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Option string `json:"option"`
}

// WooVariation is the subset of the product variations resource that is mirrored
type WooVariation struct {
	ID              int64          `json:"id"`
	ParentID        int64          `json:"parent_id"`
	SKU             string         `json:"sku"`
	Price           string         `json:"price"`
	RegularPrice    string         `json:"regular_price"`
	SalePrice       string         `json:"sale_price"`
	StockQuantity   *int64         `json:"stock_quantity"`
	StockStatus     string         `json:"stock_status"`
	Attributes      []WooAttribute `json:"attributes"`
	DateModified    string         `json:"date_modified"`
	DateModifiedGMT string         `json:"date_modified_gmt"`
}

// ToMirrored converts the resource to a mirror record without organization
func (p *WooProduct) ToMirrored() (catalog.MirroredProduct, error) {
	updatedAt, err := parseWooTime(p.DateModifiedGMT, p.DateModified)
	if err != nil {
		return catalog.MirroredProduct{}, fmt.Errorf("product %d: %w", p.ID, err)
	}
	return catalog.MirroredProduct{
		ID:            p.ID,
		SKU:           p.SKU,
		Name:          p.Name,
		Type:          mapWooProductType(p.Type),
		Status:        p.Status,
		Price:         ParseDecimal(p.Price),
		RegularPrice:  ParseDecimal(p.RegularPrice),
		SalePrice:     ParseDecimal(p.SalePrice),
		OnSale:        p.OnSale,
		ManageStock:   p.ManageStock,
		StockQuantity: wooQuantity(p.StockQuantity),
		StockStatus:   catalog.StockStatus(p.StockStatus),
		UpdatedAt:     updatedAt,
	}, nil
}

// ToMirrored converts the resource to a mirror record. Older stores omit
// parent_id on variations, so the requested parent is used as a fallback.
func (v *WooVariation) ToMirrored(parentID int64) (catalog.MirroredVariation, error) {
	updatedAt, err := parseWooTime(v.DateModifiedGMT, v.DateModified)
	if err != nil {
		return catalog.MirroredVariation{}, fmt.Errorf("variation %d: %w", v.ID, err)
	}
	if v.ParentID != 0 {
		parentID = v.ParentID
	}
	attrs := make([]catalog.VariationAttribute, 0, len(v.Attributes))
	for _, a := range v.Attributes {
		attrs = append(attrs, catalog.VariationAttribute{Name: a.Name, Option: a.Option})
	}
	return catalog.MirroredVariation{
		ID:            v.ID,
		ParentID:      parentID,
		SKU:           v.SKU,
		Price:         ParseDecimal(v.Price),
		RegularPrice:  ParseDecimal(v.RegularPrice),
		SalePrice:     ParseDecimal(v.SalePrice),
		StockQuantity: wooQuantity(v.StockQuantity),
		StockStatus:   catalog.StockStatus(v.StockStatus),
		Attributes:    attrs,
		UpdatedAt:     updatedAt,
	}, nil
}

func mapWooProductType(t string) catalog.ProductType {
	if t == string(catalog.ProductTypeVariable) {
		return catalog.ProductTypeVariable
	}
	return catalog.ProductTypeSimple
}

// wooQuantity treats unmanaged (null) and oversold (negative) stock as zero
func wooQuantity(q *int64) int64 {
	if q == nil || *q < 0 {
		return 0
	}
	return *q
}

func parseWooTime(gmt, local string) (time.Time, error) {
	if gmt != "" {
		return time.ParseInLocation(wooTimeLayout, gmt, time.UTC)
	}
	if local != "" {
		// site-local time; only used when the store predates the _gmt fields
		return time.ParseInLocation(wooTimeLayout, local, time.UTC)
	}
	return time.Time{}, fmt.Errorf("missing modification time")
}

// ParseDecimal parses a price string; empty or malformed values are zero
func ParseDecimal(s string) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
