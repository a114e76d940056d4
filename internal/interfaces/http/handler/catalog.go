package handler

import (
	"context"
	"time"

	appcatalog "github.com/catalogmirror/backend/internal/application/catalog"
	"github.com/catalogmirror/backend/internal/domain/catalog"
	"github.com/catalogmirror/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// CatalogReader serves mirrored catalog reads
type CatalogReader interface {
	GetProduct(ctx context.Context, organizationID uuid.UUID, productID int64) (*catalog.MirroredProduct, error)
	GetVariations(ctx context.Context, organizationID uuid.UUID, parentID int64) ([]catalog.MirroredVariation, error)
	GetStock(ctx context.Context, organizationID uuid.UUID, target catalog.StockTarget, maxStaleness time.Duration) (*catalog.StockLevel, error)
}

// CatalogHandler exposes the catalog mirror
type CatalogHandler struct {
	BaseHandler
	reader CatalogReader
}

// NewCatalogHandler creates a new CatalogHandler
func NewCatalogHandler(reader CatalogReader) *CatalogHandler {
	return &CatalogHandler{reader: reader}
}

// RegisterRoutes implements router.RouteRegistrar
func (h *CatalogHandler) RegisterRoutes(rg *gin.RouterGroup) {
	products := rg.Group("/catalog/products")
	products.GET("/:id", h.GetProduct)
	products.GET("/:id/variations", h.GetVariations)
	products.GET("/:id/stock", h.GetStock)
}

// GetProduct returns a mirrored product
func (h *CatalogHandler) GetProduct(c *gin.Context) {
	org, ok := h.organization(c)
	if !ok {
		return
	}
	id, ok := h.int64Param(c, "id")
	if !ok {
		return
	}
	product, err := h.reader.GetProduct(c.Request.Context(), org, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, appcatalog.ToProductResponse(product))
}

// GetVariations lists a product's mirrored variations
func (h *CatalogHandler) GetVariations(c *gin.Context) {
	org, ok := h.organization(c)
	if !ok {
		return
	}
	id, ok := h.int64Param(c, "id")
	if !ok {
		return
	}
	variations, err := h.reader.GetVariations(c.Request.Context(), org, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, appcatalog.ToVariationResponses(variations))
}

// StockQuery selects the stock target and staleness bound
type StockQuery struct {
	VariationID  *int64 `form:"variation_id" binding:"omitempty,gt=0"`
	MaxStaleness string `form:"max_staleness"`
}

// GetStock reads the mirrored stock of a product or one of its variations.
// max_staleness is a Go duration such as 15m.
func (h *CatalogHandler) GetStock(c *gin.Context) {
	org, ok := h.organization(c)
	if !ok {
		return
	}
	id, ok := h.int64Param(c, "id")
	if !ok {
		return
	}
	var q StockQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}
	var maxStaleness time.Duration
	if q.MaxStaleness != "" {
		d, err := time.ParseDuration(q.MaxStaleness)
		if err != nil || d < 0 {
			h.BadRequest(c, "Invalid max_staleness")
			return
		}
		maxStaleness = d
	}

	target := catalog.ProductTarget(id)
	if q.VariationID != nil {
		target = catalog.VariationTarget(id, *q.VariationID)
	}
	level, err := h.reader.GetStock(c.Request.Context(), org, target, maxStaleness)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, appcatalog.ToStockResponse(level))
}
