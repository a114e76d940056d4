package handler

import (
	"context"
	"net/http"
	"time"

	appinventory "github.com/catalogmirror/backend/internal/application/inventory"
	"github.com/catalogmirror/backend/internal/domain/inventory"
	"github.com/catalogmirror/backend/internal/domain/shared"
	"github.com/catalogmirror/backend/internal/interfaces/http/dto"
	"github.com/catalogmirror/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AdjustmentLedger records and lists stock adjustments
type AdjustmentLedger interface {
	RecordAdjustment(ctx context.Context, in inventory.NewStockAdjustmentInput) (*inventory.StockAdjustment, error)
	RecordRelativeAdjustment(ctx context.Context, in inventory.NewStockAdjustmentInput) (*inventory.StockAdjustment, error)
	ListAdjustments(ctx context.Context, organizationID uuid.UUID, filter inventory.AdjustmentFilter) (shared.Paginated[inventory.StockAdjustment], error)
}

// AdjustmentHandler exposes the stock adjustment ledger
type AdjustmentHandler struct {
	BaseHandler
	ledger AdjustmentLedger
}

// NewAdjustmentHandler creates a new AdjustmentHandler
func NewAdjustmentHandler(ledger AdjustmentLedger) *AdjustmentHandler {
	return &AdjustmentHandler{ledger: ledger}
}

// RegisterRoutes implements router.RouteRegistrar
func (h *AdjustmentHandler) RegisterRoutes(rg *gin.RouterGroup) {
	group := rg.Group("/inventory/adjustments")
	group.POST("", h.Record)
	group.GET("", h.List)
}

// RecordAdjustmentRequest is the body of POST /inventory/adjustments.
// Without quantity_before the delta is applied to the current stock.
type RecordAdjustmentRequest struct {
	ProductID        int64   `json:"product_id" binding:"required,gt=0"`
	VariationID      *int64  `json:"variation_id" binding:"omitempty,gt=0"`
	AdjustmentType   string  `json:"adjustment_type" binding:"required,adjustment_type"`
	QuantityBefore   *int64  `json:"quantity_before" binding:"omitempty,gte=0"`
	QuantityAdjusted int64   `json:"quantity_adjusted" binding:"required,ne=0"`
	Reason           string  `json:"reason" binding:"required,max=255"`
	Notes            *string `json:"notes" binding:"omitempty,max=2000"`
}

// Record appends a ledger entry and moves the mirrored stock
func (h *AdjustmentHandler) Record(c *gin.Context) {
	org, ok := h.organization(c)
	if !ok {
		return
	}
	var req RecordAdjustmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}
	adjustmentType, err := inventory.ParseAdjustmentType(req.AdjustmentType)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	in := inventory.NewStockAdjustmentInput{
		OrganizationID:   org,
		ProductID:        req.ProductID,
		VariationID:      req.VariationID,
		AdjustmentType:   adjustmentType,
		QuantityAdjusted: req.QuantityAdjusted,
		Reason:           req.Reason,
		Notes:            req.Notes,
		ActorID:          middleware.GetActorID(c),
	}

	var adj *inventory.StockAdjustment
	if req.QuantityBefore != nil {
		in.QuantityBefore = *req.QuantityBefore
		adj, err = h.ledger.RecordAdjustment(c.Request.Context(), in)
	} else {
		adj, err = h.ledger.RecordRelativeAdjustment(c.Request.Context(), in)
	}
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, appinventory.ToAdjustmentResponse(adj))
}

// ListAdjustmentsQuery filters the ledger. from and to are RFC 3339.
type ListAdjustmentsQuery struct {
	PageQuery
	ProductID   *int64     `form:"product_id" binding:"omitempty,gt=0"`
	VariationID *int64     `form:"variation_id" binding:"omitempty,gt=0"`
	From        *time.Time `form:"from" time_format:"2006-01-02T15:04:05Z07:00"`
	To          *time.Time `form:"to" time_format:"2006-01-02T15:04:05Z07:00"`
}

// List returns ledger entries most recent first
func (h *AdjustmentHandler) List(c *gin.Context) {
	org, ok := h.organization(c)
	if !ok {
		return
	}
	var q ListAdjustmentsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}
	if q.From != nil && q.To != nil && q.To.Before(*q.From) {
		h.BadRequest(c, "to must not be before from")
		return
	}

	page, err := h.ledger.ListAdjustments(c.Request.Context(), org, inventory.AdjustmentFilter{
		ProductID:   q.ProductID,
		VariationID: q.VariationID,
		From:        q.From,
		To:          q.To,
		Pagination:  q.Pagination(),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	items := appinventory.ToAdjustmentResponses(page.Items)
	c.JSON(http.StatusOK, dto.NewPaginatedResponse(shared.Paginated[appinventory.AdjustmentResponse]{
		Items:      items,
		Total:      page.Total,
		Page:       page.Page,
		PageSize:   page.PageSize,
		TotalPages: page.TotalPages,
	}))
}
