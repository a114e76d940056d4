package inventory

import (
	"time"

	"github.com/catalogmirror/backend/internal/domain/inventory"
	"github.com/google/uuid"
)

// AdjustmentResponse represents a ledger entry in API responses
type AdjustmentResponse struct {
	ID               uuid.UUID  `json:"id"`
	OrganizationID   uuid.UUID  `json:"organization_id"`
	ProductID        int64      `json:"product_id"`
	VariationID      *int64     `json:"variation_id,omitempty"`
	AdjustmentType   string     `json:"adjustment_type"`
	QuantityBefore   int64      `json:"quantity_before"`
	QuantityAfter    int64      `json:"quantity_after"`
	QuantityAdjusted int64      `json:"quantity_adjusted"`
	Reason           string     `json:"reason"`
	Notes            *string    `json:"notes,omitempty"`
	ActorID          *uuid.UUID `json:"actor_id,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

// ToAdjustmentResponse converts a ledger entry to a response DTO
func ToAdjustmentResponse(a *inventory.StockAdjustment) AdjustmentResponse {
	return AdjustmentResponse{
		ID:               a.ID,
		OrganizationID:   a.OrganizationID,
		ProductID:        a.ProductID,
		VariationID:      a.VariationID,
		AdjustmentType:   a.AdjustmentType.String(),
		QuantityBefore:   a.QuantityBefore,
		QuantityAfter:    a.QuantityAfter,
		QuantityAdjusted: a.QuantityAdjusted,
		Reason:           a.Reason,
		Notes:            a.Notes,
		ActorID:          a.ActorID,
		CreatedAt:        a.CreatedAt,
	}
}

// ToAdjustmentResponses converts ledger entries to response DTOs
func ToAdjustmentResponses(items []inventory.StockAdjustment) []AdjustmentResponse {
	out := make([]AdjustmentResponse, 0, len(items))
	for i := range items {
		out = append(out, ToAdjustmentResponse(&items[i]))
	}
	return out
}
