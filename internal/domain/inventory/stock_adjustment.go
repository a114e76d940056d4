package inventory

import (
	"strings"
	"time"

	"github.com/catalogmirror/backend/internal/domain/catalog"
	"github.com/catalogmirror/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// AdjustmentType classifies a manual stock adjustment
type AdjustmentType string

const (
	AdjustmentTypeLoss       AdjustmentType = "loss"
	AdjustmentTypeBreakage   AdjustmentType = "breakage"
	AdjustmentTypeExchange   AdjustmentType = "exchange"
	AdjustmentTypeReturn     AdjustmentType = "return"
	AdjustmentTypeCorrection AdjustmentType = "correction"
)

// localized names used by store staff and older clients
var adjustmentTypeAliases = map[string]AdjustmentType{
	"perda":     AdjustmentTypeLoss,
	"quebra":    AdjustmentTypeBreakage,
	"avaria":    AdjustmentTypeBreakage,
	"troca":     AdjustmentTypeExchange,
	"devolucao": AdjustmentTypeReturn,
	"devolução": AdjustmentTypeReturn,
	"correcao":  AdjustmentTypeCorrection,
	"correção":  AdjustmentTypeCorrection,
	"ajuste":    AdjustmentTypeCorrection,
}

// String returns the string representation
func (t AdjustmentType) String() string {
	return string(t)
}

// IsValid returns true if the adjustment type is valid
func (t AdjustmentType) IsValid() bool {
	switch t {
	case AdjustmentTypeLoss,
		AdjustmentTypeBreakage,
		AdjustmentTypeExchange,
		AdjustmentTypeReturn,
		AdjustmentTypeCorrection:
		return true
	}
	return false
}

// ParseAdjustmentType accepts canonical names and localized aliases, case-insensitively
func ParseAdjustmentType(s string) (AdjustmentType, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	if t := AdjustmentType(key); t.IsValid() {
		return t, nil
	}
	if t, ok := adjustmentTypeAliases[key]; ok {
		return t, nil
	}
	return "", shared.NewDomainError(shared.CodeValidation, "unknown adjustment type "+s)
}

// StockAdjustment is an immutable ledger entry. Corrections are made by appending
// new entries, never by editing existing ones.
type StockAdjustment struct {
	ID               uuid.UUID
	OrganizationID   uuid.UUID
	ProductID        int64
	VariationID      *int64
	AdjustmentType   AdjustmentType
	QuantityBefore   int64
	QuantityAfter    int64
	QuantityAdjusted int64
	Reason           string
	Notes            *string
	ActorID          *uuid.UUID
	CreatedAt        time.Time
}

// NewStockAdjustmentInput carries the caller-supplied fields of a ledger entry
type NewStockAdjustmentInput struct {
	OrganizationID   uuid.UUID
	ProductID        int64
	VariationID      *int64
	AdjustmentType   AdjustmentType
	QuantityBefore   int64
	QuantityAdjusted int64
	Reason           string
	Notes            *string
	ActorID          *uuid.UUID
}

// Target returns the stock record this input addresses
func (in NewStockAdjustmentInput) Target() catalog.StockTarget {
	return catalog.StockTarget{ProductID: in.ProductID, VariationID: in.VariationID}
}

// QuantityAfter is the stock the adjustment results in
func (in NewStockAdjustmentInput) QuantityAfter() int64 {
	return in.QuantityBefore + in.QuantityAdjusted
}

// Validate checks field-level constraints that do not need the store
func (in NewStockAdjustmentInput) Validate() error {
	if in.ProductID <= 0 {
		return shared.NewDomainError(shared.CodeValidation, "product_id is required")
	}
	if in.VariationID != nil && *in.VariationID <= 0 {
		return shared.NewDomainError(shared.CodeValidation, "variation_id must be positive")
	}
	if !in.AdjustmentType.IsValid() {
		return shared.NewDomainError(shared.CodeValidation, "unknown adjustment type "+string(in.AdjustmentType))
	}
	if in.QuantityAdjusted == 0 {
		return shared.NewDomainError(shared.CodeValidation, "quantity_adjusted must not be zero")
	}
	if in.QuantityBefore < 0 {
		return shared.NewDomainError(shared.CodeValidation, "quantity_before cannot be negative")
	}
	if strings.TrimSpace(in.Reason) == "" {
		return shared.NewDomainError(shared.CodeValidation, "reason is required")
	}
	if len(in.Reason) > 255 {
		return shared.NewDomainError(shared.CodeValidation, "reason cannot exceed 255 characters")
	}
	return nil
}

// NewStockAdjustment builds a ledger entry. The resulting stock must not be negative.
func NewStockAdjustment(in NewStockAdjustmentInput, createdAt time.Time) (*StockAdjustment, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	after := in.QuantityAfter()
	if after < 0 {
		return nil, shared.NewDomainError(shared.CodeNegativeStockRejected,
			"adjustment would leave "+in.Target().String()+" with negative stock")
	}
	return &StockAdjustment{
		ID:               uuid.New(),
		OrganizationID:   in.OrganizationID,
		ProductID:        in.ProductID,
		VariationID:      in.VariationID,
		AdjustmentType:   in.AdjustmentType,
		QuantityBefore:   in.QuantityBefore,
		QuantityAfter:    after,
		QuantityAdjusted: in.QuantityAdjusted,
		Reason:           strings.TrimSpace(in.Reason),
		Notes:            in.Notes,
		ActorID:          in.ActorID,
		CreatedAt:        createdAt,
	}, nil
}

// CheckInvariant verifies quantity_after == quantity_before + quantity_adjusted
func (a *StockAdjustment) CheckInvariant() error {
	if a.QuantityAfter != a.QuantityBefore+a.QuantityAdjusted {
		return shared.NewDomainError(shared.CodeValidation, "quantity_after does not equal quantity_before + quantity_adjusted")
	}
	return nil
}

// Target returns the stock record the entry adjusted
func (a *StockAdjustment) Target() catalog.StockTarget {
	return catalog.StockTarget{ProductID: a.ProductID, VariationID: a.VariationID}
}
