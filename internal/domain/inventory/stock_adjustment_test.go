package inventory

import (
	"testing"
	"time"

	"github.com/catalogmirror/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validInput() NewStockAdjustmentInput {
	return NewStockAdjustmentInput{
		OrganizationID:   uuid.New(),
		ProductID:        42,
		AdjustmentType:   AdjustmentTypeCorrection,
		QuantityBefore:   10,
		QuantityAdjusted: -3,
		Reason:           "cycle count",
	}
}

func TestParseAdjustmentType(t *testing.T) {
	tests := []struct {
		input    string
		expected AdjustmentType
	}{
		{"loss", AdjustmentTypeLoss},
		{"BREAKAGE", AdjustmentTypeBreakage},
		{" exchange ", AdjustmentTypeExchange},
		{"return", AdjustmentTypeReturn},
		{"correction", AdjustmentTypeCorrection},
		{"correcao", AdjustmentTypeCorrection},
		{"perda", AdjustmentTypeLoss},
		{"quebra", AdjustmentTypeBreakage},
		{"troca", AdjustmentTypeExchange},
		{"devolucao", AdjustmentTypeReturn},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseAdjustmentType(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}

	t.Run("unknown", func(t *testing.T) {
		_, err := ParseAdjustmentType("shrinkage")
		assert.True(t, shared.IsCode(err, shared.CodeValidation))
	})
}

func TestNewStockAdjustment(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("computes quantity after", func(t *testing.T) {
		adj, err := NewStockAdjustment(validInput(), now)
		require.NoError(t, err)

		assert.NotEqual(t, uuid.Nil, adj.ID)
		assert.Equal(t, int64(10), adj.QuantityBefore)
		assert.Equal(t, int64(-3), adj.QuantityAdjusted)
		assert.Equal(t, int64(7), adj.QuantityAfter)
		assert.Equal(t, now, adj.CreatedAt)
		assert.NoError(t, adj.CheckInvariant())
	})

	t.Run("allows reaching exactly zero", func(t *testing.T) {
		in := validInput()
		in.QuantityAdjusted = -10
		adj, err := NewStockAdjustment(in, now)
		require.NoError(t, err)
		assert.Equal(t, int64(0), adj.QuantityAfter)
	})

	t.Run("rejects negative result", func(t *testing.T) {
		in := validInput()
		in.AdjustmentType = AdjustmentTypeLoss
		in.QuantityAdjusted = -11
		_, err := NewStockAdjustment(in, now)
		assert.ErrorIs(t, err, shared.ErrNegativeStockRejected)
	})

	t.Run("rejects invalid fields", func(t *testing.T) {
		cases := map[string]func(*NewStockAdjustmentInput){
			"missing product":   func(in *NewStockAdjustmentInput) { in.ProductID = 0 },
			"bad variation":     func(in *NewStockAdjustmentInput) { v := int64(-1); in.VariationID = &v },
			"unknown type":      func(in *NewStockAdjustmentInput) { in.AdjustmentType = "gift" },
			"zero delta":        func(in *NewStockAdjustmentInput) { in.QuantityAdjusted = 0 },
			"negative baseline": func(in *NewStockAdjustmentInput) { in.QuantityBefore = -1 },
			"blank reason":      func(in *NewStockAdjustmentInput) { in.Reason = "  " },
		}
		for name, mutate := range cases {
			t.Run(name, func(t *testing.T) {
				in := validInput()
				mutate(&in)
				_, err := NewStockAdjustment(in, now)
				assert.True(t, shared.IsCode(err, shared.CodeValidation), "got %v", err)
			})
		}
	})
}

func TestStockAdjustment_CheckInvariant(t *testing.T) {
	adj := &StockAdjustment{QuantityBefore: 5, QuantityAdjusted: 2, QuantityAfter: 8}
	assert.Error(t, adj.CheckInvariant())

	adj.QuantityAfter = 7
	assert.NoError(t, adj.CheckInvariant())
}
