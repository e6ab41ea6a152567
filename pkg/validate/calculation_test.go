package validate

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/smetalab/estimate-engine/pkg/models"
)

func num(s string) decimal.NullDecimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return decimal.NewNullDecimal(d)
}

func TestValidateItems_CorrectsMismatch(t *testing.T) {
	v := NewValidator(zap.NewNop())

	items, corrections := v.ValidateItems([]models.NormalizedItem{
		{
			Name:        "Устройство фундамента",
			Quantity:    num("10"),
			UnitPrice:   num("5000"),
			TotalAmount: num("45000"),
		},
	}, false)

	assert.Equal(t, 1, corrections)
	item := items[0]
	assert.Equal(t, "50000", item.TotalAmount.Decimal.String())
	assert.True(t, item.HasMathMismatch)
	require.Len(t, item.Warnings, 1)
	assert.Contains(t, item.Warnings[0], "45000.00")
	assert.Contains(t, item.Warnings[0], "50000.00")
}

func TestValidateItems_WithinToleranceUntouched(t *testing.T) {
	v := NewValidator(zap.NewNop())

	items, corrections := v.ValidateItems([]models.NormalizedItem{
		{Quantity: num("3"), UnitPrice: num("33.333"), TotalAmount: num("100")},
	}, false)

	assert.Zero(t, corrections)
	assert.Equal(t, "100", items[0].TotalAmount.Decimal.String())
	assert.False(t, items[0].HasMathMismatch)
	assert.Empty(t, items[0].Warnings)
}

func TestValidateItems_Idempotent(t *testing.T) {
	v := NewValidator(zap.NewNop())

	items, corrections := v.ValidateItems([]models.NormalizedItem{
		{Quantity: num("10"), UnitPrice: num("5000"), TotalAmount: num("45000")},
	}, false)
	require.Equal(t, 1, corrections)
	require.True(t, items[0].HasMathMismatch)

	// Second pass over the corrected output must be a no-op.
	items, corrections = v.ValidateItems(items, false)
	assert.Zero(t, corrections)
	assert.False(t, items[0].HasMathMismatch, "flag reflects the current pass, not history")
	assert.Equal(t, "50000", items[0].TotalAmount.Decimal.String())
	assert.Len(t, items[0].Warnings, 1, "the original warning stays on record")
}

func TestValidateItems_FillsMissingTotal(t *testing.T) {
	v := NewValidator(zap.NewNop())

	items, corrections := v.ValidateItems([]models.NormalizedItem{
		{Quantity: num("2.5"), UnitPrice: num("1200.40")},
	}, false)

	assert.Equal(t, 1, corrections)
	require.True(t, items[0].TotalAmount.Valid)
	assert.Equal(t, "3001", items[0].TotalAmount.Decimal.String())
	assert.False(t, items[0].HasMathMismatch, "filling a null total is not a mismatch")
	assert.Empty(t, items[0].Warnings)
}

func TestValidateItems_SkipsUnevaluable(t *testing.T) {
	v := NewValidator(zap.NewNop())

	items, corrections := v.ValidateItems([]models.NormalizedItem{
		{Name: "no quantity", UnitPrice: num("100"), TotalAmount: num("777")},
		{Name: "no price", Quantity: num("5"), TotalAmount: num("777")},
		{Name: "nothing at all"},
	}, false)

	assert.Zero(t, corrections)
	for _, item := range items {
		assert.False(t, item.HasMathMismatch)
	}
	assert.Equal(t, "777", items[0].TotalAmount.Decimal.String())
}

func TestValidateItems_RoundsToCents(t *testing.T) {
	v := NewValidator(zap.NewNop())

	items, corrections := v.ValidateItems([]models.NormalizedItem{
		{Quantity: num("3"), UnitPrice: num("33.333"), TotalAmount: num("250")},
	}, false)

	assert.Equal(t, 1, corrections)
	assert.Equal(t, "100", items[0].TotalAmount.Decimal.String())
	assert.True(t, items[0].HasMathMismatch)
}

func TestValidateItems_FormulaDerivedColumn(t *testing.T) {
	v := NewValidator(zap.NewNop())

	items, corrections := v.ValidateItems([]models.NormalizedItem{
		{Quantity: num("10"), UnitPrice: num("5000"), TotalAmount: num("45000")},
		{Quantity: num("2"), UnitPrice: num("3000"), TotalAmount: num("6000")},
	}, true)

	assert.Equal(t, 1, corrections)

	corrected := items[0]
	assert.True(t, corrected.HasMathMismatch)
	require.Len(t, corrected.Warnings, 2)
	assert.Contains(t, corrected.Warnings[1], "formula-derived")

	// Totals that already match their inputs get no derived-column warning.
	assert.Empty(t, items[1].Warnings)
}
