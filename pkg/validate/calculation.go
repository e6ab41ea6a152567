// Package validate reconciles quantity × unit price against stored totals,
// silently repairing small or missing totals and flagging real discrepancies.
package validate

import (
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/smetalab/estimate-engine/pkg/models"
)

// Tolerance is the maximum accepted difference between a stored total and the
// recomputed one, in currency units.
var Tolerance = decimal.NewFromFloat(0.01)

// Validator recomputes and reconciles line item totals.
type Validator struct {
	logger *zap.Logger
}

// NewValidator creates a calculation validator.
func NewValidator(logger *zap.Logger) *Validator {
	return &Validator{logger: logger.Named("calc-validator")}
}

// ValidateItems verifies total = quantity × unit price for every item and
// returns the corrected items plus the number of corrections made. It never
// fails: items it cannot evaluate (missing quantity or unit price) pass
// through untouched. Whenever a non-null total is changed, the item is
// flagged and a warning explains the correction. totalDerived reports whether
// the structure analysis identified the total column as formula-derived; a
// corrected total in a derived column gets an extra warning, since the stored
// value was a stale formula result rather than a manual entry.
func (v *Validator) ValidateItems(items []models.NormalizedItem, totalDerived bool) ([]models.NormalizedItem, int) {
	corrections := 0

	for i := range items {
		item := &items[i]
		if !item.Quantity.Valid || !item.UnitPrice.Valid {
			continue
		}

		expected := item.Quantity.Decimal.Mul(item.UnitPrice.Decimal).Round(2)

		if !item.TotalAmount.Valid {
			item.TotalAmount = decimal.NewNullDecimal(expected)
			corrections++
			continue
		}

		diff := item.TotalAmount.Decimal.Sub(expected).Abs()
		if diff.LessThanOrEqual(Tolerance) {
			// The flag is recomputed each pass, so re-validating corrected
			// output reports a clean item.
			item.HasMathMismatch = false
			continue
		}

		old := item.TotalAmount.Decimal
		item.TotalAmount = decimal.NewNullDecimal(expected)
		item.HasMathMismatch = true
		item.Warnings = append(item.Warnings, fmt.Sprintf(
			"total corrected from %s to %s (quantity %s × unit price %s)",
			old.StringFixed(2), expected.StringFixed(2),
			item.Quantity.Decimal.String(), item.UnitPrice.Decimal.String()))
		if totalDerived {
			item.Warnings = append(item.Warnings,
				"total column is formula-derived; the stored value did not match its inputs")
		}
		corrections++

		v.logger.Debug("total corrected",
			zap.String("item", item.Name),
			zap.String("old", old.String()),
			zap.String("new", expected.String()))
	}

	if corrections > 0 {
		v.logger.Info("calculation validation completed", zap.Int("corrections", corrections))
	}

	return items, corrections
}
