// Package items assigns catalog categories to estimate line items using a
// cheap-first cascade: local strategies resolve the easy cases, one batched
// AI call handles the rest.
package items

import (
	"regexp"

	"github.com/smetalab/estimate-engine/pkg/models"
)

// Categories the classifier may assign.
var Categories = []string{"work", "material", "equipment", "transport", "overhead"}

// DefaultCategory is used when every strategy fails; items are never dropped
// for lack of classification.
const DefaultCategory = "work"

// ItemInput is one line item to classify.
type ItemInput struct {
	Index int // original row index, used as the batch key
	Code  string
	Name  string
	Unit  string
}

// LocalStrategy is a deterministic classification heuristic. Classify returns
// false when the strategy has no opinion on the item.
type LocalStrategy interface {
	Name() string
	Classify(item ItemInput) (models.ClassificationResult, bool)
}

// codePattern maps a normative code prefix to a category.
type codePattern struct {
	pattern  *regexp.Regexp
	category string
}

// Russian normative code books: ГЭСН/ФЕР/ТЕР price work, ФССЦ/ТССЦ price
// materials, ФСЭМ/ТСЭМ price machine operation.
var codePatterns = []codePattern{
	{regexp.MustCompile(`(?i)^(ГЭСН|ФЕР|ТЕР|ОЕР)`), "work"},
	{regexp.MustCompile(`(?i)^(ФССЦ|ТССЦ|ССЦ)`), "material"},
	{regexp.MustCompile(`(?i)^(ФСЭМ|ТСЭМ)`), "equipment"},
	{regexp.MustCompile(`(?i)^(ФСЦП|перевозк)`), "transport"},
	{regexp.MustCompile(`(?i)^прайс`), "material"},
}

// CodePatternStrategy classifies by the item's normative code prefix. A code
// match is near-certain, so the confidence is high enough to skip the AI.
type CodePatternStrategy struct{}

func (s *CodePatternStrategy) Name() string { return models.SourceRegex }

func (s *CodePatternStrategy) Classify(item ItemInput) (models.ClassificationResult, bool) {
	if item.Code == "" {
		return models.ClassificationResult{}, false
	}
	for _, cp := range codePatterns {
		if cp.pattern.MatchString(item.Code) {
			return models.ClassificationResult{
				Category:   cp.category,
				Confidence: 0.95,
				Source:     models.SourceRegex,
			}, true
		}
	}
	return models.ClassificationResult{}, false
}
