// Package header finds the column-header row of an estimate worksheet using
// an ensemble of independent heuristics.
package header

import (
	"regexp"
	"strings"

	"github.com/smetalab/estimate-engine/pkg/models"
	"github.com/smetalab/estimate-engine/pkg/worksheet"
)

// ScanContext carries shared state the detectors score against.
type ScanContext struct {
	Sheet      worksheet.Sheet
	Columns    []string
	ScanWindow int // number of leading rows examined
	MaxFilled  int // most filled cells seen on any row in the window
}

// Detector proposes and scores header-row candidates. Implementations are
// registered with the ensemble in a fixed order.
type Detector interface {
	Name() string
	Weight() float64

	// DetectCandidates flags rows that could be the header row.
	DetectCandidates(sctx *ScanContext) []models.HeaderCandidate

	// ScoreCandidate scores a flagged row in [0,1].
	ScoreCandidate(c models.HeaderCandidate, sctx *ScanContext) float64
}

// headerKeywords are tokens that commonly appear in estimate header rows,
// Russian estimating tools first.
var headerKeywords = []string{
	"наименование", "ед.изм", "ед. изм", "единица", "измерен",
	"кол-во", "колич", "цена", "стоимость", "сумма", "расценк",
	"обоснование", "шифр", "затрат", "№ п/п", "п/п", "номер",
	"name", "unit", "quantity", "qty", "price", "cost", "total", "amount", "code",
}

var numericCellPattern = regexp.MustCompile(`^-?[\d\s]+([.,]\d+)?$`)

func isNumericCell(v string) bool {
	v = strings.TrimSpace(v)
	if v == "" {
		return false
	}
	return numericCellPattern.MatchString(v)
}

func normalizeCell(v string) string {
	return strings.ToLower(strings.TrimSpace(v))
}

func matchesKeyword(v string) bool {
	n := normalizeCell(v)
	if n == "" {
		return false
	}
	for _, kw := range headerKeywords {
		if strings.Contains(n, kw) {
			return true
		}
	}
	return false
}

func filledCells(sctx *ScanContext, row int) map[string]string {
	values := make(map[string]string)
	for _, col := range sctx.Columns {
		if v := strings.TrimSpace(sctx.Sheet.CellValue(row, col)); v != "" {
			values[col] = v
		}
	}
	return values
}

func newCandidate(row int, values map[string]string) models.HeaderCandidate {
	return models.HeaderCandidate{
		Row:            row,
		DetectorScores: make(map[string]float64),
		RawValues:      values,
		FilledColumns:  len(values),
	}
}

// KeywordDetector flags rows where several cells contain known header tokens.
type KeywordDetector struct{}

func (d *KeywordDetector) Name() string    { return "keyword" }
func (d *KeywordDetector) Weight() float64 { return 1.0 }

func (d *KeywordDetector) DetectCandidates(sctx *ScanContext) []models.HeaderCandidate {
	var out []models.HeaderCandidate
	for row := 1; row <= sctx.ScanWindow; row++ {
		values := filledCells(sctx, row)
		matches := 0
		for _, v := range values {
			if matchesKeyword(v) {
				matches++
			}
		}
		if matches >= 2 {
			out = append(out, newCandidate(row, values))
		}
	}
	return out
}

func (d *KeywordDetector) ScoreCandidate(c models.HeaderCandidate, sctx *ScanContext) float64 {
	if c.FilledColumns == 0 {
		return 0
	}
	matches := 0
	for _, v := range c.RawValues {
		if matchesKeyword(v) {
			matches++
		}
	}
	return float64(matches) / float64(c.FilledColumns)
}

// FilledColumnsDetector flags wide, textual rows: header rows label most
// columns and contain words, not numbers.
type FilledColumnsDetector struct{}

func (d *FilledColumnsDetector) Name() string    { return "filled_columns" }
func (d *FilledColumnsDetector) Weight() float64 { return 0.8 }

func (d *FilledColumnsDetector) DetectCandidates(sctx *ScanContext) []models.HeaderCandidate {
	var out []models.HeaderCandidate
	for row := 1; row <= sctx.ScanWindow; row++ {
		values := filledCells(sctx, row)
		if len(values) < 3 {
			continue
		}
		numeric := 0
		for _, v := range values {
			if isNumericCell(v) {
				numeric++
			}
		}
		// A header row is mostly text; one numeric cell is tolerated
		// (numbered column captions like "1", "2").
		if numeric*2 < len(values) {
			out = append(out, newCandidate(row, values))
		}
	}
	return out
}

func (d *FilledColumnsDetector) ScoreCandidate(c models.HeaderCandidate, sctx *ScanContext) float64 {
	if sctx.MaxFilled == 0 {
		return 0
	}
	score := float64(c.FilledColumns) / float64(sctx.MaxFilled)
	if score > 1 {
		score = 1
	}
	return score
}

// DataTransitionDetector flags textual rows that sit directly above
// numeric-dense rows: the header usually borders the data region.
type DataTransitionDetector struct{}

func (d *DataTransitionDetector) Name() string    { return "data_transition" }
func (d *DataTransitionDetector) Weight() float64 { return 0.6 }

func (d *DataTransitionDetector) DetectCandidates(sctx *ScanContext) []models.HeaderCandidate {
	var out []models.HeaderCandidate
	for row := 1; row <= sctx.ScanWindow; row++ {
		values := filledCells(sctx, row)
		if len(values) < 2 {
			continue
		}
		textual := true
		for _, v := range values {
			if isNumericCell(v) {
				textual = false
				break
			}
		}
		if textual && d.numericDensity(sctx, row+1) > 0 {
			out = append(out, newCandidate(row, values))
		}
	}
	return out
}

func (d *DataTransitionDetector) ScoreCandidate(c models.HeaderCandidate, sctx *ScanContext) float64 {
	// Average numeric density of the three rows below the candidate.
	var sum float64
	for row := c.Row + 1; row <= c.Row+3; row++ {
		sum += d.numericDensity(sctx, row)
	}
	score := sum / 3
	if score > 1 {
		score = 1
	}
	return score
}

func (d *DataTransitionDetector) numericDensity(sctx *ScanContext, row int) float64 {
	if row > sctx.Sheet.MaxRow() {
		return 0
	}
	values := filledCells(sctx, row)
	if len(values) == 0 {
		return 0
	}
	numeric := 0
	for _, v := range values {
		if isNumericCell(v) {
			numeric++
		}
	}
	return float64(numeric) / float64(len(values))
}
