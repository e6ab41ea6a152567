package mapping

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/smetalab/estimate-engine/pkg/llm"
	"github.com/smetalab/estimate-engine/pkg/prompts"
	"github.com/smetalab/estimate-engine/pkg/worksheet"
)

const structureSystemMessage = "You analyze spreadsheet structure and identify formula-derived columns. Return ONLY the requested JSON."

// ComputedColumn describes a column the model believes is derived from other
// columns.
type ComputedColumn struct {
	TargetColumn string `json:"target_column"`
	Formula      string `json:"formula"`
	Description  string `json:"description"`
}

// StructureAnalysis is the result of the computed-column analysis. An empty
// analysis is valid and means "treat every column as source data".
type StructureAnalysis struct {
	ComputedColumns []ComputedColumn `json:"computed_columns"`
}

// IsComputed reports whether the given column was identified as
// formula-derived.
func (a StructureAnalysis) IsComputed(column string) bool {
	for _, c := range a.ComputedColumns {
		if strings.EqualFold(c.TargetColumn, column) {
			return true
		}
	}
	return false
}

// AnalyzeStructure asks which columns are computed rather than source data.
// Same degradation contract as MapColumns: failures return an empty analysis,
// never an error.
func (m *Mapper) AnalyzeStructure(ctx context.Context, sheet worksheet.Sheet, headerRow int) StructureAnalysis {
	headers, samples := collectContext(sheet, headerRow)
	if len(headers) == 0 {
		return StructureAnalysis{}
	}

	prompt := prompts.BuildStructureAnalysisPrompt(headers, samples)
	result, err := m.client.GenerateResponse(ctx, prompt, structureSystemMessage, m.temperature)
	if err != nil {
		m.logger.Warn("structure analysis call failed, assuming no computed columns", zap.Error(err))
		return StructureAnalysis{}
	}

	parsed, err := llm.ParseJSONResponse[StructureAnalysis](result.Content)
	if err != nil {
		m.logger.Warn("structure analysis response unparseable, assuming no computed columns", zap.Error(err))
		return StructureAnalysis{}
	}

	// Drop entries without a target column; they cannot be acted on.
	kept := parsed.ComputedColumns[:0]
	for _, c := range parsed.ComputedColumns {
		c.TargetColumn = strings.ToUpper(strings.TrimSpace(c.TargetColumn))
		if c.TargetColumn != "" {
			kept = append(kept, c)
		}
	}
	parsed.ComputedColumns = kept

	return parsed
}
