// Package mapping assigns semantic roles to worksheet columns using one LLM
// call over the header text and a few sample rows.
package mapping

import (
	"context"
	"encoding/json"
	"strings"

	"go.uber.org/zap"

	"github.com/smetalab/estimate-engine/pkg/jsonutil"
	"github.com/smetalab/estimate-engine/pkg/llm"
	"github.com/smetalab/estimate-engine/pkg/models"
	"github.com/smetalab/estimate-engine/pkg/prompts"
	"github.com/smetalab/estimate-engine/pkg/worksheet"
)

const sampleRowCount = 3

const mappingSystemMessage = "You map spreadsheet columns of construction cost estimates to semantic roles. Return ONLY the requested JSON."

// Mapper infers column roles from header text and sample data.
type Mapper struct {
	client      llm.ChatClient
	temperature float64
	logger      *zap.Logger
}

// NewMapper creates a column role mapper.
func NewMapper(client llm.ChatClient, temperature float64, logger *zap.Logger) *Mapper {
	return &Mapper{
		client:      client,
		temperature: temperature,
		logger:      logger.Named("column-mapper"),
	}
}

// rawAssignment tolerates confidences returned as strings or numbers.
type rawAssignment struct {
	Column     string          `json:"column"`
	Confidence json.RawMessage `json:"confidence"`
}

type mappingResponse struct {
	Roles       map[string]rawAssignment `json:"roles"`
	Suggestions string                   `json:"suggestions"`
}

// MapColumns returns the role→column assignment for the sheet. It never
// returns an error: any provider or parse failure degrades to an empty map
// (confidence 0 everywhere), so callers only need to check role presence.
func (m *Mapper) MapColumns(ctx context.Context, sheet worksheet.Sheet, headerRow int) models.ColumnRoleMap {
	headers, samples := collectContext(sheet, headerRow)
	if len(headers) == 0 {
		return models.ColumnRoleMap{}
	}

	prompt := prompts.BuildColumnMappingPrompt(headers, samples)
	result, err := m.client.GenerateResponse(ctx, prompt, mappingSystemMessage, m.temperature)
	if err != nil {
		m.logger.Warn("column mapping call failed, using empty mapping", zap.Error(err))
		return models.ColumnRoleMap{}
	}

	parsed, err := llm.ParseJSONResponse[mappingResponse](result.Content)
	if err != nil {
		m.logger.Warn("column mapping response unparseable, using empty mapping", zap.Error(err))
		return models.ColumnRoleMap{}
	}

	roleMap := make(models.ColumnRoleMap, len(parsed.Roles))
	for name, raw := range parsed.Roles {
		role, ok := knownRole(name)
		if !ok {
			continue
		}
		col := strings.ToUpper(strings.TrimSpace(raw.Column))
		if col == "" {
			continue
		}
		conf := jsonutil.FlexibleFloatValue(raw.Confidence)
		if conf < 0 {
			conf = 0
		} else if conf > 1 {
			conf = 1
		}
		roleMap[role] = models.RoleAssignment{Column: col, Confidence: conf}
	}

	m.logger.Info("columns mapped",
		zap.Int("roles", len(roleMap)),
		zap.String("suggestions", parsed.Suggestions))

	return roleMap
}

func knownRole(name string) (models.ColumnRole, bool) {
	n := models.ColumnRole(strings.ToLower(strings.TrimSpace(name)))
	for _, r := range models.KnownRoles {
		if r == n {
			return r, true
		}
	}
	return "", false
}

// collectContext gathers header text per column and up to sampleRowCount
// non-empty data rows below the header.
func collectContext(sheet worksheet.Sheet, headerRow int) ([]prompts.ColumnHeader, []map[string]string) {
	columns := worksheet.ColumnLetters(sheet.HighestColumn())

	var headers []prompts.ColumnHeader
	for _, col := range columns {
		text := strings.TrimSpace(sheet.CellValue(headerRow, col))
		headers = append(headers, prompts.ColumnHeader{Column: col, Text: text})
	}

	var samples []map[string]string
	for row := headerRow + 1; row <= sheet.MaxRow() && len(samples) < sampleRowCount; row++ {
		values := worksheet.RowValues(sheet, row, columns)
		filled := false
		for _, v := range values {
			if strings.TrimSpace(v) != "" {
				filled = true
				break
			}
		}
		if filled {
			samples = append(samples, values)
		}
	}

	return headers, samples
}
