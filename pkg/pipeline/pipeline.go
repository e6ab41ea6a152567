// Package pipeline orchestrates the estimate import: header detection, column
// mapping, row classification, item classification, price disambiguation and
// calculation validation, in that order.
package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/smetalab/estimate-engine/pkg/config"
	"github.com/smetalab/estimate-engine/pkg/header"
	"github.com/smetalab/estimate-engine/pkg/items"
	"github.com/smetalab/estimate-engine/pkg/llm"
	"github.com/smetalab/estimate-engine/pkg/mapping"
	"github.com/smetalab/estimate-engine/pkg/models"
	"github.com/smetalab/estimate-engine/pkg/price"
	"github.com/smetalab/estimate-engine/pkg/prompts"
	"github.com/smetalab/estimate-engine/pkg/rows"
	"github.com/smetalab/estimate-engine/pkg/validate"
	"github.com/smetalab/estimate-engine/pkg/worksheet"
)

// lowConfidenceWarning is the cutoff below which a category decision is
// surfaced as a data-quality warning for human review.
const lowConfidenceWarning = 0.5

// ImportResult is the pipeline's sole output contract: normalized items plus
// the chosen column mapping and row types, ready for the persistence layer.
type ImportResult struct {
	JobID         uuid.UUID                 `json:"job_id"`
	HeaderRow     int                       `json:"header_row"`
	RunnerUpRows  []int                     `json:"runner_up_rows,omitempty"`
	Roles         models.ColumnRoleMap      `json:"roles"`
	Structure     mapping.StructureAnalysis `json:"structure"`
	Rows          []models.RawRow           `json:"rows"`
	Items         []models.NormalizedItem   `json:"items"`
	PriceStrategy models.PriceStrategy      `json:"price_strategy"`
	Corrections   int                       `json:"corrections"`
	TokensUsed    int                       `json:"tokens_used"`
}

// Pipeline converts raw worksheets into normalized estimates. It holds no
// per-import state: every intermediate object is local to one Import call, so
// concurrent imports need no coordination beyond the stateless chat client.
type Pipeline struct {
	client      llm.ChatClient
	cfg         config.PipelineConfig
	temperature float64
	logger      *zap.Logger

	locals    []items.LocalStrategy
	ensemble  *header.Ensemble
	validator *validate.Validator
}

// New constructs the pipeline with explicit dependencies. The chat client is
// passed in rather than resolved from ambient state so tests can inject a
// mock.
func New(client llm.ChatClient, cfg *config.Config, logger *zap.Logger) (*Pipeline, error) {
	locals := []items.LocalStrategy{&items.CodePatternStrategy{}}
	if cfg.Pipeline.DictionaryPath != "" {
		dict, err := items.NewDictionaryStrategyFromFile(cfg.Pipeline.DictionaryPath)
		if err != nil {
			return nil, fmt.Errorf("load dictionary: %w", err)
		}
		locals = append(locals, dict)
	} else {
		locals = append(locals, items.NewDictionaryStrategy())
	}

	return &Pipeline{
		client:      client,
		cfg:         cfg.Pipeline,
		temperature: cfg.AI.Temperature,
		logger:      logger.Named("pipeline"),
		locals:      locals,
		ensemble:    header.NewEnsemble(cfg.Pipeline.HeaderScanWindow, logger),
		validator:   validate.NewValidator(logger),
	}, nil
}

// Import converts one worksheet into a normalized estimate. It returns an
// error only for structural failures (no detectable header, empty sheet);
// every provider failure degrades per stage with a documented default.
func (p *Pipeline) Import(ctx context.Context, sheet worksheet.Sheet) (*ImportResult, error) {
	jobID := uuid.New()
	logger := p.logger.With(zap.String("job_id", jobID.String()))

	// Per-import instances: token accounting and the cached price strategy
	// must not leak across jobs.
	counted := &countingClient{inner: p.client}
	mapper := mapping.NewMapper(counted, p.temperature, logger)
	classifier := rows.NewClassifier(counted, p.cfg.RowBatchSize, p.temperature, logger)
	cascade := items.NewCascade(p.locals,
		items.NewAIStrategy(counted, p.temperature, logger),
		p.cfg.ItemBatchSize, logger)
	resolver := price.NewResolver(counted, p.temperature, logger)

	detection, err := p.ensemble.Detect(sheet)
	if err != nil {
		return nil, err
	}
	headerRow := detection.Best.Candidate.Row

	roles := mapper.MapColumns(ctx, sheet, headerRow)
	structure := mapper.AnalyzeStructure(ctx, sheet, headerRow)

	columns := worksheet.ColumnLetters(sheet.HighestColumn())
	rawRows := collectDataRows(sheet, headerRow, columns)

	samples := make([]prompts.RowSample, len(rawRows))
	for i, r := range rawRows {
		samples[i] = prompts.RowSample{ID: r.Index, Text: r.FirstNonEmptyCell(columns)}
	}
	rowTypes := classifier.Classify(ctx, samples)
	for i := range rawRows {
		if t, ok := rowTypes[rawRows[i].Index]; ok {
			rawRows[i].Type = t
		} else {
			// Deliberate policy: unclassified rows are ignored rather than
			// guessed, so a failed batch cannot corrupt the estimate.
			rawRows[i].Type = models.RowTypeIgnore
		}
	}

	strategy := p.resolvePriceStrategy(ctx, resolver, sheet, headerRow, roles, rawRows)
	normalized := p.normalizeItems(ctx, cascade, rawRows, roles, strategy)

	totalDerived := false
	if totalCol, ok := roles.Column(models.RoleTotalPrice); ok {
		totalDerived = structure.IsComputed(totalCol)
	}
	normalized, corrections := p.validator.ValidateItems(normalized, totalDerived)

	runnerUps := make([]int, 0, len(detection.RunnerUps))
	for _, r := range detection.RunnerUps {
		runnerUps = append(runnerUps, r.Candidate.Row)
	}

	result := &ImportResult{
		JobID:         jobID,
		HeaderRow:     headerRow,
		RunnerUpRows:  runnerUps,
		Roles:         roles,
		Structure:     structure,
		Rows:          rawRows,
		Items:         normalized,
		PriceStrategy: strategy,
		Corrections:   corrections,
		TokensUsed:    counted.Total(),
	}

	logger.Info("import completed",
		zap.Int("header_row", headerRow),
		zap.Int("rows", len(rawRows)),
		zap.Int("items", len(normalized)),
		zap.Int("corrections", corrections),
		zap.Int("tokens_used", result.TokensUsed))

	return result, nil
}

// resolvePriceStrategy samples multi-line price cells and asks the resolver
// for a single per-sheet decision. Sheets without stacked prices default to
// MAX without an AI call.
func (p *Pipeline) resolvePriceStrategy(ctx context.Context, resolver *price.Resolver, sheet worksheet.Sheet, headerRow int, roles models.ColumnRoleMap, rawRows []models.RawRow) models.PriceStrategy {
	priceCol, ok := roles.Column(models.RoleUnitPrice)
	if !ok {
		return models.PriceStrategyMax
	}

	var cellSamples []string
	for _, r := range rawRows {
		raw := r.Cells[priceCol]
		if _, _, stacked := price.SplitPriceCell(raw); stacked {
			cellSamples = append(cellSamples, raw)
		}
	}
	if len(cellSamples) == 0 {
		return models.PriceStrategyMax
	}

	var headerTexts []string
	for _, col := range worksheet.ColumnLetters(sheet.HighestColumn()) {
		if v := strings.TrimSpace(sheet.CellValue(headerRow, col)); v != "" {
			headerTexts = append(headerTexts, v)
		}
	}

	return resolver.DetectStrategy(ctx, cellSamples, headerTexts)
}

// normalizeItems turns ITEM rows into normalized items: role-addressed cell
// extraction, category classification and price disambiguation.
func (p *Pipeline) normalizeItems(ctx context.Context, cascade *items.Cascade, rawRows []models.RawRow, roles models.ColumnRoleMap, strategy models.PriceStrategy) []models.NormalizedItem {
	cell := func(r models.RawRow, role models.ColumnRole) string {
		col, ok := roles.Column(role)
		if !ok {
			return ""
		}
		return strings.TrimSpace(r.Cells[col])
	}

	var itemRows []models.RawRow
	var inputs []items.ItemInput
	for _, r := range rawRows {
		if r.Type != models.RowTypeItem {
			continue
		}
		itemRows = append(itemRows, r)
		inputs = append(inputs, items.ItemInput{
			Index: r.Index,
			Code:  cell(r, models.RoleCode),
			Name:  cell(r, models.RoleName),
			Unit:  cell(r, models.RoleUnit),
		})
	}

	classifications := cascade.ClassifyAll(ctx, inputs)

	normalized := make([]models.NormalizedItem, len(itemRows))
	for i, r := range itemRows {
		c := classifications[i]
		item := models.NormalizedItem{
			Code:           inputs[i].Code,
			Name:           inputs[i].Name,
			Unit:           inputs[i].Unit,
			Category:       c.Category,
			CategorySource: c.Source,
			Confidence:     c.Confidence,
		}
		if c.Confidence < lowConfidenceWarning {
			item.Warnings = append(item.Warnings, fmt.Sprintf(
				"low-confidence category %q (%.2f, source %s)", c.Category, c.Confidence, c.Source))
		}

		if q, ok := worksheet.ParseNumber(cell(r, models.RoleQuantity)); ok {
			item.Quantity = decimal.NewNullDecimal(q)
		}
		if priceCol, ok := roles.Column(models.RoleUnitPrice); ok {
			if v, ok := price.Apply(strategy, r.Cells[priceCol]); ok {
				item.UnitPrice = decimal.NewNullDecimal(v)
			}
		}
		if t, ok := worksheet.ParseNumber(cell(r, models.RoleTotalPrice)); ok {
			item.TotalAmount = decimal.NewNullDecimal(t)
		}

		normalized[i] = item
	}

	return normalized
}

// collectDataRows reads every non-empty row below the header.
func collectDataRows(sheet worksheet.Sheet, headerRow int, columns []string) []models.RawRow {
	var out []models.RawRow
	for row := headerRow + 1; row <= sheet.MaxRow(); row++ {
		values := worksheet.RowValues(sheet, row, columns)
		filled := false
		for _, v := range values {
			if strings.TrimSpace(v) != "" {
				filled = true
				break
			}
		}
		if !filled {
			continue
		}
		out = append(out, models.RawRow{Index: row, Cells: values, Type: models.RowTypeIgnore})
	}
	return out
}
