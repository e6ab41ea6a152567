// Package rows labels every worksheet row as a section heading, a line item,
// a summary, or noise, using batched LLM calls.
package rows

import (
	"context"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/smetalab/estimate-engine/pkg/llm"
	"github.com/smetalab/estimate-engine/pkg/models"
	"github.com/smetalab/estimate-engine/pkg/prompts"
)

// DefaultBatchSize caps how many rows go into one classification request so
// very large sheets cannot blow the provider's token limit.
const DefaultBatchSize = 200

const classifySystemMessage = "You classify rows of construction estimate spreadsheets. Return ONLY the requested JSON."

// Classifier assigns a RowType to each row of a sheet.
type Classifier struct {
	client      llm.ChatClient
	batchSize   int
	temperature float64
	logger      *zap.Logger
}

// NewClassifier creates a row classifier.
func NewClassifier(client llm.ChatClient, batchSize int, temperature float64, logger *zap.Logger) *Classifier {
	if batchSize < 1 {
		batchSize = DefaultBatchSize
	}
	return &Classifier{
		client:      client,
		batchSize:   batchSize,
		temperature: temperature,
		logger:      logger.Named("row-classifier"),
	}
}

// Classify labels the given rows. The result maps row index to type; rows
// absent from the result were not classified and callers must default them to
// IGNORE. Provider or parse failures degrade each affected batch to empty.
func (c *Classifier) Classify(ctx context.Context, samples []prompts.RowSample) map[int]models.RowType {
	result := make(map[int]models.RowType, len(samples))

	for start := 0; start < len(samples); start += c.batchSize {
		end := start + c.batchSize
		if end > len(samples) {
			end = len(samples)
		}
		for index, rowType := range c.classifyBatch(ctx, samples[start:end]) {
			result[index] = rowType
		}
	}

	return result
}

func (c *Classifier) classifyBatch(ctx context.Context, batch []prompts.RowSample) map[int]models.RowType {
	if len(batch) == 0 {
		return nil
	}

	prompt := prompts.BuildRowClassificationPrompt(batch)
	resp, err := c.client.GenerateResponse(ctx, prompt, classifySystemMessage, c.temperature)
	if err != nil {
		c.logger.Warn("row classification call failed, batch degrades to unclassified",
			zap.Int("rows", len(batch)),
			zap.Error(err))
		return nil
	}

	parsed, err := llm.ParseJSONResponse[map[string]string](resp.Content)
	if err != nil {
		c.logger.Warn("row classification response unparseable, batch degrades to unclassified",
			zap.Int("rows", len(batch)),
			zap.Error(err))
		return nil
	}

	known := make(map[int]struct{}, len(batch))
	for _, s := range batch {
		known[s.ID] = struct{}{}
	}

	result := make(map[int]models.RowType, len(parsed))
	for key, value := range parsed {
		index, ok := parseRowKey(key)
		if !ok {
			continue
		}
		if _, ok := known[index]; !ok {
			continue
		}
		rowType, ok := parseRowType(value)
		if !ok {
			continue
		}
		result[index] = rowType
	}

	c.logger.Debug("row batch classified",
		zap.Int("rows", len(batch)),
		zap.Int("classified", len(result)))

	return result
}

// parseRowKey strips the synthetic "ID" prefix and returns the original row
// index.
func parseRowKey(key string) (int, bool) {
	key = strings.TrimSpace(key)
	key = strings.TrimPrefix(strings.ToUpper(key), "ID")
	index, err := strconv.Atoi(key)
	if err != nil || index < 1 {
		return 0, false
	}
	return index, true
}

func parseRowType(value string) (models.RowType, bool) {
	switch models.RowType(strings.ToUpper(strings.TrimSpace(value))) {
	case models.RowTypeSection:
		return models.RowTypeSection, true
	case models.RowTypeItem:
		return models.RowTypeItem, true
	case models.RowTypeSummary:
		return models.RowTypeSummary, true
	case models.RowTypeIgnore:
		return models.RowTypeIgnore, true
	}
	return "", false
}
