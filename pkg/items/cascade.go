package items

import (
	"context"

	"go.uber.org/zap"

	"github.com/smetalab/estimate-engine/pkg/models"
)

// LocalConfidenceThreshold is the escalation cutoff: a local result at or
// above it is accepted without an AI call.
const LocalConfidenceThreshold = 0.8

// DefaultBatchSize caps how many escalated items share one AI call.
const DefaultBatchSize = 50

// Cascade runs the local strategies in order and escalates only
// low-confidence items to the AI strategy.
type Cascade struct {
	locals    []LocalStrategy
	ai        *AIStrategy
	batchSize int
	logger    *zap.Logger
}

// NewCascade creates the classification cascade with the standard local
// strategy order: code patterns first, dictionary second.
func NewCascade(locals []LocalStrategy, ai *AIStrategy, batchSize int, logger *zap.Logger) *Cascade {
	if batchSize < 1 {
		batchSize = DefaultBatchSize
	}
	return &Cascade{
		locals:    locals,
		ai:        ai,
		batchSize: batchSize,
		logger:    logger.Named("item-cascade"),
	}
}

// ClassifyAll classifies every input item and returns exactly one result per
// item, in input order. Items are never dropped: when both the local
// strategies and the AI pass fail, the item gets the default fallback
// category with low confidence.
func (c *Cascade) ClassifyAll(ctx context.Context, inputs []ItemInput) []models.ClassificationResult {
	results := make([]models.ClassificationResult, len(inputs))

	// Local pass: keep the highest-confidence local result per item.
	var escalated []ItemInput
	escalatedPos := make(map[int]int) // item index -> position in results
	for i, item := range inputs {
		best, found := c.bestLocalResult(item)
		if found && best.Confidence >= LocalConfidenceThreshold {
			results[i] = best
			continue
		}
		// Retain the local result as fallback in case the AI pass fails.
		if found {
			results[i] = best
		} else {
			results[i] = models.ClassificationResult{
				Category:   DefaultCategory,
				Confidence: 0.1,
				Source:     models.SourceDefaultFallback,
			}
		}
		escalated = append(escalated, item)
		escalatedPos[item.Index] = i
	}

	if len(escalated) == 0 || c.ai == nil {
		return results
	}

	// AI pass: one call per chunk; AI results override the local fallback
	// for the hard cases it was invoked for.
	for start := 0; start < len(escalated); start += c.batchSize {
		end := start + c.batchSize
		if end > len(escalated) {
			end = len(escalated)
		}
		chunk := escalated[start:end]

		aiResults, err := c.ai.ClassifyBatch(ctx, chunk)
		if err != nil {
			c.logger.Warn("AI classification failed, keeping local fallbacks",
				zap.Int("items", len(chunk)),
				zap.Error(err))
			continue
		}
		for index, result := range aiResults {
			if pos, ok := escalatedPos[index]; ok {
				results[pos] = result
			}
		}
	}

	return results
}

func (c *Cascade) bestLocalResult(item ItemInput) (models.ClassificationResult, bool) {
	var best models.ClassificationResult
	found := false
	for _, strategy := range c.locals {
		result, ok := strategy.Classify(item)
		if !ok {
			continue
		}
		if !found || result.Confidence > best.Confidence {
			best = result
			found = true
		}
	}
	return best, found
}
