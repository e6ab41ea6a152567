// Package price decides which of two stacked numbers in a price cell is the
// authoritative current price.
package price

import (
	"context"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/smetalab/estimate-engine/pkg/llm"
	"github.com/smetalab/estimate-engine/pkg/models"
	"github.com/smetalab/estimate-engine/pkg/prompts"
	"github.com/smetalab/estimate-engine/pkg/worksheet"
)

const strategySystemMessage = "You disambiguate two-number price cells in construction estimates. Answer with exactly one word: TOP, BOTTOM or MAX."

// maxSamples bounds how many raw cells are shown to the model.
const maxSamples = 5

// SplitPriceCell splits a cell holding two stacked numbers. ok is false when
// the cell holds fewer than two parseable numbers.
func SplitPriceCell(raw string) (top, bottom string, ok bool) {
	parts := strings.Split(strings.ReplaceAll(raw, "\r\n", "\n"), "\n")
	var numbers []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if _, isNum := worksheet.ParseNumber(p); isNum {
			numbers = append(numbers, p)
		}
	}
	if len(numbers) < 2 {
		return "", "", false
	}
	return numbers[0], numbers[1], true
}

// Resolver decides the price strategy for one import. The decision is made
// once per sheet and cached for the remainder of the import.
type Resolver struct {
	client      llm.ChatClient
	temperature float64
	logger      *zap.Logger

	once     sync.Once
	decision models.PriceStrategy
}

// NewResolver creates a price strategy resolver. One resolver per import job.
func NewResolver(client llm.ChatClient, temperature float64, logger *zap.Logger) *Resolver {
	return &Resolver{
		client:      client,
		temperature: temperature,
		logger:      logger.Named("price-resolver"),
	}
}

// DetectStrategy picks TOP, BOTTOM or MAX for the sheet's price cells.
// Unrecognized or empty responses and provider errors fall back to MAX:
// current prices are virtually always greater than historical base prices, so
// the larger number is the safest default. The first decision is cached.
func (r *Resolver) DetectStrategy(ctx context.Context, samples []string, headers []string) models.PriceStrategy {
	r.once.Do(func() {
		r.decision = r.detect(ctx, samples, headers)
		r.logger.Info("price strategy decided", zap.String("strategy", string(r.decision)))
	})
	return r.decision
}

func (r *Resolver) detect(ctx context.Context, samples []string, headers []string) models.PriceStrategy {
	if len(samples) == 0 {
		return models.PriceStrategyMax
	}
	if len(samples) > maxSamples {
		samples = samples[:maxSamples]
	}

	prompt := prompts.BuildPriceStrategyPrompt(samples, headers)
	resp, err := r.client.GenerateResponse(ctx, prompt, strategySystemMessage, r.temperature)
	if err != nil {
		r.logger.Warn("price strategy call failed, falling back to MAX", zap.Error(err))
		return models.PriceStrategyMax
	}

	answer := strings.ToUpper(resp.Content)
	switch {
	case strings.Contains(answer, string(models.PriceStrategyTop)) && !strings.Contains(answer, string(models.PriceStrategyBottom)):
		return models.PriceStrategyTop
	case strings.Contains(answer, string(models.PriceStrategyBottom)):
		return models.PriceStrategyBottom
	case strings.Contains(answer, string(models.PriceStrategyMax)):
		return models.PriceStrategyMax
	default:
		r.logger.Warn("price strategy response unrecognized, falling back to MAX",
			zap.String("response", resp.Content))
		return models.PriceStrategyMax
	}
}

// Apply extracts the authoritative price from a cell using the given
// strategy. Single-number cells pass through unchanged.
func Apply(strategy models.PriceStrategy, raw string) (decimal.Decimal, bool) {
	top, bottom, split := SplitPriceCell(raw)
	if !split {
		return worksheet.ParseNumber(raw)
	}

	topNum, _ := worksheet.ParseNumber(top)
	bottomNum, _ := worksheet.ParseNumber(bottom)

	switch strategy {
	case models.PriceStrategyTop:
		return topNum, true
	case models.PriceStrategyBottom:
		return bottomNum, true
	default: // MAX
		if topNum.GreaterThan(bottomNum) {
			return topNum, true
		}
		return bottomNum, true
	}
}
