package items

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/smetalab/estimate-engine/pkg/jsonutil"
	"github.com/smetalab/estimate-engine/pkg/llm"
	"github.com/smetalab/estimate-engine/pkg/models"
	"github.com/smetalab/estimate-engine/pkg/prompts"
)

const aiSystemMessage = "You classify construction estimate line items into catalog categories. Return ONLY the requested JSON."

// AIStrategy classifies items the local strategies could not settle. All
// escalated items of a chunk go into a single provider call.
type AIStrategy struct {
	client      llm.ChatClient
	temperature float64
	logger      *zap.Logger
}

// NewAIStrategy creates the AI fallback collaborator.
func NewAIStrategy(client llm.ChatClient, temperature float64, logger *zap.Logger) *AIStrategy {
	return &AIStrategy{
		client:      client,
		temperature: temperature,
		logger:      logger.Named("item-ai"),
	}
}

// rawClassification tolerates categories and confidences returned as any
// JSON scalar type.
type rawClassification struct {
	Category   json.RawMessage `json:"category"`
	Confidence json.RawMessage `json:"confidence"`
}

// ClassifyBatch classifies the given items in one call, keyed by item index.
// Items missing from the response are simply absent from the result; the
// cascade falls back to its retained local result for them.
func (s *AIStrategy) ClassifyBatch(ctx context.Context, batch []ItemInput) (map[int]models.ClassificationResult, error) {
	if len(batch) == 0 {
		return nil, nil
	}

	samples := make([]prompts.ItemSample, len(batch))
	for i, item := range batch {
		samples[i] = prompts.ItemSample{ID: item.Index, Code: item.Code, Name: item.Name, Unit: item.Unit}
	}

	prompt := prompts.BuildItemClassificationPrompt(samples, Categories)
	resp, err := s.client.GenerateResponse(ctx, prompt, aiSystemMessage, s.temperature)
	if err != nil {
		return nil, err
	}

	parsed, err := llm.ParseJSONResponse[map[string]rawClassification](resp.Content)
	if err != nil {
		return nil, err
	}

	result := make(map[int]models.ClassificationResult, len(parsed))
	for key, raw := range parsed {
		index, ok := parseItemKey(key)
		if !ok {
			continue
		}
		category := strings.ToLower(strings.TrimSpace(jsonutil.FlexibleStringValue(raw.Category)))
		if !validCategory(category) {
			continue
		}
		conf := jsonutil.FlexibleFloatValue(raw.Confidence)
		if conf <= 0 || conf > 1 {
			conf = 0.7
		}
		result[index] = models.ClassificationResult{
			Category:   category,
			Confidence: conf,
			Source:     models.SourceAI,
		}
	}

	s.logger.Debug("item batch classified",
		zap.Int("items", len(batch)),
		zap.Int("classified", len(result)))

	return result, nil
}

func parseItemKey(key string) (int, bool) {
	key = strings.TrimPrefix(strings.ToUpper(strings.TrimSpace(key)), "ID")
	index, err := strconv.Atoi(key)
	if err != nil {
		return 0, false
	}
	return index, true
}

func validCategory(category string) bool {
	for _, c := range Categories {
		if c == category {
			return true
		}
	}
	return false
}
