package rows

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/smetalab/estimate-engine/pkg/llm"
	"github.com/smetalab/estimate-engine/pkg/models"
	"github.com/smetalab/estimate-engine/pkg/prompts"
)

func sampleRows() []prompts.RowSample {
	return []prompts.RowSample{
		{ID: 4, Text: "Раздел 1. Земляные работы"},
		{ID: 5, Text: "Разработка грунта экскаватором"},
		{ID: 6, Text: "Итого по разделу 1"},
		{ID: 7, Text: "Составил: Иванов"},
	}
}

func TestClassify(t *testing.T) {
	mock := llm.NewMockChatClient()
	mock.GenerateResponseFunc = func(ctx context.Context, prompt, system string, temperature float64) (*llm.ChatResult, error) {
		return &llm.ChatResult{Content: `{"ID4": "SECTION", "ID5": "ITEM", "ID6": "summary", "ID7": "IGNORE"}`}, nil
	}

	c := NewClassifier(mock, 0, 0.1, zap.NewNop())
	result := c.Classify(context.Background(), sampleRows())

	assert.Equal(t, models.RowTypeSection, result[4])
	assert.Equal(t, models.RowTypeItem, result[5])
	assert.Equal(t, models.RowTypeSummary, result[6], "type values are case-insensitive")
	assert.Equal(t, models.RowTypeIgnore, result[7])
}

func TestClassify_StripsKeyVariants(t *testing.T) {
	mock := llm.NewMockChatClient()
	mock.GenerateResponseFunc = func(ctx context.Context, prompt, system string, temperature float64) (*llm.ChatResult, error) {
		// Models sometimes drop the prefix or change its case.
		return &llm.ChatResult{Content: `{"id4": "SECTION", "5": "ITEM"}`}, nil
	}

	c := NewClassifier(mock, 0, 0.1, zap.NewNop())
	result := c.Classify(context.Background(), sampleRows())

	assert.Equal(t, models.RowTypeSection, result[4])
	assert.Equal(t, models.RowTypeItem, result[5])
}

func TestClassify_UnknownKeysAndTypesDropped(t *testing.T) {
	mock := llm.NewMockChatClient()
	mock.GenerateResponseFunc = func(ctx context.Context, prompt, system string, temperature float64) (*llm.ChatResult, error) {
		return &llm.ChatResult{Content: `{"ID4": "HEADING", "ID99": "ITEM", "not-a-key": "ITEM"}`}, nil
	}

	c := NewClassifier(mock, 0, 0.1, zap.NewNop())
	result := c.Classify(context.Background(), sampleRows())
	assert.Empty(t, result)
}

func TestClassify_ProviderFailureDegradesToEmpty(t *testing.T) {
	mock := llm.NewMockChatClient()
	mock.GenerateResponseFunc = func(ctx context.Context, prompt, system string, temperature float64) (*llm.ChatResult, error) {
		return nil, errors.New("provider down")
	}

	c := NewClassifier(mock, 0, 0.1, zap.NewNop())
	result := c.Classify(context.Background(), sampleRows())
	assert.Empty(t, result, "callers default unclassified rows to IGNORE")
}

func TestClassify_BatchChunking(t *testing.T) {
	var batchSizes []int
	mock := llm.NewMockChatClient()
	mock.GenerateResponseFunc = func(ctx context.Context, prompt, system string, temperature float64) (*llm.ChatResult, error) {
		batchSizes = append(batchSizes, strings.Count(prompt, "\nID"))
		return &llm.ChatResult{Content: `{}`}, nil
	}

	var samples []prompts.RowSample
	for i := 1; i <= 25; i++ {
		samples = append(samples, prompts.RowSample{ID: i, Text: fmt.Sprintf("row %d", i)})
	}

	c := NewClassifier(mock, 10, 0.1, zap.NewNop())
	c.Classify(context.Background(), samples)

	require.Equal(t, 3, mock.GenerateResponseCalls)
	assert.Equal(t, []int{10, 10, 5}, batchSizes)
}

func TestClassify_PromptContainsDisambiguationRule(t *testing.T) {
	mock := llm.NewMockChatClient()
	mock.GenerateResponseFunc = func(ctx context.Context, prompt, system string, temperature float64) (*llm.ChatResult, error) {
		return &llm.ChatResult{Content: `{}`}, nil
	}

	c := NewClassifier(mock, 0, 0.1, zap.NewNop())
	c.Classify(context.Background(), sampleRows())

	require.Len(t, mock.Prompts, 1)
	// Aggregate labels inside a section must not fragment it.
	assert.Contains(t, mock.Prompts[0], "occurring inside a section")
}
