package items

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/smetalab/estimate-engine/pkg/llm"
	"github.com/smetalab/estimate-engine/pkg/models"
)

func newTestCascade(client llm.ChatClient, batchSize int) *Cascade {
	locals := []LocalStrategy{&CodePatternStrategy{}, NewDictionaryStrategy()}
	var ai *AIStrategy
	if client != nil {
		ai = NewAIStrategy(client, 0.1, zap.NewNop())
	}
	return NewCascade(locals, ai, batchSize, zap.NewNop())
}

func TestCascade_HighConfidenceLocalSkipsAI(t *testing.T) {
	mock := llm.NewMockChatClient()
	c := newTestCascade(mock, 0)

	// Normative code prefix: confidence 0.95, above the escalation cutoff.
	results := c.ClassifyAll(context.Background(), []ItemInput{
		{Index: 4, Code: "ФЕР01-01-001-01", Name: "Разработка грунта"},
	})

	require.Len(t, results, 1)
	assert.Equal(t, "work", results[0].Category)
	assert.Equal(t, models.SourceRegex, results[0].Source)
	assert.Zero(t, mock.GenerateResponseCalls, "confident local result must not trigger an AI call")
}

func TestCascade_LowConfidenceEscalatesAndAIOverrides(t *testing.T) {
	mock := llm.NewMockChatClient()
	mock.GenerateResponseFunc = func(ctx context.Context, prompt, system string, temperature float64) (*llm.ChatResult, error) {
		return &llm.ChatResult{Content: `{"ID4": {"category": "material", "confidence": 0.9}}`}, nil
	}
	c := newTestCascade(mock, 0)

	// Single dictionary term: confidence 0.6, below the cutoff.
	results := c.ClassifyAll(context.Background(), []ItemInput{
		{Index: 4, Name: "Бетон М200"},
	})

	require.Len(t, results, 1)
	assert.Equal(t, 1, mock.GenerateResponseCalls)
	assert.Equal(t, "material", results[0].Category)
	assert.Equal(t, models.SourceAI, results[0].Source, "AI result overrides the local fallback")
	assert.InDelta(t, 0.9, results[0].Confidence, 0.001)
}

func TestCascade_AIFailureKeepsLocalFallback(t *testing.T) {
	mock := llm.NewMockChatClient()
	mock.GenerateResponseFunc = func(ctx context.Context, prompt, system string, temperature float64) (*llm.ChatResult, error) {
		return nil, errors.New("provider down")
	}
	c := newTestCascade(mock, 0)

	results := c.ClassifyAll(context.Background(), []ItemInput{
		{Index: 4, Name: "Бетон М200"},
	})

	require.Len(t, results, 1)
	assert.Equal(t, "material", results[0].Category)
	assert.Equal(t, models.SourceDictionary, results[0].Source)
}

func TestCascade_NoItemLost(t *testing.T) {
	// Every strategy fails: AI errors, and the names match nothing local.
	mock := llm.NewMockChatClient()
	mock.GenerateResponseFunc = func(ctx context.Context, prompt, system string, temperature float64) (*llm.ChatResult, error) {
		return nil, errors.New("provider down")
	}
	c := newTestCascade(mock, 0)

	inputs := []ItemInput{
		{Index: 4, Name: "???"},
		{Index: 5, Name: "xyzzy"},
		{Index: 6},
	}
	results := c.ClassifyAll(context.Background(), inputs)

	require.Len(t, results, len(inputs), "exactly one result per input item")
	for _, r := range results {
		assert.Equal(t, DefaultCategory, r.Category)
		assert.Equal(t, models.SourceDefaultFallback, r.Source)
		assert.InDelta(t, 0.1, r.Confidence, 0.001)
	}
}

func TestCascade_NoItemLostWithoutAI(t *testing.T) {
	c := newTestCascade(nil, 0)
	results := c.ClassifyAll(context.Background(), []ItemInput{{Index: 4, Name: "???"}})
	require.Len(t, results, 1)
	assert.Equal(t, models.SourceDefaultFallback, results[0].Source)
}

func TestCascade_EscalatedItemsBatchedInChunks(t *testing.T) {
	mock := llm.NewMockChatClient()
	mock.GenerateResponseFunc = func(ctx context.Context, prompt, system string, temperature float64) (*llm.ChatResult, error) {
		return &llm.ChatResult{Content: `{}`}, nil
	}
	c := newTestCascade(mock, 10)

	var inputs []ItemInput
	for i := 1; i <= 25; i++ {
		inputs = append(inputs, ItemInput{Index: i, Name: fmt.Sprintf("item %d", i)})
	}
	c.ClassifyAll(context.Background(), inputs)

	assert.Equal(t, 3, mock.GenerateResponseCalls, "25 escalated items at chunk size 10 means 3 calls")
}

func TestCascade_MixedBatchOnlyEscalatesAmbiguous(t *testing.T) {
	mock := llm.NewMockChatClient()
	mock.GenerateResponseFunc = func(ctx context.Context, prompt, system string, temperature float64) (*llm.ChatResult, error) {
		assert.NotContains(t, prompt, "ФССЦ-204", "confident items must not be sent to the AI")
		return &llm.ChatResult{Content: `{"ID5": {"category": "work", "confidence": 0.8}}`}, nil
	}
	c := newTestCascade(mock, 0)

	results := c.ClassifyAll(context.Background(), []ItemInput{
		{Index: 4, Code: "ФССЦ-204-0021", Name: "Горячекатаная арматурная сталь"},
		{Index: 5, Name: "Прочие работы"},
	})

	require.Len(t, results, 2)
	assert.Equal(t, "material", results[0].Category)
	assert.Equal(t, models.SourceRegex, results[0].Source)
	assert.Equal(t, "work", results[1].Category)
	assert.Equal(t, models.SourceAI, results[1].Source)
	assert.Equal(t, 1, mock.GenerateResponseCalls)
}

func TestCodePatternStrategy(t *testing.T) {
	s := &CodePatternStrategy{}

	tests := []struct {
		code     string
		category string
		match    bool
	}{
		{"ФЕР01-01-001-01", "work", true},
		{"ГЭСН 08-02-001", "work", true},
		{"ФССЦ-204-0021", "material", true},
		{"ФСЭМ 91.05.01", "equipment", true},
		{"тер12-01-015", "work", true},
		{"", "", false},
		{"12345", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			result, ok := s.Classify(ItemInput{Code: tt.code})
			assert.Equal(t, tt.match, ok)
			if tt.match {
				assert.Equal(t, tt.category, result.Category)
				assert.GreaterOrEqual(t, result.Confidence, LocalConfidenceThreshold)
			}
		})
	}
}

func TestDictionaryStrategy(t *testing.T) {
	s := NewDictionaryStrategy()

	t.Run("single term is medium confidence", func(t *testing.T) {
		result, ok := s.Classify(ItemInput{Name: "Бетон М200"})
		require.True(t, ok)
		assert.Equal(t, "material", result.Category)
		assert.Less(t, result.Confidence, LocalConfidenceThreshold)
	})

	t.Run("two terms push confidence above cutoff", func(t *testing.T) {
		result, ok := s.Classify(ItemInput{Name: "Перевозка и доставка грунта"})
		require.True(t, ok)
		assert.Equal(t, "transport", result.Category)
		assert.GreaterOrEqual(t, result.Confidence, LocalConfidenceThreshold)
	})

	t.Run("no match", func(t *testing.T) {
		_, ok := s.Classify(ItemInput{Name: "xyzzy"})
		assert.False(t, ok)
	})

	t.Run("empty name", func(t *testing.T) {
		_, ok := s.Classify(ItemInput{})
		assert.False(t, ok)
	})
}

func TestAIStrategy_ToleratesNonStringScalars(t *testing.T) {
	mock := llm.NewMockChatClient()
	mock.GenerateResponseFunc = func(ctx context.Context, prompt, system string, temperature float64) (*llm.ChatResult, error) {
		// One item with a numeric category must not poison the whole batch.
		return &llm.ChatResult{Content: `{
			"ID4": {"category": 3, "confidence": 0.9},
			"ID5": {"category": "material", "confidence": "0.9"}
		}`}, nil
	}
	ai := NewAIStrategy(mock, 0.1, zap.NewNop())

	results, err := ai.ClassifyBatch(context.Background(), []ItemInput{
		{Index: 4, Name: "первый"},
		{Index: 5, Name: "второй"},
	})
	require.NoError(t, err)

	_, ok := results[4]
	assert.False(t, ok, "unusable category is dropped, not an error")

	got, ok := results[5]
	require.True(t, ok)
	assert.Equal(t, "material", got.Category)
	assert.InDelta(t, 0.9, got.Confidence, 0.001)
}

func TestDictionaryStrategy_TieIsDeterministic(t *testing.T) {
	s := NewDictionaryStrategy()

	// One work term ("монтаж") and one material term ("кирпич") match, so
	// the tie must resolve the same way on every run.
	for i := 0; i < 20; i++ {
		result, ok := s.Classify(ItemInput{Name: "Монтаж кирпича"})
		require.True(t, ok)
		assert.Equal(t, "material", result.Category)
	}
}

func TestDictionaryStrategyFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dictionary.yaml")
	require.NoError(t, os.WriteFile(path, []byte("material:\n  - фанера\n"), 0o600))

	s, err := NewDictionaryStrategyFromFile(path)
	require.NoError(t, err)

	result, ok := s.Classify(ItemInput{Name: "Фанера ламинированная"})
	require.True(t, ok)
	assert.Equal(t, "material", result.Category)

	_, ok = s.Classify(ItemInput{Name: "Бетон М200"})
	assert.False(t, ok, "a file dictionary replaces the built-in one")

	t.Run("missing file", func(t *testing.T) {
		_, err := NewDictionaryStrategyFromFile(filepath.Join(dir, "nope.yaml"))
		assert.Error(t, err)
	})

	t.Run("empty dictionary", func(t *testing.T) {
		empty := filepath.Join(dir, "empty.yaml")
		require.NoError(t, os.WriteFile(empty, []byte("{}\n"), 0o600))
		_, err := NewDictionaryStrategyFromFile(empty)
		assert.Error(t, err)
	})
}
