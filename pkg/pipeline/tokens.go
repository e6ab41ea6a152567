package pipeline

import (
	"context"
	"sync/atomic"

	"github.com/smetalab/estimate-engine/pkg/llm"
)

// countingClient wraps a ChatClient and totals token usage across the calls
// every stage makes, for per-import observability.
type countingClient struct {
	inner  llm.ChatClient
	tokens atomic.Int64
}

func (c *countingClient) GenerateResponse(ctx context.Context, prompt string, systemMessage string, temperature float64) (*llm.ChatResult, error) {
	result, err := c.inner.GenerateResponse(ctx, prompt, systemMessage, temperature)
	if result != nil {
		c.tokens.Add(int64(result.TotalTokens))
	}
	return result, err
}

func (c *countingClient) GetModel() string {
	return c.inner.GetModel()
}

// Total returns the tokens consumed so far.
func (c *countingClient) Total() int {
	return int(c.tokens.Load())
}

var _ llm.ChatClient = (*countingClient)(nil)
