package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/liushuangls/go-anthropic/v2"
	"go.uber.org/zap"

	"github.com/smetalab/estimate-engine/pkg/retry"
)

// AnthropicClient provides access to the Anthropic Messages API.
type AnthropicClient struct {
	client    *anthropic.Client
	model     string
	maxTokens int
	logger    *zap.Logger
}

// NewAnthropicClient creates a chat client backed by Anthropic.
func NewAnthropicClient(cfg *Config, logger *zap.Logger) (*AnthropicClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("api key is required")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("model is required")
	}

	return &AnthropicClient{
		client:    anthropic.NewClient(cfg.APIKey),
		model:     cfg.Model,
		maxTokens: 4096,
		logger:    logger.Named("llm"),
	}, nil
}

// GenerateResponse implements ChatClient.
func (c *AnthropicClient) GenerateResponse(ctx context.Context, prompt string, systemMessage string, temperature float64) (*ChatResult, error) {
	c.logger.Debug("LLM request",
		zap.String("model", c.model),
		zap.Int("prompt_len", len(prompt)),
		zap.Float64("temperature", temperature))

	start := time.Now()
	temp := float32(temperature)

	resp, err := retry.DoWithResult(ctx, nil, func() (anthropic.MessagesResponse, error) {
		resp, err := c.client.CreateMessages(ctx, anthropic.MessagesRequest{
			Model:     anthropic.Model(c.model),
			MaxTokens: c.maxTokens,
			System:    systemMessage,
			Messages: []anthropic.Message{
				anthropic.NewUserTextMessage(prompt),
			},
			Temperature: &temp,
		})
		if err != nil {
			return resp, ClassifyError(err)
		}
		return resp, nil
	})
	if err != nil {
		c.logger.Error("LLM request failed",
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return nil, err
	}

	content := ""
	for _, block := range resp.Content {
		if block.Type == anthropic.MessagesContentTypeText && block.Text != nil {
			content = *block.Text
			break
		}
	}
	if content == "" {
		return nil, fmt.Errorf("no text content in response")
	}

	c.logger.Info("LLM request completed",
		zap.Int("prompt_tokens", resp.Usage.InputTokens),
		zap.Int("completion_tokens", resp.Usage.OutputTokens),
		zap.Duration("elapsed", time.Since(start)))

	return &ChatResult{
		Content:          content,
		PromptTokens:     resp.Usage.InputTokens,
		CompletionTokens: resp.Usage.OutputTokens,
		TotalTokens:      resp.Usage.InputTokens + resp.Usage.OutputTokens,
	}, nil
}

// GetModel implements ChatClient.
func (c *AnthropicClient) GetModel() string {
	return c.model
}
