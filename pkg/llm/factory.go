package llm

import (
	"fmt"

	"go.uber.org/zap"
)

// NewClient constructs a ChatClient for the configured provider.
func NewClient(cfg *Config, logger *zap.Logger) (ChatClient, error) {
	switch cfg.Provider {
	case "", "openai":
		return NewOpenAIClient(cfg, logger)
	case "anthropic":
		return NewAnthropicClient(cfg, logger)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}
