package config

import (
	"fmt"
	"os"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for estimate-engine.
// Configuration can come from a YAML file (config.yaml) or environment
// variables; environment variables override YAML values. Secrets (API keys)
// must only come from environment variables.
type Config struct {
	Env string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`

	AI       AIConfig       `yaml:"ai"`
	Pipeline PipelineConfig `yaml:"pipeline"`
}

// AIConfig holds the LLM provider settings shared by every AI-assisted stage.
type AIConfig struct {
	// Provider selects the backend: "openai" (any OpenAI-compatible
	// endpoint) or "anthropic".
	Provider string `yaml:"provider" env:"AI_PROVIDER" env-default:"openai"`
	Endpoint string `yaml:"endpoint" env:"AI_ENDPOINT" env-default:"https://api.openai.com/v1"`
	Model    string `yaml:"model" env:"AI_MODEL" env-default:"gpt-4o-mini"`
	APIKey   string `yaml:"-" env:"AI_API_KEY"` // Secret - not in YAML

	// Temperature for all classification calls. Low by default: we want
	// stable labels, not creativity.
	Temperature float64 `yaml:"temperature" env:"AI_TEMPERATURE" env-default:"0.1"`
}

// PipelineConfig holds tuning knobs for the import pipeline.
type PipelineConfig struct {
	// HeaderScanWindow is how many leading rows are scanned for the header.
	HeaderScanWindow int `yaml:"header_scan_window" env:"HEADER_SCAN_WINDOW" env-default:"50"`

	// RowBatchSize caps how many rows go into one classification request.
	RowBatchSize int `yaml:"row_batch_size" env:"ROW_BATCH_SIZE" env-default:"200"`

	// ItemBatchSize caps how many escalated items go into one AI call.
	ItemBatchSize int `yaml:"item_batch_size" env:"ITEM_BATCH_SIZE" env-default:"50"`

	// DictionaryPath optionally points to a YAML category dictionary that
	// replaces the built-in one.
	DictionaryPath string `yaml:"dictionary_path" env:"DICTIONARY_PATH" env-default:""`
}

// Load reads configuration from the given YAML file (if it exists) and the
// environment.
func Load(path string) (*Config, error) {
	var cfg Config

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := cleanenv.ReadConfig(path, &cfg); err != nil {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
			return &cfg, nil
		}
	}

	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("read env config: %w", err)
	}
	return &cfg, nil
}
