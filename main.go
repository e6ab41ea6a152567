package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/smetalab/estimate-engine/pkg/config"
	"github.com/smetalab/estimate-engine/pkg/llm"
	"github.com/smetalab/estimate-engine/pkg/pipeline"
	"github.com/smetalab/estimate-engine/pkg/worksheet"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	sheetName := flag.String("sheet", "", "sheet name (default: first sheet)")
	timeout := flag.Duration("timeout", 5*time.Minute, "import timeout")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "usage: estimate-engine [flags] <estimate.xlsx>\n")
		flag.PrintDefaults()
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := newLogger(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	client, err := llm.NewClient(&llm.Config{
		Provider: cfg.AI.Provider,
		Endpoint: cfg.AI.Endpoint,
		Model:    cfg.AI.Model,
		APIKey:   cfg.AI.APIKey,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to create LLM client", zap.Error(err))
	}

	sheet, err := worksheet.OpenSheet(flag.Arg(0), *sheetName)
	if err != nil {
		logger.Fatal("Failed to open workbook", zap.Error(err))
	}

	p, err := pipeline.New(client, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to build pipeline", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	result, err := p.Import(ctx, sheet)
	if err != nil {
		logger.Fatal("Import failed", zap.Error(err))
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		logger.Fatal("Failed to encode result", zap.Error(err))
	}
	fmt.Println(string(out))
}

func newLogger(env string) (*zap.Logger, error) {
	if env == "local" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
