// ABOUTME: Main entry point for the persona MCP server with stdio transport
// ABOUTME: Wires configuration, storage, ingestor, and session processing into the MCP tools
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/harper/persona/internal/config"
	"github.com/harper/persona/internal/core"
	"github.com/harper/persona/internal/llm"
	"github.com/harper/persona/internal/logging"
	"github.com/harper/persona/internal/mcp"
	"github.com/harper/persona/internal/metrics"
	"github.com/harper/persona/internal/storage/sqlite"
)

// Version information (set by goreleaser)
var version = "dev"

const (
	scribeWorkers = 2
	scribeQueue   = 64
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load .env file if it exists (for API keys)
	_ = godotenv.Load()

	logger, err := logging.New(false, false)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	var store *sqlite.Storage
	if cfg.DBPath != "" {
		store, err = sqlite.NewStorageWithPath(cfg.DBPath)
	} else {
		store, err = sqlite.NewStorage()
	}
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer func() { _ = store.Close() }()

	rec := metrics.New()
	ingestor := core.NewIngestor(store, core.IngestorOptions{
		Mode:        core.WriteMode(cfg.WriteMode),
		Logger:      logger,
		Metrics:     rec,
		Parallelism: cfg.IngestParallelism,
	})

	var synth core.Synthesizer
	if cfg.HasOpenAI() {
		client, err := llm.NewOpenAIClientWithConfig(&llm.ClientConfig{
			APIKey:     cfg.OpenAIKey,
			ChatModel:  cfg.ChatModel,
			Timeout:    cfg.Timeout,
			MaxRetries: cfg.MaxRetries,
			RetryDelay: cfg.RetryDelay,
			Logger:     logger,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize OpenAI client: %w", err)
		}
		synth = client
	} else {
		logger.Warn("OPENAI_API_KEY not set; sessions without synthesis text resolve to defaults")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.MetricsAddr != "" {
		go func() {
			if err := rec.Serve(ctx, cfg.MetricsAddr); err != nil {
				logger.Error("metrics endpoint failed", zap.Error(err))
			}
		}()
	}

	processor := core.NewSessionProcessor(ingestor, store, synth, cfg.InsightConfidence, logger, rec)
	server, handlers := mcp.NewServer(version, mcp.Options{
		Store:         store,
		Ingestor:      ingestor,
		Processor:     processor,
		Scribe:        core.NewScribe(processor, scribeWorkers, scribeQueue, logger),
		TimelineLimit: cfg.TimelineLimit,
		Logger:        logger,
	})

	logger.Info("persona MCP server starting on stdio", zap.String("db", store.DB().Path()))
	return mcp.ServeStdio(ctx, server, handlers)
}
