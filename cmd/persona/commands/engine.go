// ABOUTME: Shared wiring from configuration to storage, ingestor, and session processor
// ABOUTME: Every data command opens one engine and closes it when done
package commands

import (
	"fmt"

	"github.com/harper/persona/internal/config"
	"github.com/harper/persona/internal/core"
	"github.com/harper/persona/internal/llm"
	"github.com/harper/persona/internal/metrics"
	"github.com/harper/persona/internal/storage/sqlite"
)

type engine struct {
	cfg      *config.Config
	store    *sqlite.Storage
	ingestor *core.Ingestor
	metrics  *metrics.Recorder
}

func openEngine() (*engine, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	path := dbPath
	if path == "" {
		path = cfg.DBPath
	}

	var store *sqlite.Storage
	if path == "" {
		store, err = sqlite.NewStorage()
	} else {
		store, err = sqlite.NewStorageWithPath(path)
	}
	if err != nil {
		return nil, fmt.Errorf("initializing storage: %w", err)
	}

	rec := metrics.New()
	ingestor := core.NewIngestor(store, core.IngestorOptions{
		Mode:        core.WriteMode(cfg.WriteMode),
		Logger:      logger,
		Metrics:     rec,
		Parallelism: cfg.IngestParallelism,
	})

	return &engine{cfg: cfg, store: store, ingestor: ingestor, metrics: rec}, nil
}

// synthesizer returns nil when no API key is configured
func (e *engine) synthesizer() core.Synthesizer {
	if !e.cfg.HasOpenAI() {
		return nil
	}
	client, err := llm.NewOpenAIClientWithConfig(&llm.ClientConfig{
		APIKey:     e.cfg.OpenAIKey,
		ChatModel:  e.cfg.ChatModel,
		Timeout:    e.cfg.Timeout,
		MaxRetries: e.cfg.MaxRetries,
		RetryDelay: e.cfg.RetryDelay,
		Logger:     logger,
	})
	if err != nil {
		logger.Warn("OpenAI client unavailable; synthesis disabled")
		return nil
	}
	return client
}

func (e *engine) processor() *core.SessionProcessor {
	return core.NewSessionProcessor(e.ingestor, e.store, e.synthesizer(), e.cfg.InsightConfidence, logger, e.metrics)
}

func (e *engine) Close() error {
	return e.store.Close()
}
