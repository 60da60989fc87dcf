// ABOUTME: MCP command starts the Model Context Protocol server
// ABOUTME: Lets LLM agents ingest batches and read personas via stdio
package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/harper/persona/internal/core"
	"github.com/harper/persona/internal/mcp"
)

var (
	mcpWorkers    int
	mcpQueueDepth int
)

// NewMCPCmd creates the MCP command
func NewMCPCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start MCP server for LLM agents",
		Long: `Start MCP server for LLM agents

Runs persona as an MCP (Model Context Protocol) server so LLM agents
can ingest extraction batches, process finished sessions, and read
personas, history, and timelines via stdio.

Logs go to stderr; stdout carries only protocol messages.`,
		RunE: runMCP,
		Example: `  # Start MCP server (typically called by an MCP client)
  persona mcp

  # Configure in claude_desktop_config.json:
  # {
  #   "mcpServers": {
  #     "persona": {
  #       "command": "persona",
  #       "args": ["mcp"]
  #     }
  #   }
  # }`,
	}

	cmd.Flags().IntVar(&mcpWorkers, "workers", 2, "Background session workers")
	cmd.Flags().IntVar(&mcpQueueDepth, "queue", 64, "Background session queue depth")

	return cmd
}

func runMCP(cmd *cobra.Command, args []string) error {
	eng, err := openEngine()
	if err != nil {
		return err
	}
	defer func() {
		if err := eng.Close(); err != nil {
			logger.Warn("error closing storage", zap.Error(err))
		}
	}()

	if !eng.cfg.HasOpenAI() {
		logger.Warn("OPENAI_API_KEY not set; sessions without synthesis text resolve to defaults")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if eng.cfg.MetricsAddr != "" {
		go func() {
			if err := eng.metrics.Serve(ctx, eng.cfg.MetricsAddr); err != nil {
				logger.Error("metrics endpoint failed", zap.Error(err))
			}
		}()
	}

	processor := eng.processor()
	server, handlers := mcp.NewServer(versionInfo.Version, mcp.Options{
		Store:         eng.store,
		Ingestor:      eng.ingestor,
		Processor:     processor,
		Scribe:        core.NewScribe(processor, mcpWorkers, mcpQueueDepth, logger),
		TimelineLimit: eng.cfg.TimelineLimit,
		Logger:        logger,
	})

	logger.Info("persona MCP server starting on stdio")
	if err := mcp.ServeStdio(ctx, server, handlers); err != nil {
		return err
	}
	logger.Info("shutdown complete")
	return nil
}
