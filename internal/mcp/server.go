// ABOUTME: Builds the persona MCP server and runs it on stdio until shutdown
// ABOUTME: Drains queued background sessions before returning
package mcp

import (
	"context"
	"fmt"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"
)

const (
	// ServerName is reported to MCP clients
	ServerName = "Persona Evolution Engine"
	// ShutdownTimeout bounds how long queued sessions may take to drain
	ShutdownTimeout = 30 * time.Second
)

// NewServer creates an MCP server with every persona tool registered
func NewServer(version string, opts Options) (*mcpserver.MCPServer, *Handlers) {
	server := mcpserver.NewMCPServer(ServerName, version)
	handlers := RegisterTools(server, opts)
	return server, handlers
}

// ServeStdio serves until ctx is cancelled or stdin closes, then drains the scribe
func ServeStdio(ctx context.Context, server *mcpserver.MCPServer, handlers *Handlers) error {
	serverErr := make(chan error, 1)
	go func() {
		serverErr <- mcpserver.ServeStdio(server)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		handlers.logger.Info("shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			runErr = fmt.Errorf("server error: %w", err)
		}
	}

	drainCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	if err := handlers.Shutdown(drainCtx); err != nil {
		handlers.logger.Warn("queued sessions abandoned", zap.Error(err))
	}
	return runErr
}
