// ABOUTME: MCP tool handler implementations for the persona server
// ABOUTME: Tool failures are reported as tool errors; only transport problems return Go errors
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"

	"github.com/harper/persona/internal/core"
	"github.com/harper/persona/internal/models"
	"github.com/harper/persona/internal/storage/sqlite"
)

const defaultHistoryLimit = 50

// Options wires the engine into the tool handlers. Processor and Scribe may be nil.
type Options struct {
	Store         *sqlite.Storage
	Ingestor      *core.Ingestor
	Processor     *core.SessionProcessor
	Scribe        *core.Scribe
	TimelineLimit int
	Logger        *zap.Logger
}

// Handlers contains the handler functions for all MCP tools
type Handlers struct {
	store         *sqlite.Storage
	ingestor      *core.Ingestor
	timeline      *core.TimelineReconstructor
	processor     *core.SessionProcessor
	scribe        *core.Scribe
	timelineLimit int
	logger        *zap.Logger
}

// NewHandlers builds handlers without registering them
func NewHandlers(opts Options) *Handlers {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{
		store:         opts.Store,
		ingestor:      opts.Ingestor,
		timeline:      core.NewTimelineReconstructor(opts.Store, logger),
		processor:     opts.Processor,
		scribe:        opts.Scribe,
		timelineLimit: opts.TimelineLimit,
		logger:        logger,
	}
}

// IngestBatch handles the ingest_batch tool
func (h *Handlers) IngestBatch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	clientID, err := request.RequireString("client_id")
	if err != nil {
		return mcp.NewToolResultError("client_id argument is required and must be a string"), nil
	}

	var items []models.ExtractionItem
	if err := decodeArgument(request, "items", &items); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid items: %v", err)), nil
	}

	batch := models.ExtractionBatch{
		ClientID:  clientID,
		SessionID: request.GetString("session_id", ""),
		Items:     items,
	}

	res, err := h.ingestor.Ingest(ctx, batch)
	if err != nil {
		var verr *models.ValidationError
		switch {
		case errors.As(err, &verr):
			return mcp.NewToolResultError(verr.Error()), nil
		case errors.Is(err, core.ErrClientBusy):
			return mcp.NewToolResultError(core.ErrClientBusy.Error()), nil
		default:
			return mcp.NewToolResultError(fmt.Sprintf("ingest failed: %v", err)), nil
		}
	}

	return jsonResult(map[string]interface{}{
		"client_id":  res.ClientID,
		"session_id": res.SessionID,
		"no_changes": res.NoChanges(),
		"deltas":     res.Deltas,
	})
}

// GetPersona handles the get_persona tool
func (h *Handlers) GetPersona(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	clientID, err := request.RequireString("client_id")
	if err != nil {
		return mcp.NewToolResultError("client_id argument is required and must be a string"), nil
	}

	snap, err := h.store.GetSnapshot(ctx, clientID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to load persona: %v", err)), nil
	}

	return jsonResult(map[string]interface{}{
		"persona": snap.View(),
	})
}

// GetHistory handles the get_history tool
func (h *Handlers) GetHistory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	clientID, err := request.RequireString("client_id")
	if err != nil {
		return mcp.NewToolResultError("client_id argument is required and must be a string"), nil
	}

	limit := request.GetInt("limit", defaultHistoryLimit)
	if limit < 0 {
		return mcp.NewToolResultError("limit must not be negative"), nil
	}

	deltas, err := h.store.ListDeltas(ctx, clientID, limit)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list history: %v", err)), nil
	}

	return jsonResult(map[string]interface{}{
		"client_id": clientID,
		"deltas":    deltas,
	})
}

// GetTimeline handles the get_timeline tool
func (h *Handlers) GetTimeline(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	clientID, err := request.RequireString("client_id")
	if err != nil {
		return mcp.NewToolResultError("client_id argument is required and must be a string"), nil
	}

	granularity := models.Granularity(request.GetString("granularity", string(models.GranularityMonth)))
	periods, err := h.timeline.Build(ctx, clientID, core.TimelineOptions{
		Granularity: granularity,
		Limit:       h.timelineLimit,
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to build timeline: %v", err)), nil
	}

	return jsonResult(map[string]interface{}{
		"client_id":   clientID,
		"granularity": granularity,
		"periods":     periods,
	})
}

// ProcessSession handles the process_session tool
func (h *Handlers) ProcessSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if h.processor == nil {
		return mcp.NewToolResultError("session processing is not configured"), nil
	}

	var in core.ResolveInput
	if err := decodeArguments(request, &in); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
	}
	if in.ClientID == "" || in.SessionID == "" {
		return mcp.NewToolResultError("client_id and session_id are required"), nil
	}

	if request.GetBool("async", false) && h.scribe != nil {
		err := h.scribe.Submit(in)
		if err == nil {
			return jsonResult(map[string]interface{}{
				"client_id":  in.ClientID,
				"session_id": in.SessionID,
				"queued":     true,
			})
		}
		// A full or closed queue falls through to inline processing.
		h.logger.Warn("scribe unavailable, processing inline",
			zap.String("session_id", in.SessionID), zap.Error(err))
	}

	res, err := h.processor.Process(ctx, in)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("session processing failed: %v", err)), nil
	}
	return jsonResult(res)
}

// Shutdown drains queued background sessions
func (h *Handlers) Shutdown(ctx context.Context) error {
	if h.scribe == nil {
		return nil
	}
	h.logger.Info("waiting for queued sessions to finish")
	if err := h.scribe.Close(ctx); err != nil {
		return fmt.Errorf("scribe did not drain: %w", err)
	}
	h.logger.Info("all queued sessions processed")
	return nil
}

func jsonResult(v interface{}) (*mcp.CallToolResult, error) {
	responseJSON, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal response: %v", err)), nil
	}
	return mcp.NewToolResultText(string(responseJSON)), nil
}

func arguments(request mcp.CallToolRequest) map[string]any {
	args, ok := request.Params.Arguments.(map[string]any)
	if !ok {
		return map[string]any{}
	}
	return args
}

// decodeArguments round-trips the raw argument map through JSON into dst
func decodeArguments(request mcp.CallToolRequest, dst interface{}) error {
	raw, err := json.Marshal(arguments(request))
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dst)
}

func decodeArgument(request mcp.CallToolRequest, key string, dst interface{}) error {
	value, ok := arguments(request)[key]
	if !ok {
		return fmt.Errorf("%s is required", key)
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dst)
}
