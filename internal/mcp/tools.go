// ABOUTME: MCP tool definitions and registration for the persona server
// ABOUTME: Declares JSON schemas for ingest, persona, history, timeline, and session tools
package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

// RegisterTools registers all MCP tools with the server
func RegisterTools(server *mcpserver.MCPServer, opts Options) *Handlers {
	handlers := NewHandlers(opts)

	clientID := map[string]interface{}{
		"type":        "string",
		"description": "Client whose persona is read or updated",
	}

	// 1. ingest_batch - apply one session's extracted field updates
	server.AddTool(mcp.Tool{
		Name:        "ingest_batch",
		Description: "Apply an extraction batch to a client's persona. The batch is validated as a whole; scalar fields are replaced only by strictly higher confidence, set fields grow by union.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"client_id": clientID,
				"session_id": map[string]interface{}{
					"type":        "string",
					"description": "Session the updates were extracted from",
				},
				"items": map[string]interface{}{
					"type":        "array",
					"description": "Proposed updates: {field, value, confidence}. value is a string for scalar fields and an array of strings for set fields.",
					"items": map[string]interface{}{
						"type": "object",
						"properties": map[string]interface{}{
							"field":      map[string]interface{}{"type": "string"},
							"value":      map[string]interface{}{},
							"confidence": map[string]interface{}{"type": "number", "minimum": 0, "maximum": 1},
						},
						"required": []string{"field", "value", "confidence"},
					},
				},
			},
			Required: []string{"client_id", "items"},
		},
	}, handlers.IngestBatch)

	// 2. get_persona - current snapshot grouped by category
	server.AddTool(mcp.Tool{
		Name:        "get_persona",
		Description: "Get a client's current persona grouped by category, with confidence as an integer percentage.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"client_id": clientID,
			},
			Required: []string{"client_id"},
		},
	}, handlers.GetPersona)

	// 3. get_history - raw deltas, newest first
	server.AddTool(mcp.Tool{
		Name:        "get_history",
		Description: "List a client's field deltas newest first.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"client_id": clientID,
				"limit": map[string]interface{}{
					"type":        "number",
					"description": "Maximum number of deltas (default: 50, 0 for all)",
					"default":     defaultHistoryLimit,
				},
			},
			Required: []string{"client_id"},
		},
	}, handlers.GetHistory)

	// 4. get_timeline - milestone periods
	server.AddTool(mcp.Tool{
		Name:        "get_timeline",
		Description: "Group a client's deltas into milestone periods by month or by session and flag significant periods.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"client_id": clientID,
				"granularity": map[string]interface{}{
					"type":        "string",
					"enum":        []string{"month", "session"},
					"description": "Period grouping (default: month)",
					"default":     "month",
				},
			},
			Required: []string{"client_id"},
		},
	}, handlers.GetTimeline)

	// 5. process_session - resolve insights and update the persona
	server.AddTool(mcp.Tool{
		Name:        "process_session",
		Description: "Resolve a finished session's insight record from real-time analysis and synthesis text, store it, and ingest its profile lists into the persona.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"client_id": clientID,
				"session_id": map[string]interface{}{
					"type":        "string",
					"description": "Finished session id",
				},
				"transcript": map[string]interface{}{
					"type":        "array",
					"description": "Final transcript lines: {speaker, text, start_time, end_time} with times in seconds",
					"items":       map[string]interface{}{"type": "object"},
				},
				"realtime": map[string]interface{}{
					"type":        "object",
					"description": "Optional real-time analysis; present fields win over synthesis",
				},
				"synthesis_text": map[string]interface{}{
					"type":        "string",
					"description": "Optional raw synthesis text containing one JSON object",
				},
				"async": map[string]interface{}{
					"type":        "boolean",
					"description": "Queue the session for background processing instead of waiting",
					"default":     false,
				},
			},
			Required: []string{"client_id", "session_id"},
		},
	}, handlers.ProcessSession)

	return handlers
}
