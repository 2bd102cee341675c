// Package mcpserver exposes the Frontdesk tool suite over the Model Context
// Protocol, so an external voice runtime can drive the booking conversation
// while this process keeps the session state.
//
// Every tool accepts an optional turn_id argument naming the user utterance
// the call belongs to. Runtimes that pass the same turn_id for all tool calls
// triggered by one utterance get the full shared-turn semantics, in
// particular the refusal to confirm a value captured in the same utterance.
// Calls without a turn_id fall back to a fresh turn identity per request.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/MrWong99/frontdesk/internal/capture"
	"github.com/MrWong99/frontdesk/internal/tools"
)

// Server bridges a tool suite onto an MCP stdio server.
type Server struct {
	srv *mcp.Server
}

// New creates an MCP server exposing the given tools.
//
// Errors are prefixed with "mcpserver: ".
func New(name, version string, toolset []tools.Tool) (*Server, error) {
	srv := mcp.NewServer(&mcp.Implementation{Name: name, Version: version}, nil)

	for _, t := range toolset {
		schema, err := toSchema(withTurnID(t.Definition.Parameters))
		if err != nil {
			return nil, fmt.Errorf("mcpserver: schema for tool %q: %w", t.Definition.Name, err)
		}
		srv.AddTool(&mcp.Tool{
			Name:        t.Definition.Name,
			Description: t.Definition.Description,
			InputSchema: schema,
		}, callHandler(t.Handler))
	}

	return &Server{srv: srv}, nil
}

// Run serves MCP over stdin/stdout until ctx is cancelled or the transport
// closes.
func (s *Server) Run(ctx context.Context) error {
	if err := s.srv.Run(ctx, &mcp.StdioTransport{}); err != nil {
		return fmt.Errorf("mcpserver: %w", err)
	}
	return nil
}

// callHandler adapts a tool handler to the MCP calling convention. Handler
// errors become in-band tool errors, never protocol errors, so the runtime's
// model can read them and adjust course.
func callHandler(h func(ctx context.Context, args string) (string, error)) mcp.ToolHandler {
	return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := "{}"
		if len(req.Params.Arguments) > 0 {
			args = string(req.Params.Arguments)
		}
		ctx = capture.ContextWithTurn(ctx, turnOf(args))

		result, err := h(ctx, args)
		if err != nil {
			return &mcp.CallToolResult{
				IsError: true,
				Content: []mcp.Content{&mcp.TextContent{Text: err.Error()}},
			}, nil
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: result}},
		}, nil
	}
}

// turnOf resolves the turn identity for one tool call: the client-supplied
// turn_id when present, a fresh per-request identity otherwise.
func turnOf(args string) capture.TurnID {
	var a struct {
		TurnID string `json:"turn_id"`
	}
	if err := json.Unmarshal([]byte(args), &a); err == nil && a.TurnID != "" {
		return capture.TurnID("client:" + a.TurnID)
	}
	return capture.NextTurn()
}

// withTurnID copies the parameter map and adds the optional turn_id property
// every tool shares over MCP. The original map is left untouched.
func withTurnID(params map[string]any) map[string]any {
	out := make(map[string]any, len(params)+1)
	for k, v := range params {
		out[k] = v
	}
	if out["type"] == nil {
		out["type"] = "object"
	}
	props := make(map[string]any)
	if existing, ok := out["properties"].(map[string]any); ok {
		for k, v := range existing {
			props[k] = v
		}
	}
	props["turn_id"] = map[string]any{
		"type":        "string",
		"description": "Identifier of the user utterance this call belongs to. Pass the same value for every tool call triggered by one utterance.",
	}
	out["properties"] = props
	return out
}

// toSchema converts the LLM-facing parameter map into a jsonschema.Schema.
func toSchema(params map[string]any) (*jsonschema.Schema, error) {
	if params == nil {
		params = map[string]any{"type": "object"}
	}
	raw, err := json.Marshal(params)
	if err != nil {
		return nil, err
	}
	var schema jsonschema.Schema
	if err := json.Unmarshal(raw, &schema); err != nil {
		return nil, err
	}
	return &schema, nil
}
