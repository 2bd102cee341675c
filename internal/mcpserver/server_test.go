package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/MrWong99/frontdesk/internal/capture"
	"github.com/MrWong99/frontdesk/internal/tools"
	"github.com/MrWong99/frontdesk/pkg/provider/llm"
)

func textOf(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if len(res.Content) != 1 {
		t.Fatalf("got %d content blocks, want 1", len(res.Content))
	}
	text, ok := res.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatalf("content is %T, want *mcp.TextContent", res.Content[0])
	}
	return text.Text
}

func TestNew_BuildsServer(t *testing.T) {
	t.Parallel()

	toolset := []tools.Tool{{
		Definition: llm.ToolDefinition{
			Name:        "list_available_slots",
			Description: "List slots.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"range": map[string]any{"type": "string"},
				},
			},
		},
		Handler: func(context.Context, string) (string, error) { return "ok", nil },
	}}

	if _, err := New("frontdesk", "test", toolset); err != nil {
		t.Fatalf("New: %v", err)
	}
}

func TestCallHandler_Success(t *testing.T) {
	t.Parallel()

	var gotArgs string
	h := callHandler(func(_ context.Context, args string) (string, error) {
		gotArgs = args
		return `{"message":"two slots available"}`, nil
	})

	req := &mcp.CallToolRequest{Params: &mcp.CallToolParamsRaw{
		Arguments: json.RawMessage(`{"range":"default"}`),
	}}
	res, err := h(context.Background(), req)
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	if res.IsError {
		t.Error("result flagged as error")
	}
	if gotArgs != `{"range":"default"}` {
		t.Errorf("args = %q", gotArgs)
	}
	if got := textOf(t, res); got != `{"message":"two slots available"}` {
		t.Errorf("text = %q", got)
	}
}

func TestCallHandler_EmptyArgumentsDefaultToObject(t *testing.T) {
	t.Parallel()

	var gotArgs string
	h := callHandler(func(_ context.Context, args string) (string, error) {
		gotArgs = args
		return "ok", nil
	})

	req := &mcp.CallToolRequest{Params: &mcp.CallToolParamsRaw{}}
	if _, err := h(context.Background(), req); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if gotArgs != "{}" {
		t.Errorf("args = %q, want empty object", gotArgs)
	}
}

func TestCallHandler_ErrorStaysInBand(t *testing.T) {
	t.Parallel()

	h := callHandler(func(context.Context, string) (string, error) {
		return "", errors.New("that slot identifier is not recognised")
	})

	req := &mcp.CallToolRequest{Params: &mcp.CallToolParamsRaw{}}
	res, err := h(context.Background(), req)
	if err != nil {
		t.Fatalf("handler returned a protocol error: %v", err)
	}
	if !res.IsError {
		t.Fatal("result not flagged as error")
	}
	if got := textOf(t, res); !strings.Contains(got, "not recognised") {
		t.Errorf("text = %q", got)
	}
}

func TestCallHandler_SharedTurnID(t *testing.T) {
	t.Parallel()

	var turns []capture.TurnID
	h := callHandler(func(ctx context.Context, _ string) (string, error) {
		turn, ok := capture.TurnFromContext(ctx)
		if !ok {
			t.Error("handler context has no turn identity")
		}
		turns = append(turns, turn)
		return "ok", nil
	})

	// Two calls carrying the same turn_id belong to one utterance and must
	// share the turn identity, so the same-utterance confirmation guard works
	// over MCP exactly like in a local session.
	for _, args := range []string{
		`{"value":"0636363636","turn_id":"utt-7"}`,
		`{"turn_id":"utt-7"}`,
	} {
		req := &mcp.CallToolRequest{Params: &mcp.CallToolParamsRaw{
			Arguments: json.RawMessage(args),
		}}
		if _, err := h(context.Background(), req); err != nil {
			t.Fatalf("handler: %v", err)
		}
	}
	if len(turns) != 2 {
		t.Fatalf("got %d turns, want 2", len(turns))
	}
	if turns[0] != turns[1] {
		t.Errorf("turns %q and %q differ, want the same identity", turns[0], turns[1])
	}

	// A different turn_id is a different utterance.
	req := &mcp.CallToolRequest{Params: &mcp.CallToolParamsRaw{
		Arguments: json.RawMessage(`{"turn_id":"utt-8"}`),
	}}
	if _, err := h(context.Background(), req); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if turns[2] == turns[0] {
		t.Errorf("turn %q reused across utterances", turns[2])
	}
}

func TestCallHandler_FallsBackToPerRequestTurns(t *testing.T) {
	t.Parallel()

	var turns []capture.TurnID
	h := callHandler(func(ctx context.Context, _ string) (string, error) {
		turn, ok := capture.TurnFromContext(ctx)
		if !ok {
			t.Error("handler context has no turn identity")
		}
		turns = append(turns, turn)
		return "ok", nil
	})

	req := &mcp.CallToolRequest{Params: &mcp.CallToolParamsRaw{}}
	for range 2 {
		if _, err := h(context.Background(), req); err != nil {
			t.Fatalf("handler: %v", err)
		}
	}
	if len(turns) == 2 && turns[0] == turns[1] {
		t.Errorf("both requests share turn %q, want distinct turns", turns[0])
	}
}

func TestWithTurnID_AugmentsSchema(t *testing.T) {
	t.Parallel()

	params := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"value": map[string]any{"type": "string"},
		},
		"required": []string{"value"},
	}
	out := withTurnID(params)

	props, ok := out["properties"].(map[string]any)
	if !ok {
		t.Fatal("augmented schema has no properties map")
	}
	if _, ok := props["turn_id"]; !ok {
		t.Error("turn_id property missing")
	}
	if _, ok := props["value"]; !ok {
		t.Error("existing value property lost")
	}
	// turn_id stays optional and the input map stays untouched.
	if req, _ := out["required"].([]string); len(req) != 1 || req[0] != "value" {
		t.Errorf("required = %v", out["required"])
	}
	if _, ok := params["properties"].(map[string]any)["turn_id"]; ok {
		t.Error("withTurnID mutated the input map")
	}

	empty := withTurnID(nil)
	if empty["type"] != "object" {
		t.Errorf("type = %v, want object", empty["type"])
	}
}

func TestToSchema(t *testing.T) {
	t.Parallel()

	schema, err := toSchema(map[string]any{
		"type": "object",
		"properties": map[string]any{
			"value": map[string]any{"type": "string"},
		},
		"required": []string{"value"},
	})
	if err != nil {
		t.Fatalf("toSchema: %v", err)
	}
	if schema.Type != "object" {
		t.Errorf("type = %q", schema.Type)
	}
	if _, ok := schema.Properties["value"]; !ok {
		t.Error("schema lost the value property")
	}
	if len(schema.Required) != 1 || schema.Required[0] != "value" {
		t.Errorf("required = %v", schema.Required)
	}
}

func TestToSchema_NilParameters(t *testing.T) {
	t.Parallel()

	schema, err := toSchema(nil)
	if err != nil {
		t.Fatalf("toSchema: %v", err)
	}
	if schema.Type != "object" {
		t.Errorf("type = %q, want object", schema.Type)
	}
}
