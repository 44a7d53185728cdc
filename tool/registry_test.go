package tool

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meteolab/skycast/core"
)

func echoTool() *FunctionTool {
	return NewFunctionTool(
		"echo",
		"Echo the given text",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"text": map[string]any{"type": "string"},
			},
			"required": []string{"text"},
		},
		func(_ context.Context, args map[string]any) (any, error) {
			return map[string]any{"echo": args["text"]}, nil
		},
	)
}

func failingTool(err error) *FunctionTool {
	return NewFunctionTool("boom", "Always fails", map[string]any{"type": "object"},
		func(_ context.Context, _ map[string]any) (any, error) {
			return nil, err
		},
	)
}

func panickingTool() *FunctionTool {
	return NewFunctionTool("panic", "Always panics", map[string]any{"type": "object"},
		func(_ context.Context, _ map[string]any) (any, error) {
			panic("tool exploded")
		},
	)
}

func TestRegistryExecuteSuccess(t *testing.T) {
	r := NewRegistry()
	r.Register(echoTool())

	result := r.Execute(context.Background(), core.ToolCall{
		ID:        "c1",
		Name:      "echo",
		Arguments: `{"text": "hello"}`,
	})

	payload, ok := result.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "hello", payload["echo"])
}

func TestRegistryExecuteNeverFails(t *testing.T) {
	r := NewRegistry()
	r.Register(echoTool(), failingTool(errors.New("backend down")), panickingTool())

	tests := []struct {
		name string
		call core.ToolCall
	}{
		{"unknown tool", core.ToolCall{Name: "nope", Arguments: "{}"}},
		{"malformed arguments", core.ToolCall{Name: "echo", Arguments: "{not json"}},
		{"missing required argument", core.ToolCall{Name: "echo", Arguments: "{}"}},
		{"tool error", core.ToolCall{Name: "boom", Arguments: "{}"}},
		{"tool panic", core.ToolCall{Name: "panic", Arguments: "{}"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := r.Execute(context.Background(), tt.call)

			payload, ok := result.(map[string]any)
			require.True(t, ok, "failures must come back as a payload, got %T", result)
			assert.NotEmpty(t, payload["error"])
		})
	}
}

func TestRegistryDefinitions(t *testing.T) {
	r := NewRegistry()
	r.Register(echoTool())

	defs := r.Definitions()
	require.Len(t, defs, 1)
	assert.Equal(t, "echo", defs[0].Name)
	assert.Equal(t, "Echo the given text", defs[0].Description)
	assert.NotNil(t, defs[0].Parameters)
}

func TestFunctionToolValidation(t *testing.T) {
	tool := echoTool()

	_, err := tool.Call(context.Background(), map[string]any{})
	require.Error(t, err)

	var toolErr *ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, "VALIDATION_ERROR", toolErr.Code)
}

func TestFunctionToolWrapsExecutionError(t *testing.T) {
	tool := failingTool(errors.New("backend down"))

	_, err := tool.Call(context.Background(), map[string]any{})
	var toolErr *ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, "EXECUTION_ERROR", toolErr.Code)
}

func TestMarshalResult(t *testing.T) {
	assert.JSONEq(t, `{"a":1}`, MarshalResult(map[string]any{"a": 1}))
	assert.JSONEq(t, `"plain"`, MarshalResult("plain"))
}
