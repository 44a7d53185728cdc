package model

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/meteolab/skycast/core"
)

// ToolDefinition declaratively exposes a callable function to the model.
// Parameters is a JSON Schema object (draft agnostic, minimal subset expected).
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// Request captures the normalized model input produced by the orchestrator.
// Messages must preserve conversation ordering and tool-call/tool-result
// pairing by id; adapters translate them into provider wire formats.
type Request struct {
	Instructions string           `json:"instructions,omitempty"` // system prompt
	Messages     []core.Message   `json:"messages"`
	Tools        []ToolDefinition `json:"tools,omitempty"`
	Stream       bool             `json:"stream,omitempty"`
}

// TokenUsage captures token usage statistics for a response.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is a (partial or final) chunk emitted by a model. Partial chunks
// carry incremental Text deltas; the final chunk carries the full accumulated
// Text plus any tool calls the model decided on.
type Response struct {
	Partial      bool            `json:"partial"`
	Text         string          `json:"text,omitempty"`
	ToolCalls    []core.ToolCall `json:"tool_calls,omitempty"`
	FinishReason string          `json:"finish_reason,omitempty"` // "stop", "length", "tool_calls", etc.
	Usage        *TokenUsage     `json:"usage,omitempty"`
}

// Info contains metadata about a model implementation.
type Info struct {
	Name              string `json:"name"`
	DisplayName       string `json:"display_name,omitempty"`
	Provider          string `json:"provider"` // "openai", "anthropic", "mock", etc.
	SupportsTools     bool   `json:"supports_tools"`
	SupportsStreaming bool   `json:"supports_streaming"`
}

// Model is the backend capability the orchestrator drives: given a
// conversation and a tool catalog it produces either a final text answer or a
// set of tool invocations, optionally streaming text incrementally.
type Model interface {
	Generate(ctx context.Context, req Request) (<-chan Response, <-chan error)

	// Info returns information about the model implementation.
	Info() Info
}

// MockTurn scripts one model turn for MockModel: either a text answer or a
// batch of tool calls.
type MockTurn struct {
	Text      string
	ToolCalls []core.ToolCall
}

// MockModel is a lightweight in-memory Model useful for tests & examples. It
// replays scripted turns in order; when the script is exhausted it falls back
// to the configured repeat turn, or to a default echo answer.
type MockModel struct {
	mu     sync.Mutex
	info   Info
	turns  []MockTurn
	repeat *MockTurn
	err    error
	calls  int
}

// NewMockModel constructs a MockModel with tool and streaming support enabled.
func NewMockModel(name string) *MockModel {
	return &MockModel{
		info: Info{
			Name:              name,
			DisplayName:       name,
			Provider:          "mock",
			SupportsTools:     true,
			SupportsStreaming: true,
		},
	}
}

// EnqueueText scripts a final text answer turn.
func (m *MockModel) EnqueueText(text string) *MockModel {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.turns = append(m.turns, MockTurn{Text: text})
	return m
}

// EnqueueToolCalls scripts a tool-calling turn.
func (m *MockModel) EnqueueToolCalls(calls ...core.ToolCall) *MockModel {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.turns = append(m.turns, MockTurn{ToolCalls: calls})
	return m
}

// RepeatToolCall makes the model request the given tool call on every turn
// once scripted turns run out. Useful for exercising iteration budgets.
func (m *MockModel) RepeatToolCall(call core.ToolCall) *MockModel {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.repeat = &MockTurn{ToolCalls: []core.ToolCall{call}}
	return m
}

// FailWith makes every subsequent Generate call report err.
func (m *MockModel) FailWith(err error) *MockModel {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
	return m
}

// SetStreaming toggles the advertised streaming capability.
func (m *MockModel) SetStreaming(enabled bool) *MockModel {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.info.SupportsStreaming = enabled
	return m
}

// Calls reports how many Generate invocations the model has served.
func (m *MockModel) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *MockModel) nextTurn(req Request) (MockTurn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++

	if m.err != nil {
		return MockTurn{}, m.err
	}

	if len(m.turns) > 0 {
		turn := m.turns[0]
		m.turns = m.turns[1:]
		return turn, nil
	}

	if m.repeat != nil {
		return *m.repeat, nil
	}

	var lastUser string
	for _, msg := range req.Messages {
		if msg.Role == core.RoleUser {
			lastUser = msg.Content
		}
	}
	return MockTurn{Text: fmt.Sprintf("Mock response to: %s", lastUser)}, nil
}

// Generate implements Model; emits optional streaming word chunks then the final response.
func (m *MockModel) Generate(ctx context.Context, req Request) (<-chan Response, <-chan error) {
	respCh := make(chan Response, 16)
	errCh := make(chan error, 1)

	go func() {
		defer close(respCh)
		defer close(errCh)

		turn, err := m.nextTurn(req)
		if err != nil {
			errCh <- err
			return
		}

		if len(turn.ToolCalls) > 0 {
			respCh <- Response{
				Partial:      false,
				ToolCalls:    turn.ToolCalls,
				FinishReason: "tool_calls",
			}
			return
		}

		if req.Stream && m.Info().SupportsStreaming {
			for _, chunk := range SplitWords(turn.Text) {
				select {
				case <-ctx.Done():
					errCh <- ctx.Err()
					return
				case respCh <- Response{Partial: true, Text: chunk}:
				}
			}
		}

		respCh <- Response{
			Partial:      false,
			Text:         turn.Text,
			FinishReason: "stop",
		}
	}()

	return respCh, errCh
}

// Info implements Model.
func (m *MockModel) Info() Info {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.info
}

// SplitWords splits text into word-level chunks that rejoin to the original.
func SplitWords(text string) []string {
	parts := strings.SplitAfter(text, " ")
	chunks := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			chunks = append(chunks, p)
		}
	}
	return chunks
}
