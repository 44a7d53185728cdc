package core

import (
	"time"

	"github.com/google/uuid"
)

// Role identifies the author of a Message within a conversation.
type Role string

const (
	// RoleUser marks messages authored by the end user.
	RoleUser Role = "user"
	// RoleAssistant marks messages authored by a model.
	RoleAssistant Role = "assistant"
	// RoleSystem marks instruction messages injected by the orchestrator.
	RoleSystem Role = "system"
	// RoleTool marks tool result messages answering a prior tool call.
	RoleTool Role = "tool"
)

// ToolCall is a structured request, emitted by a model, to invoke an external
// capability with named arguments. ID is unique within one assistant turn and
// correlates the later RoleTool message answering it.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments,omitempty"` // serialized JSON argument payload
}

// ModelAttribution records which model produced an assistant message and
// whether the fallback path was taken to produce it.
type ModelAttribution struct {
	Model        string `json:"model"`
	DisplayName  string `json:"display_name,omitempty"`
	UsedFallback bool   `json:"used_fallback"`
}

// Message is one unit of a conversation transcript.
//
// Invariants:
//   - An assistant message carries either non-empty Content or a non-empty
//     ToolCalls list, never both meaningfully.
//   - A tool message always carries the ToolCallID of the call it answers and
//     immediately follows the assistant message that issued that call.
//
// Messages are exclusively owned by the Session they belong to and are never
// shared between sessions.
type Message struct {
	Role        Role              `json:"role"`
	Content     string            `json:"content,omitempty"`
	ToolCalls   []ToolCall        `json:"tool_calls,omitempty"`
	ToolCallID  string            `json:"tool_call_id,omitempty"`
	Attribution *ModelAttribution `json:"attribution,omitempty"`
	Timestamp   time.Time         `json:"timestamp"`
}

// NewUserMessage creates a user-authored text message.
func NewUserMessage(text string) Message {
	return Message{Role: RoleUser, Content: text, Timestamp: time.Now().UTC()}
}

// NewSystemMessage creates an orchestrator-authored instruction message.
func NewSystemMessage(text string) Message {
	return Message{Role: RoleSystem, Content: text, Timestamp: time.Now().UTC()}
}

// NewAssistantMessage creates an assistant text answer.
func NewAssistantMessage(text string) Message {
	return Message{Role: RoleAssistant, Content: text, Timestamp: time.Now().UTC()}
}

// NewToolCallMessage creates the single assistant turn carrying all tool calls
// decided in that turn. Providers require one assistant turn per batch of
// parallel calls, not one turn per call.
func NewToolCallMessage(calls []ToolCall) Message {
	return Message{Role: RoleAssistant, ToolCalls: calls, Timestamp: time.Now().UTC()}
}

// NewToolResultMessage creates the tool message answering the call identified
// by callID. Content is the serialized tool result (success or error payload).
func NewToolResultMessage(callID, content string) Message {
	return Message{Role: RoleTool, Content: content, ToolCallID: callID, Timestamp: time.Now().UTC()}
}

// HasToolCalls reports whether this is an assistant turn requesting tool execution.
func (m Message) HasToolCalls() bool {
	return m.Role == RoleAssistant && len(m.ToolCalls) > 0
}

// NewID generates a new unique identifier for messages, tool calls and runs.
func NewID() string { return uuid.NewString() }
