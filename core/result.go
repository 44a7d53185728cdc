package core

// RoutingDecision is the choice of which model answers a request, plus its
// designated fallback. Invariant: FallbackModel != Model when both are set.
type RoutingDecision struct {
	Model         string  `json:"model"`
	Confidence    float64 `json:"confidence"` // [0,1]
	Reasoning     string  `json:"reasoning"`
	FallbackModel string  `json:"fallback_model,omitempty"`
}

// ToolCallRecord captures one executed tool invocation for transparency and
// analytics. Result holds the serialized tool output (success or error payload).
type ToolCallRecord struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Arguments  string `json:"arguments,omitempty"`
	Result     string `json:"result,omitempty"`
	DurationMS int64  `json:"duration_ms"`
}

// ExecutionResult is produced once per agent-loop run and consumed by the
// fallback coordinator to decide whether to retry with another model.
type ExecutionResult struct {
	Success   bool             `json:"success"`
	Model     string           `json:"model"`
	Response  string           `json:"response,omitempty"`
	Err       string           `json:"error,omitempty"`
	ToolCalls []ToolCallRecord `json:"tool_calls,omitempty"`

	// Messages holds the transcript appended during the run: tool-call
	// assistant turns, tool results and the final answer, in order.
	Messages []Message `json:"-"`
}

// Response is the consolidated answer returned to the caller. The user always
// receives a textual Response; internal failures degrade into a fallback
// answer, a generic apology or a moderation message.
type Response struct {
	Response     string             `json:"response"`
	ModelUsed    string             `json:"model_used,omitempty"`
	FallbackUsed bool               `json:"fallback_used"`
	Routing      *RoutingDecision   `json:"routing,omitempty"`
	ToolCalls    []ToolCallRecord   `json:"tool_calls_made,omitempty"`
	Moderation   *ModerationVerdict `json:"moderation,omitempty"`

	// Messages holds the transcript appended while producing the answer, for
	// session persistence. Not part of the wire shape.
	Messages []Message `json:"-"`
}
