package core

// StreamEventType tags one unit of the typed progress sequence describing a
// request. Ordering invariants: a routing event precedes any tool/content
// event; exactly one terminal done (or error) event per request; content
// payloads concatenated in emission order equal the final answer.
type StreamEventType string

const (
	// StreamEventRouting announces the model chosen for the (remainder of the)
	// request. Consumers must handle more than one routing event per request:
	// a second one, flagged as fallback, follows a mid-stream backend failure.
	StreamEventRouting StreamEventType = "routing"
	// StreamEventContent carries an incremental chunk of the answer text.
	StreamEventContent StreamEventType = "content"
	// StreamEventTool announces a tool invocation before it executes.
	StreamEventTool StreamEventType = "tool"
	// StreamEventProgress reports a pipeline stage for client feedback.
	StreamEventProgress StreamEventType = "progress"
	// StreamEventDone terminates the sequence with the consolidated Response.
	StreamEventDone StreamEventType = "done"
	// StreamEventError terminates the sequence when no answer can be produced
	// (consumer cancellation aside, normal failures degrade into done).
	StreamEventError StreamEventType = "error"
)

// StreamEvent is one record of the streaming pipeline. Data holds the typed
// payload for the event's Type.
type StreamEvent struct {
	Type StreamEventType `json:"type"`
	Data any             `json:"data,omitempty"`
}

// RoutingEventData is the payload of a routing event. Fallback marks the
// re-routing emitted after a primary backend failure.
type RoutingEventData struct {
	Model      string  `json:"model"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning,omitempty"`
	Fallback   bool    `json:"fallback"`
}

// ContentEventData is the payload of a content event. Chunks are not
// guaranteed to align with true network token boundaries; backends without
// native streaming are simulated with word-level chunks.
type ContentEventData struct {
	Delta string `json:"delta"`
}

// ToolEventData is the payload of a tool event, emitted as soon as the
// invocation is decided so clients can show "calling tool X" feedback. Tool
// results are not separately streamed; they fold into the final answer.
type ToolEventData struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments,omitempty"`
}

// ProgressEventData is the payload of a progress event.
type ProgressEventData struct {
	Stage string `json:"stage"`
}

// ErrorEventData is the payload of a terminal error event.
type ErrorEventData struct {
	Message string `json:"message"`
}

// NewRoutingEvent builds a routing event from a decision.
func NewRoutingEvent(decision RoutingDecision, fallback bool) StreamEvent {
	return StreamEvent{Type: StreamEventRouting, Data: RoutingEventData{
		Model:      decision.Model,
		Confidence: decision.Confidence,
		Reasoning:  decision.Reasoning,
		Fallback:   fallback,
	}}
}

// NewContentEvent builds a content event carrying one answer chunk.
func NewContentEvent(delta string) StreamEvent {
	return StreamEvent{Type: StreamEventContent, Data: ContentEventData{Delta: delta}}
}

// NewToolEvent builds a tool event for a decided invocation.
func NewToolEvent(call ToolCall) StreamEvent {
	return StreamEvent{Type: StreamEventTool, Data: ToolEventData{
		ID:        call.ID,
		Name:      call.Name,
		Arguments: call.Arguments,
	}}
}

// NewProgressEvent builds a progress event for a pipeline stage.
func NewProgressEvent(stage string) StreamEvent {
	return StreamEvent{Type: StreamEventProgress, Data: ProgressEventData{Stage: stage}}
}

// NewDoneEvent builds the terminal done event carrying the full Response.
func NewDoneEvent(resp Response) StreamEvent {
	return StreamEvent{Type: StreamEventDone, Data: resp}
}

// NewErrorEvent builds the terminal error event.
func NewErrorEvent(msg string) StreamEvent {
	return StreamEvent{Type: StreamEventError, Data: ErrorEventData{Message: msg}}
}
