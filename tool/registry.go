package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/meteolab/skycast/core"
	"github.com/meteolab/skycast/logging"
	"github.com/meteolab/skycast/model"
)

// Registry is the tool executor: it holds the tool catalog and dispatches
// tool calls decided by a model.
//
// Execute never propagates an error out of the agent loop. Unknown tools,
// malformed arguments, execution errors and panics are all encoded as a
// structured {"error": reason} payload returned as the tool's result, so the
// model can react to the failure in its next turn.
type Registry struct {
	tools  map[string]Tool
	logger logging.Logger
}

// NewRegistry constructs an empty registry.
func NewRegistry(optFns ...func(r *Registry)) *Registry {
	r := &Registry{
		tools:  make(map[string]Tool),
		logger: logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(r)
	}
	return r
}

// WithLogger sets the registry logger.
func WithLogger(logger logging.Logger) func(r *Registry) {
	return func(r *Registry) { r.logger = logger }
}

// Register adds a tool to the catalog, replacing any tool with the same name.
func (r *Registry) Register(tools ...Tool) {
	for _, t := range tools {
		r.tools[t.Name()] = t
	}
}

// Get retrieves a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// Len returns the number of registered tools.
func (r *Registry) Len() int { return len(r.tools) }

// Definitions exposes the catalog in the shape models consume.
func (r *Registry) Definitions() []model.ToolDefinition {
	defs := make([]model.ToolDefinition, 0, len(r.tools))
	for _, t := range r.tools {
		defs = append(defs, model.ToolDefinition{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.Parameters(),
		})
	}
	return defs
}

// Execute dispatches one tool call and returns its result payload. Failures
// are returned as {"error": reason}, never as an error.
func (r *Registry) Execute(ctx context.Context, call core.ToolCall) (result any) {
	start := time.Now()

	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("tool.execute.panic", "tool", call.Name, "recover", rec)
			result = errPayload(fmt.Sprintf("tool %s panicked", call.Name))
		}
	}()

	impl, ok := r.tools[call.Name]
	if !ok {
		r.logger.Warn("tool.execute.unknown", "tool", call.Name)
		return errPayload(fmt.Sprintf("tool %s not found", call.Name))
	}

	args := map[string]any{}
	if call.Arguments != "" {
		if err := json.Unmarshal([]byte(call.Arguments), &args); err != nil {
			r.logger.Warn("tool.execute.bad_arguments", "tool", call.Name, "error", err.Error())
			return errPayload(fmt.Sprintf("failed to parse arguments: %v", err))
		}
	}

	out, err := impl.Call(ctx, args)
	dur := time.Since(start)

	if err != nil {
		r.logger.Error("tool.execute.error", "tool", call.Name, "duration_ms", dur.Milliseconds(), "error", err.Error())
		return errPayload(err.Error())
	}

	r.logger.Info("tool.execute.success", "tool", call.Name, "duration_ms", dur.Milliseconds())
	return out
}

// MarshalResult serializes a tool result payload for the tool message content.
func MarshalResult(result any) string {
	data, err := json.Marshal(result)
	if err != nil {
		data, _ = json.Marshal(errPayload(fmt.Sprintf("unserializable tool result: %v", err)))
	}
	return string(data)
}

func errPayload(reason string) map[string]any {
	return map[string]any{"error": reason}
}
