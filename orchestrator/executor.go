// Package orchestrator drives the agent loop (iterate: call model, maybe call
// tools) and the fallback coordination around it.
package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/meteolab/skycast/core"
	"github.com/meteolab/skycast/logging"
	"github.com/meteolab/skycast/model"
	"github.com/meteolab/skycast/tool"
)

// DefaultMaxIterations bounds the agent loop when the caller does not.
const DefaultMaxIterations = 5

const maxIterationsAnswer = "I wasn't able to finish answering within the allowed number of steps. Please try asking again, perhaps more specifically."

// RunHooks are optional callbacks observed during a run. OnContent receives
// incremental answer text; OnToolCall fires when a tool invocation is decided,
// before it executes. A zero RunHooks runs silently.
type RunHooks struct {
	OnContent  func(delta string)
	OnToolCall func(call core.ToolCall)
}

// Executor runs the bounded agent loop for one model.
//
// The loop appends exactly one assistant message per batch of tool calls
// (providers require one assistant turn per set of parallel calls) and one
// tool message per result. Tool calls within a batch are dispatched
// concurrently; the loop waits for the whole batch before continuing, so the
// model never observes partial completion.
type Executor struct {
	tools  *tool.Registry
	logger logging.Logger
}

// ExecutorOptions configures the executor.
type ExecutorOptions struct {
	Logger logging.Logger
}

// NewExecutor constructs an executor over a tool registry.
func NewExecutor(tools *tool.Registry, optFns ...func(o *ExecutorOptions)) *Executor {
	opts := ExecutorOptions{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Executor{tools: tools, logger: opts.Logger}
}

// WithExecutorLogger sets the executor logger.
func WithExecutorLogger(logger logging.Logger) func(o *ExecutorOptions) {
	return func(o *ExecutorOptions) { o.Logger = logger }
}

// Run executes the agent loop for m over a copy of messages. The input slice
// is never mutated; the grown transcript is returned on the result. A model
// backend error aborts the run with Success=false; deciding what happens
// next is the coordinator's job, not this one's.
func (e *Executor) Run(ctx context.Context, messages []core.Message, m model.Model, maxIterations int, hooks RunHooks) core.ExecutionResult {
	if maxIterations <= 0 {
		maxIterations = DefaultMaxIterations
	}

	info := m.Info()
	msgs := make([]core.Message, len(messages))
	copy(msgs, messages)

	var callLog []core.ToolCallRecord
	wantStream := hooks.OnContent != nil && info.SupportsStreaming

	for iteration := 0; iteration < maxIterations; iteration++ {
		if err := ctx.Err(); err != nil {
			return e.failure(info.Name, msgs, callLog, err)
		}

		e.logger.Debug("executor.iteration", "model", info.Name, "iteration", iteration, "messages", len(msgs))

		final, err := e.generate(ctx, m, model.Request{
			Messages: msgs,
			Tools:    e.tools.Definitions(),
			Stream:   wantStream,
		}, hooks)
		if err != nil {
			e.logger.Error("executor.model_error", "model", info.Name, "iteration", iteration, "error", err.Error())
			return e.failure(info.Name, msgs, callLog, err)
		}

		if len(final.ToolCalls) == 0 {
			answer := core.NewAssistantMessage(final.Text)
			answer.Attribution = &core.ModelAttribution{Model: info.Name, DisplayName: info.DisplayName}
			msgs = append(msgs, answer)

			return core.ExecutionResult{
				Success:   true,
				Model:     info.Name,
				Response:  final.Text,
				ToolCalls: callLog,
				Messages:  msgs,
			}
		}

		// One assistant turn carries the whole batch of calls.
		msgs = append(msgs, core.NewToolCallMessage(final.ToolCalls))

		if hooks.OnToolCall != nil {
			for _, call := range final.ToolCalls {
				hooks.OnToolCall(call)
			}
		}

		results, records := e.executeBatch(ctx, final.ToolCalls)
		msgs = append(msgs, results...)
		callLog = append(callLog, records...)
	}

	e.logger.Warn("executor.max_iterations", "model", info.Name, "max", maxIterations)

	answer := core.NewAssistantMessage(maxIterationsAnswer)
	answer.Attribution = &core.ModelAttribution{Model: info.Name, DisplayName: info.DisplayName}
	msgs = append(msgs, answer)

	return core.ExecutionResult{
		Success:   true,
		Model:     info.Name,
		Response:  maxIterationsAnswer,
		ToolCalls: callLog,
		Messages:  msgs,
	}
}

// generate drains one model call, forwarding partial text to hooks and
// returning the final response.
func (e *Executor) generate(ctx context.Context, m model.Model, req model.Request, hooks RunHooks) (model.Response, error) {
	out, errCh := m.Generate(ctx, req)

	var final model.Response
	for resp := range out {
		if resp.Partial {
			if hooks.OnContent != nil && resp.Text != "" {
				hooks.OnContent(resp.Text)
			}
			continue
		}
		final = resp
	}
	if err := <-errCh; err != nil {
		return model.Response{}, err
	}
	return final, nil
}

// executeBatch dispatches all calls concurrently and waits for every one.
// Result messages come back in call order regardless of completion order.
func (e *Executor) executeBatch(ctx context.Context, calls []core.ToolCall) ([]core.Message, []core.ToolCallRecord) {
	type outcome struct {
		result     string
		durationMS int64
	}

	outcomes := make([]outcome, len(calls))

	var wg sync.WaitGroup
	for i, call := range calls {
		wg.Add(1)
		go func(i int, call core.ToolCall) {
			defer wg.Done()
			start := time.Now()
			result := e.tools.Execute(ctx, call)
			outcomes[i] = outcome{
				result:     tool.MarshalResult(result),
				durationMS: time.Since(start).Milliseconds(),
			}
		}(i, call)
	}
	wg.Wait()

	messages := make([]core.Message, len(calls))
	records := make([]core.ToolCallRecord, len(calls))
	for i, call := range calls {
		messages[i] = core.NewToolResultMessage(call.ID, outcomes[i].result)
		records[i] = core.ToolCallRecord{
			ID:         call.ID,
			Name:       call.Name,
			Arguments:  call.Arguments,
			Result:     outcomes[i].result,
			DurationMS: outcomes[i].durationMS,
		}
	}
	return messages, records
}

func (e *Executor) failure(modelName string, msgs []core.Message, callLog []core.ToolCallRecord, err error) core.ExecutionResult {
	return core.ExecutionResult{
		Success:   false,
		Model:     modelName,
		Err:       fmt.Sprintf("model %s: %v", modelName, err),
		ToolCalls: callLog,
		Messages:  msgs,
	}
}
