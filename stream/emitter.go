// Package stream turns one orchestration run into a typed, ordered event
// sequence for live delivery, with NDJSON framing for the transport edge.
package stream

import (
	"context"

	"github.com/meteolab/skycast/core"
	"github.com/meteolab/skycast/logging"
	"github.com/meteolab/skycast/orchestrator"
	"github.com/meteolab/skycast/router"
)

// Request describes one streaming run. Messages is the full transcript
// handed to the model (system prompt, history, current user message);
// UserMessage, RecentHistory and LastModel feed the router.
type Request struct {
	UserMessage   string
	Messages      []core.Message
	RecentHistory []core.Message
	LastModel     string
	MaxIterations int

	// Verdict, when set and blocking, short-circuits the run: the blocking
	// message is chunked as content and the stream terminates immediately.
	Verdict *core.ModerationVerdict
}

// Options configures the emitter.
type Options struct {
	Chunker *Chunker
	Logger  logging.Logger
}

// Emitter produces the streaming variant of an orchestration run: routing,
// content, tool and progress events, terminated by exactly one done event
// carrying the same payload as the synchronous response.
//
// On a primary backend failure the emitter re-routes to the fallback model
// and emits a second routing event flagged as a fallback; content emitted by
// the failed attempt is superseded, and the concatenation invariant (content
// deltas equal the final answer) holds from the latest routing event onward.
type Emitter struct {
	router      *router.Router
	coordinator *orchestrator.Coordinator
	executor    *orchestrator.Executor
	chunker     *Chunker
	logger      logging.Logger
}

// NewEmitter constructs an emitter over the routing and execution layers.
func NewEmitter(rt *router.Router, coord *orchestrator.Coordinator, exec *orchestrator.Executor, optFns ...func(o *Options)) *Emitter {
	opts := Options{
		Chunker: NewChunker(DefaultChunkDelay),
		Logger:  logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Emitter{
		router:      rt,
		coordinator: coord,
		executor:    exec,
		chunker:     opts.Chunker,
		logger:      opts.Logger,
	}
}

// WithChunker sets the synthetic incrementality strategy.
func WithChunker(c *Chunker) func(o *Options) {
	return func(o *Options) { o.Chunker = c }
}

// WithLogger sets the emitter logger.
func WithLogger(logger logging.Logger) func(o *Options) {
	return func(o *Options) { o.Logger = logger }
}

// Stream runs the pipeline and returns the event channel. The channel closes
// after the terminal event. Cancelling ctx stops the producer promptly: no
// further model or tool calls are issued once the consumer is gone.
func (e *Emitter) Stream(ctx context.Context, req Request) <-chan core.StreamEvent {
	ch := make(chan core.StreamEvent)

	go func() {
		defer close(ch)
		e.run(ctx, req, ch)
	}()

	return ch
}

func (e *Emitter) run(ctx context.Context, req Request, ch chan<- core.StreamEvent) {
	send := func(ev core.StreamEvent) bool {
		select {
		case ch <- ev:
			return true
		case <-ctx.Done():
			return false
		}
	}
	sendContent := func(delta string) bool {
		return send(core.NewContentEvent(delta))
	}

	if req.Verdict != nil && req.Verdict.Blocked {
		e.chunker.Chunk(ctx, req.Verdict.BlockingMessage, sendContent)
		answer := core.NewAssistantMessage(req.Verdict.BlockingMessage)
		send(core.NewDoneEvent(core.Response{
			Response:   req.Verdict.BlockingMessage,
			Moderation: req.Verdict,
			Messages:   append(append([]core.Message{}, req.Messages...), answer),
		}))
		return
	}

	decision := e.router.Route(ctx, req.UserMessage, req.RecentHistory, req.LastModel)
	if !send(core.NewRoutingEvent(decision, false)) {
		return
	}
	if !send(core.NewProgressEvent("thinking")) {
		return
	}

	var resp core.Response

	result, streamed, ok := e.attempt(ctx, req, decision.Model, send)
	switch {
	case !ok:
		return
	case result.Success:
		resp = orchestrator.BuildResponse(result, decision, false)
	default:
		e.logger.Warn("stream.primary_failed", "model", decision.Model, "error", result.Err)

		if _, exists := e.coordinator.Model(decision.FallbackModel); decision.FallbackModel == "" || !exists {
			resp = orchestrator.ApologyResponse(req.Messages, decision, false)
			e.chunker.Chunk(ctx, resp.Response, sendContent)
			send(core.NewDoneEvent(finish(resp, req.Verdict)))
			return
		}

		reroute := core.RoutingDecision{
			Model:      decision.FallbackModel,
			Confidence: decision.Confidence,
			Reasoning:  "Primary model failed, switching to fallback",
		}
		if !send(core.NewRoutingEvent(reroute, true)) {
			return
		}

		result, streamed, ok = e.attempt(ctx, req, decision.FallbackModel, send)
		if !ok {
			return
		}
		if !result.Success {
			e.logger.Error("stream.fallback_failed", "model", decision.FallbackModel, "error", result.Err)
			resp = orchestrator.ApologyResponse(req.Messages, decision, true)
			e.chunker.Chunk(ctx, resp.Response, sendContent)
			send(core.NewDoneEvent(finish(resp, req.Verdict)))
			return
		}
		resp = orchestrator.BuildResponse(result, decision, true)
	}

	// Backends without native streaming delivered nothing incrementally;
	// simulate it from the completed answer.
	if !streamed {
		e.chunker.Chunk(ctx, resp.Response, sendContent)
	}

	send(core.NewDoneEvent(finish(resp, req.Verdict)))
}

// attempt runs the agent loop for one model, forwarding content and tool
// events. ok is false when the consumer went away mid-run.
func (e *Emitter) attempt(ctx context.Context, req Request, modelName string, send func(core.StreamEvent) bool) (result core.ExecutionResult, streamed bool, ok bool) {
	m, exists := e.coordinator.Model(modelName)
	if !exists {
		return core.ExecutionResult{
			Success: false,
			Model:   modelName,
			Err:     "model " + modelName + " not configured",
		}, false, true
	}

	attemptCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	aborted := false
	hooks := orchestrator.RunHooks{
		OnContent: func(delta string) {
			streamed = true
			if !send(core.NewContentEvent(delta)) {
				aborted = true
				cancel()
			}
		},
		OnToolCall: func(call core.ToolCall) {
			if !send(core.NewToolEvent(call)) {
				aborted = true
				cancel()
			}
		},
	}

	result = e.executor.Run(attemptCtx, req.Messages, m, req.MaxIterations, hooks)
	return result, streamed, !aborted
}

// finish attaches the non-blocking moderation verdict to the terminal payload.
func finish(resp core.Response, verdict *core.ModerationVerdict) core.Response {
	resp.Moderation = verdict
	return resp
}
