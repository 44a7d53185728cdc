// Package skycast provides a high-level façade over the chat orchestration
// pipeline: moderation gate, model router, tool-calling agent loop, fallback
// coordination and the streaming event surface. Most applications interact
// with this package by:
//  1. Creating an Engine via New() with their model backends and tools
//  2. Calling Chat (synchronous) or ChatStream (event sequence) per user turn
//
// All defaults are safe for local development; production deployments supply
// a durable session store, an analytics sink and a structured logger.
package skycast

import (
	"context"
	"fmt"
	"time"

	"github.com/meteolab/skycast/analytics"
	"github.com/meteolab/skycast/core"
	"github.com/meteolab/skycast/logging"
	"github.com/meteolab/skycast/model"
	"github.com/meteolab/skycast/moderation"
	"github.com/meteolab/skycast/orchestrator"
	"github.com/meteolab/skycast/router"
	"github.com/meteolab/skycast/session"
	"github.com/meteolab/skycast/stream"
	"github.com/meteolab/skycast/tool"
)

const defaultSystemPrompt = `You are Skycast, a friendly weather assistant. Answer questions about current weather, forecasts and weather-related planning. Use the available tools to fetch real data instead of guessing. If a question is not about weather, politely steer the conversation back to weather topics. Keep answers concise and conversational.`

const (
	angryAugmentation      = `The user sounds frustrated. Acknowledge their frustration briefly, stay calm and factual, and do not argue about past forecasts.`
	distressedAugmentation = `The user sounds worried or distressed. Be reassuring and lead with concrete, safety-relevant information.`
)

// routerHistoryTurns is how many trailing conversational turns feed the router.
const routerHistoryTurns = 5

// Options configures the Engine.
type Options struct {
	// Models maps routing names to backends. Required, at least one entry.
	Models map[string]model.Model
	// Candidates describe the models for the routing prompt; defaults are
	// derived from Models when empty.
	Candidates []router.Candidate
	// Fallbacks maps each model to its fallback. Defaults to the bijection
	// when exactly two models are configured.
	Fallbacks map[string]string
	// DefaultModel answers when routing fails. Defaults to the first
	// candidate when empty.
	DefaultModel string
	// RouterModel is the lightweight auxiliary backend making routing
	// decisions. Required.
	RouterModel model.Model

	// Classifier screens messages for appropriateness; nil skips that check.
	Classifier moderation.Classifier
	// Tools is the catalog models may call.
	Tools []tool.Tool

	// SessionStore persists transcripts (defaults to in-memory).
	SessionStore core.SessionStore
	// Analytics receives one record per request; nil disables recording.
	Analytics analytics.Sink

	// SystemPrompt overrides the built-in assistant prompt.
	SystemPrompt string
	// MaxIterations bounds the agent loop per request.
	MaxIterations int
	// ChunkDelay paces synthetic content chunks on the streaming surface.
	ChunkDelay time.Duration

	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger
}

// Engine is the high-level façade aggregating the orchestration pipeline.
type Engine struct {
	gate          *moderation.Gate
	router        *router.Router
	tools         *tool.Registry
	coordinator   *orchestrator.Coordinator
	emitter       *stream.Emitter
	sessions      core.SessionStore
	sink          analytics.Sink
	systemPrompt  string
	maxIterations int
	logger        logging.Logger
}

// New creates an Engine with optional overrides. Any unset service is
// initialized with an in-memory implementation.
func New(optFns ...func(o *Options)) (*Engine, error) {
	opts := Options{
		SessionStore:  session.NewInMemoryStore(),
		SystemPrompt:  defaultSystemPrompt,
		MaxIterations: orchestrator.DefaultMaxIterations,
		ChunkDelay:    stream.DefaultChunkDelay,
		Logger:        logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	if len(opts.Models) == 0 {
		return nil, fmt.Errorf("skycast: at least one model is required")
	}
	if opts.RouterModel == nil {
		return nil, fmt.Errorf("skycast: a router model is required")
	}

	candidates := opts.Candidates
	if len(candidates) == 0 {
		for name := range opts.Models {
			candidates = append(candidates, router.Candidate{Name: name})
		}
	}
	for _, c := range candidates {
		if _, ok := opts.Models[c.Name]; !ok {
			return nil, fmt.Errorf("skycast: candidate %q has no configured model", c.Name)
		}
	}

	fallbacks := opts.Fallbacks
	if fallbacks == nil && len(candidates) == 2 {
		// Two models: each one backs the other.
		fallbacks = map[string]string{
			candidates[0].Name: candidates[1].Name,
			candidates[1].Name: candidates[0].Name,
		}
	}

	defaultModel := opts.DefaultModel
	if defaultModel == "" {
		defaultModel = candidates[0].Name
	}

	registry := tool.NewRegistry(tool.WithLogger(opts.Logger))
	registry.Register(opts.Tools...)

	rt := router.New(opts.RouterModel, candidates, fallbacks, defaultModel,
		router.WithLogger(opts.Logger))

	executor := orchestrator.NewExecutor(registry,
		orchestrator.WithExecutorLogger(opts.Logger))

	coordinator := orchestrator.NewCoordinator(opts.Models, executor,
		orchestrator.WithCoordinatorLogger(opts.Logger))

	emitter := stream.NewEmitter(rt, coordinator, executor,
		stream.WithChunker(stream.NewChunker(opts.ChunkDelay)),
		stream.WithLogger(opts.Logger))

	return &Engine{
		gate:          moderation.NewGate(opts.Classifier, moderation.WithLogger(opts.Logger)),
		router:        rt,
		tools:         registry,
		coordinator:   coordinator,
		emitter:       emitter,
		sessions:      opts.SessionStore,
		sink:          opts.Analytics,
		systemPrompt:  opts.SystemPrompt,
		maxIterations: opts.MaxIterations,
		logger:        opts.Logger,
	}, nil
}

// Chat answers one user turn synchronously. The returned Response always
// carries answer text: moderation blocks, fallbacks and double failures all
// degrade into user-facing prose rather than errors. The only error returned
// is a session store failure.
func (e *Engine) Chat(ctx context.Context, sessionID, userMessage string) (core.Response, error) {
	start := time.Now()

	sess, err := e.sessions.Get(sessionID)
	if err != nil {
		return core.Response{}, fmt.Errorf("load session: %w", err)
	}

	verdict := e.gate.Evaluate(ctx, userMessage)
	userMsg := core.NewUserMessage(userMessage)

	if err := e.sessions.Append(sessionID, userMsg); err != nil {
		return core.Response{}, fmt.Errorf("persist user message: %w", err)
	}

	if verdict.Blocked {
		return e.blockedResponse(sessionID, verdict, start)
	}

	decision := e.router.Route(ctx, userMessage, sess.RecentHistory(routerHistoryTurns), sess.GetLastModel())
	messages := e.buildMessages(sess, verdict, userMsg)

	resp := e.coordinator.Execute(ctx, messages, decision, e.maxIterations, orchestrator.RunHooks{})
	resp.Moderation = &verdict

	e.persist(sessionID, messages, resp)
	e.record(sessionID, resp, start)

	return resp, nil
}

// ChatStream answers one user turn as a stream of typed events, terminated by
// a single done event carrying the same payload Chat would return. The
// session is updated when the done event is produced.
func (e *Engine) ChatStream(ctx context.Context, sessionID, userMessage string) (<-chan core.StreamEvent, error) {
	start := time.Now()

	sess, err := e.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}

	verdict := e.gate.Evaluate(ctx, userMessage)
	userMsg := core.NewUserMessage(userMessage)

	if err := e.sessions.Append(sessionID, userMsg); err != nil {
		return nil, fmt.Errorf("persist user message: %w", err)
	}

	messages := e.buildMessages(sess, verdict, userMsg)

	events := e.emitter.Stream(ctx, stream.Request{
		UserMessage:   userMessage,
		Messages:      messages,
		RecentHistory: sess.RecentHistory(routerHistoryTurns),
		LastModel:     sess.GetLastModel(),
		MaxIterations: e.maxIterations,
		Verdict:       &verdict,
	})

	out := make(chan core.StreamEvent)
	go func() {
		defer close(out)
		for ev := range events {
			if ev.Type == core.StreamEventDone {
				if resp, ok := ev.Data.(core.Response); ok {
					e.persist(sessionID, messages, resp)
					e.record(sessionID, resp, start)
				}
			}
			select {
			case out <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}

// Session returns the transcript for a session id.
func (e *Engine) Session(sessionID string) (*core.Session, error) {
	return e.sessions.Get(sessionID)
}

// Tools exposes the registered tool catalog.
func (e *Engine) Tools() *tool.Registry { return e.tools }

// buildMessages assembles the model transcript: the (possibly tone-augmented)
// system prompt, the session history and the current user message.
func (e *Engine) buildMessages(sess *core.Session, verdict core.ModerationVerdict, userMsg core.Message) []core.Message {
	prompt := e.systemPrompt
	switch verdict.Tone {
	case core.ToneAngry:
		prompt += "\n\n" + angryAugmentation
	case core.ToneDistressed:
		prompt += "\n\n" + distressedAugmentation
	}

	history := sess.GetMessages()
	messages := make([]core.Message, 0, len(history)+2)
	messages = append(messages, core.NewSystemMessage(prompt))
	messages = append(messages, history...)
	messages = append(messages, userMsg)
	return messages
}

// persist appends the messages produced during the run (everything past the
// input transcript) and records the answering model for routing continuity.
func (e *Engine) persist(sessionID string, input []core.Message, resp core.Response) {
	if len(resp.Messages) > len(input) {
		for _, msg := range resp.Messages[len(input):] {
			if err := e.sessions.Append(sessionID, msg); err != nil {
				e.logger.Error("engine.persist_failed", "session_id", sessionID, "error", err.Error())
				return
			}
		}
	}
	if resp.ModelUsed != "" {
		if err := e.sessions.SetLastModel(sessionID, resp.ModelUsed); err != nil {
			e.logger.Error("engine.persist_failed", "session_id", sessionID, "error", err.Error())
		}
	}
}

func (e *Engine) blockedResponse(sessionID string, verdict core.ModerationVerdict, start time.Time) (core.Response, error) {
	answer := core.NewAssistantMessage(verdict.BlockingMessage)
	if err := e.sessions.Append(sessionID, answer); err != nil {
		return core.Response{}, fmt.Errorf("persist moderation response: %w", err)
	}

	resp := core.Response{
		Response:   verdict.BlockingMessage,
		Moderation: &verdict,
	}
	e.record(sessionID, resp, start)
	return resp, nil
}

// record is fire-and-forget: sink failures must never fail the request.
func (e *Engine) record(sessionID string, resp core.Response, start time.Time) {
	if e.sink == nil {
		return
	}
	e.sink.Record(analytics.FromResponse(sessionID, resp, time.Since(start)))
}
