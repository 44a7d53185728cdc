// Package router chooses which model answers a request. The decision is
// delegated to a lightweight auxiliary model call; when that call fails or
// returns garbage, a hard-coded default decision keeps the request alive.
package router

import (
	"context"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/meteolab/skycast/core"
	"github.com/meteolab/skycast/logging"
	"github.com/meteolab/skycast/model"
)

// Candidate describes one routable model for the auxiliary prompt.
type Candidate struct {
	// Name is the model identifier returned in routing decisions.
	Name string
	// Strengths is a short prose description of what the model is good at.
	Strengths string
	// RoutingHints are explicit keyword rules, e.g. "greetings and small talk".
	RoutingHints string
}

// Options configures the router.
type Options struct {
	Logger logging.Logger
}

// Router picks a primary and fallback model for each request.
//
// Fallbacks come from an explicit per-model table, never inferred: with two
// models the table is the obvious bijection, and adding a third model means
// adding a row, not rewriting a rule.
type Router struct {
	aux          model.Model
	candidates   []Candidate
	fallbacks    map[string]string
	defaultModel string
	logger       logging.Logger
}

// New constructs a router. defaultModel is used whenever the auxiliary call
// cannot produce a usable decision and should name the conversational
// candidate. The fallbacks table maps each model to its fallback; models
// without an entry simply have no fallback.
func New(aux model.Model, candidates []Candidate, fallbacks map[string]string, defaultModel string, optFns ...func(o *Options)) *Router {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Router{
		aux:          aux,
		candidates:   candidates,
		fallbacks:    fallbacks,
		defaultModel: defaultModel,
		logger:       opts.Logger,
	}
}

// WithLogger sets the router logger.
func WithLogger(logger logging.Logger) func(o *Options) {
	return func(o *Options) { o.Logger = logger }
}

// Route decides which model should answer userMessage. recentHistory is the
// last few conversational turns; lastModel, when non-empty, is the model that
// answered previously and biases the auxiliary model toward continuity for
// follow-up questions. Route never fails: every error path degrades to the
// default decision.
func (r *Router) Route(ctx context.Context, userMessage string, recentHistory []core.Message, lastModel string) core.RoutingDecision {
	prompt := r.buildPrompt(userMessage, recentHistory, lastModel)

	text, err := r.invoke(ctx, prompt)
	if err != nil {
		r.logger.Warn("router.aux_call_failed", "error", err.Error())
		return r.DefaultDecision()
	}

	decision, err := r.parseDecision(text)
	if err != nil {
		r.logger.Warn("router.parse_failed", "error", err.Error(), "raw", text)
		return r.DefaultDecision()
	}

	r.logger.Info("router.decision",
		"model", decision.Model,
		"confidence", decision.Confidence,
		"fallback", decision.FallbackModel,
	)

	return decision
}

// DefaultDecision is the recovery decision used when routing itself fails.
func (r *Router) DefaultDecision() core.RoutingDecision {
	return core.RoutingDecision{
		Model:         r.defaultModel,
		Confidence:    0.5,
		Reasoning:     "Routing unavailable, defaulting to the conversational model",
		FallbackModel: r.fallbacks[r.defaultModel],
	}
}

// Fallback returns the configured fallback for a model, if any.
func (r *Router) Fallback(modelName string) string {
	return r.fallbacks[modelName]
}

func (r *Router) buildPrompt(userMessage string, recentHistory []core.Message, lastModel string) string {
	var b strings.Builder

	b.WriteString("You are a model router for a weather assistant. Pick the best model for the user's message.\n\nAvailable models:\n")
	for _, c := range r.candidates {
		fmt.Fprintf(&b, "- %s: %s", c.Name, c.Strengths)
		if c.RoutingHints != "" {
			fmt.Fprintf(&b, " Route here for: %s.", c.RoutingHints)
		}
		b.WriteString("\n")
	}

	if len(recentHistory) > 0 {
		b.WriteString("\nRecent conversation:\n")
		for _, msg := range recentHistory {
			fmt.Fprintf(&b, "%s: %s\n", msg.Role, msg.Content)
		}
	}

	if lastModel != "" {
		fmt.Fprintf(&b, "\nThe previous answer came from %s. For follow-up questions, prefer the same model for continuity.\n", lastModel)
	}

	fmt.Fprintf(&b, "\nUser message: %s\n\n", userMessage)
	b.WriteString(`Reply with JSON only, no prose: {"model": "<model name>", "confidence": <0..1>, "reasoning": "<one sentence>"}`)

	return b.String()
}

// invoke runs the auxiliary model and collects the final text.
func (r *Router) invoke(ctx context.Context, prompt string) (string, error) {
	out, errCh := r.aux.Generate(ctx, model.Request{
		Messages: []core.Message{core.NewUserMessage(prompt)},
	})

	var text string
	for resp := range out {
		if !resp.Partial {
			text = resp.Text
		}
	}
	if err := <-errCh; err != nil {
		return "", err
	}
	return text, nil
}

// parseDecision extracts and validates the auxiliary model's JSON verdict.
func (r *Router) parseDecision(text string) (core.RoutingDecision, error) {
	raw := stripCodeFence(text)
	if !gjson.Valid(raw) {
		// Models sometimes wrap the JSON in prose; take the first object.
		if start, end := strings.Index(raw, "{"), strings.LastIndex(raw, "}"); start >= 0 && end > start {
			raw = raw[start : end+1]
		}
	}
	if !gjson.Valid(raw) {
		return core.RoutingDecision{}, fmt.Errorf("response is not valid JSON")
	}

	name := gjson.Get(raw, "model").String()
	if name == "" {
		return core.RoutingDecision{}, fmt.Errorf("missing model field")
	}
	if !r.isCandidate(name) {
		return core.RoutingDecision{}, fmt.Errorf("unknown model %q", name)
	}

	confidence := gjson.Get(raw, "confidence").Float()
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}

	reasoning := gjson.Get(raw, "reasoning").String()
	if reasoning == "" {
		reasoning = "No reasoning provided"
	}

	return core.RoutingDecision{
		Model:         name,
		Confidence:    confidence,
		Reasoning:     reasoning,
		FallbackModel: r.fallbacks[name],
	}, nil
}

func (r *Router) isCandidate(name string) bool {
	for _, c := range r.candidates {
		if c.Name == name {
			return true
		}
	}
	return false
}

func stripCodeFence(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}
