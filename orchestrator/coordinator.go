package orchestrator

import (
	"context"

	"github.com/meteolab/skycast/core"
	"github.com/meteolab/skycast/logging"
	"github.com/meteolab/skycast/model"
)

const apologyAnswer = "I'm sorry, I'm having trouble reaching my weather models right now. Please try again in a moment."

// Coordinator wraps the executor with fallback handling: if the primary model
// fails and the routing decision names a fallback, the run is retried once
// with the fallback model and the original, unmutated message list. The
// failed attempt's partial tool-call history is discarded so the fallback
// never starts from possibly-malformed state.
//
// The user always gets an answer: a double failure degrades to a generic
// apology, never to a raw error.
type Coordinator struct {
	models   map[string]model.Model
	executor *Executor
	logger   logging.Logger
}

// CoordinatorOptions configures the coordinator.
type CoordinatorOptions struct {
	Logger logging.Logger
}

// NewCoordinator constructs a coordinator over a model catalog keyed by the
// names routing decisions use.
func NewCoordinator(models map[string]model.Model, executor *Executor, optFns ...func(o *CoordinatorOptions)) *Coordinator {
	opts := CoordinatorOptions{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Coordinator{models: models, executor: executor, logger: opts.Logger}
}

// WithCoordinatorLogger sets the coordinator logger.
func WithCoordinatorLogger(logger logging.Logger) func(o *CoordinatorOptions) {
	return func(o *CoordinatorOptions) { o.Logger = logger }
}

// Model resolves a model by routing name.
func (c *Coordinator) Model(name string) (model.Model, bool) {
	m, ok := c.models[name]
	return m, ok
}

// Execute runs the agent loop for a routing decision, retrying once on the
// fallback model. hooks apply to whichever attempt is running.
func (c *Coordinator) Execute(ctx context.Context, messages []core.Message, decision core.RoutingDecision, maxIterations int, hooks RunHooks) core.Response {
	primary, ok := c.models[decision.Model]
	if !ok {
		c.logger.Error("coordinator.unknown_model", "model", decision.Model)
		return c.tryFallback(ctx, messages, decision, maxIterations, hooks)
	}

	result := c.executor.Run(ctx, messages, primary, maxIterations, hooks)
	if result.Success {
		return c.response(result, decision, false)
	}

	c.logger.Warn("coordinator.primary_failed",
		"model", decision.Model,
		"fallback", decision.FallbackModel,
		"error", result.Err,
	)

	return c.tryFallback(ctx, messages, decision, maxIterations, hooks)
}

// tryFallback retries with the fallback model against the original messages,
// degrading to the apology answer when no fallback is available or it fails.
func (c *Coordinator) tryFallback(ctx context.Context, messages []core.Message, decision core.RoutingDecision, maxIterations int, hooks RunHooks) core.Response {
	fallback, ok := c.models[decision.FallbackModel]
	if decision.FallbackModel == "" || !ok {
		return c.apology(messages, decision, false)
	}

	result := c.executor.Run(ctx, messages, fallback, maxIterations, hooks)
	if !result.Success {
		c.logger.Error("coordinator.fallback_failed",
			"fallback", decision.FallbackModel,
			"error", result.Err,
		)
		return c.apology(messages, decision, true)
	}

	return c.response(result, decision, true)
}

func (c *Coordinator) response(result core.ExecutionResult, decision core.RoutingDecision, usedFallback bool) core.Response {
	return BuildResponse(result, decision, usedFallback)
}

func (c *Coordinator) apology(messages []core.Message, decision core.RoutingDecision, fallbackTried bool) core.Response {
	return ApologyResponse(messages, decision, fallbackTried)
}

// BuildResponse assembles the consolidated answer from a successful run.
// Shared by the coordinator and the streaming emitter so both surfaces
// produce the same payload shape.
func BuildResponse(result core.ExecutionResult, decision core.RoutingDecision, usedFallback bool) core.Response {
	msgs := result.Messages
	if usedFallback {
		// Stamp the answering message so transcripts show who really answered.
		for i := len(msgs) - 1; i >= 0; i-- {
			if msgs[i].Role == core.RoleAssistant && msgs[i].Attribution != nil {
				msgs[i].Attribution.UsedFallback = true
				break
			}
		}
	}

	return core.Response{
		Response:     result.Response,
		ModelUsed:    result.Model,
		FallbackUsed: usedFallback,
		Routing:      &decision,
		ToolCalls:    result.ToolCalls,
		Messages:     msgs,
	}
}

// ApologyResponse is the degraded answer used when no model could complete
// the run. fallbackTried records whether a fallback attempt happened.
func ApologyResponse(messages []core.Message, decision core.RoutingDecision, fallbackTried bool) core.Response {
	answer := core.NewAssistantMessage(apologyAnswer)

	msgs := make([]core.Message, 0, len(messages)+1)
	msgs = append(msgs, messages...)
	msgs = append(msgs, answer)

	return core.Response{
		Response:     apologyAnswer,
		ModelUsed:    decision.Model,
		FallbackUsed: fallbackTried,
		Routing:      &decision,
		Messages:     msgs,
	}
}
