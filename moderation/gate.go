// Package moderation implements the pre-flight gate that screens user
// messages before any model execution: a content-appropriateness check, a
// topic scope check, and a deterministic tone heuristic.
package moderation

import (
	"context"
	"fmt"

	"github.com/meteolab/skycast/core"
	"github.com/meteolab/skycast/logging"
)

// severityThreshold is applied to the classifier's per-category scores. The
// classifier's own binary flag is deliberately ignored: mild frustration
// language must not block legitimate questions.
const severityThreshold = 0.7

const (
	inappropriateMessage = "I'm here to help with weather questions, but I can't respond to that message. Could you rephrase it?"
	outOfScopeMessage    = "I'm a weather assistant, so that's outside what I can help with. Ask me about the weather anywhere in the world!"
)

// Options configures the gate.
type Options struct {
	Logger logging.Logger
}

// Gate screens incoming user messages. It never fails a request: classifier
// errors fail open, and the only terminal outcomes are pass-through verdicts
// or canned blocking responses.
type Gate struct {
	classifier Classifier
	logger     logging.Logger
}

// NewGate constructs a moderation gate. A nil classifier skips the
// appropriateness check entirely (everything is treated as appropriate).
func NewGate(classifier Classifier, optFns ...func(o *Options)) *Gate {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Gate{classifier: classifier, logger: opts.Logger}
}

// WithLogger sets the gate logger.
func WithLogger(logger logging.Logger) func(o *Options) {
	return func(o *Options) { o.Logger = logger }
}

// Evaluate screens one user message and returns a verdict. The verdict blocks
// only when the message is clearly off-topic, or inappropriate with no
// weather vocabulary at all; everything else passes through, carrying the
// detected tone for downstream prompt augmentation.
func (g *Gate) Evaluate(ctx context.Context, userMessage string) core.ModerationVerdict {
	appropriate, flaggedCategory := g.checkAppropriateness(ctx, userMessage)
	inScope, topic := checkScope(userMessage)
	tone, confidence, indicators := detectTone(userMessage)

	verdict := core.ModerationVerdict{
		Appropriate:    appropriate,
		InScope:        inScope,
		Tone:           tone,
		ToneConfidence: confidence,
		Indicators:     indicators,
	}

	switch {
	case !appropriate && !containsWeatherVocabulary(userMessage):
		g.logger.Info("moderation.blocked", "reason", "inappropriate", "category", flaggedCategory)
		verdict.Blocked = true
		verdict.BlockingMessage = inappropriateMessage
	case !appropriate:
		// Flagged but weather vocabulary present: tolerate. Users venting
		// about a wrong forecast still deserve an answer.
		g.logger.Warn("moderation.flagged_tolerated", "category", flaggedCategory)
		verdict.Appropriate = true
	case !inScope:
		g.logger.Info("moderation.blocked", "reason", "out_of_scope", "topic", topic)
		verdict.Blocked = true
		verdict.BlockingMessage = outOfScopeMessage
	}

	return verdict
}

// checkAppropriateness applies the severity threshold over classifier scores.
// On classifier failure it fails open: availability over strictness.
func (g *Gate) checkAppropriateness(ctx context.Context, text string) (ok bool, flagged string) {
	if g.classifier == nil {
		return true, ""
	}

	scores, err := g.classifier.Classify(ctx, text)
	if err != nil {
		g.logger.Error("moderation.classifier_error", "error", err.Error())
		return true, ""
	}

	for category, score := range scores {
		if score >= severityThreshold {
			return false, fmt.Sprintf("%s=%.2f", category, score)
		}
	}
	return true, ""
}
