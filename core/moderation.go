package core

// Tone classifies the emotional register of a user message.
type Tone string

const (
	// ToneNeutral is the default register.
	ToneNeutral Tone = "neutral"
	// ToneAngry marks messages with anger or blame markers.
	ToneAngry Tone = "angry"
	// ToneDistressed marks messages with distress or anxiety markers.
	ToneDistressed Tone = "distressed"
)

// ModerationVerdict is the moderation gate's decision for one user message.
// A blocked verdict short-circuits the pipeline with BlockingMessage; a
// non-blocking verdict carries the detected tone for downstream prompt
// augmentation. Indicators lists the specific heuristics that fired, for
// auditability.
type ModerationVerdict struct {
	Appropriate     bool     `json:"appropriate"`
	InScope         bool     `json:"in_scope"`
	Tone            Tone     `json:"tone"`
	ToneConfidence  float64  `json:"tone_confidence"`
	Indicators      []string `json:"indicators,omitempty"`
	Blocked         bool     `json:"blocked"`
	BlockingMessage string   `json:"blocking_message,omitempty"`
}
