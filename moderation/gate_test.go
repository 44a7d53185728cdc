package moderation

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meteolab/skycast/core"
)

func TestGateBlocksArithmetic(t *testing.T) {
	gate := NewGate(nil)

	verdict := gate.Evaluate(context.Background(), "What is 25 + 37?")

	assert.False(t, verdict.InScope)
	assert.True(t, verdict.Blocked)
	assert.Equal(t, outOfScopeMessage, verdict.BlockingMessage)
}

func TestGateAngryWeatherComplaintPasses(t *testing.T) {
	gate := NewGate(nil)

	verdict := gate.Evaluate(context.Background(), "YOU SAID IT WOULDN'T RAIN!!!")

	assert.True(t, verdict.InScope)
	assert.False(t, verdict.Blocked)
	assert.Equal(t, core.ToneAngry, verdict.Tone)
	assert.NotEmpty(t, verdict.Indicators)
}

func TestGateScopePatterns(t *testing.T) {
	gate := NewGate(nil)

	tests := []struct {
		name    string
		message string
		blocked bool
	}{
		{"finance", "Should I invest in bitcoin right now?", true},
		{"cooking", "Give me a recipe for lasagna", true},
		{"travel booking", "Can you book a flight to Rome?", true},
		{"trivia", "What is the capital of France?", true},
		{"creative writing", "Write me a poem about the sea", true},
		{"how-to", "How do I fix my router?", true},
		{"weather question", "Will it snow in Oslo tomorrow?", false},
		{"ambiguous stays in scope", "What should I wear tomorrow?", false},
		{"weather vocabulary wins", "Write me a poem about the rain", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verdict := gate.Evaluate(context.Background(), tt.message)
			assert.Equal(t, tt.blocked, verdict.Blocked)
		})
	}
}

func TestGateClassifierThreshold(t *testing.T) {
	// Weakly flagged scores stay below the gate's own threshold.
	gate := NewGate(&StaticClassifier{Scores: map[string]float64{"harassment": 0.45}})

	verdict := gate.Evaluate(context.Background(), "this forecast is garbage")

	assert.True(t, verdict.Appropriate)
	assert.False(t, verdict.Blocked)
}

func TestGateInappropriateWithoutWeatherVocabularyBlocks(t *testing.T) {
	gate := NewGate(&StaticClassifier{Scores: map[string]float64{"harassment": 0.95}})

	verdict := gate.Evaluate(context.Background(), "you are a worthless piece of junk")

	assert.True(t, verdict.Blocked)
	assert.Equal(t, inappropriateMessage, verdict.BlockingMessage)
}

func TestGateInappropriateWithWeatherVocabularyTolerated(t *testing.T) {
	gate := NewGate(&StaticClassifier{Scores: map[string]float64{"harassment": 0.95}})

	verdict := gate.Evaluate(context.Background(), "your stupid rain forecast ruined my day")

	assert.False(t, verdict.Blocked)
	assert.True(t, verdict.Appropriate)
}

func TestGateFailsOpenOnClassifierError(t *testing.T) {
	gate := NewGate(&StaticClassifier{Err: errors.New("classifier down")})

	verdict := gate.Evaluate(context.Background(), "Will it rain today?")

	require.False(t, verdict.Blocked)
	assert.True(t, verdict.Appropriate)
}
