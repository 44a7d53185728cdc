package moderation

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
)

// Classifier scores a message against content categories. Scores are in
// [0,1]; the gate applies its own threshold on top of them.
type Classifier interface {
	Classify(ctx context.Context, text string) (map[string]float64, error)
}

// OpenAIClassifier delegates to the OpenAI Moderations API.
type OpenAIClassifier struct {
	client *openai.Client
}

// NewOpenAIClassifier wraps an existing OpenAI client.
func NewOpenAIClassifier(client *openai.Client) *OpenAIClassifier {
	return &OpenAIClassifier{client: client}
}

// Classify runs the moderation endpoint and flattens the category scores.
func (c *OpenAIClassifier) Classify(ctx context.Context, text string) (map[string]float64, error) {
	res, err := c.client.Moderations.New(ctx, openai.ModerationNewParams{
		Input: openai.ModerationNewParamsInputUnion{
			OfString: openai.String(text),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("moderation api error: %w", err)
	}
	if len(res.Results) == 0 {
		return nil, fmt.Errorf("moderation api returned no results")
	}

	scores := res.Results[0].CategoryScores
	return map[string]float64{
		"harassment":  scores.Harassment,
		"hate":        scores.Hate,
		"self-harm":   scores.SelfHarm,
		"sexual":      scores.Sexual,
		"violence":    scores.Violence,
		"threatening": scores.HarassmentThreatening,
	}, nil
}

// StaticClassifier returns fixed scores, or a fixed error. Used in tests and
// when no classifier backend is configured.
type StaticClassifier struct {
	Scores map[string]float64
	Err    error
}

func (c *StaticClassifier) Classify(_ context.Context, _ string) (map[string]float64, error) {
	if c.Err != nil {
		return nil, c.Err
	}
	return c.Scores, nil
}
