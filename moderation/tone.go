package moderation

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/meteolab/skycast/core"
)

var angerMarkers = []string{
	"you said", "you told", "you promised", "you lied", "your fault",
	"wrong again", "useless", "stupid", "ridiculous", "terrible",
	"worst", "angry", "furious", "annoyed", "fed up", "sick of",
}

var distressMarkers = []string{
	"scared", "afraid", "terrified", "worried", "anxious", "panicking",
	"help me", "emergency", "dangerous", "stranded", "trapped", "flooding",
	"evacuate", "please help",
}

// detectTone classifies the emotional tone of a message with a deterministic
// heuristic: uppercase ratio, exclamation density, and lexical markers. The
// indicators that fired are returned for auditability.
func detectTone(text string) (tone core.Tone, confidence float64, indicators []string) {
	lower := strings.ToLower(text)

	var upper, letters int
	for _, r := range text {
		if unicode.IsLetter(r) {
			letters++
			if unicode.IsUpper(r) {
				upper++
			}
		}
	}

	var angerScore, distressScore float64

	if letters >= 8 {
		if ratio := float64(upper) / float64(letters); ratio > 0.6 {
			angerScore += 0.4
			indicators = append(indicators, fmt.Sprintf("uppercase ratio %.2f", ratio))
		}
	}

	if n := strings.Count(text, "!"); n >= 2 {
		angerScore += 0.3
		indicators = append(indicators, fmt.Sprintf("%d exclamation marks", n))
	}

	for _, marker := range angerMarkers {
		if strings.Contains(lower, marker) {
			angerScore += 0.3
			indicators = append(indicators, "anger marker: "+marker)
		}
	}

	for _, marker := range distressMarkers {
		if strings.Contains(lower, marker) {
			distressScore += 0.4
			indicators = append(indicators, "distress marker: "+marker)
		}
	}

	switch {
	case distressScore >= 0.4 && distressScore >= angerScore:
		return core.ToneDistressed, clamp01(distressScore), indicators
	case angerScore >= 0.5:
		return core.ToneAngry, clamp01(angerScore), indicators
	default:
		return core.ToneNeutral, 1.0 - clamp01(angerScore+distressScore), nil
	}
}

func clamp01(v float64) float64 {
	if v > 1 {
		return 1
	}
	if v < 0 {
		return 0
	}
	return v
}
