package moderation

import (
	"regexp"
	"strings"
)

// scopePattern pairs a topic label with a pattern that recognizes it. Only
// unambiguous non-weather topics are listed; anything not matching is treated
// as in-scope and left to the model's own system prompt.
type scopePattern struct {
	topic   string
	pattern *regexp.Regexp
}

var outOfScopePatterns = []scopePattern{
	{"arithmetic", regexp.MustCompile(`(?i)\bwhat\s+is\s+[-\d][\d\s.,]*[-+*/x×÷][\d\s.,]*\d`)},
	{"arithmetic", regexp.MustCompile(`(?i)\b(calculate|compute|solve)\b.*\d+\s*[-+*/x×÷]\s*\d+`)},
	{"finance", regexp.MustCompile(`(?i)\b(stock(s| price| market)?|invest(ing|ment)?|crypto(currency)?|bitcoin|portfolio|mortgage|interest rate)\b`)},
	{"cooking", regexp.MustCompile(`(?i)\b(recipe|how (do i|to) (cook|bake)|ingredient(s)?|preheat)\b`)},
	{"travel booking", regexp.MustCompile(`(?i)\b(book (a |me )?(flight|hotel|ticket)|flight booking|reserve a (room|table))\b`)},
	{"trivia", regexp.MustCompile(`(?i)\b(who (was|is) the (first|current|last)|what (year|century) (was|did)|capital of)\b`)},
	{"creative writing", regexp.MustCompile(`(?i)\b(write (me )?(a |an )?(poem|story|song|essay|haiku)|compose a)\b`)},
	{"how-to", regexp.MustCompile(`(?i)\bhow (do i|to) (fix|install|build|configure|program|code)\b`)},
}

// weatherVocabulary are domain terms whose presence keeps a flagged message
// from being blocked outright; venting about the weather is tolerated.
var weatherVocabulary = []string{
	"weather", "rain", "snow", "sun", "sunny", "cloud", "cloudy", "wind",
	"storm", "temperature", "forecast", "humid", "humidity", "cold", "hot",
	"warm", "freez", "degrees", "celsius", "fahrenheit", "umbrella", "fog",
	"hail", "thunder", "drizzle", "sleet",
}

// checkScope reports whether the message is about a recognized non-weather
// topic, returning the matched topic label for auditability.
func checkScope(text string) (inScope bool, topic string) {
	if containsWeatherVocabulary(text) {
		return true, ""
	}
	for _, sp := range outOfScopePatterns {
		if sp.pattern.MatchString(text) {
			return false, sp.topic
		}
	}
	return true, ""
}

func containsWeatherVocabulary(text string) bool {
	lower := strings.ToLower(text)
	for _, term := range weatherVocabulary {
		if strings.Contains(lower, term) {
			return true
		}
	}
	return false
}
