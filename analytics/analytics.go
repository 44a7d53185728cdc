// Package analytics records per-request outcomes for later inspection. Sinks
// are fire-and-forget from the orchestration core's perspective: a sink
// failure must never fail the user-facing request, so Record returns nothing.
package analytics

import (
	"sync"
	"time"

	"github.com/meteolab/skycast/core"
	"github.com/meteolab/skycast/logging"
)

// Record is one request outcome.
type Record struct {
	SessionID    string    `json:"session_id"`
	Model        string    `json:"model,omitempty"`
	FallbackUsed bool      `json:"fallback_used"`
	ToolCalls    int       `json:"tool_calls"`
	Blocked      bool      `json:"blocked"`
	Tone         core.Tone `json:"tone,omitempty"`
	DurationMS   int64     `json:"duration_ms"`
	Timestamp    time.Time `json:"timestamp"`
}

// Sink consumes records.
type Sink interface {
	Record(rec Record)
}

// FromResponse builds a record from a consolidated response.
func FromResponse(sessionID string, resp core.Response, duration time.Duration) Record {
	rec := Record{
		SessionID:    sessionID,
		Model:        resp.ModelUsed,
		FallbackUsed: resp.FallbackUsed,
		ToolCalls:    len(resp.ToolCalls),
		DurationMS:   duration.Milliseconds(),
		Timestamp:    time.Now().UTC(),
	}
	if resp.Moderation != nil {
		rec.Blocked = resp.Moderation.Blocked
		rec.Tone = resp.Moderation.Tone
	}
	return rec
}

// MemorySink keeps records in memory. Useful for tests and the demo server's
// stats endpoint.
type MemorySink struct {
	mu      sync.RWMutex
	records []Record
}

// NewMemorySink constructs an empty in-memory sink.
func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

func (s *MemorySink) Record(rec Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
}

// Records returns a copy of everything recorded so far.
func (s *MemorySink) Records() []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Record, len(s.records))
	copy(out, s.records)
	return out
}

// LogSink writes each record as a structured log line.
type LogSink struct {
	logger logging.Logger
}

// NewLogSink constructs a sink over a logger.
func NewLogSink(logger logging.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Record(rec Record) {
	s.logger.Info("analytics.request",
		"session_id", rec.SessionID,
		"model", rec.Model,
		"fallback_used", rec.FallbackUsed,
		"tool_calls", rec.ToolCalls,
		"blocked", rec.Blocked,
		"tone", string(rec.Tone),
		"duration_ms", rec.DurationMS,
	)
}

// MultiSink fans records out to several sinks.
type MultiSink []Sink

func (s MultiSink) Record(rec Record) {
	for _, sink := range s {
		sink.Record(rec)
	}
}
