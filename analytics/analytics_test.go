package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meteolab/skycast/core"
)

func TestFromResponse(t *testing.T) {
	resp := core.Response{
		Response:     "Sunny, 21C.",
		ModelUsed:    "weather-analyst",
		FallbackUsed: true,
		ToolCalls:    []core.ToolCallRecord{{ID: "c1", Name: "get_current_weather"}},
		Moderation:   &core.ModerationVerdict{Tone: core.ToneAngry},
	}

	rec := FromResponse("s1", resp, 250*time.Millisecond)

	assert.Equal(t, "s1", rec.SessionID)
	assert.Equal(t, "weather-analyst", rec.Model)
	assert.True(t, rec.FallbackUsed)
	assert.Equal(t, 1, rec.ToolCalls)
	assert.Equal(t, core.ToneAngry, rec.Tone)
	assert.False(t, rec.Blocked)
	assert.Equal(t, int64(250), rec.DurationMS)
	assert.False(t, rec.Timestamp.IsZero())
}

func TestMemorySink(t *testing.T) {
	sink := NewMemorySink()
	sink.Record(Record{SessionID: "s1"})
	sink.Record(Record{SessionID: "s2"})

	records := sink.Records()
	require.Len(t, records, 2)
	assert.Equal(t, "s1", records[0].SessionID)

	// Returned slice is a copy.
	records[0].SessionID = "mutated"
	assert.Equal(t, "s1", sink.Records()[0].SessionID)
}

func TestMultiSink(t *testing.T) {
	a, b := NewMemorySink(), NewMemorySink()
	MultiSink{a, b}.Record(Record{SessionID: "s1"})

	assert.Len(t, a.Records(), 1)
	assert.Len(t, b.Records(), 1)
}
