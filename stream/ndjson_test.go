package stream

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meteolab/skycast/core"
)

func TestWriterFraming(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	require.NoError(t, w.Write(core.NewProgressEvent("thinking")))
	require.NoError(t, w.Write(core.NewContentEvent("Sunny ")))
	require.NoError(t, w.Close())

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 3)

	// Every event line is standalone JSON; the sentinel is not.
	for _, line := range lines[:2] {
		var ev core.StreamEvent
		require.NoError(t, json.Unmarshal([]byte(line), &ev))
	}
	assert.Equal(t, DoneSentinel, lines[2])
}

func TestWriterDrain(t *testing.T) {
	events := make(chan core.StreamEvent, 3)
	events <- core.NewContentEvent("a")
	events <- core.NewContentEvent("b")
	close(events)

	var buf bytes.Buffer
	require.NoError(t, NewWriter(&buf).Drain(context.Background(), events))

	scanner := bufio.NewScanner(&buf)
	var lines []string
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	require.Len(t, lines, 3)
	assert.Equal(t, DoneSentinel, lines[2])
}

func TestWriterDrainStopsOnCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	events := make(chan core.StreamEvent)

	var buf bytes.Buffer
	err := NewWriter(&buf).Drain(ctx, events)
	assert.ErrorIs(t, err, context.Canceled)
}
