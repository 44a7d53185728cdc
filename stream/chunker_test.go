package stream

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkerConcatenation(t *testing.T) {
	c := NewChunker(0)

	var chunks []string
	c.Chunk(context.Background(), "Sunny in Paris, 21 degrees.", func(delta string) bool {
		chunks = append(chunks, delta)
		return true
	})

	require.Greater(t, len(chunks), 1)
	assert.Equal(t, "Sunny in Paris, 21 degrees.", strings.Join(chunks, ""))
}

func TestChunkerStopsWhenEmitDeclines(t *testing.T) {
	c := NewChunker(0)

	var count int
	c.Chunk(context.Background(), "one two three four", func(string) bool {
		count++
		return count < 2
	})

	assert.Equal(t, 2, count)
}

func TestChunkerHonoursCancellation(t *testing.T) {
	c := NewChunker(DefaultChunkDelay)

	ctx, cancel := context.WithCancel(context.Background())

	var count int
	c.Chunk(ctx, "one two three four five six", func(string) bool {
		count++
		cancel()
		return true
	})

	assert.Equal(t, 1, count, "pacing delay must observe cancellation")
}

func TestChunkerEmptyText(t *testing.T) {
	c := NewChunker(0)

	var count int
	c.Chunk(context.Background(), "", func(string) bool {
		count++
		return true
	})

	assert.Zero(t, count)
}
