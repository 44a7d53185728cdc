package stream

import (
	"context"
	"time"

	"github.com/meteolab/skycast/model"
)

// DefaultChunkDelay paces synthetic chunks so clients render a typing effect
// instead of one burst.
const DefaultChunkDelay = 20 * time.Millisecond

// Chunker simulates token streaming for backends without native support by
// splitting a completed answer into word-level chunks. This is a
// presentation-layer workaround: consumers must not assume chunks align with
// real token boundaries.
type Chunker struct {
	delay time.Duration
}

// NewChunker constructs a chunker with the given pacing delay between chunks.
// A non-positive delay emits chunks back to back.
func NewChunker(delay time.Duration) *Chunker {
	return &Chunker{delay: delay}
}

// Chunk splits text into word chunks and feeds them to emit in order.
// Concatenating all chunks reproduces text exactly. Chunking stops early when
// emit returns false or the context is cancelled.
func (c *Chunker) Chunk(ctx context.Context, text string, emit func(delta string) bool) {
	for i, word := range model.SplitWords(text) {
		if i > 0 && c.delay > 0 {
			select {
			case <-time.After(c.delay):
			case <-ctx.Done():
				return
			}
		}
		if !emit(word) {
			return
		}
	}
}
