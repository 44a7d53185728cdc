package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/meteolab/skycast/core"
)

// DoneSentinel terminates an NDJSON event stream. It is a bare line, distinct
// from any JSON event payload, so consumers can detect end-of-stream without
// parsing.
const DoneSentinel = "[DONE]"

// flusher matches http.Flusher without importing net/http here.
type flusher interface {
	Flush()
}

// Writer frames stream events as NDJSON: one JSON record per line, terminated
// by the [DONE] sentinel line. If the underlying writer supports flushing
// (an http.ResponseWriter does), every line is flushed immediately so clients
// see events as they happen.
type Writer struct {
	w   io.Writer
	enc *json.Encoder
}

// NewWriter wraps w in an NDJSON event writer.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w, enc: json.NewEncoder(w)}
}

// Write emits one event as a JSON line.
func (w *Writer) Write(ev core.StreamEvent) error {
	if err := w.enc.Encode(ev); err != nil {
		return fmt.Errorf("encode stream event: %w", err)
	}
	w.flush()
	return nil
}

// Close writes the end-of-stream sentinel.
func (w *Writer) Close() error {
	if _, err := fmt.Fprintln(w.w, DoneSentinel); err != nil {
		return fmt.Errorf("write stream sentinel: %w", err)
	}
	w.flush()
	return nil
}

func (w *Writer) flush() {
	if f, ok := w.w.(flusher); ok {
		f.Flush()
	}
}

// Drain writes every event from events, then the sentinel. It stops early if
// ctx is cancelled or the underlying writer fails (a disconnected client).
func (w *Writer) Drain(ctx context.Context, events <-chan core.StreamEvent) error {
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return w.Close()
			}
			if err := w.Write(ev); err != nil {
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
