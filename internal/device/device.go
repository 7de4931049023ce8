// Package device runs the firmware side of the link on a host: a polling
// loop that pulls bytes off a transport, feeds them to the frame decoder
// one at a time, and drives a display sink. It backs the device simulator
// and any test that wants to exercise the full decode path against a
// stream.
package device

import (
	"context"
	"errors"
	"io"

	"github.com/banshee-data/ledgrid/internal/frame"
	"github.com/banshee-data/ledgrid/internal/monitoring"
)

// discardLogThreshold is how many newly discarded bytes accumulate before
// the runner logs a resynchronization notice.
const discardLogThreshold = 64

// Runner drives a frame.Decoder from an io.Reader until the reader is
// exhausted or the context is cancelled.
type Runner struct {
	r    io.Reader
	dec  *frame.Decoder
	sink frame.RowWriter

	lastDiscarded uint64
}

// NewRunner returns a Runner decoding the byte stream from r into sink.
func NewRunner(r io.Reader, sink frame.RowWriter) *Runner {
	return &Runner{
		r:    r,
		dec:  frame.NewDecoder(sink),
		sink: sink,
	}
}

// Run consumes the stream until EOF, a read error, or ctx cancellation.
// EOF is a clean shutdown and returns nil.
//
// Sink errors are logged and swallowed here rather than stopping the loop:
// the decoder has already consumed the frame, and a device keeps listening
// for the next frame no matter what happened to the last one.
func (r *Runner) Run(ctx context.Context) error {
	type chunk struct {
		data []byte
		err  error
	}
	chunks := make(chan chunk)

	// The blocking reads happen in their own goroutine so the loop below
	// can honour ctx cancellation between chunks.
	go func() {
		defer close(chunks)
		buf := make([]byte, 256)
		for {
			n, err := r.r.Read(buf)
			var data []byte
			if n > 0 {
				data = append([]byte(nil), buf[:n]...)
			}
			select {
			case chunks <- chunk{data: data, err: err}:
			case <-ctx.Done():
				return
			}
			if err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case c, ok := <-chunks:
			if !ok {
				return nil
			}
			for _, b := range c.data {
				if err := r.dec.Feed(b); err != nil {
					monitoring.Logf("display sink rejected row write: %v", err)
				}
			}
			r.noteDiscards()
			if c.err != nil {
				if errors.Is(c.err, io.EOF) {
					return nil
				}
				return c.err
			}
		}
	}
}

func (r *Runner) noteDiscards() {
	d := r.dec.Discarded()
	if d-r.lastDiscarded >= discardLogThreshold {
		monitoring.Logf("resynchronizing: %d bytes discarded so far", d)
		r.lastDiscarded = d
	}
}

// Discarded reports the decoder's diagnostic counter of bytes dropped
// while hunting for a frame header.
func (r *Runner) Discarded() uint64 {
	return r.dec.Discarded()
}
