package serialmux

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/banshee-data/ledgrid/internal/frame"
)

// DisabledFrameMux is a no-op FrameMux implementation used when the matrix
// hardware is absent (for --disable-serial). It allows the server and
// admin routes to run without a real device. Subscribers are tracked so
// their channels can be deterministically closed on Unsubscribe() or
// Close(), allowing readers to unblock predictably during shutdown.
type DisabledFrameMux struct {
	mu          sync.Mutex
	subscribers map[string]chan string
	closing     bool
}

func NewDisabledFrameMux() *DisabledFrameMux {
	return &DisabledFrameMux{
		subscribers: make(map[string]chan string),
	}
}

func (d *DisabledFrameMux) Subscribe() (string, chan string) {
	id := randomID()
	ch := make(chan string)

	d.mu.Lock()
	if d.closing {
		// If already closing, return a closed channel so callers don't block.
		close(ch)
		d.mu.Unlock()
		return id, ch
	}
	d.subscribers[id] = ch
	d.mu.Unlock()
	return id, ch
}

func (d *DisabledFrameMux) Unsubscribe(id string) {
	d.mu.Lock()
	if ch, ok := d.subscribers[id]; ok {
		close(ch)
		delete(d.subscribers, id)
	}
	d.mu.Unlock()
}

func (d *DisabledFrameMux) SendFrame(bm frame.Bitmap) error {
	// Still enforce the encode contract so callers hit length bugs even
	// without hardware attached.
	_, err := frame.Encode(bm)
	return err
}

func (d *DisabledFrameMux) SendFrames(ctx context.Context, frames []frame.Bitmap, delay time.Duration) error {
	for _, bm := range frames {
		if err := d.SendFrame(bm); err != nil {
			return err
		}
	}
	return ctx.Err()
}

func (d *DisabledFrameMux) Monitor(ctx context.Context) error { <-ctx.Done(); return ctx.Err() }

func (d *DisabledFrameMux) Close() error {
	d.mu.Lock()
	if d.closing {
		d.mu.Unlock()
		return nil
	}
	d.closing = true
	// Close all subscriber channels
	for id, ch := range d.subscribers {
		close(ch)
		delete(d.subscribers, id)
	}
	d.mu.Unlock()
	return nil
}

func (d *DisabledFrameMux) Initialize() error { return nil }

func (d *DisabledFrameMux) AttachAdminRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/debug/serial-disabled", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("serial disabled"))
	})
}
