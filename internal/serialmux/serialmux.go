// Package serialmux manages the serial link to the LED matrix firmware. A
// single writer streams encoded frames down the port while any number of
// clients subscribe to the debug lines the firmware prints back up the
// same wire.
package serialmux

import (
	"bufio"
	"context"
	crand "crypto/rand"
	"embed"
	"encoding/hex"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"tailscale.com/tsweb"

	"github.com/banshee-data/ledgrid/internal/frame"
	"github.com/banshee-data/ledgrid/internal/timeutil"
)

var ErrWriteFailed = fmt.Errorf("failed to write frame to serial port")

// deviceBootDelay is how long to wait after opening the port before the
// first frame. Opening the port resets Arduino-style boards, and bytes
// sent during the bootloader window are lost.
const deviceBootDelay = 2 * time.Second

//go:embed templates/*
var adminTemplateFS embed.FS

var sendFrameTemplate = template.Must(template.ParseFS(adminTemplateFS, "templates/send-frame.html.tmpl"))

// FrameMux serializes frame writes to a single serial port and fans the
// firmware's debug output out to subscribers.
type FrameMux[T SerialPorter] struct {
	port         T
	clock        timeutil.Clock
	subscribers  map[string]chan string
	subscriberMu sync.Mutex
	writeMu      sync.Mutex
	closing      bool
	closingMu    sync.Mutex
}

// FrameMuxInterface defines the interface for the FrameMux type.
type FrameMuxInterface interface {
	// Subscribe creates a new channel for receiving debug line events
	// from the firmware. The channel ID identifies the channel when
	// unsubscribing.
	Subscribe() (string, chan string)
	// Unsubscribe removes a channel from the list of subscribers.
	Unsubscribe(string)
	// SendFrame encodes one bitmap and writes it to the serial port.
	SendFrame(frame.Bitmap) error
	// SendFrames streams a frame sequence with a fixed delay between
	// frames, stopping early if the context is cancelled.
	SendFrames(context.Context, []frame.Bitmap, time.Duration) error
	// Monitor reads debug lines from the serial port and sends them to
	// the appropriate channels.
	Monitor(context.Context) error
	// Close closes all subscribed channels and closes the serial port.
	Close() error

	Initialize() error

	// AttachAdminRoutes attaches admin debugging endpoints to the given
	// HTTP mux served at /debug/. These routes are accessible only over
	// localhost/via Tailscale and are not publicly accessible.
	AttachAdminRoutes(*http.ServeMux)
}

// NewFrameMux creates a FrameMux instance backed by the given port.
func NewFrameMux[T SerialPorter](port T) *FrameMux[T] {
	return &FrameMux[T]{
		port:        port,
		clock:       timeutil.RealClock{},
		subscribers: make(map[string]chan string),
	}
}

// randomID generates a random channel ID (8 byte random hex encoded value)
func randomID() string {
	b := make([]byte, 8)
	crand.Read(b)
	return hex.EncodeToString(b)
}

func (s *FrameMux[T]) Subscribe() (string, chan string) {
	id := randomID()
	ch := make(chan string)
	s.subscriberMu.Lock()
	defer s.subscriberMu.Unlock()
	s.subscribers[id] = ch
	return id, ch
}

// Unsubscribe removes a subscriber from the frame mux.
func (s *FrameMux[T]) Unsubscribe(id string) {
	s.subscriberMu.Lock()
	defer s.subscriberMu.Unlock()
	if ch, ok := s.subscribers[id]; ok {
		close(ch)
		delete(s.subscribers, id)
	}
}

// Initialize waits out the device boot window and clears the display by
// sending an all-dark frame, so a stale image from before a restart never
// lingers.
func (s *FrameMux[T]) Initialize() error {
	s.clock.Sleep(deviceBootDelay)

	blank := make(frame.Bitmap, frame.Rows)
	if err := s.SendFrame(blank); err != nil {
		return fmt.Errorf("failed to clear display: %w", err)
	}
	return nil
}

// SendFrame encodes the bitmap and writes the full frame to the serial
// port. Writes are serialized so interleaved callers can never corrupt
// framing mid-frame.
func (s *FrameMux[T]) SendFrame(bm frame.Bitmap) error {
	encoded, err := frame.Encode(bm)
	if err != nil {
		return err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	n, err := s.port.Write(encoded)
	if err != nil {
		return err
	}
	if n != len(encoded) {
		return ErrWriteFailed
	}
	return nil
}

// SendFrames streams the sequence with delay between consecutive frames.
// A cancelled context stops the stream between frames, never mid-frame.
func (s *FrameMux[T]) SendFrames(ctx context.Context, frames []frame.Bitmap, delay time.Duration) error {
	for i, bm := range frames {
		if err := s.SendFrame(bm); err != nil {
			return fmt.Errorf("frame %d: %w", i, err)
		}
		if i == len(frames)-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.clock.After(delay):
		}
	}
	return nil
}

// Monitor monitors the serial port for firmware debug lines and sends them
// to subscribers.
func (s *FrameMux[T]) Monitor(ctx context.Context) error {
	scan := bufio.NewScanner(s.port)

	lineChan := make(chan string)
	scanErrChan := make(chan error, 1)

	// start a goroutine to read from the serial port & send any lines that
	// are scanned to lineChan, and any errors to the scanErrChan
	//
	// the blocking scan.Scan will not interfere with our outer loop
	// awaiting lines & context cancellation.
	go func() {
		defer close(lineChan)
		for scan.Scan() {
			select {
			case lineChan <- scan.Text():
			case <-ctx.Done():
				return
			}
		}
		if err := scan.Err(); err != nil {
			select {
			case scanErrChan <- err:
			case <-ctx.Done():
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case err := <-scanErrChan:
			return err

		case line, ok := <-lineChan:
			// if the channel is closed, we're done reading from the serial port
			if !ok {
				if err := scan.Err(); err != nil {
					return err
				}
				return nil
			}
			s.closingMu.Lock()
			if s.closing {
				s.closingMu.Unlock()
				return nil
			}
			s.closingMu.Unlock()

			s.subscriberMu.Lock()
			for _, ch := range s.subscribers {
				select {
				case ch <- line:
				default:
					// if the channel is full/blocking skip so as not to block the outer loop
				}
			}
			s.subscriberMu.Unlock()
		}
	}
}

func (s *FrameMux[T]) Close() error {
	s.closingMu.Lock()
	s.closing = true
	s.closingMu.Unlock()

	s.subscriberMu.Lock()
	defer s.subscriberMu.Unlock()
	for id, ch := range s.subscribers {
		close(ch)
		delete(s.subscribers, id)
	}
	return s.port.Close()
}

func (s *FrameMux[T]) AttachAdminRoutes(mux *http.ServeMux) {
	debug := tsweb.Debugger(mux)

	// Basic frame / live tail monitor interface using the below two API endpoints.
	debug.HandleFunc("send-frame", "send a raw frame to the display", func(w http.ResponseWriter, r *http.Request) {
		if err := sendFrameTemplate.Execute(w, nil); err != nil {
			http.Error(w, "Failed to render template", http.StatusInternalServerError)
			return
		}
	})

	// API endpoint to write a frame to the serial port. Rows are given as
	// 8 hex bytes, e.g. "81 42 24 18 18 24 42 81".
	debug.HandleSilentFunc("send-frame-api", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		rows := strings.TrimSpace(r.FormValue("rows"))
		if rows == "" {
			http.Error(w, "Missing rows", http.StatusBadRequest)
			return
		}
		bm, err := ParseRowsHex(rows)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err := s.SendFrame(bm); err != nil {
			http.Error(w, "Failed to write frame", http.StatusInternalServerError)
			return
		}
		io.WriteString(w, fmt.Sprintf("Wrote frame %q to serial port", rows))
	})

	// API endpoint to issue Server-Side Events (SSE) in response to debug
	// lines coming from the firmware.
	debug.HandleSilentFunc("tail", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("X-Accel-Buffering", "no") // Disable buffering for nginx

		id, c := s.Subscribe()
		defer s.Unsubscribe(id)

		// Send initial ping to establish connection
		w.Write([]byte(": ping\n\n"))
		w.(http.Flusher).Flush()

		for {
			select {
			case payload, ok := <-c:
				if !ok {
					return
				}
				_, err := w.Write([]byte(fmt.Sprintf("data: %s\n\n", payload)))
				if err != nil {
					return
				}
				w.(http.Flusher).Flush()
			case <-r.Context().Done():
				return
			}
		}
	})

	debug.HandleSilentFunc("tail.js", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/javascript")
		w.Header().Set("Cache-Control", "no-cache")

		f, err := adminTemplateFS.Open("templates/tail.js")
		if err != nil {
			http.Error(w, "Failed to open tail.js", http.StatusInternalServerError)
			return
		}
		defer f.Close()
		io.Copy(w, f)
	})
}
