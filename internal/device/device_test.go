package device

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/banshee-data/ledgrid/internal/display"
	"github.com/banshee-data/ledgrid/internal/frame"
	"github.com/banshee-data/ledgrid/internal/monitoring"
)

func TestRunnerDecodesStream(t *testing.T) {
	var stream []byte
	var err error
	stream, err = frame.AppendFrame(stream, frame.Bitmap{1, 2, 3, 4, 5, 6, 7, 8})
	if err != nil {
		t.Fatalf("AppendFrame: %v", err)
	}
	// Line noise between frames.
	stream = append(stream, 0x00, 0x13, 0x37)
	stream, err = frame.AppendFrame(stream, frame.Bitmap{8, 7, 6, 5, 4, 3, 2, 1})
	if err != nil {
		t.Fatalf("AppendFrame: %v", err)
	}

	sink := display.NewRecorder()
	r := NewRunner(bytes.NewReader(stream), sink)
	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	want := [][]byte{
		{1, 2, 3, 4, 5, 6, 7, 8},
		{8, 7, 6, 5, 4, 3, 2, 1},
	}
	if diff := cmp.Diff(want, sink.Frames()); diff != "" {
		t.Errorf("decoded frames mismatch (-want +got):\n%s", diff)
	}
	if got := r.Discarded(); got != 3 {
		t.Errorf("Discarded = %d, want 3", got)
	}
}

func TestRunnerStopsOnContextCancel(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()

	sink := display.NewRecorder()
	r := NewRunner(pr, sink)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Run returned %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after context cancellation")
	}
}

func TestRunnerSurvivesSinkErrors(t *testing.T) {
	original := monitoring.Logf
	defer monitoring.SetLogger(original)
	monitoring.SetLogger(nil)

	sink := display.NewRecorder()
	sink.Err = errors.New("row rejected")

	var stream []byte
	stream, _ = frame.AppendFrame(stream, frame.Bitmap{1, 1, 1, 1, 1, 1, 1, 1})
	stream, _ = frame.AppendFrame(stream, frame.Bitmap{2, 2, 2, 2, 2, 2, 2, 2})

	r := NewRunner(bytes.NewReader(stream), sink)
	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("Run should swallow sink errors, got %v", err)
	}
	if len(sink.Writes) != 0 {
		t.Errorf("recorder accepted writes while erroring")
	}
}
