package serialmux

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/banshee-data/ledgrid/internal/frame"
	"github.com/banshee-data/ledgrid/internal/timeutil"
)

func TestInitializeWaitsOutBootAndClearsDisplay(t *testing.T) {
	port := NewTestableSerialPort()
	mux := NewFrameMux(port)
	clock := timeutil.NewMockClock(time.Now())
	mux.clock = clock

	if err := mux.Initialize(); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	sleeps := clock.Sleeps()
	if len(sleeps) != 1 || sleeps[0] != deviceBootDelay {
		t.Errorf("slept %v, want one sleep of %v", sleeps, deviceBootDelay)
	}

	want := make([]byte, frame.Size)
	want[0] = frame.Header
	if got := port.GetWrittenData(); !bytes.Equal(got, want) {
		t.Errorf("wrote %#v, want blank frame %#v", got, want)
	}
}

func TestSendFramesPacesWithClock(t *testing.T) {
	port := NewTestableSerialPort()
	mux := NewFrameMux(port)
	clock := timeutil.NewMockClock(time.Now())
	mux.clock = clock

	frames := []frame.Bitmap{
		{1, 1, 1, 1, 1, 1, 1, 1},
		{2, 2, 2, 2, 2, 2, 2, 2},
	}
	done := make(chan error, 1)
	go func() { done <- mux.SendFrames(context.Background(), frames, time.Hour) }()

	// The first frame goes out immediately; the second waits on the clock.
	deadline := time.Now().Add(2 * time.Second)
	for clock.Waiters() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("SendFrames never reached the inter-frame wait")
		}
		time.Sleep(time.Millisecond)
	}
	if got := len(port.GetWrittenData()); got != frame.Size {
		t.Errorf("wrote %d bytes before the delay elapsed, want %d", got, frame.Size)
	}

	clock.Advance(time.Hour)
	if err := <-done; err != nil {
		t.Fatalf("SendFrames: %v", err)
	}
	if got := len(port.GetWrittenData()); got != 2*frame.Size {
		t.Errorf("wrote %d bytes, want %d", got, 2*frame.Size)
	}
}

func TestSendFrameWritesWireFormat(t *testing.T) {
	port := NewTestableSerialPort()
	mux := NewFrameMux(port)

	bm := frame.Bitmap{0x81, 0x42, 0x24, 0x18, 0x18, 0x24, 0x42, 0x81}
	if err := mux.SendFrame(bm); err != nil {
		t.Fatalf("SendFrame: %v", err)
	}

	want := append([]byte{frame.Header}, bm...)
	if got := port.GetWrittenData(); !bytes.Equal(got, want) {
		t.Errorf("wrote %#v, want %#v", got, want)
	}
}

func TestSendFrameRejectsBadBitmap(t *testing.T) {
	port := NewTestableSerialPort()
	mux := NewFrameMux(port)

	err := mux.SendFrame(frame.Bitmap{1, 2, 3})
	if !errors.Is(err, frame.ErrInvalidBitmapLength) {
		t.Fatalf("SendFrame error = %v, want ErrInvalidBitmapLength", err)
	}
	if port.WriteCalls != 0 {
		t.Errorf("invalid bitmap reached the port (%d writes)", port.WriteCalls)
	}
}

func TestSendFrameShortWrite(t *testing.T) {
	port := NewTestableSerialPort()
	port.ShortWrites = true
	mux := NewFrameMux(port)

	err := mux.SendFrame(make(frame.Bitmap, frame.Rows))
	if !errors.Is(err, ErrWriteFailed) {
		t.Errorf("SendFrame error = %v, want ErrWriteFailed", err)
	}
}

func TestSendFrameWriteError(t *testing.T) {
	port := NewTestableSerialPort()
	port.WriteError = errors.New("port gone")
	mux := NewFrameMux(port)

	if err := mux.SendFrame(make(frame.Bitmap, frame.Rows)); err == nil {
		t.Error("SendFrame should propagate write errors")
	}
}

func TestSendFramesStreamsAll(t *testing.T) {
	port := NewTestableSerialPort()
	mux := NewFrameMux(port)

	frames := []frame.Bitmap{
		{1, 1, 1, 1, 1, 1, 1, 1},
		{2, 2, 2, 2, 2, 2, 2, 2},
		{3, 3, 3, 3, 3, 3, 3, 3},
	}
	if err := mux.SendFrames(context.Background(), frames, time.Millisecond); err != nil {
		t.Fatalf("SendFrames: %v", err)
	}

	if got := len(port.GetWrittenData()); got != 3*frame.Size {
		t.Errorf("wrote %d bytes, want %d", got, 3*frame.Size)
	}
}

func TestSendFramesHonoursContext(t *testing.T) {
	port := NewTestableSerialPort()
	mux := NewFrameMux(port)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	frames := []frame.Bitmap{
		{1, 1, 1, 1, 1, 1, 1, 1},
		{2, 2, 2, 2, 2, 2, 2, 2},
	}
	err := mux.SendFrames(ctx, frames, time.Hour)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("SendFrames error = %v, want context.Canceled", err)
	}
	// The first frame goes out before the delay; the second never does.
	if got := len(port.GetWrittenData()); got != frame.Size {
		t.Errorf("wrote %d bytes before cancellation, want %d", got, frame.Size)
	}
}

func TestMonitorBroadcastsDebugLines(t *testing.T) {
	port := NewTestableSerialPort()
	port.BlockReads = true
	mux := NewFrameMux(port)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	id, events := mux.Subscribe()
	defer mux.Unsubscribe(id)

	done := make(chan error, 1)
	go func() { done <- mux.Monitor(ctx) }()

	port.AddReadData([]byte("boot ledgrid v1\n"))

	select {
	case line := <-events:
		if line != "boot ledgrid v1" {
			t.Errorf("got line %q, want boot line", line)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no line broadcast within timeout")
	}

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Monitor returned %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Monitor did not stop after cancellation")
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	port := NewTestableSerialPort()
	mux := NewFrameMux(port)

	id, ch := mux.Subscribe()
	mux.Unsubscribe(id)

	if _, ok := <-ch; ok {
		t.Error("channel should be closed after Unsubscribe")
	}
}

func TestCloseClosesSubscribersAndPort(t *testing.T) {
	port := NewTestableSerialPort()
	mux := NewFrameMux(port)

	_, ch := mux.Subscribe()
	if err := mux.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, ok := <-ch; ok {
		t.Error("subscriber channel should be closed after Close")
	}
	if !port.Closed {
		t.Error("port should be closed after Close")
	}
}
