package display

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestCheckIndexes(t *testing.T) {
	tests := []struct {
		name   string
		device int
		row    int
		err    error
	}{
		{name: "valid first row", device: 0, row: 0},
		{name: "valid last row", device: 0, row: 7},
		{name: "negative device", device: -1, row: 0, err: ErrInvalidDevice},
		{name: "device out of range", device: 1, row: 0, err: ErrInvalidDevice},
		{name: "negative row", device: 0, row: -1, err: ErrInvalidRow},
		{name: "row out of range", device: 0, row: 8, err: ErrInvalidRow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckIndexes(tt.device, tt.row)
			if !errors.Is(err, tt.err) {
				t.Errorf("CheckIndexes(%d, %d) = %v, want %v", tt.device, tt.row, err, tt.err)
			}
		})
	}
}

func TestConsoleRendersOnLastRow(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf)

	// Diagonal: bit 7 is the leftmost column.
	for row := 0; row < Rows; row++ {
		if err := c.WriteRow(0, row, 1<<(7-row)); err != nil {
			t.Fatalf("WriteRow(%d): %v", row, err)
		}
		if row < Rows-1 && buf.Len() != 0 {
			t.Fatalf("rendered before the last row arrived")
		}
	}

	out := buf.String()
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != Rows+2 {
		t.Fatalf("rendered %d lines, want %d", len(lines), Rows+2)
	}
	if lines[1] != "|#       |" {
		t.Errorf("row 0 = %q, want leftmost pixel lit", lines[1])
	}
	if lines[8] != "|       #|" {
		t.Errorf("row 7 = %q, want rightmost pixel lit", lines[8])
	}
}

func TestConsoleRejectsBadIndexes(t *testing.T) {
	c := NewConsole(&bytes.Buffer{})
	if err := c.WriteRow(1, 0, 0); !errors.Is(err, ErrInvalidDevice) {
		t.Errorf("WriteRow(1, 0) error = %v, want ErrInvalidDevice", err)
	}
	if err := c.WriteRow(0, 9, 0); !errors.Is(err, ErrInvalidRow) {
		t.Errorf("WriteRow(0, 9) error = %v, want ErrInvalidRow", err)
	}
}

func TestRecorderFrames(t *testing.T) {
	r := NewRecorder()
	for i := 0; i < Rows; i++ {
		if err := r.WriteRow(0, i, byte(i)); err != nil {
			t.Fatalf("WriteRow: %v", err)
		}
	}
	// Partial second frame: must not appear in Frames.
	if err := r.WriteRow(0, 0, 0xFF); err != nil {
		t.Fatalf("WriteRow: %v", err)
	}

	frames := r.Frames()
	if len(frames) != 1 {
		t.Fatalf("Frames returned %d frames, want 1", len(frames))
	}
	for i, v := range frames[0] {
		if v != byte(i) {
			t.Errorf("frame[%d] = %d, want %d", i, v, i)
		}
	}
}

func TestRecorderInjectedError(t *testing.T) {
	r := NewRecorder()
	r.Err = errors.New("sink down")
	if err := r.WriteRow(0, 0, 1); !errors.Is(err, r.Err) {
		t.Errorf("WriteRow error = %v, want %v", err, r.Err)
	}
	if len(r.Writes) != 0 {
		t.Errorf("failed write was recorded")
	}
}
