package serialmux

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/banshee-data/ledgrid/internal/frame"
)

func TestClassifyDeviceLine(t *testing.T) {
	tests := []struct {
		line string
		want string
	}{
		{line: "boot ledgrid v1", want: EventTypeBoot},
		{line: "resync n=12", want: EventTypeResync},
		{line: "discarded 3 bytes", want: EventTypeResync},
		{line: "frame 42", want: EventTypeFrameAck},
		{line: "ok", want: EventTypeFrameAck},
		{line: "???", want: EventTypeUnknown},
		{line: "", want: EventTypeUnknown},
	}

	for _, tt := range tests {
		if got := ClassifyDeviceLine(tt.line); got != tt.want {
			t.Errorf("ClassifyDeviceLine(%q) = %q, want %q", tt.line, got, tt.want)
		}
	}
}

func TestParseRowsHex(t *testing.T) {
	bm, err := ParseRowsHex("81 42 24 18 18 24 42 81")
	if err != nil {
		t.Fatalf("ParseRowsHex: %v", err)
	}
	want := frame.Bitmap{0x81, 0x42, 0x24, 0x18, 0x18, 0x24, 0x42, 0x81}
	if diff := cmp.Diff(want, bm); diff != "" {
		t.Errorf("bitmap mismatch (-want +got):\n%s", diff)
	}

	if _, err := ParseRowsHex("00 11 22"); err == nil {
		t.Error("short input should fail")
	}
	if _, err := ParseRowsHex("zz 00 00 00 00 00 00 00"); err == nil {
		t.Error("non-hex input should fail")
	}

	// Comma separation and 0x prefixes are accepted.
	bm, err = ParseRowsHex("0xFF,0x00,0xFF,0x00,0xFF,0x00,0xFF,0x00")
	if err != nil {
		t.Fatalf("ParseRowsHex with prefixes: %v", err)
	}
	if bm[0] != 0xFF || bm[1] != 0x00 {
		t.Errorf("unexpected parse result %#v", bm)
	}
}
