package serialmux

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/banshee-data/ledgrid/internal/frame"
)

const (
	EventTypeBoot     = "boot"
	EventTypeResync   = "resync"
	EventTypeFrameAck = "frame_ack"
	EventTypeUnknown  = "unknown"
)

// ClassifyDeviceLine inspects a firmware debug line and returns a simple
// event type token. The classification is intentionally conservative: the
// firmware's debug output is informal and unversioned, so we match on the
// stable substrings only.
func ClassifyDeviceLine(line string) string {
	switch {
	case strings.HasPrefix(line, "boot"):
		return EventTypeBoot
	case strings.Contains(line, "resync") || strings.Contains(line, "discard"):
		return EventTypeResync
	case strings.HasPrefix(line, "frame") || strings.HasPrefix(line, "ok"):
		return EventTypeFrameAck
	default:
		return EventTypeUnknown
	}
}

// ParseRowsHex parses a whitespace or comma separated list of 8 hex bytes
// into a bitmap, e.g. "81 42 24 18 18 24 42 81".
func ParseRowsHex(s string) (frame.Bitmap, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ' ' || r == ',' || r == '\t'
	})
	if len(fields) != frame.Rows {
		return nil, fmt.Errorf("expected %d row bytes, got %d", frame.Rows, len(fields))
	}

	bm := make(frame.Bitmap, 0, frame.Rows)
	for i, f := range fields {
		v, err := strconv.ParseUint(strings.TrimPrefix(f, "0x"), 16, 8)
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid hex byte %q", i, f)
		}
		bm = append(bm, byte(v))
	}
	return bm, nil
}
