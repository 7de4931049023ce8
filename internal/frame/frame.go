// Package frame implements the wire protocol spoken between the host and
// the LED matrix firmware. A frame is a single header byte followed by one
// byte per display row; the header value is how the firmware resynchronizes
// after noise or a reset, so it is fixed and shared by both ends.
package frame

import (
	"errors"
	"fmt"
)

const (
	// Header marks the start of a frame on the wire.
	Header byte = 0xAA

	// Rows is the number of row bytes carried by a frame. The display is
	// 8x8, one byte per row, bit 7 leftmost.
	Rows = 8

	// Size is the total frame length on the wire: header plus row data.
	Size = 1 + Rows
)

// ErrInvalidBitmapLength is returned when a bitmap does not contain exactly
// one byte per display row.
var ErrInvalidBitmapLength = errors.New("bitmap must be exactly 8 bytes")

// Bitmap is one full display image: one byte per row, row 0 first. Bit 7 is
// the leftmost column, bit 0 the rightmost, 1 = lit.
type Bitmap []byte

// Validate checks the bitmap length against the frame contract.
func (b Bitmap) Validate() error {
	if len(b) != Rows {
		return fmt.Errorf("%w: got %d", ErrInvalidBitmapLength, len(b))
	}
	return nil
}

// Encode serializes a bitmap into a wire frame. The returned slice is
// always freshly allocated and exactly Size bytes long.
func Encode(b Bitmap) ([]byte, error) {
	return AppendFrame(make([]byte, 0, Size), b)
}

// AppendFrame appends the wire encoding of b to dst and returns the
// extended slice. Useful when streaming many frames without reallocating.
func AppendFrame(dst []byte, b Bitmap) ([]byte, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}
	dst = append(dst, Header)
	dst = append(dst, b...)
	return dst, nil
}
