package render

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/banshee-data/ledgrid/internal/frame"
)

// FineGridSize is the resolution of the fine click grid offered by the UI.
// It is compressed 2x2 to the display resolution before sending.
const FineGridSize = 16

// ErrInvalidGrid is returned when a grid does not match the expected
// dimensions.
var ErrInvalidGrid = errors.New("grid must be 8 rows of 8 cells")

// FromRows converts an 8x8 boolean grid to a bitmap. Cell [r][0] is the
// leftmost column, which maps to bit 7 of row byte r.
func FromRows(rows [][]bool) (frame.Bitmap, error) {
	if len(rows) != frame.Rows {
		return nil, fmt.Errorf("%w: got %d rows", ErrInvalidGrid, len(rows))
	}
	bm := make(frame.Bitmap, frame.Rows)
	for r, cells := range rows {
		if len(cells) != 8 {
			return nil, fmt.Errorf("%w: row %d has %d cells", ErrInvalidGrid, r, len(cells))
		}
		var b byte
		for c, on := range cells {
			if on {
				b |= 1 << (7 - c)
			}
		}
		bm[r] = b
	}
	return bm, nil
}

// Downsample16 compresses a 16x16 grid to a display bitmap by OR-ing each
// 2x2 block: if any pixel in the block is on, the display pixel is on.
func Downsample16(cells [FineGridSize][FineGridSize]bool) frame.Bitmap {
	m := mat.NewDense(FineGridSize, FineGridSize, nil)
	for r := 0; r < FineGridSize; r++ {
		for c := 0; c < FineGridSize; c++ {
			if cells[r][c] {
				m.Set(r, c, 1)
			}
		}
	}

	bm := make(frame.Bitmap, frame.Rows)
	for r := 0; r < frame.Rows; r++ {
		var b byte
		for c := 0; c < 8; c++ {
			block := m.Slice(2*r, 2*r+2, 2*c, 2*c+2)
			if mat.Sum(block) > 0 {
				b |= 1 << (7 - c)
			}
		}
		bm[r] = b
	}
	return bm
}
