package render

import (
	"image"

	xdraw "golang.org/x/image/draw"

	"github.com/banshee-data/ledgrid/internal/frame"
)

// DefaultDrawThreshold is the normalized luminance below which a pixel
// counts as ink when converting a drawing. Drawings are dark strokes on a
// light background, so darker than this is lit.
const DefaultDrawThreshold = 0.7

// FromImage downsamples an arbitrary image to the display resolution and
// thresholds it into a bitmap. Pixels with normalized luminance below
// threshold are lit; pass DefaultDrawThreshold unless the caller has a
// reason to tune it.
func FromImage(img image.Image, threshold float64) frame.Bitmap {
	small := image.NewGray(image.Rect(0, 0, 8, frame.Rows))
	xdraw.ApproxBiLinear.Scale(small, small.Bounds(), img, img.Bounds(), xdraw.Src, nil)

	bm := make(frame.Bitmap, frame.Rows)
	for row := 0; row < frame.Rows; row++ {
		var b byte
		for col := 0; col < 8; col++ {
			lum := float64(small.GrayAt(col, row).Y) / 255.0
			if lum < threshold {
				b |= 1 << (7 - col)
			}
		}
		bm[row] = b
	}
	return bm
}
