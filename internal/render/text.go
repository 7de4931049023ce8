// Package render turns user input (text, click grids, drawings) into the
// 8x8 bitmaps the frame protocol carries. It is a producer of bitmaps
// only; framing and transmission live elsewhere.
package render

import (
	"image"
	"strings"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/banshee-data/ledgrid/internal/frame"
)

// litThreshold is the gray level above which a scaled pixel counts as lit.
const litThreshold = 128

// TextFrames renders text into a sequence of 8x8 bitmaps that scroll the
// message one column per frame. The text is drawn with a bitmap font,
// scaled down to the display height, and then an 8-wide window slides
// across the strip. Trailing blank columns let the message scroll fully
// off the display, and the final frame is repeated as a small pause.
//
// Empty or all-whitespace text produces no frames.
func TextFrames(text string) []frame.Bitmap {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	face := basicfont.Face7x13
	width := font.MeasureString(face, text).Ceil()
	if width <= 0 {
		return nil
	}

	// Render at the font's native height, with 8 blank columns of
	// padding so the scroll runs off the end.
	strip := image.NewGray(image.Rect(0, 0, width+frame.Rows, face.Height))
	d := font.Drawer{
		Dst:  strip,
		Src:  image.White,
		Face: face,
		Dot:  fixed.P(0, face.Ascent),
	}
	d.DrawString(text)

	// Scale the whole strip down to the display height in one pass so
	// letters are not cut at window boundaries.
	scaled := image.NewGray(image.Rect(0, 0, strip.Bounds().Dx(), frame.Rows))
	xdraw.ApproxBiLinear.Scale(scaled, scaled.Bounds(), strip, strip.Bounds(), xdraw.Src, nil)

	var frames []frame.Bitmap
	for x := 0; x+frame.Rows <= scaled.Bounds().Dx(); x++ {
		frames = append(frames, windowBitmap(scaled, x))
	}
	if len(frames) > 0 {
		last := make(frame.Bitmap, frame.Rows)
		copy(last, frames[len(frames)-1])
		frames = append(frames, last)
	}
	return frames
}

// windowBitmap cuts an 8x8 window out of the scaled strip at column x and
// thresholds it into a bitmap, bit 7 leftmost.
func windowBitmap(img *image.Gray, x int) frame.Bitmap {
	bm := make(frame.Bitmap, frame.Rows)
	for row := 0; row < frame.Rows; row++ {
		var b byte
		for col := 0; col < 8; col++ {
			if img.GrayAt(x+col, row).Y > litThreshold {
				b |= 1 << (7 - col)
			}
		}
		bm[row] = b
	}
	return bm
}
