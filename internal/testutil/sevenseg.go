// Package testutil renders synthetic seven-segment displays used as
// ground truth across the test suite.
package testutil

import (
	"image"
	"image/color"
	"image/draw"

	"github.com/disintegration/imaging"

	"github.com/MeKo-Tech/readout/internal/capture"
)

const (
	cellWidth  = 40
	cellHeight = 70
	stroke     = 8
	glyphGap   = 8
	margin     = 8
	dotSize    = 8
)

// segment masks per digit: top, topLeft, topRight, middle, bottomLeft,
// bottomRight, bottom.
var segmentTable = [10][7]bool{
	0: {true, true, true, false, true, true, true},
	1: {false, false, true, false, false, true, false},
	2: {true, false, true, true, true, false, true},
	3: {true, false, true, true, false, true, true},
	4: {false, true, true, true, false, true, false},
	5: {true, true, false, true, false, true, true},
	6: {true, true, false, true, true, true, true},
	7: {true, false, true, false, false, true, false},
	8: {true, true, true, true, true, true, true},
	9: {true, true, true, true, false, true, true},
}

// RenderReading draws the numeric text ("23.5") as dark seven-segment
// glyphs on a light background.
func RenderReading(text string) *image.NRGBA {
	width := margin * 2
	for _, r := range text {
		if r == '.' {
			width += dotSize + glyphGap
		} else {
			width += cellWidth + glyphGap
		}
	}
	if len(text) > 0 {
		width -= glyphGap
	}
	height := cellHeight + margin*2

	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)

	x := margin
	for _, r := range text {
		switch {
		case r == '.':
			fillRect(img, x, margin+cellHeight-dotSize, dotSize, dotSize)
			x += dotSize + glyphGap
		case r >= '0' && r <= '9':
			drawDigit(img, x, margin, int(r-'0'))
			x += cellWidth + glyphGap
		}
	}
	return img
}

func drawDigit(img *image.NRGBA, ox, oy, digit int) {
	w, h, t := cellWidth, cellHeight, stroke
	rects := [7][4]int{
		{t, 0, w - 2*t, t},                     // top
		{0, t, t, h/2 - t},                     // top left
		{w - t, t, t, h/2 - t},                 // top right
		{t, (h - t) / 2, w - 2*t, t},           // middle
		{0, h/2 + t/2, t, h - h/2 - t/2 - t},   // bottom left
		{w - t, h/2 + t/2, t, h - h/2 - t/2 - t}, // bottom right
		{t, h - t, w - 2*t, t},                 // bottom
	}
	for i, on := range segmentTable[digit] {
		if !on {
			continue
		}
		r := rects[i]
		fillRect(img, ox+r[0], oy+r[1], r[2], r[3])
	}
}

func fillRect(img *image.NRGBA, x, y, w, h int) {
	rect := image.Rect(x, y, x+w, y+h)
	draw.Draw(img, rect, image.NewUniform(color.Black), image.Point{}, draw.Src)
}

// RenderFrame embeds a rendered reading into a larger light-gray frame
// so that the given fractional crop region covers it, mimicking a video
// frame with a display in the user-selected area.
func RenderFrame(text string, frameWidth, frameHeight int, region capture.CropRegion) *image.NRGBA {
	frame := image.NewNRGBA(image.Rect(0, 0, frameWidth, frameHeight))
	draw.Draw(frame, frame.Bounds(), image.NewUniform(color.NRGBA{R: 200, G: 200, B: 200, A: 255}), image.Point{}, draw.Src)

	rect := region.Absolute(frameWidth, frameHeight)
	reading := imaging.Resize(RenderReading(text), rect.Dx(), rect.Dy(), imaging.NearestNeighbor)
	return imaging.Paste(frame, reading, rect.Min)
}
