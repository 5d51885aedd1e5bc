package testutil

import (
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/readout/internal/capture"
)

func TestRenderReadingGeometry(t *testing.T) {
	img := RenderReading("8")
	assert.Equal(t, cellWidth+2*margin, img.Bounds().Dx())
	assert.Equal(t, cellHeight+2*margin, img.Bounds().Dy())

	// Background is white, the top segment stroke is black.
	assert.Equal(t, color.NRGBA{R: 255, G: 255, B: 255, A: 255}, img.NRGBAAt(1, 1))
	assert.Equal(t, color.NRGBA{A: 255}, img.NRGBAAt(margin+cellWidth/2, margin+stroke/2))
}

func TestRenderReadingDecimalPoint(t *testing.T) {
	img := RenderReading("1.5")
	// The dot sits at the baseline right of the first glyph.
	x := margin + cellWidth + glyphGap + dotSize/2
	y := margin + cellHeight - dotSize/2
	assert.Equal(t, color.NRGBA{A: 255}, img.NRGBAAt(x, y))
}

func TestRenderFrameCoversRegion(t *testing.T) {
	region := capture.CropRegion{X: 0.25, Y: 0.25, Width: 0.5, Height: 0.5}
	frame := RenderFrame("42", 400, 300, region)
	require.Equal(t, 400, frame.Bounds().Dx())
	require.Equal(t, 300, frame.Bounds().Dy())

	// Outside the region the frame is the uniform gray backdrop.
	assert.Equal(t, color.NRGBA{R: 200, G: 200, B: 200, A: 255}, frame.NRGBAAt(10, 10))

	// Inside the region the pasted display background is white.
	rect := region.Absolute(400, 300)
	assert.Equal(t, color.NRGBA{R: 255, G: 255, B: 255, A: 255},
		frame.NRGBAAt(rect.Min.X+2, rect.Min.Y+2))
}
