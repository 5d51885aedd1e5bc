package capture

import (
	"fmt"
	"image"
	"math"
)

// MinFraction is the smallest allowed crop width/height relative to the frame.
const MinFraction = 0.1

// CropRegion is a fractional sub-rectangle of a video frame. All four
// values are in [0,1] relative to the frame dimensions. The UI owns and
// mutates the region; this package only reads it.
type CropRegion struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// DefaultCropRegion returns a centered region covering the middle of the frame.
func DefaultCropRegion() CropRegion {
	return CropRegion{X: 0.25, Y: 0.35, Width: 0.5, Height: 0.3}
}

// Validate checks the fractional invariants of the region.
func (r CropRegion) Validate() error {
	if r.Width < MinFraction || r.Height < MinFraction {
		return fmt.Errorf("crop region %gx%g below minimum fraction %g", r.Width, r.Height, MinFraction)
	}
	if r.X < 0 || r.Y < 0 {
		return fmt.Errorf("crop region origin (%g, %g) is negative", r.X, r.Y)
	}
	if r.X+r.Width > 1 || r.Y+r.Height > 1 {
		return fmt.Errorf("crop region (%g+%g, %g+%g) exceeds frame bounds", r.X, r.Width, r.Y, r.Height)
	}
	return nil
}

// Absolute converts the fractional region into pixel coordinates for a
// frame of the given dimensions.
func (r CropRegion) Absolute(frameWidth, frameHeight int) image.Rectangle {
	x0 := int(math.Round(r.X * float64(frameWidth)))
	y0 := int(math.Round(r.Y * float64(frameHeight)))
	w := int(math.Round(r.Width * float64(frameWidth)))
	h := int(math.Round(r.Height * float64(frameHeight)))
	return image.Rect(x0, y0, x0+w, y0+h)
}

// FrameSource supplies the current video frame on demand. Implementations
// return nil while no frame is available yet; callers skip the tick.
type FrameSource interface {
	Frame() image.Image
}

// CropProvider supplies the current user-selected crop region.
type CropProvider interface {
	Crop() CropRegion
}

// StaticCrop is a CropProvider returning a fixed region.
type StaticCrop CropRegion

// Crop implements CropProvider.
func (c StaticCrop) Crop() CropRegion { return CropRegion(c) }

// FrameFunc adapts a function to the FrameSource interface.
type FrameFunc func() image.Image

// Frame implements FrameSource.
func (f FrameFunc) Frame() image.Image { return f() }
