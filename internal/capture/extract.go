package capture

import (
	"image"

	"github.com/disintegration/imaging"
)

// Extract copies the crop region of the frame into a fresh pixel buffer.
// The returned buffer is independent of the source frame and owned by the
// caller. Returns nil when no frame is available or the region degenerates
// to an empty rectangle; the caller must skip the tick in that case.
func Extract(frame image.Image, region CropRegion) *image.NRGBA {
	if frame == nil {
		return nil
	}
	bounds := frame.Bounds()
	rect := region.Absolute(bounds.Dx(), bounds.Dy()).Add(bounds.Min)
	rect = rect.Intersect(bounds)
	if rect.Empty() {
		return nil
	}
	return imaging.Crop(frame, rect)
}
