package preprocess

import (
	"image"
	"image/color"
)

// Luminance converts an image to grayscale using the ITU-R BT.601
// weighted sum 0.299R + 0.587G + 0.114B.
func Luminance(img image.Image) *image.Gray {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	out := image.NewGray(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			r, g, b, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			lum := 0.299*float64(r>>8) + 0.587*float64(g>>8) + 0.114*float64(b>>8)
			out.SetGray(x, y, color.Gray{Y: uint8(lum)})
		}
	}
	return out
}

func cloneGray(src *image.Gray) *image.Gray {
	out := image.NewGray(src.Bounds())
	copy(out.Pix, src.Pix)
	return out
}
