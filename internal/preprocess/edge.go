package preprocess

import (
	"image"
	"math"
)

// Edge is the edge-enhanced pipeline: Sobel gradient magnitude over the
// luminance buffer. Optimized for thin line-segment digits where
// solid-region features fail.
type Edge struct{}

// NewEdge returns the pipeline.
func NewEdge() *Edge { return &Edge{} }

// Name implements Pipeline.
func (*Edge) Name() string { return "edge-enhanced" }

var (
	sobelX = [9]int{-1, 0, 1, -2, 0, 2, -1, 0, 1}
	sobelY = [9]int{-1, -2, -1, 0, 0, 0, 1, 2, 1}
)

// Apply implements Pipeline.
func (*Edge) Apply(img image.Image) *image.Gray {
	gray := Luminance(img)
	b := gray.Bounds()
	w, h := b.Dx(), b.Dy()
	out := image.NewGray(image.Rect(0, 0, w, h))
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			gx, gy := 0, 0
			i := 0
			for ky := -1; ky <= 1; ky++ {
				for kx := -1; kx <= 1; kx++ {
					v := int(gray.GrayAt(x+kx, y+ky).Y)
					gx += v * sobelX[i]
					gy += v * sobelY[i]
					i++
				}
			}
			mag := math.Sqrt(float64(gx*gx + gy*gy))
			out.Pix[out.PixOffset(x, y)] = uint8(math.Min(255, mag))
		}
	}
	return out
}
