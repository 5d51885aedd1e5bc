package preprocess

import "image"

// Morphological is the enhanced-morphological pipeline: luminance
// conversion, 3x3 Gaussian blur, adaptive mean threshold, then a
// morphological opening followed by a closing with a plus-shaped
// structuring element. It suppresses sensor noise and stray
// reflections while preserving continuous segment strokes.
type Morphological struct {
	// WindowRadius is the adaptive-threshold neighborhood radius; the
	// local mean is taken over a (2r+1)^2 window.
	WindowRadius int
	// Offset is subtracted from the local mean before comparison.
	Offset float64
}

// NewMorphological returns the pipeline with the standard parameters.
func NewMorphological() *Morphological {
	return &Morphological{WindowRadius: 15, Offset: 10}
}

// Name implements Pipeline.
func (*Morphological) Name() string { return "enhanced-morphological" }

// Apply implements Pipeline.
func (p *Morphological) Apply(img image.Image) *image.Gray {
	gray := Luminance(img)
	blurred := gaussianBlur3x3(gray)
	binary := adaptiveThreshold(blurred, p.WindowRadius, p.Offset)
	opened := dilatePlus(erodePlus(binary))
	closed := erodePlus(dilatePlus(opened))
	return closed
}

// gaussianBlur3x3 convolves with the kernel [1 2 1; 2 4 2; 1 2 1]/16.
// Border pixels are copied through unprocessed.
func gaussianBlur3x3(src *image.Gray) *image.Gray {
	kernel := [9]int{1, 2, 1, 2, 4, 2, 1, 2, 1}
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	out := cloneGray(src)
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			sum := 0
			i := 0
			for ky := -1; ky <= 1; ky++ {
				for kx := -1; kx <= 1; kx++ {
					sum += int(src.GrayAt(x+kx, y+ky).Y) * kernel[i]
					i++
				}
			}
			out.Pix[out.PixOffset(x, y)] = uint8(sum / 16)
		}
	}
	return out
}

// adaptiveThreshold binarizes against the local mean: a pixel becomes
// 255 when its value exceeds (mean of the surrounding window - offset).
// The window is clipped at the image border.
func adaptiveThreshold(src *image.Gray, radius int, offset float64) *image.Gray {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	integral := integralImage(src)
	out := image.NewGray(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			x0, y0 := max(x-radius, 0), max(y-radius, 0)
			x1, y1 := min(x+radius, w-1), min(y+radius, h-1)
			area := (x1 - x0 + 1) * (y1 - y0 + 1)
			sum := integral.sum(x0, y0, x1, y1)
			mean := float64(sum) / float64(area)
			if float64(src.GrayAt(x, y).Y) > mean-offset {
				out.Pix[out.PixOffset(x, y)] = 255
			}
		}
	}
	return out
}

type integral struct {
	w, h int
	sums []uint64
}

func integralImage(src *image.Gray) *integral {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	ii := &integral{w: w, h: h, sums: make([]uint64, (w+1)*(h+1))}
	for y := range h {
		rowSum := uint64(0)
		for x := range w {
			rowSum += uint64(src.GrayAt(x, y).Y)
			ii.sums[(y+1)*(w+1)+x+1] = ii.sums[y*(w+1)+x+1] + rowSum
		}
	}
	return ii
}

// sum returns the inclusive pixel sum over [x0,x1]x[y0,y1].
func (ii *integral) sum(x0, y0, x1, y1 int) uint64 {
	s := ii.sums
	w := ii.w + 1
	return s[(y1+1)*w+x1+1] - s[y0*w+x1+1] - s[(y1+1)*w+x0] + s[y0*w+x0]
}

// plusOffsets is the plus-shaped 3x3 structuring element.
var plusOffsets = [5][2]int{{0, 0}, {-1, 0}, {1, 0}, {0, -1}, {0, 1}}

func erodePlus(src *image.Gray) *image.Gray {
	return morphPlus(src, func(a, b uint8) bool { return a < b })
}

func dilatePlus(src *image.Gray) *image.Gray {
	return morphPlus(src, func(a, b uint8) bool { return a > b })
}

func morphPlus(src *image.Gray, better func(a, b uint8) bool) *image.Gray {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	out := cloneGray(src)
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			best := src.GrayAt(x, y).Y
			for _, off := range plusOffsets {
				v := src.GrayAt(x+off[0], y+off[1]).Y
				if better(v, best) {
					best = v
				}
			}
			out.Pix[out.PixOffset(x, y)] = best
		}
	}
	return out
}
