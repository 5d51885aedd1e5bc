package preprocess

import "image"

// Binary is the high-contrast-binary pipeline: a direct luminance
// threshold with no blur or morphology. Optimized for already
// high-contrast LCD panels where heavier processing would erase thin
// glyph strokes.
type Binary struct {
	Threshold uint8
}

// NewBinary returns the pipeline with the standard threshold.
func NewBinary() *Binary { return &Binary{Threshold: 140} }

// Name implements Pipeline.
func (*Binary) Name() string { return "high-contrast-binary" }

// Apply implements Pipeline.
func (p *Binary) Apply(img image.Image) *image.Gray {
	gray := Luminance(img)
	for i, v := range gray.Pix {
		if v > p.Threshold {
			gray.Pix[i] = 255
		} else {
			gray.Pix[i] = 0
		}
	}
	return gray
}
