// Package preprocess provides the deterministic image-enhancement
// pipelines applied to a cropped display buffer before recognition.
// Every pipeline is a pure function: the same input buffer always
// produces the same output buffer, so pipelines may run in any order
// or concurrently.
package preprocess

import "image"

// Pipeline turns a raw pixel buffer into an enhanced grayscale buffer
// optimized for one style of digital display.
type Pipeline interface {
	// Name identifies the pipeline in attempt records and debug dumps.
	Name() string
	// Apply produces a new enhanced buffer; the input is never mutated.
	Apply(img image.Image) *image.Gray
}

// DefaultPipelines returns the standard pipeline set: one variant per
// display style (noisy seven-segment, high-contrast LCD, thin-stroke).
func DefaultPipelines() []Pipeline {
	return []Pipeline{
		NewMorphological(),
		NewBinary(),
		NewEdge(),
	}
}
