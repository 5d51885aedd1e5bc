// Package engine defines the text-recognition boundary of the reading
// pipeline. The engine is an external collaborator: it is initialized
// once per process (models are expensive to load) and reused across
// ticks; only its runtime parameters change per attempt.
package engine

import (
	"context"
	"image"
)

// Result is the raw outcome of one recognition call.
type Result struct {
	// Text is the uncleaned engine output.
	Text string
	// Confidence is the engine's own estimate in [0,100].
	Confidence float64
}

// Engine recognizes text in a single enhanced pixel buffer.
type Engine interface {
	// Name identifies the backend ("tesseract", "sevenseg-onnx", "template").
	Name() string
	// Recognize runs one attempt with the given parameters. It may fail
	// per call; callers tolerate individual failures.
	Recognize(ctx context.Context, img image.Image, params Params) (Result, error)
	// Close releases backend resources.
	Close() error
}
