package engine

import "fmt"

// New constructs the named backend. The returned engine is meant to be
// created once per process and reused across ticks.
func New(backend string, sevenseg SevenSegConfig) (Engine, error) {
	switch backend {
	case "template":
		return NewTemplate(), nil
	case "tesseract":
		return NewTesseract()
	case "sevenseg-onnx":
		return NewSevenSeg(sevenseg)
	default:
		return nil, fmt.Errorf("unknown engine backend: %q", backend)
	}
}
