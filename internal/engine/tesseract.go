package engine

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"strconv"
	"strings"
	"sync"

	"github.com/otiai10/gosseract/v2"
	"golang.org/x/image/tiff"
)

// Tesseract wraps a process-wide gosseract client. The client is not
// safe for concurrent use, so calls are serialized; the session layer
// never issues overlapping recognition runs anyway.
type Tesseract struct {
	mu     sync.Mutex
	client *gosseract.Client
}

// NewTesseract initializes the Tesseract backend once for the process
// lifetime.
func NewTesseract() (*Tesseract, error) {
	client := gosseract.NewClient()
	if err := client.SetLanguage("eng"); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("set tesseract language: %w", err)
	}
	return &Tesseract{client: client}, nil
}

// Name implements Engine.
func (*Tesseract) Name() string { return "tesseract" }

// Close implements Engine.
func (t *Tesseract) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.client == nil {
		return nil
	}
	err := t.client.Close()
	t.client = nil
	return err
}

// Recognize implements Engine.
func (t *Tesseract) Recognize(ctx context.Context, img image.Image, params Params) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	var buf bytes.Buffer
	if err := tiff.Encode(&buf, img, &tiff.Options{}); err != nil {
		return Result{}, fmt.Errorf("encode buffer for tesseract: %w", err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.client == nil {
		return Result{}, fmt.Errorf("tesseract client is closed")
	}

	if err := t.configure(params); err != nil {
		return Result{}, err
	}
	if err := t.client.SetImageFromBytes(buf.Bytes()); err != nil {
		return Result{}, fmt.Errorf("set tesseract image: %w", err)
	}

	boxes, err := t.client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return Result{}, fmt.Errorf("tesseract recognition: %w", err)
	}
	if len(boxes) == 0 {
		return Result{}, nil
	}

	var text strings.Builder
	total := 0.0
	for _, b := range boxes {
		text.WriteString(b.Word)
		total += b.Confidence
	}
	return Result{
		Text:       text.String(),
		Confidence: total / float64(len(boxes)),
	}, nil
}

func (t *Tesseract) configure(params Params) error {
	if err := t.client.SetWhitelist(params.Whitelist); err != nil {
		return fmt.Errorf("set tesseract whitelist: %w", err)
	}
	if err := t.client.SetPageSegMode(pageSegMode(params.SegMode)); err != nil {
		return fmt.Errorf("set tesseract segmentation mode: %w", err)
	}
	oem := strconv.Itoa(engineModeValue(params.Mode))
	if err := t.client.SetVariable("tessedit_ocr_engine_mode", oem); err != nil {
		return fmt.Errorf("set tesseract engine mode: %w", err)
	}
	return nil
}

func pageSegMode(m SegMode) gosseract.PageSegMode {
	switch m {
	case SegSingleWord:
		return gosseract.PSM_SINGLE_WORD
	case SegSingleChar:
		return gosseract.PSM_SINGLE_CHAR
	default:
		return gosseract.PSM_SINGLE_LINE
	}
}

// engineModeValue maps to Tesseract's OEM enumeration.
func engineModeValue(m Mode) int {
	switch m {
	case ModeLegacy:
		return 0
	case ModeCombined:
		return 2
	default:
		return 1
	}
}
