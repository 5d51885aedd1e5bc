package engine

import (
	"context"
	"errors"
	"fmt"
	"image"
	"math"
	"os"
	"strconv"
	"sync"

	"github.com/disintegration/imaging"
	onnxrt "github.com/yalue/onnxruntime_go"
)

// SevenSegConfig holds configuration for the seven-segment CNN backend.
type SevenSegConfig struct {
	ModelPath  string // Path to the ONNX digit classifier
	NumThreads int    // Number of CPU threads (0 for default)
	InputSize  int    // Model input edge length (224 for the enhanced model)
}

// DefaultSevenSegConfig returns the standard CNN configuration.
func DefaultSevenSegConfig() SevenSegConfig {
	return SevenSegConfig{
		ModelPath:  "models/seven_segment.onnx",
		NumThreads: 0,
		InputSize:  224,
	}
}

// SevenSeg is an ONNX-backed single-glyph digit classifier trained on
// seven-segment displays. The model is loaded once per process; runs
// are serialized because the session buffers are shared.
type SevenSeg struct {
	cfg        SevenSegConfig
	mu         sync.Mutex
	session    *onnxrt.DynamicAdvancedSession
	inputInfo  onnxrt.InputOutputInfo
	outputInfo onnxrt.InputOutputInfo
}

// NewSevenSeg creates the CNN backend from the given configuration.
func NewSevenSeg(cfg SevenSegConfig) (*SevenSeg, error) {
	if cfg.ModelPath == "" {
		return nil, errors.New("model path cannot be empty")
	}
	if _, err := os.Stat(cfg.ModelPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("model file not found: %s", cfg.ModelPath)
	}
	if cfg.InputSize <= 0 {
		cfg.InputSize = 224
	}

	if err := setONNXLibraryPath(); err != nil {
		return nil, fmt.Errorf("failed to set ONNX Runtime library path: %w", err)
	}
	if !onnxrt.IsInitialized() {
		if err := onnxrt.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("failed to initialize ONNX Runtime: %w", err)
		}
	}

	inputs, outputs, err := onnxrt.GetInputOutputInfo(cfg.ModelPath)
	if err != nil {
		return nil, fmt.Errorf("failed to get model input/output info: %w", err)
	}
	if len(inputs) != 1 || len(outputs) != 1 {
		return nil, fmt.Errorf("expected 1 input and 1 output, got %d/%d", len(inputs), len(outputs))
	}

	sessionOptions, err := onnxrt.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("failed to create session options: %w", err)
	}
	defer func() { _ = sessionOptions.Destroy() }()

	if cfg.NumThreads > 0 {
		if err := sessionOptions.SetIntraOpNumThreads(cfg.NumThreads); err != nil {
			return nil, fmt.Errorf("failed to set thread count: %w", err)
		}
	}

	session, err := onnxrt.NewDynamicAdvancedSession(
		cfg.ModelPath,
		[]string{inputs[0].Name},
		[]string{outputs[0].Name},
		sessionOptions,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create ONNX session: %w", err)
	}

	return &SevenSeg{
		cfg:        cfg,
		session:    session,
		inputInfo:  inputs[0],
		outputInfo: outputs[0],
	}, nil
}

// Name implements Engine.
func (*SevenSeg) Name() string { return "sevenseg-onnx" }

// Close implements Engine.
func (s *SevenSeg) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session != nil {
		if err := s.session.Destroy(); err != nil {
			return err
		}
		s.session = nil
	}
	return nil
}

// Recognize implements Engine. The classifier reads a single glyph;
// segmentation parameters do not apply to this backend.
func (s *SevenSeg) Recognize(ctx context.Context, img image.Image, _ Params) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	data := s.normalize(img)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return Result{}, errors.New("sevenseg session is closed")
	}

	n := int64(s.cfg.InputSize)
	inputTensor, err := onnxrt.NewTensor(onnxrt.NewShape(1, 3, n, n), data)
	if err != nil {
		return Result{}, fmt.Errorf("create input tensor: %w", err)
	}
	defer func() { _ = inputTensor.Destroy() }()

	outputs := []onnxrt.Value{nil}
	if err := s.session.Run([]onnxrt.Value{inputTensor}, outputs); err != nil {
		return Result{}, fmt.Errorf("sevenseg inference: %w", err)
	}
	defer func() {
		for _, o := range outputs {
			if o != nil {
				_ = o.Destroy()
			}
		}
	}()

	outTensor, ok := outputs[0].(*onnxrt.Tensor[float32])
	if !ok {
		return Result{}, errors.New("unexpected output tensor type")
	}
	logits := outTensor.GetData()
	if len(logits) == 0 {
		return Result{}, errors.New("empty model output")
	}

	digit, prob := argmaxSoftmax(logits)
	return Result{Text: strconv.Itoa(digit), Confidence: prob * 100}, nil
}

// normalize resizes the buffer to the model input size and lays it out
// as a [1,3,H,W] tensor with values scaled to [0,1].
func (s *SevenSeg) normalize(img image.Image) []float32 {
	n := s.cfg.InputSize
	resized := imaging.Resize(img, n, n, imaging.Lanczos)
	data := make([]float32, 3*n*n)
	for y := range n {
		for x := range n {
			r, g, b, _ := resized.At(x, y).RGBA()
			idx := y*n + x
			data[idx] = float32(r>>8) / 255.0
			data[n*n+idx] = float32(g>>8) / 255.0
			data[2*n*n+idx] = float32(b>>8) / 255.0
		}
	}
	return data
}

func argmaxSoftmax(logits []float32) (int, float64) {
	maxLogit := logits[0]
	for _, v := range logits[1:] {
		if v > maxLogit {
			maxLogit = v
		}
	}
	sum := 0.0
	probs := make([]float64, len(logits))
	for i, v := range logits {
		probs[i] = math.Exp(float64(v - maxLogit))
		sum += probs[i]
	}
	best, bestProb := 0, 0.0
	for i, p := range probs {
		p /= sum
		if p > bestProb {
			best, bestProb = i, p
		}
	}
	return best, bestProb
}

// setONNXLibraryPath points onnxruntime_go at the shared library from
// common system locations.
func setONNXLibraryPath() error {
	systemPaths := []string{
		"/usr/local/lib/libonnxruntime.so",
		"/usr/lib/libonnxruntime.so",
		"/opt/onnxruntime/cpu/lib/libonnxruntime.so",
	}
	for _, p := range systemPaths {
		if _, err := os.Stat(p); err == nil {
			onnxrt.SetSharedLibraryPath(p)
			return nil
		}
	}
	return errors.New("onnxruntime shared library not found in system paths")
}
