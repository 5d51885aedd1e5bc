// Package session drives the two-step temperature-then-humidity
// confirmation workflow over the recognition pipeline. A fixed-interval
// timer is the only source of recognition work; a single guard flag
// prevents overlapping runs, and dropped ticks are never queued.
package session

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MeKo-Tech/readout/internal/capture"
	"github.com/MeKo-Tech/readout/internal/metrics"
	"github.com/MeKo-Tech/readout/internal/scan"
)

// Config holds session tuning.
type Config struct {
	// Interval between automatic recognition ticks.
	Interval time.Duration
	// ConfirmConfidence is the minimum consensus confidence for a
	// confirm action to be accepted.
	ConfirmConfidence float64
	// ConfirmInclusive accepts a candidate exactly at the threshold.
	ConfirmInclusive bool
	// Temperature and Humidity bound plausible attempt values per kind.
	Temperature scan.ValueRange
	Humidity    scan.ValueRange
}

// DefaultConfig returns the standard session configuration.
func DefaultConfig() Config {
	return Config{
		Interval:          time.Second,
		ConfirmConfidence: 50,
		ConfirmInclusive:  false,
		Temperature:       scan.ValueRange{Min: 0, Max: 200},
		Humidity:          scan.ValueRange{Min: 0, Max: 100},
	}
}

// ConfirmFunc receives each confirmed value exactly once per kind.
type ConfirmFunc func(kind Kind, value float64)

// Session is the scan workflow state machine. All exported methods are
// safe for concurrent use.
type Session struct {
	cfg       Config
	runner    *scan.Runner
	frames    capture.FrameSource
	crops     capture.CropProvider
	onConfirm ConfirmFunc

	mu          sync.Mutex
	phase       Phase
	candidate   scan.Reading
	temperature float64
	humidity    float64
	gen         uint64 // bumped on every phase change; stale tick results are discarded

	processing atomic.Bool

	stop chan struct{}
	done chan struct{}
}

// New creates a session in the source-selection phase.
func New(cfg Config, runner *scan.Runner, frames capture.FrameSource, crops capture.CropProvider, onConfirm ConfirmFunc) *Session {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Second
	}
	return &Session{
		cfg:       cfg,
		runner:    runner,
		frames:    frames,
		crops:     crops,
		onConfirm: onConfirm,
		phase:     PhaseSelectingSource,
	}
}

// Start enters the temperature-scanning phase and launches the tick
// timer. It is a no-op if the session is already running.
func (s *Session) Start(ctx context.Context) {
	s.mu.Lock()
	if s.stop != nil {
		s.mu.Unlock()
		return
	}
	s.phase = PhaseScanningTemperature
	s.gen++
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	stop, done := s.stop, s.done
	s.mu.Unlock()

	go s.loop(ctx, stop, done)
}

// Stop tears down the timer. An in-flight tick finishes on its own and
// its result is discarded by the generation check.
func (s *Session) Stop() {
	s.mu.Lock()
	stop, done := s.stop, s.done
	s.stop, s.done = nil, nil
	s.gen++
	s.mu.Unlock()
	if stop == nil {
		return
	}
	close(stop)
	<-done
}

func (s *Session) loop(ctx context.Context, stop, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// Trigger requests an immediate out-of-band tick, subject to the same
// mutual-exclusion guard as timer ticks. Reports whether the tick ran.
func (s *Session) Trigger(ctx context.Context) bool {
	return s.tick(ctx)
}

// tick runs one full extract-preprocess-recognize-consense pass. Ticks
// arriving while a run is in flight are dropped, not queued.
func (s *Session) tick(ctx context.Context) bool {
	if !s.processing.CompareAndSwap(false, true) {
		metrics.TicksSkipped.WithLabelValues("busy").Inc()
		return false
	}
	defer s.processing.Store(false)

	s.mu.Lock()
	gen := s.gen
	kind, ok := kindFor(s.phase)
	s.mu.Unlock()
	if !ok {
		metrics.TicksSkipped.WithLabelValues("not_scanning").Inc()
		return false
	}

	frame := s.frames.Frame()
	if frame == nil {
		metrics.TicksSkipped.WithLabelValues("no_frame").Inc()
		return false
	}
	buf := capture.Extract(frame, s.crops.Crop())
	if buf == nil {
		metrics.TicksSkipped.WithLabelValues("empty_crop").Inc()
		return false
	}

	rng := s.cfg.Temperature
	if kind == KindHumidity {
		rng = s.cfg.Humidity
	}
	attempts := s.runner.Run(ctx, buf, rng)
	reading := scan.Consensus(attempts)
	metrics.TicksTotal.Inc()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen {
		// Phase changed while the engine was running; drop the result.
		metrics.TicksSkipped.WithLabelValues("stale").Inc()
		return false
	}
	s.candidate = reading
	return true
}

// Confirm accepts the current candidate if its confidence clears the
// threshold, stores the value, advances the phase and emits the value
// to the confirm callback. A below-threshold candidate is a no-op.
func (s *Session) Confirm() bool {
	s.mu.Lock()
	candidate := s.candidate
	kind, ok := kindFor(s.phase)
	if !ok || !candidate.Detected || !s.clears(candidate.Confidence) {
		s.mu.Unlock()
		return false
	}

	switch kind {
	case KindTemperature:
		s.temperature = candidate.Value
		s.phase = PhaseScanningHumidity
	case KindHumidity:
		s.humidity = candidate.Value
		s.phase = PhaseDone
	}
	s.gen++
	s.candidate = scan.Reading{}
	cb := s.onConfirm
	s.mu.Unlock()

	metrics.ConfirmsTotal.WithLabelValues(string(kind)).Inc()
	slog.Info("reading confirmed", "kind", kind, "value", candidate.Value, "confidence", candidate.Confidence)
	if cb != nil {
		cb(kind, candidate.Value)
	}
	return true
}

func (s *Session) clears(confidence float64) bool {
	if s.cfg.ConfirmInclusive {
		return confidence >= s.cfg.ConfirmConfidence
	}
	return confidence > s.cfg.ConfirmConfidence
}

// Reset returns the session to the temperature-scanning phase,
// discarding confirmed values and the current candidate.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.phase = PhaseScanningTemperature
	s.candidate = scan.Reading{}
	s.temperature, s.humidity = 0, 0
	s.gen++
}

// Phase returns the current workflow phase.
func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Candidate returns the latest consensus reading for display.
func (s *Session) Candidate() scan.Reading {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.candidate
}

// Confirmed returns the confirmed temperature and humidity values.
// They are meaningful once the session reaches the done phase.
func (s *Session) Confirmed() (temperature, humidity float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.temperature, s.humidity
}
