package session

import (
	"context"
	"image"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/readout/internal/capture"
	"github.com/MeKo-Tech/readout/internal/engine"
	"github.com/MeKo-Tech/readout/internal/preprocess"
	"github.com/MeKo-Tech/readout/internal/scan"
)

// switchEngine returns whatever result is currently configured,
// optionally blocking until released.
type switchEngine struct {
	mu      sync.Mutex
	result  engine.Result
	block   chan struct{} // when set, Recognize blocks until the channel closes
	entered chan struct{} // when set, receives a signal as Recognize is entered
}

func (e *switchEngine) Name() string { return "switch" }
func (e *switchEngine) Close() error { return nil }

func (e *switchEngine) Recognize(_ context.Context, _ image.Image, _ engine.Params) (engine.Result, error) {
	e.mu.Lock()
	result, block, entered := e.result, e.block, e.entered
	e.mu.Unlock()
	if entered != nil {
		select {
		case entered <- struct{}{}:
		default:
		}
	}
	if block != nil {
		<-block
	}
	return result, nil
}

func (e *switchEngine) set(text string, confidence float64) {
	e.mu.Lock()
	e.result = engine.Result{Text: text, Confidence: confidence}
	e.mu.Unlock()
}

func testFrame() image.Image {
	return image.NewNRGBA(image.Rect(0, 0, 100, 100))
}

func newTestSession(eng engine.Engine, onConfirm ConfirmFunc) *Session {
	cfg := DefaultConfig()
	cfg.Interval = time.Hour // timer ticks stay out of the way; tests use Trigger
	runner := scan.NewRunner(eng, preprocess.DefaultPipelines()[:1], engine.DefaultParams()[:1])
	frames := capture.FrameFunc(func() image.Image { return testFrame() })
	return New(cfg, runner, frames, capture.StaticCrop(capture.DefaultCropRegion()), onConfirm)
}

func TestSessionStartsInSourceSelection(t *testing.T) {
	sess := newTestSession(&switchEngine{}, nil)
	assert.Equal(t, PhaseSelectingSource, sess.Phase())

	// Ticks before Start are dropped.
	assert.False(t, sess.Trigger(context.Background()))
}

func TestSessionFullWorkflow(t *testing.T) {
	eng := &switchEngine{}
	var confirmed []Kind
	sess := newTestSession(eng, func(kind Kind, _ float64) {
		confirmed = append(confirmed, kind)
	})
	sess.Start(context.Background())
	defer sess.Stop()
	assert.Equal(t, PhaseScanningTemperature, sess.Phase())

	eng.set("75", 75)
	require.True(t, sess.Trigger(context.Background()))
	candidate := sess.Candidate()
	assert.True(t, candidate.Detected)
	assert.InDelta(t, 75, candidate.Value, 1e-9)

	require.True(t, sess.Confirm())
	assert.Equal(t, PhaseScanningHumidity, sess.Phase())
	// Confirming clears the candidate; a second confirm is a no-op.
	assert.False(t, sess.Confirm())

	eng.set("60", 60)
	require.True(t, sess.Trigger(context.Background()))
	require.True(t, sess.Confirm())
	assert.Equal(t, PhaseDone, sess.Phase())

	temperature, humidity := sess.Confirmed()
	assert.InDelta(t, 75, temperature, 1e-9)
	assert.InDelta(t, 60, humidity, 1e-9)
	assert.Equal(t, []Kind{KindTemperature, KindHumidity}, confirmed)

	// Done sessions ignore further ticks.
	assert.False(t, sess.Trigger(context.Background()))
}

func TestSessionConfirmBelowThreshold(t *testing.T) {
	eng := &switchEngine{}
	sess := newTestSession(eng, func(Kind, float64) {
		t.Fatal("confirm callback must not fire below the threshold")
	})
	sess.Start(context.Background())
	defer sess.Stop()

	eng.set("75", 45)
	require.True(t, sess.Trigger(context.Background()))
	assert.False(t, sess.Confirm())
	assert.Equal(t, PhaseScanningTemperature, sess.Phase())

	// The candidate stays visible for display.
	assert.True(t, sess.Candidate().Detected)
}

func TestSessionConfirmThresholdExclusive(t *testing.T) {
	eng := &switchEngine{}
	eng.set("75", 50)

	sess := newTestSession(eng, nil)
	sess.Start(context.Background())
	defer sess.Stop()
	require.True(t, sess.Trigger(context.Background()))
	assert.False(t, sess.Confirm(), "confidence exactly at the threshold must not confirm")
}

func TestSessionConfirmThresholdInclusive(t *testing.T) {
	eng := &switchEngine{}
	eng.set("75", 50)

	cfg := DefaultConfig()
	cfg.Interval = time.Hour
	cfg.ConfirmInclusive = true
	runner := scan.NewRunner(eng, preprocess.DefaultPipelines()[:1], engine.DefaultParams()[:1])
	frames := capture.FrameFunc(func() image.Image { return testFrame() })
	sess := New(cfg, runner, frames, capture.StaticCrop(capture.DefaultCropRegion()), nil)

	sess.Start(context.Background())
	defer sess.Stop()
	require.True(t, sess.Trigger(context.Background()))
	assert.True(t, sess.Confirm())
}

func TestSessionConfirmWithoutCandidate(t *testing.T) {
	sess := newTestSession(&switchEngine{}, nil)
	sess.Start(context.Background())
	defer sess.Stop()
	assert.False(t, sess.Confirm())
}

func TestSessionNoFrameSkips(t *testing.T) {
	eng := &switchEngine{}
	eng.set("75", 75)
	cfg := DefaultConfig()
	cfg.Interval = time.Hour
	runner := scan.NewRunner(eng, preprocess.DefaultPipelines()[:1], engine.DefaultParams()[:1])
	frames := capture.FrameFunc(func() image.Image { return nil })
	sess := New(cfg, runner, frames, capture.StaticCrop(capture.DefaultCropRegion()), nil)

	sess.Start(context.Background())
	defer sess.Stop()
	assert.False(t, sess.Trigger(context.Background()))
	assert.False(t, sess.Candidate().Detected)
}

func TestSessionOverlappingTicksDropped(t *testing.T) {
	eng := &switchEngine{block: make(chan struct{}), entered: make(chan struct{}, 1)}
	eng.set("75", 75)
	sess := newTestSession(eng, nil)
	sess.Start(context.Background())
	defer sess.Stop()

	first := make(chan bool)
	go func() { first <- sess.Trigger(context.Background()) }()
	<-eng.entered

	// The first tick is inside the engine; further ticks are dropped.
	assert.False(t, sess.Trigger(context.Background()))
	assert.False(t, sess.Trigger(context.Background()))

	close(eng.block)
	assert.True(t, <-first)
}

func TestSessionStaleResultDiscarded(t *testing.T) {
	block := make(chan struct{})
	eng := &switchEngine{block: block, entered: make(chan struct{}, 1)}
	eng.set("75", 75)
	sess := newTestSession(eng, nil)
	sess.Start(context.Background())

	applied := make(chan bool)
	go func() { applied <- sess.Trigger(context.Background()) }()
	<-eng.entered

	// Reset while the engine is still running; the in-flight result
	// belongs to the previous generation and must be dropped.
	sess.Reset()
	close(block)

	assert.False(t, <-applied)
	assert.False(t, sess.Candidate().Detected)
	sess.Stop()
}

func TestSessionReset(t *testing.T) {
	eng := &switchEngine{}
	sess := newTestSession(eng, nil)
	sess.Start(context.Background())
	defer sess.Stop()

	eng.set("75", 75)
	require.True(t, sess.Trigger(context.Background()))
	require.True(t, sess.Confirm())
	assert.Equal(t, PhaseScanningHumidity, sess.Phase())

	sess.Reset()
	assert.Equal(t, PhaseScanningTemperature, sess.Phase())
	temperature, humidity := sess.Confirmed()
	assert.Zero(t, temperature)
	assert.Zero(t, humidity)
	assert.False(t, sess.Candidate().Detected)
}

func TestSessionStartIdempotent(t *testing.T) {
	sess := newTestSession(&switchEngine{}, nil)
	sess.Start(context.Background())
	sess.Start(context.Background())
	sess.Stop()
	// Stopping twice must not panic or hang.
	sess.Stop()
}

func TestSessionHumidityRangeRejectsTemperatureScale(t *testing.T) {
	eng := &switchEngine{}
	sess := newTestSession(eng, nil)
	sess.Start(context.Background())
	defer sess.Stop()

	eng.set("150", 90)
	require.True(t, sess.Trigger(context.Background()))
	require.True(t, sess.Confirm())
	assert.Equal(t, PhaseScanningHumidity, sess.Phase())

	// 150 is a plausible temperature but not a plausible humidity.
	require.True(t, sess.Trigger(context.Background()))
	assert.False(t, sess.Candidate().Detected)
	assert.False(t, sess.Confirm())
}

func TestPhaseString(t *testing.T) {
	assert.Equal(t, "selecting-source", PhaseSelectingSource.String())
	assert.Equal(t, "scanning-temperature", PhaseScanningTemperature.String())
	assert.Equal(t, "scanning-humidity", PhaseScanningHumidity.String())
	assert.Equal(t, "done", PhaseDone.String())
	assert.Equal(t, "unknown", Phase(99).String())
}

func TestKindFor(t *testing.T) {
	kind, ok := kindFor(PhaseScanningTemperature)
	assert.True(t, ok)
	assert.Equal(t, KindTemperature, kind)

	kind, ok = kindFor(PhaseScanningHumidity)
	assert.True(t, ok)
	assert.Equal(t, KindHumidity, kind)

	_, ok = kindFor(PhaseDone)
	assert.False(t, ok)
	_, ok = kindFor(PhaseSelectingSource)
	assert.False(t, ok)
}
