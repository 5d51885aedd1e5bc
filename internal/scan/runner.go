package scan

import (
	"context"
	"image"
	"log/slog"
	"strconv"

	"github.com/MeKo-Tech/readout/internal/engine"
	"github.com/MeKo-Tech/readout/internal/metrics"
	"github.com/MeKo-Tech/readout/internal/preprocess"
)

// Runner executes the full cross product of preprocessing pipelines and
// recognition configurations against one pixel buffer per call.
type Runner struct {
	engine    engine.Engine
	pipelines []preprocess.Pipeline
	params    []engine.Params
}

// NewRunner wires a runner over the given engine, pipeline set and
// configuration set.
func NewRunner(eng engine.Engine, pipelines []preprocess.Pipeline, params []engine.Params) *Runner {
	return &Runner{engine: eng, pipelines: pipelines, params: params}
}

// Run produces the complete attempt list for one tick. A failure of a
// single (pipeline, configuration) pair is logged and recorded as an
// invalid attempt; it never aborts the remaining pairs.
func (r *Runner) Run(ctx context.Context, buf image.Image, rng ValueRange) []Attempt {
	attempts := make([]Attempt, 0, len(r.pipelines)*len(r.params))
	for _, p := range r.pipelines {
		enhanced := p.Apply(buf)
		for _, params := range r.params {
			attempt := r.attempt(ctx, enhanced, p.Name(), params, rng)
			metrics.AttemptsTotal.WithLabelValues(
				attempt.Pipeline, attempt.Config, strconv.FormatBool(attempt.Valid),
			).Inc()
			attempts = append(attempts, attempt)
		}
	}
	return attempts
}

func (r *Runner) attempt(
	ctx context.Context,
	enhanced image.Image,
	pipelineName string,
	params engine.Params,
	rng ValueRange,
) Attempt {
	result, err := r.engine.Recognize(ctx, enhanced, params)
	if err != nil {
		slog.Warn("recognition attempt failed",
			"engine", r.engine.Name(),
			"pipeline", pipelineName,
			"config", params.Name,
			"error", err)
		return Attempt{Pipeline: pipelineName, Config: params.Name}
	}

	cleaned := CleanText(result.Text)
	value, valid := ParseReading(cleaned, rng)
	slog.Debug("recognition attempt",
		"pipeline", pipelineName,
		"config", params.Name,
		"text", cleaned,
		"confidence", result.Confidence,
		"valid", valid)
	return Attempt{
		Pipeline:   pipelineName,
		Config:     params.Name,
		RawText:    cleaned,
		Value:      value,
		Confidence: result.Confidence,
		Valid:      valid,
	}
}
