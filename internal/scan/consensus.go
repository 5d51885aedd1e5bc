package scan

import (
	"math"
	"sort"

	"github.com/MeKo-Tech/readout/internal/metrics"
)

// AgreementTolerance is the maximum difference between two attempt
// values for them to count as agreeing.
const AgreementTolerance = 0.1

// Reading is the aggregated, confidence-adjusted result of all
// attempts in one tick. Detected is false when no attempt was valid.
type Reading struct {
	Detected       bool    `json:"detected"`
	Text           string  `json:"text,omitempty"`
	Value          float64 `json:"value"`
	Confidence     float64 `json:"confidence"`
	AgreementCount int     `json:"agreement_count"`
	TotalValid     int     `json:"total_valid"`
	BestPipeline   string  `json:"best_pipeline,omitempty"`
	BestConfig     string  `json:"best_config,omitempty"`
}

// Consensus reconciles the tick's attempt set into a single reading.
// The top-confidence valid attempt wins, but its confidence is scaled
// by the fraction of valid attempts that agree with it, so a single
// high-confidence outlier is down-weighted unless corroborated.
func Consensus(attempts []Attempt) Reading {
	valid := make([]Attempt, 0, len(attempts))
	for _, a := range attempts {
		if a.Valid {
			valid = append(valid, a)
		}
	}
	if len(valid) == 0 {
		metrics.NoDetectionTotal.Inc()
		return Reading{}
	}

	sort.SliceStable(valid, func(i, j int) bool {
		return valid[i].Confidence > valid[j].Confidence
	})
	best := valid[0]

	agreement := 0
	for _, a := range valid {
		if math.Abs(a.Value-best.Value) < AgreementTolerance {
			agreement++
		}
	}

	adjusted := best.Confidence * float64(agreement) / float64(len(valid))
	metrics.ConsensusConfidence.Observe(adjusted)
	return Reading{
		Detected:       true,
		Text:           best.RawText,
		Value:          best.Value,
		Confidence:     adjusted,
		AgreementCount: agreement,
		TotalValid:     len(valid),
		BestPipeline:   best.Pipeline,
		BestConfig:     best.Config,
	}
}
