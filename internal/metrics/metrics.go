// Package metrics exposes Prometheus instrumentation for the reading
// pipeline. Collectors are registered on the default registry so an
// embedding application can export them however it likes.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TicksTotal counts recognition ticks that actually ran.
	TicksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "readout_ticks_total",
		Help: "Total number of recognition ticks executed.",
	})

	// TicksSkipped counts ticks dropped by the mutual-exclusion guard
	// or a missing frame.
	TicksSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "readout_ticks_skipped_total",
		Help: "Ticks skipped, partitioned by reason.",
	}, []string{"reason"})

	// AttemptsTotal counts recognition attempts by pipeline, config and
	// validity.
	AttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "readout_attempts_total",
		Help: "Recognition attempts, partitioned by pipeline, config and validity.",
	}, []string{"pipeline", "config", "valid"})

	// NoDetectionTotal counts ticks whose consensus produced no reading.
	NoDetectionTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "readout_no_detection_total",
		Help: "Ticks where no valid attempt survived consensus.",
	})

	// ConsensusConfidence observes the adjusted confidence of readings.
	ConsensusConfidence = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "readout_consensus_confidence",
		Help:    "Adjusted confidence of consensus readings.",
		Buckets: prometheus.LinearBuckets(0, 10, 11),
	})

	// ConfirmsTotal counts accepted confirm actions by reading kind.
	ConfirmsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "readout_confirms_total",
		Help: "Accepted confirmations, partitioned by reading kind.",
	}, []string{"kind"})
)
