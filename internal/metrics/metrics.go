package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	// OutcomeSuccess labels investigations that produced a report.
	OutcomeSuccess = "success"
	// OutcomeError labels investigations that ended in a terminal error.
	OutcomeError = "error"
)

var (
	investigationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "aria",
			Name:      "investigations_total",
			Help:      "Total number of investigations handled, partitioned by outcome.",
		},
		[]string{"outcome"},
	)

	investigationDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "aria",
			Name:      "investigation_seconds",
			Help:      "End-to-end investigation latency in seconds.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 15, 20, 30, 45, 60},
		},
	)

	stageDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "aria",
			Name:      "stage_seconds",
			Help:      "Per-stage latency in seconds.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 15, 30},
		},
		[]string{"stage"},
	)

	connectorFallbacksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "aria",
			Name:      "connector_fallbacks_total",
			Help:      "Times a connector answer was replaced by deterministic fallback data.",
		},
		[]string{"connector"},
	)
)

// Register attaches aria-engine collectors to the supplied Prometheus registerer.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		investigationsTotal,
		investigationDurationSeconds,
		stageDurationSeconds,
		connectorFallbacksTotal,
	}

	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

// ObserveInvestigation records an investigation duration and outcome label.
func ObserveInvestigation(duration time.Duration, outcome string) {
	label := outcome
	if label != OutcomeError {
		label = OutcomeSuccess
	}
	investigationsTotal.WithLabelValues(label).Inc()
	if duration < 0 {
		duration = 0
	}
	investigationDurationSeconds.Observe(duration.Seconds())
}

// ObserveStage records the latency of a single pipeline stage.
func ObserveStage(stage string, duration time.Duration) {
	if duration < 0 {
		duration = 0
	}
	stageDurationSeconds.WithLabelValues(stage).Observe(duration.Seconds())
}

// CountFallback records a connector answer replaced by fallback data.
func CountFallback(connector string) {
	connectorFallbacksTotal.WithLabelValues(connector).Inc()
}
