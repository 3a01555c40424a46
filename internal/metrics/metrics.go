// Package metrics exposes Prometheus instrumentation for the scan pipeline
// and the HTTP surface.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	scansTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "invoice_scan",
			Name:      "scans_total",
			Help:      "Finished scans by outcome and decision tier",
		},
		[]string{"outcome", "tier"},
	)

	stageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "invoice_scan",
			Name:      "stage_duration_seconds",
			Help:      "Pipeline stage duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"stage"},
	)

	matchConfidence = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "invoice_scan",
			Name:      "match_confidence",
			Help:      "Aggregate match confidence per scan (0-100)",
			Buckets:   []float64{0, 10, 20, 30, 40, 50, 60, 70, 85, 95, 100},
		},
	)

	feedbackTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "invoice_scan",
			Name:      "feedback_total",
			Help:      "Matching feedback events by verdict",
		},
		[]string{"feedback"},
	)
)

func init() {
	prometheus.MustRegister(scansTotal)
	prometheus.MustRegister(stageDuration)
	prometheus.MustRegister(matchConfidence)
	prometheus.MustRegister(feedbackTotal)
}

// ObserveScan records one finished scan.
func ObserveScan(outcome, tier string, confidence float64) {
	scansTotal.WithLabelValues(outcome, tier).Inc()
	if outcome == "ok" {
		matchConfidence.Observe(confidence)
	}
}

// ObserveStage records the duration of one pipeline stage.
func ObserveStage(stage string, elapsed time.Duration) {
	stageDuration.WithLabelValues(stage).Observe(elapsed.Seconds())
}

// ObserveFeedback records one feedback event.
func ObserveFeedback(feedback string) {
	feedbackTotal.WithLabelValues(feedback).Inc()
}
