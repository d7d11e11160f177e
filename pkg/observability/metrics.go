// Package observability holds the Prometheus metrics for the funnel CLI.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the pipeline.
type Metrics struct {
	// Ingestion metrics
	RowsIngestedTotal *prometheus.CounterVec
	RowsSkippedTotal  *prometheus.CounterVec

	// Identity resolution metrics
	ResolutionsTotal     *prometheus.CounterVec
	ResolutionConfidence prometheus.Histogram
	PendingReviewCases   prometheus.Gauge
	MergesTotal          *prometheus.CounterVec

	// Report metrics
	ReportBuildsTotal         prometheus.Counter
	ReportBuildSeconds        prometheus.Histogram
	RegistrationFallbackTotal prometheus.Counter
}

// DefaultMetrics creates metrics on the default registerer.
func DefaultMetrics() *Metrics {
	return NewMetrics(prometheus.DefaultRegisterer)
}

// NewMetrics creates a new metric set registered with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		RowsIngestedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "funnel_rows_ingested_total",
				Help: "Rows successfully parsed per source",
			},
			[]string{"source"},
		),
		RowsSkippedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "funnel_rows_skipped_total",
				Help: "Malformed rows skipped per source",
			},
			[]string{"source"},
		),
		ResolutionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "funnel_identity_resolutions_total",
				Help: "Identity resolution outcomes by action",
			},
			[]string{"action"},
		),
		ResolutionConfidence: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "funnel_identity_resolution_confidence",
				Help:    "Match confidence of resolution outcomes",
				Buckets: []float64{10, 30, 50, 70, 80, 90, 95, 100},
			},
		),
		PendingReviewCases: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "funnel_pending_review_cases",
				Help: "Open review cases awaiting an operator",
			},
		),
		MergesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "funnel_identity_merges_total",
				Help: "Identity merges by trigger",
			},
			[]string{"trigger"},
		),
		ReportBuildsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "funnel_report_builds_total",
				Help: "Completed report builds",
			},
		),
		ReportBuildSeconds: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "funnel_report_build_seconds",
				Help:    "Report build latency",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10},
			},
		),
		RegistrationFallbackTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "funnel_registration_fallback_total",
				Help: "Windows computed without a richer registration source",
			},
		),
	}
}
