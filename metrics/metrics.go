// Package metrics holds the Prometheus collectors for generation runs and LLM calls.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// LLMRequests counts completion attempts by outcome
	// (success, rate_limited, error, cancelled).
	LLMRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "diploma_llm_requests_total",
			Help: "Total number of LLM completion attempts",
		},
		[]string{"outcome"},
	)

	// LLMRetries counts scheduled retries by delay source (retry-after, backoff).
	LLMRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "diploma_llm_retries_total",
			Help: "Total number of rate-limit retries",
		},
		[]string{"source"},
	)

	LLMBackoff = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "diploma_llm_backoff_seconds",
			Help:    "Computed wait before a rate-limit retry",
			Buckets: []float64{0, 1, 2, 4, 8, 16, 30, 60, 120},
		},
	)

	SectionsGenerated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "diploma_sections_generated_total",
			Help: "Total number of sections generated",
		},
	)

	// Runs counts finished pipeline runs by terminal state.
	Runs = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "diploma_runs_total",
			Help: "Total number of finished pipeline runs",
		},
		[]string{"state"},
	)

	RunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "diploma_run_duration_seconds",
			Help:    "Wall time of a pipeline run",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		},
	)

	RunsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "diploma_runs_in_flight",
			Help: "Pipeline runs currently generating",
		},
	)
)
