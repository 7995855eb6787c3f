package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestsTotal counts HTTP requests by method, route, and status code.
	RequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dreamlab_requests_total",
		Help: "Total HTTP requests processed.",
	}, []string{"method", "route", "status"})

	// GenerationsTotal counts finished generations by model and outcome.
	GenerationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dreamlab_generations_total",
		Help: "Image generations by model and outcome.",
	}, []string{"model", "outcome"})

	// GenerationDuration tracks wall-clock time from dispatch to terminal state.
	GenerationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "dreamlab_generation_duration_seconds",
		Help:    "Time from dispatch to terminal state.",
		Buckets: []float64{1, 5, 10, 20, 30, 60, 120, 180, 300},
	}, []string{"model"})

	// PollAttempts tracks how many status reads a generation needed.
	PollAttempts = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "dreamlab_generation_poll_attempts",
		Help:    "Status reads per polled generation.",
		Buckets: []float64{1, 2, 3, 5, 10, 20, 40, 60},
	})

	// AnalysesTotal counts media analyses by provider, media type and outcome.
	AnalysesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dreamlab_analyses_total",
		Help: "Media analyses by provider, media type and outcome.",
	}, []string{"provider", "media_type", "outcome"})
)
