package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ExtractionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "instaweb_extractions_total",
			Help: "Total number of extraction attempts by source and outcome",
		},
		[]string{"source", "outcome"},
	)

	ExtractionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "instaweb_extraction_duration_seconds",
			Help:    "Duration of extraction requests in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 15},
		},
		[]string{"source"},
	)

	PreviewsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "instaweb_previews_total",
			Help: "Total number of preview generations by outcome",
		},
		[]string{"outcome"},
	)

	TemplateFetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "instaweb_template_fetches_total",
			Help: "Total number of underlying template fetches by outcome",
		},
		[]string{"outcome"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "instaweb_http_requests_total",
			Help: "Total number of HTTP requests by route and status",
		},
		[]string{"route", "status"},
	)

	RateLimitedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "instaweb_rate_limited_total",
			Help: "Total number of requests rejected by the local rate limiter",
		},
		[]string{"route"},
	)
)

// Outcome labels
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)
