package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Eligibility check modes.
const (
	ModeLocal    = "local"
	ModeAI       = "ai"
	ModeFallback = "fallback"
)

var (
	EligibilityChecks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eligibility_checks_total",
			Help: "Total number of eligibility checks by mode",
		},
		[]string{"mode"},
	)

	AIFallbacks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "eligibility_ai_fallbacks_total",
			Help: "Total number of AI checks answered locally because the AI service was unreachable",
		},
	)

	EligibleSchemes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "eligibility_matched_schemes",
			Help:    "Number of eligible schemes returned per local check",
			Buckets: []float64{0, 1, 2, 5, 10, 20, 50, 100},
		},
	)

	SchemesCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "schemes_created_total",
			Help: "Total number of schemes added to the catalog",
		},
	)

	CatalogCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_cache_lookups_total",
			Help: "Active scheme list cache lookups by result",
		},
		[]string{"result"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
)
