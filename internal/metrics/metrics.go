package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Failure reasons. User-visible state never distinguishes them.
const (
	ReasonInvalidLabel  = "invalid_label"
	ReasonClassifyCall  = "classify_call"
	ReasonGenerateCall  = "generate_call"
	ReasonMalformedJSON = "malformed_json"
)

var (
	RoundTripsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chartgpt_round_trips_total",
			Help: "Round trips finished, by outcome and failure reason",
		},
		[]string{"outcome", "reason"},
	)

	RoundTripsStale = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chartgpt_round_trips_stale_total",
			Help: "Round trip completions dropped because a newer submission exists",
		},
	)

	RoundTripsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "chartgpt_round_trips_active",
			Help: "Round trips currently in flight",
		},
	)

	ChartTypesClassified = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chartgpt_chart_types_total",
			Help: "Accepted chart type labels",
		},
		[]string{"chart_type"},
	)

	LLMCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chartgpt_llm_call_duration_seconds",
			Help:    "Duration of outbound language model calls",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 8),
		},
		[]string{"provider", "status"},
	)

	Sessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "chartgpt_sessions",
			Help: "Sessions currently holding state",
		},
	)
)
