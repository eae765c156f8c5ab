package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	OpSignup = "signup"
	OpLogin  = "login"

	OutcomeSuccess      = "success"
	OutcomeBadInput     = "bad_input"
	OutcomeUnauthorized = "unauthorized"
	OutcomeConflict     = "conflict"
	OutcomeFailure      = "failure"
	OutcomeCached       = "cached"
	OutcomeUnavailable  = "unavailable"
)

var (
	authRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nl2sql_auth_requests_total",
		Help: "Total number of signup and login requests by outcome",
	}, []string{"op", "outcome"})

	sqlGenerations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nl2sql_sql_generations_total",
		Help: "Total number of SQL generation requests by outcome",
	}, []string{"outcome"})

	sqlGenerationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "nl2sql_sql_generation_duration_seconds",
		Help:    "Latency of calls to the generative model in seconds",
		Buckets: prometheus.DefBuckets,
	})
)

func RecordAuth(op, outcome string) {
	authRequests.WithLabelValues(op, outcome).Inc()
}

func RecordGeneration(outcome string) {
	sqlGenerations.WithLabelValues(outcome).Inc()
}

func ObserveGeneration(d time.Duration) {
	sqlGenerationDuration.Observe(d.Seconds())
}
