package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "topmovies_http_requests_total",
			Help: "Total number of HTTP requests handled",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "topmovies_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// Upstream movie database
	UpstreamRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "topmovies_upstream_requests_total",
			Help: "Total number of requests sent to the movie database API",
		},
		[]string{"endpoint", "status"},
	)

	UpstreamRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "topmovies_upstream_request_duration_seconds",
			Help:    "Duration of movie database API requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "topmovies_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	// Ranking
	RankingRecomputations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "topmovies_ranking_recomputations_total",
			Help: "Total number of ranking recomputations triggered by list reads",
		},
		[]string{"result"},
	)

	RankedMovies = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "topmovies_ranked_movies",
			Help: "Number of movies in the last ranking recomputation",
		},
	)
)

// RecordHTTPRequest records one handled request.
func RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	HTTPRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordUpstreamRequest records one call to the movie database. status is the
// HTTP status, or 0 when no response was received.
func RecordUpstreamRequest(endpoint string, status int, duration time.Duration) {
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	UpstreamRequestsTotal.WithLabelValues(endpoint, label).Inc()
	UpstreamRequestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

// RecordRanking records the outcome of a ranking recomputation.
func RecordRanking(count int, err error) {
	if err != nil {
		RankingRecomputations.WithLabelValues("error").Inc()
		return
	}
	RankingRecomputations.WithLabelValues("success").Inc()
	RankedMovies.Set(float64(count))
}
