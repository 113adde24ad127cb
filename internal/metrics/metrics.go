package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Capture metrics
	Captures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "linetracker_captures_total",
			Help: "Total number of capture timestamps handled",
		},
		[]string{"status"}, // extracted, skipped, failed
	)

	CaptureRunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "linetracker_capture_run_duration_seconds",
			Help:    "Duration of a full capture run",
			Buckets: []float64{1, 10, 60, 300, 900, 1800, 3600, 7200},
		},
	)

	// API metrics
	APIRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "linetracker_api_requests_total",
			Help: "Total number of odds provider requests",
		},
		[]string{"api", "endpoint", "status"}, // oddsapi, historical_odds, success/transient/fatal
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "linetracker_api_request_duration_seconds",
			Help:    "Duration of odds provider requests",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"api", "endpoint"},
	)

	APIQuotaRemaining = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "linetracker_api_quota_remaining",
			Help: "Requests remaining on the odds provider plan, as last reported",
		},
	)

	// Warehouse load metrics
	LoadRows = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "linetracker_load_rows_total",
			Help: "Total number of fact rows inserted by warehouse loads",
		},
	)

	LoadRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "linetracker_load_runs_total",
			Help: "Total number of warehouse load invocations",
		},
		[]string{"status"}, // loaded, skipped, empty, error
	)

	LoadDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "linetracker_load_duration_seconds",
			Help:    "Duration of warehouse loads",
			Buckets: []float64{.1, .5, 1, 5, 10, 30, 60, 120, 300},
		},
	)

	// Query metrics
	QueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "linetracker_query_duration_seconds",
			Help:    "Duration of downstream aggregation queries",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
		[]string{"query", "status"}, // games/movements/summary, success/error
	)

	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "linetracker_cache_lookups_total",
			Help: "Total number of query cache lookups",
		},
		[]string{"result"}, // hit, miss, error
	)

	// System health
	HealthChecks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "linetracker_health_checks_total",
			Help: "Total number of health check requests",
		},
		[]string{"status"}, // healthy/unhealthy
	)
)

// RecordCapture records the outcome of one capture timestamp
func RecordCapture(status string) {
	Captures.WithLabelValues(status).Inc()
}

// RecordAPIRequest records provider request metrics
func RecordAPIRequest(api, endpoint, status string, duration time.Duration) {
	APIRequests.WithLabelValues(api, endpoint, status).Inc()
	APIRequestDuration.WithLabelValues(api, endpoint).Observe(duration.Seconds())
}

// RecordLoad records a warehouse load
func RecordLoad(status string, rows int, duration time.Duration) {
	LoadRuns.WithLabelValues(status).Inc()
	LoadRows.Add(float64(rows))
	LoadDuration.Observe(duration.Seconds())
}

// RecordQuery records a downstream query
func RecordQuery(query string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	QueryDuration.WithLabelValues(query, status).Observe(duration.Seconds())
}

// RecordCacheLookup records a cache hit, miss or error
func RecordCacheLookup(result string) {
	CacheLookups.WithLabelValues(result).Inc()
}

// RecordHealthCheck records health check status
func RecordHealthCheck(healthy bool) {
	status := "healthy"
	if !healthy {
		status = "unhealthy"
	}
	HealthChecks.WithLabelValues(status).Inc()
}
