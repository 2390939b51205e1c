package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Evaluation operations.
const (
	OperationEvaluate = "evaluate"
	OperationBatch    = "batch"
	OperationDraft    = "draft"
)

// Evaluation outcomes.
const (
	OutcomeSuccess     = "success"
	OutcomeRejected    = "rejected"
	OutcomeUnavailable = "unavailable"
	OutcomeFault       = "fault"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// Pricing metrics
	EvaluationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pricing_evaluations_total",
			Help: "Total number of pricing evaluations",
		},
		[]string{"operation", "outcome"},
	)

	EvaluationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pricing_evaluation_duration_seconds",
			Help:    "Pricing evaluation duration in seconds",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1},
		},
		[]string{"operation"},
	)

	RulesFired = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pricing_rules_fired_total",
			Help: "Total number of pricing rules that fired",
		},
		[]string{"rule_type"},
	)

	ScenarioBatchSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pricing_scenario_batch_size",
			Help:    "Number of scenarios per evaluated batch",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500},
		},
	)

	// Snapshot cache metrics
	SnapshotCacheHit = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pricing_snapshot_cache_hit_total",
			Help: "Total number of rule snapshot cache hits",
		},
	)

	SnapshotCacheMiss = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pricing_snapshot_cache_miss_total",
			Help: "Total number of rule snapshot cache misses",
		},
	)

	// Database metrics
	DatabaseQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "database_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	// Event metrics
	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "events_published_total",
			Help: "Total number of events published",
		},
		[]string{"event_type", "status"},
	)

	// Error metrics
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "errors_total",
			Help: "Total number of errors",
		},
		[]string{"type", "component"},
	)
)

// RecordHTTPRequest records an HTTP request
func RecordHTTPRequest(method, endpoint, status string, duration time.Duration) {
	HTTPRequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordEvaluation records one evaluate, batch or draft call
func RecordEvaluation(operation, outcome string, duration time.Duration) {
	EvaluationsTotal.WithLabelValues(operation, outcome).Inc()
	EvaluationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordRuleFired records a rule that matched and was applied
func RecordRuleFired(ruleType string) {
	RulesFired.WithLabelValues(ruleType).Inc()
}

// RecordScenarioBatch records the size of an evaluated scenario batch
func RecordScenarioBatch(size int) {
	ScenarioBatchSize.Observe(float64(size))
}

// RecordSnapshotCache records a snapshot cache lookup
func RecordSnapshotCache(hit bool) {
	if hit {
		SnapshotCacheHit.Inc()
		return
	}
	SnapshotCacheMiss.Inc()
}

// RecordDatabaseQuery records a database query
func RecordDatabaseQuery(operation string, duration time.Duration) {
	DatabaseQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordEventPublished records an event publish attempt
func RecordEventPublished(eventType string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	EventsPublished.WithLabelValues(eventType, status).Inc()
}

// RecordError records an error
func RecordError(errorType, component string) {
	ErrorsTotal.WithLabelValues(errorType, component).Inc()
}
