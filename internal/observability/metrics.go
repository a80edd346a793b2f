// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// HTTP metrics
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPInFlight        prometheus.Gauge

	// Upstream GraphQL metrics
	GraphQLCalls        *prometheus.CounterVec
	GraphQLCallDuration *prometheus.HistogramVec
	GraphQLRetries      *prometheus.CounterVec

	// Mutation metrics
	MutationsTotal *prometheus.CounterVec
	ReceiptWaits   *prometheus.HistogramVec

	// Auth metrics
	AuthEvents       *prometheus.CounterVec
	RateLimitRejects *prometheus.CounterVec

	// Exchange-rate metrics
	ExchangeRateUpdates    *prometheus.CounterVec
	ExchangeRatePairs      prometheus.Gauge
	LastExchangeRateUpdate prometheus.Gauge

	// Cache metrics
	CacheLookups *prometheus.CounterVec

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance registered on reg.
// A nil reg uses the default Prometheus registerer.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "atk"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	return &Metrics{
		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests by route, method and status",
		}, []string{"route", "method", "status"}),
		HTTPRequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
		HTTPInFlight: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_in_flight",
			Help:      "Current number of HTTP requests being served",
		}),

		GraphQLCalls: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "graphql",
			Name:      "calls_total",
			Help:      "Total number of upstream GraphQL calls by service, operation and status",
		}, []string{"service", "operation", "status"}),
		GraphQLCallDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "graphql",
			Name:      "call_duration_seconds",
			Help:      "Upstream GraphQL call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"service", "operation"}),
		GraphQLRetries: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "graphql",
			Name:      "retries_total",
			Help:      "Total number of retried upstream GraphQL attempts",
		}, []string{"service"}),

		MutationsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "assets",
			Name:      "mutations_total",
			Help:      "Total number of asset mutations by type and status",
		}, []string{"mutation", "status"}),
		ReceiptWaits: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "txwatch",
			Name:      "receipt_wait_seconds",
			Help:      "Time spent waiting for transaction receipts",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
		}, []string{"outcome"}),

		AuthEvents: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "events_total",
			Help:      "Total number of authentication events by kind and outcome",
		}, []string{"event", "outcome"}),
		RateLimitRejects: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "rate_limit_rejects_total",
			Help:      "Total number of requests rejected by the rate limiter",
		}, []string{"route"}),

		ExchangeRateUpdates: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "exchange_rate",
			Name:      "updates_total",
			Help:      "Total number of exchange-rate update runs by status",
		}, []string{"status"}),
		ExchangeRatePairs: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "exchange_rate",
			Name:      "pairs",
			Help:      "Number of currency pairs written by the last update",
		}),
		LastExchangeRateUpdate: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "exchange_rate",
			Name:      "last_success_timestamp",
			Help:      "Unix timestamp of the last successful exchange-rate update",
		}),

		CacheLookups: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "lookups_total",
			Help:      "Total number of cache lookups by result",
		}, []string{"result"}),

		DBQueryDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("", nil)

// RecordHTTPRequest records a served HTTP request.
func RecordHTTPRequest(route, method, status string, seconds float64) {
	DefaultMetrics.HTTPRequests.WithLabelValues(route, method, status).Inc()
	DefaultMetrics.HTTPRequestDuration.WithLabelValues(route, method).Observe(seconds)
}

// RecordGraphQLCall records one logical upstream GraphQL call.
func RecordGraphQLCall(service, operation, status string, seconds float64) {
	DefaultMetrics.GraphQLCalls.WithLabelValues(service, operation, status).Inc()
	DefaultMetrics.GraphQLCallDuration.WithLabelValues(service, operation).Observe(seconds)
}

// RecordGraphQLRetry records a retried attempt.
func RecordGraphQLRetry(service string) {
	DefaultMetrics.GraphQLRetries.WithLabelValues(service).Inc()
}

// RecordMutation records an asset mutation outcome.
func RecordMutation(mutation, status string) {
	DefaultMetrics.MutationsTotal.WithLabelValues(mutation, status).Inc()
}

// RecordReceiptWait records how long a receipt wait took.
func RecordReceiptWait(outcome string, seconds float64) {
	DefaultMetrics.ReceiptWaits.WithLabelValues(outcome).Observe(seconds)
}

// RecordAuthEvent records a sign-in, sign-up or verification outcome.
func RecordAuthEvent(event, outcome string) {
	DefaultMetrics.AuthEvents.WithLabelValues(event, outcome).Inc()
}

// RecordRateLimitReject records a rejected request.
func RecordRateLimitReject(route string) {
	DefaultMetrics.RateLimitRejects.WithLabelValues(route).Inc()
}

// RecordExchangeRateUpdate records an updater run.
func RecordExchangeRateUpdate(status string, pairs int, unixTime float64) {
	DefaultMetrics.ExchangeRateUpdates.WithLabelValues(status).Inc()
	if status == "success" {
		DefaultMetrics.ExchangeRatePairs.Set(float64(pairs))
		DefaultMetrics.LastExchangeRateUpdate.Set(unixTime)
	}
}

// RecordCacheLookup records a cache hit or miss.
func RecordCacheLookup(hit bool) {
	if hit {
		DefaultMetrics.CacheLookups.WithLabelValues("hit").Inc()
		return
	}
	DefaultMetrics.CacheLookups.WithLabelValues("miss").Inc()
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}
