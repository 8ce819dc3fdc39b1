package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Metrics holds the Prometheus counters and histograms for one analysis run.
//
// The process is single-shot, so there is nothing to scrape: metrics live in
// a dedicated registry and are delivered with a Pushgateway push at the end
// of the run when METRICS_PUSH_URL is configured.
type Metrics struct {
	registry *prometheus.Registry

	Runs             *prometheus.CounterVec   // labels: outcome={success,no_place,analysis_failed}
	APIRequests      *prometheus.CounterVec   // labels: service={places,openmeteo,gemini}, outcome={success,error}
	APIDuration      *prometheus.HistogramVec // labels: service={places,openmeteo,gemini}
	APIRetries       *prometheus.CounterVec   // labels: service
	HumidityDegraded prometheus.Counter
	ReportsPublished *prometheus.CounterVec // labels: outcome={success,error}
}

// NewMetrics creates all run metrics on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,
		Runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "infrascan",
			Name:      "runs_total",
			Help:      "Analysis runs by terminal outcome.",
		}, []string{"outcome"}),
		APIRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "infrascan",
			Name:      "api_requests_total",
			Help:      "Outbound API requests by service and outcome.",
		}, []string{"service", "outcome"}),
		APIDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "infrascan",
			Name:      "api_request_duration_seconds",
			Help:      "Outbound API request duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"service"}),
		APIRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "infrascan",
			Name:      "api_retries_total",
			Help:      "Retried API requests by service.",
		}, []string{"service"}),
		HumidityDegraded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "infrascan",
			Name:      "humidity_degraded_total",
			Help:      "Runs that continued without a humidity reading.",
		}),
		ReportsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "infrascan",
			Name:      "reports_published_total",
			Help:      "Final reports published to Kafka by outcome.",
		}, []string{"outcome"}),
	}

	reg.MustRegister(
		m.Runs,
		m.APIRequests,
		m.APIDuration,
		m.APIRetries,
		m.HumidityDegraded,
		m.ReportsPublished,
	)

	return m
}

// Push delivers the run's metrics to a Pushgateway. Best-effort; callers log
// the returned error and move on.
func (m *Metrics) Push(url, job string) error {
	return push.New(url, job).Gatherer(m.registry).Push()
}
