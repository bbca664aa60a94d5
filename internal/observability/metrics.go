package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors for the search pipeline.
type Metrics struct {
	// Upstream metrics.
	UpstreamRequests *prometheus.CounterVec   // labels: service={nominatim,open-meteo}, outcome={success,error,empty,malformed}
	UpstreamDuration *prometheus.HistogramVec // labels: service

	// Search metrics.
	Searches *prometheus.CounterVec // labels: outcome={recorded,not_found,upstream_error,malformed,unknown_code,aborted}

	// Aggregator gauges, refreshed by the stats reporter.
	TotalSearches   prometheus.Gauge
	TrackedCities   prometheus.Gauge
	TrackedVisitors prometheus.Gauge
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.UpstreamRequests,
		m.UpstreamDuration,
		m.Searches,
		m.TotalSearches,
		m.TrackedCities,
		m.TrackedVisitors,
	)
	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		UpstreamRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "city_weather",
			Name:      "upstream_requests_total",
			Help:      "Upstream API requests by service and outcome.",
		}, []string{"service", "outcome"}),
		UpstreamDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "city_weather",
			Name:      "upstream_duration_seconds",
			Help:      "Upstream API request duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"service"}),
		Searches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "city_weather",
			Name:      "searches_total",
			Help:      "Search requests by outcome.",
		}, []string{"outcome"}),
		TotalSearches: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "city_weather",
			Name:      "recorded_searches",
			Help:      "Searches recorded in the in-memory city counters.",
		}),
		TrackedCities: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "city_weather",
			Name:      "tracked_cities",
			Help:      "Distinct normalized city names searched since start.",
		}),
		TrackedVisitors: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "city_weather",
			Name:      "tracked_visitors",
			Help:      "Visitors with at least one recorded search.",
		}),
	}
}
