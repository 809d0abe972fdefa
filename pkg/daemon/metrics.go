package daemon

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics are the Prometheus collectors exported by timelined.
type Metrics struct {
	Requests  *prometheus.CounterVec
	Latency   *prometheus.HistogramVec
	Timelines prometheus.Gauge
	Clients   prometheus.Gauge

	registry *prometheus.Registry
}

// NewMetrics creates the daemon collectors on a fresh registry, together
// with the Go runtime and process collectors.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "timelined",
			Name:      "requests_total",
			Help:      "Requests handled, by method and outcome.",
		}, []string{"method", "status"}),
		Latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "timelined",
			Name:      "request_duration_seconds",
			Help:      "Request handling latency by method.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		Timelines: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "timelined",
			Name:      "stored_timelines",
			Help:      "Number of timelines in storage.",
		}),
		Clients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "timelined",
			Name:      "connected_clients",
			Help:      "Number of clients connected to the socket.",
		}),
		registry: reg,
	}
	reg.MustRegister(
		m.Requests,
		m.Latency,
		m.Timelines,
		m.Clients,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Gatherer exposes the registry, mainly for tests.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.registry
}

func (m *Metrics) observe(method string, start time.Time, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.Requests.WithLabelValues(method, status).Inc()
	m.Latency.WithLabelValues(method).Observe(time.Since(start).Seconds())
}
