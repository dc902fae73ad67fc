// Package metrics exposes gateway Prometheus collectors.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"scsb/internal/downstream"
)

const namespace = "scsb_gateway"

// Metrics holds the gateway collectors on a private registry
type Metrics struct {
	registry *prometheus.Registry

	downstreamCalls   *prometheus.CounterVec
	downstreamLatency *prometheus.HistogramVec
	forwardResults    *prometheus.CounterVec
}

// New creates and registers the gateway collectors
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		downstreamCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "downstream_calls_total",
			Help:      "Downstream calls by service and outcome",
		}, []string{"service", "outcome"}),
		downstreamLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "downstream_call_duration_seconds",
			Help:      "Downstream call latency by service",
			Buckets:   prometheus.DefBuckets,
		}, []string{"service"}),
		forwardResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "forward_results_total",
			Help:      "Classified forward results by route and kind",
		}, []string{"route", "kind", "status"}),
	}

	m.registry.MustRegister(
		m.downstreamCalls,
		m.downstreamLatency,
		m.forwardResults,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveDownstream implements downstream.Observer
func (m *Metrics) ObserveDownstream(service downstream.ServiceID, outcome string, latency time.Duration) {
	m.downstreamCalls.WithLabelValues(string(service), outcome).Inc()
	m.downstreamLatency.WithLabelValues(string(service)).Observe(latency.Seconds())
}

// ObserveResult counts one classified inbound request
func (m *Metrics) ObserveResult(route, kind string, status int) {
	m.forwardResults.WithLabelValues(route, kind, strconv.Itoa(status)).Inc()
}

// Registry returns the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
