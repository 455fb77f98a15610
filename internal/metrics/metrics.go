package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registry = prometheus.NewRegistry()

	HTTPRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "taskboard",
		Subsystem: "gateway",
		Name:      "http_requests_total",
		Help:      "HTTP requests served, by method, route and status code.",
	}, []string{"method", "route", "status"})

	HTTPDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "taskboard",
		Subsystem: "gateway",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency, by method and route.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})

	RealtimeSubscribers = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "taskboard",
		Subsystem: "realtime",
		Name:      "subscribers",
		Help:      "Open change-event subscriptions, by table.",
	}, []string{"table"})

	RealtimeEvents = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "taskboard",
		Subsystem: "realtime",
		Name:      "events_total",
		Help:      "Change events published, by table and type.",
	}, []string{"table", "type"})
)

func init() {
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		HTTPRequests,
		HTTPDuration,
		RealtimeSubscribers,
		RealtimeEvents,
	)
}

// Registry returns the registry every gateway collector is registered on.
func Registry() *prometheus.Registry {
	return registry
}

// Handler serves the registry in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry})
}
