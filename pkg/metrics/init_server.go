package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// initServerMetrics registers the HTTP surface and the process gauges that
// Handler samples on every scrape.
func (r *Registry) initServerMetrics() {
	factory := promauto.With(r.registry)

	r.HTTPRequestsTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "mapeditor_http_requests_total",
		Help: "HTTP requests by method, route pattern and status code",
	}, []string{"method", "route", "status"})

	r.HTTPRequestDuration = factory.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "mapeditor_http_request_duration_seconds",
		Help:    "HTTP request latency by route pattern; event streams are excluded by their length",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
	}, []string{"method", "route"})

	r.HTTPRequestsInFlight = factory.NewGauge(prometheus.GaugeOpts{
		Name: "mapeditor_http_requests_in_flight",
		Help: "HTTP requests currently being served, open event streams included",
	})

	r.EventStreamsActive = factory.NewGauge(prometheus.GaugeOpts{
		Name: "mapeditor_event_streams_active",
		Help: "Open server-sent event streams",
	})

	r.UptimeSeconds = factory.NewGauge(prometheus.GaugeOpts{
		Name: "mapeditor_uptime_seconds",
		Help: "Seconds since the registry was created",
	})
	r.GoRoutines = factory.NewGauge(prometheus.GaugeOpts{
		Name: "mapeditor_goroutines",
		Help: "Goroutines at the last scrape",
	})
	r.HeapInuseBytes = factory.NewGauge(prometheus.GaugeOpts{
		Name: "mapeditor_heap_inuse_bytes",
		Help: "Bytes in in-use heap spans at the last scrape",
	})
	r.GCCycles = factory.NewGauge(prometheus.GaugeOpts{
		Name: "mapeditor_gc_cycles",
		Help: "Completed GC cycles at the last scrape",
	})
}
