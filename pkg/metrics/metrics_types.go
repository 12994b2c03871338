// Package metrics exposes the editor's Prometheus metrics. Every Registry
// owns its own prometheus.Registry so tests and embedded servers do not share
// counters.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds all metrics for the editor service
type Registry struct {
	// HTTP
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge
	EventStreamsActive   prometheus.Gauge

	// Editor
	CommandsTotal           *prometheus.CounterVec
	CommandDuration         *prometheus.HistogramVec
	IndexRebuildDuration    prometheus.Histogram
	IndexPorts              *prometheus.GaugeVec
	AssetsTotal             *prometheus.GaugeVec
	SessionsActive          prometheus.Gauge
	DanglingReferencesTotal prometheus.Counter
	EventsDroppedTotal      prometheus.Counter

	// Store
	StoreOperationsTotal   *prometheus.CounterVec
	StoreOperationDuration *prometheus.HistogramVec
	StoreDocumentBytes     *prometheus.HistogramVec

	// Process, sampled on scrape
	UptimeSeconds  prometheus.Gauge
	GoRoutines     prometheus.Gauge
	HeapInuseBytes prometheus.Gauge
	GCCycles       prometheus.Gauge

	registry  *prometheus.Registry
	startedAt time.Time
	mu        sync.Mutex
}

// NewRegistry creates a registry with every metric registered
func NewRegistry() *Registry {
	r := &Registry{
		registry:  prometheus.NewRegistry(),
		startedAt: time.Now(),
	}
	r.initServerMetrics()
	r.initEditorMetrics()
	r.initStoreMetrics()
	return r
}

// GetPrometheusRegistry returns the underlying Prometheus registry
func (r *Registry) GetPrometheusRegistry() *prometheus.Registry {
	return r.registry
}
