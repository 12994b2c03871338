package metrics

import (
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Command outcomes used as the status label
const (
	StatusOK       = "ok"
	StatusRejected = "rejected"
	StatusError    = "error"
)

// RecordHTTPRequest records an HTTP request with its duration
func (r *Registry) RecordHTTPRequest(method, route, status string, duration time.Duration) {
	r.HTTPRequestsTotal.WithLabelValues(method, route, status).Inc()
	r.HTTPRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// IncHTTPRequestsInFlight marks a request as started
func (r *Registry) IncHTTPRequestsInFlight() {
	r.HTTPRequestsInFlight.Inc()
}

// DecHTTPRequestsInFlight marks a request as finished
func (r *Registry) DecHTTPRequestsInFlight() {
	r.HTTPRequestsInFlight.Dec()
}

// RecordCommand records one editor command
func (r *Registry) RecordCommand(command, status string, duration time.Duration) {
	r.CommandsTotal.WithLabelValues(command, status).Inc()
	r.CommandDuration.WithLabelValues(command).Observe(duration.Seconds())
}

// RecordIndexRebuild records a port index rebuild and the resulting size
func (r *Registry) RecordIndexRebuild(session string, ports, assets int, duration time.Duration) {
	r.IndexRebuildDuration.Observe(duration.Seconds())
	r.IndexPorts.WithLabelValues(session).Set(float64(ports))
	r.AssetsTotal.WithLabelValues(session).Set(float64(assets))
}

// RecordDanglingReferences counts connectedTo entries cleaned up after a removal
func (r *Registry) RecordDanglingReferences(n int) {
	if n > 0 {
		r.DanglingReferencesTotal.Add(float64(n))
	}
}

// RecordStoreOperation records a document store call. size is ignored when zero.
func (r *Registry) RecordStoreOperation(backend, operation, status string, size int, duration time.Duration) {
	r.StoreOperationsTotal.WithLabelValues(backend, operation, status).Inc()
	r.StoreOperationDuration.WithLabelValues(backend, operation).Observe(duration.Seconds())
	if size > 0 {
		r.StoreDocumentBytes.WithLabelValues(backend, operation).Observe(float64(size))
	}
}

// SessionOpened increments the active session gauge
func (r *Registry) SessionOpened() {
	r.SessionsActive.Inc()
}

// SessionClosed decrements the active session gauge and drops its per-session series
func (r *Registry) SessionClosed(session string) {
	r.SessionsActive.Dec()
	r.IndexPorts.DeleteLabelValues(session)
	r.AssetsTotal.DeleteLabelValues(session)
}

// RecordEventDropped counts an event a slow subscriber did not receive
func (r *Registry) RecordEventDropped() {
	r.EventsDroppedTotal.Inc()
}

// StreamOpened marks a server-sent event stream as open
func (r *Registry) StreamOpened() { r.EventStreamsActive.Inc() }

// StreamClosed marks a server-sent event stream as finished
func (r *Registry) StreamClosed() { r.EventStreamsActive.Dec() }

// sampleProcess refreshes the process gauges. Scrapes may overlap, so the
// sample is taken under the lock.
func (r *Registry) sampleProcess() {
	r.mu.Lock()
	defer r.mu.Unlock()

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	r.UptimeSeconds.Set(time.Since(r.startedAt).Seconds())
	r.GoRoutines.Set(float64(runtime.NumGoroutine()))
	r.HeapInuseBytes.Set(float64(mem.HeapInuse))
	r.GCCycles.Set(float64(mem.NumGC))
}

// Handler serves the registry in the Prometheus exposition format, sampling
// the process gauges first. Collection errors are logged into the response
// rather than failing the scrape.
func (r *Registry) Handler() http.Handler {
	inner := promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{
		ErrorHandling: promhttp.ContinueOnError,
		Registry:      r.registry,
	})
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		r.sampleProcess()
		inner.ServeHTTP(w, req)
	})
}
