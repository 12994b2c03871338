package middleware

import (
	"net/http"
	"strconv"
	"time"
)

// Label values for requests outside the known route and method sets
const (
	UnmatchedRoute = "unmatched"
	OtherMethod    = "OTHER"
)

// MetricsRecorder receives one observation per request
type MetricsRecorder interface {
	RecordHTTPRequest(method, route, status string, duration time.Duration)
	IncHTTPRequestsInFlight()
	DecHTTPRequestsInFlight()
}

// Metrics records count, latency and in-flight requests. The route label is
// the mux pattern that served the request, read after the handler ran, so ids
// in paths never become label values. A nil recorder disables the middleware.
func Metrics(recorder MetricsRecorder) Middleware {
	return func(next http.Handler) http.Handler {
		if recorder == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			recorder.IncHTTPRequestsInFlight()
			defer recorder.DecHTTPRequestsInFlight()

			sw := &statusWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(sw, r)

			route := r.Pattern
			if route == "" {
				route = UnmatchedRoute
			}
			recorder.RecordHTTPRequest(methodLabel(r.Method), route, strconv.Itoa(sw.statusCode), time.Since(start))
		})
	}
}

func methodLabel(m string) string {
	switch m {
	case http.MethodGet, http.MethodHead, http.MethodPost, http.MethodPut,
		http.MethodPatch, http.MethodDelete, http.MethodOptions:
		return m
	}
	return OtherMethod
}
