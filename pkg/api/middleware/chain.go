// Package middleware holds the HTTP middleware in front of the editor API.
//
//	h := middleware.Chain(mux,
//		middleware.PanicRecovery(logger),
//		middleware.RequestID(),
//		middleware.Logging(logger),
//		middleware.BodySizeLimit(8<<20),
//	)
package middleware

import (
	"encoding/json"
	"net/http"
)

// Middleware wraps a handler
type Middleware func(http.Handler) http.Handler

// Chain wraps h so that the first middleware listed sees the request first.
// Nil entries are skipped.
func Chain(h http.Handler, mws ...Middleware) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		if mws[i] != nil {
			h = mws[i](h)
		}
	}
	return h
}

// errorBody matches the API's error envelope so clients parse one shape
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
	Reason  string `json:"reason,omitempty"`
}

func writeError(w http.ResponseWriter, status int, reason, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorBody{
		Error:   http.StatusText(status),
		Message: message,
		Code:    status,
		Reason:  reason,
	})
}
