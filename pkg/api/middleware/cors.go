package middleware

import (
	"net/http"
	"slices"
	"strconv"
	"strings"
)

// CORSConfig lists who may call the API from a browser
type CORSConfig struct {
	AllowedOrigins   []string // "*" allows every origin
	AllowedMethods   []string
	AllowedHeaders   []string
	AllowCredentials bool
	MaxAge           int // preflight cache, seconds
}

// DefaultCORSConfig allows no origins. The map front-end is normally served
// from its own origin, so deployments list it explicitly.
func DefaultCORSConfig() *CORSConfig {
	return &CORSConfig{
		AllowedOrigins: []string{},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", RequestIDHeader},
		MaxAge:         86400,
	}
}

// CORS sets the allow headers for listed origins and answers OPTIONS itself:
// 200 for an allowed origin, 403 otherwise. A nil config passes every request
// through untouched.
func CORS(config *CORSConfig) Middleware {
	return func(next http.Handler) http.Handler {
		if config == nil {
			return next
		}
		anyOrigin := slices.Contains(config.AllowedOrigins, "*")
		methods := joinOr(config.AllowedMethods, "GET, POST, PUT, DELETE, OPTIONS")
		headers := joinOr(config.AllowedHeaders, "Content-Type, "+RequestIDHeader)

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			allowed := anyOrigin || (origin != "" && slices.Contains(config.AllowedOrigins, origin))

			if allowed && origin != "" {
				h := w.Header()
				h.Set("Access-Control-Allow-Origin", origin)
				h.Add("Vary", "Origin")
				h.Set("Access-Control-Allow-Methods", methods)
				h.Set("Access-Control-Allow-Headers", headers)
				h.Set("Access-Control-Expose-Headers", RequestIDHeader)
				if config.AllowCredentials {
					h.Set("Access-Control-Allow-Credentials", "true")
				}
				if config.MaxAge > 0 {
					h.Set("Access-Control-Max-Age", strconv.Itoa(config.MaxAge))
				}
			}

			if r.Method == http.MethodOptions {
				if !allowed {
					writeError(w, http.StatusForbidden, "origin_not_allowed", "origin not allowed")
					return
				}
				w.WriteHeader(http.StatusOK)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func joinOr(values []string, fallback string) string {
	if len(values) == 0 {
		return fallback
	}
	return strings.Join(values, ", ")
}
