// SPDX-License-Identifier: MIT

package middleware

import (
	"github.com/go-chi/chi/v5"
)

// StackConfig selects the optional layers of the ingress stack.
type StackConfig struct {
	AllowedOrigins []string // nil disables CORS
	CSP            string   // empty uses DefaultCSP

	EnableMetrics  bool
	TracingService string // empty disables tracing
	EnableLogging  bool

	RateLimitRPM int // 0 disables the global limit
}

// NewRouter returns a chi router with ApplyStack already applied.
func NewRouter(cfg StackConfig) *chi.Mux {
	r := chi.NewRouter()
	ApplyStack(r, cfg)
	return r
}

// ApplyStack installs the ingress middleware, outermost first. Request ids
// come before recovery so a recovered panic is still correlated, and tracing
// comes before logging so access logs carry trace ids. Rate limiting runs
// last, so rejected requests are still logged and counted.
func ApplyStack(r chi.Router, cfg StackConfig) {
	r.Use(RequestID, Recoverer)
	if cfg.TracingService != "" {
		r.Use(OTelHTTP(cfg.TracingService))
	}
	if cfg.AllowedOrigins != nil {
		r.Use(CORS(cfg.AllowedOrigins))
	}
	r.Use(SecurityHeaders(cfg.CSP))
	if cfg.EnableMetrics {
		r.Use(Metrics())
	}
	if cfg.EnableLogging {
		r.Use(AccessLog)
	}
	if cfg.RateLimitRPM > 0 {
		r.Use(APIRateLimit(cfg.RateLimitRPM))
	}
}
