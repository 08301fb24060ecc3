// SPDX-License-Identifier: MIT

package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/httprate"

	"github.com/ManuGH/capturerelay/internal/api/problem"
	"github.com/ManuGH/capturerelay/internal/log"
)

// RateLimitConfig describes one sliding-window limiter.
type RateLimitConfig struct {
	Name         string // scope reported in logs, e.g. "api" or "auth"
	RequestLimit int
	WindowSize   time.Duration
	// KeyFunc defaults to the client IP.
	KeyFunc func(r *http.Request) (string, error)
}

// RateLimit rejects requests over budget with a 429 problem and a
// Retry-After of one window.
func RateLimit(cfg RateLimitConfig) func(http.Handler) http.Handler {
	key := cfg.KeyFunc
	if key == nil {
		key = httprate.KeyByIP
	}
	scope := cfg.Name
	if scope == "" {
		scope = "api"
	}
	retryAfter := strconv.Itoa(max(1, int(cfg.WindowSize/time.Second)))

	onLimit := func(w http.ResponseWriter, r *http.Request) {
		logger := log.WithComponentFromContext(r.Context(), "ratelimit")
		logger.Warn().
			Str(log.FieldEvent, "ratelimit.rejected").
			Str("scope", scope).
			Str(log.FieldRoute, r.URL.Path).
			Msg("request rate limited")
		w.Header().Set("Retry-After", retryAfter)
		problem.Write(w, r, http.StatusTooManyRequests, "RateLimited", "Too many requests. Please try again later.", nil)
	}

	return httprate.Limit(cfg.RequestLimit, cfg.WindowSize,
		httprate.WithKeyFuncs(key),
		httprate.WithLimitHandler(onLimit),
	)
}

// APIRateLimit is the global per-IP budget in requests per minute.
func APIRateLimit(rpm int) func(http.Handler) http.Handler {
	return RateLimit(RateLimitConfig{Name: "api", RequestLimit: rpm, WindowSize: time.Minute})
}

// AuthRateLimit is the tighter per-IP budget of the token exchange routes,
// which call the vendor account service.
func AuthRateLimit(rpm int) func(http.Handler) http.Handler {
	return RateLimit(RateLimitConfig{Name: "auth", RequestLimit: rpm, WindowSize: time.Minute})
}
