// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/ManuGH/capturerelay/internal/log"
)

// AccessLog logs one line per request. Only the path is logged: relay query
// strings carry signed CDN URLs.
func AccessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := newStatusWriter(w)

		next.ServeHTTP(sw, r)

		logger := log.WithComponentFromContext(r.Context(), "http")
		var ev *zerolog.Event
		switch {
		case sw.statusCode >= 500:
			ev = logger.Error()
		case sw.statusCode >= 400:
			ev = logger.Warn()
		default:
			ev = logger.Info()
		}
		ev.Str(log.FieldEvent, "http.request").
			Str(log.FieldMethod, r.Method).
			Str(log.FieldRoute, routePattern(r)).
			Str(log.FieldPath, r.URL.Path).
			Int(log.FieldStatus, sw.statusCode).
			Int64(log.FieldBytes, sw.bytesWritten).
			Int64(log.FieldDuration, time.Since(start).Milliseconds()).
			Str(log.FieldRemote, r.RemoteAddr).
			Msg("request completed")
	})
}

// routePattern returns the matched chi pattern, or "unmatched" to keep label
// cardinality bounded.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unmatched"
}
