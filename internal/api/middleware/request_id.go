// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package middleware provides the HTTP ingress middleware stack.
package middleware

import (
	"net/http"
	"regexp"

	"github.com/google/uuid"

	"github.com/ManuGH/capturerelay/internal/api/problem"
	"github.com/ManuGH/capturerelay/internal/log"
)

// HeaderCorrelationID lets a front end tie several requests together.
const HeaderCorrelationID = "X-Correlation-ID"

// Inbound ids end up in logs and response headers.
var safeID = regexp.MustCompile(`^[A-Za-z0-9._-]{1,128}$`)

// RequestID accepts a well-formed inbound X-Request-ID or mints a UUID, and
// stores it in the context and the response. A valid correlation id is
// carried along unchanged.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(problem.HeaderRequestID)
		if !safeID.MatchString(id) {
			id = uuid.NewString()
		}
		w.Header().Set(problem.HeaderRequestID, id)
		ctx := log.ContextWithRequestID(r.Context(), id)

		if cid := r.Header.Get(HeaderCorrelationID); safeID.MatchString(cid) {
			w.Header().Set(HeaderCorrelationID, cid)
			ctx = log.ContextWithCorrelationID(ctx, cid)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
