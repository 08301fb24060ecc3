// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ManuGH/capturerelay/internal/telemetry"
)

const maxRequestBodyBytes = 64 << 10

const tracerName = "capturerelay.api"

type authenticateRequest struct {
	NPSSO string `json:"npsso"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// handleAuthenticate exchanges an NPSSO token for a token pair.
// POST /auth/authenticate
func (s *Server) handleAuthenticate(w http.ResponseWriter, r *http.Request) {
	var req authenticateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.NPSSO) == "" {
		writeBadRequest(w, r, "MissingNpsso", "npsso is required")
		return
	}

	ctx, span := telemetry.Tracer(tracerName).Start(r.Context(), "auth.authenticate")
	defer span.End()

	pair, err := s.auth.Authenticate(ctx, strings.TrimSpace(req.NPSSO))
	if err != nil {
		fail(span, w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, pair)
}

// handleRefresh rotates a token pair.
// POST /auth/refresh
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.RefreshToken) == "" {
		writeBadRequest(w, r, "MissingRefreshToken", "refresh_token is required")
		return
	}

	ctx, span := telemetry.Tracer(tracerName).Start(r.Context(), "auth.refresh")
	defer span.End()

	pair, err := s.auth.Refresh(ctx, strings.TrimSpace(req.RefreshToken))
	if err != nil {
		fail(span, w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, pair)
}

// decodeBody reads a bounded JSON body into dst. An empty body leaves dst
// zero-valued so the caller reports the missing field.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return true
		}
		writeBadRequest(w, r, "InvalidRequestBody", "request body must be a JSON object")
		return false
	}
	return true
}

// fail records err on the span and writes the mapped problem response.
func fail(span trace.Span, w http.ResponseWriter, r *http.Request, err error) {
	ae := classify(err)
	span.RecordError(err)
	span.SetStatus(codes.Error, ae.Code)
	span.SetAttributes(telemetry.ErrorAttributes(ae.Code)...)
	writeError(w, r, err)
}
