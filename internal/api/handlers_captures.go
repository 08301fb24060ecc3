// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/ManuGH/capturerelay/internal/auth"
	"github.com/ManuGH/capturerelay/internal/log"
	"github.com/ManuGH/capturerelay/internal/metrics"
	"github.com/ManuGH/capturerelay/internal/psn/catalog"
	"github.com/ManuGH/capturerelay/internal/psn/media"
	"github.com/ManuGH/capturerelay/internal/telemetry"
)

const (
	// HeaderTokenizedSupported reports whether the listing used tokenized media URLs.
	HeaderTokenizedSupported = "X-PSN-Tokenized-Supported"

	previewCacheControl = "public, max-age=3600"
	streamCacheControl  = "private, max-age=0, must-revalidate"

	copyBufferSize = 32 << 10
)

type capturesResponse struct {
	Captures []catalog.Capture `json:"captures"`
}

// handleListCaptures lists the caller's captures and hands the CDN cookie
// back as an HTTP-only cookie. tokenized=0 asks for plain media URLs only.
// GET /captures
func (s *Server) handleListCaptures(w http.ResponseWriter, r *http.Request) {
	token := auth.BearerToken(r)
	if token == "" {
		problemUnauthorized(w, r, "MissingBearerToken", "Authorization: Bearer <token> is required")
		return
	}

	ctx, span := telemetry.Tracer(tracerName).Start(r.Context(), "captures.list")
	defer span.End()

	opts := catalog.ListOptions{SkipTokenized: r.URL.Query().Get("tokenized") == "0"}
	res, err := s.catalog.List(ctx, token, opts)
	if err != nil {
		fail(span, w, r, err)
		return
	}
	span.SetAttributes(telemetry.CatalogAttributes(len(res.Captures), res.Tokenized)...)

	captures := res.Captures
	if captures == nil {
		captures = []catalog.Capture{}
	}
	auth.SetCDNCookie(w, res.CDNCookie, s.cfg.SecureCookies)
	w.Header().Set(HeaderTokenizedSupported, strconv.FormatBool(res.Tokenized))
	writeJSON(w, r, http.StatusOK, capturesResponse{Captures: captures})
}

// handlePreview relays a buffered thumbnail.
// GET /captures/preview?url=
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	target, ok := targetParam(w, r)
	if !ok {
		return
	}

	ctx, span := telemetry.Tracer(tracerName).Start(r.Context(), "captures.preview")
	defer span.End()
	span.SetAttributes(telemetry.RelayAttributes("preview", hostOf(target))...)

	res, err := s.relay.Preview(ctx, target, auth.CDNCookie(r))
	if err != nil {
		fail(span, w, r, err)
		return
	}

	w.Header().Set("Content-Type", res.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(res.Body)))
	w.Header().Set("Cache-Control", previewCacheControl)
	w.WriteHeader(http.StatusOK)
	n, _ := w.Write(res.Body)
	metrics.AddRelayBytes("preview", int64(n))
}

// handleStream relays playlists (rewritten) and segments (streamed).
// GET /captures/stream?url=
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	target, ok := targetParam(w, r)
	if !ok {
		return
	}

	ctx, span := telemetry.Tracer(tracerName).Start(r.Context(), "captures.stream")
	defer span.End()
	span.SetAttributes(telemetry.RelayAttributes("stream", hostOf(target))...)

	res, err := s.relay.Stream(ctx, target, auth.CDNCookie(r))
	if err != nil {
		fail(span, w, r, err)
		return
	}

	w.Header().Set("Content-Type", res.ContentType)
	w.Header().Set("Cache-Control", streamCacheControl)

	if res.Kind == media.StreamText {
		span.SetAttributes(telemetry.RelayKindAttribute("playlist"))
		w.Header().Set("Content-Length", strconv.Itoa(len(res.Text)))
		w.WriteHeader(http.StatusOK)
		n, _ := io.WriteString(w, res.Text)
		metrics.AddRelayBytes("stream", int64(n))
		return
	}

	span.SetAttributes(telemetry.RelayKindAttribute("bytes"))
	defer func() { _ = res.Body.Close() }()
	if res.ContentLength >= 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(res.ContentLength, 10))
	}
	w.WriteHeader(http.StatusOK)
	copyBody(w, r, "stream", res.Body)
}

// handleDownload relays a full media file as an attachment.
// GET /captures/download?url=
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	target, ok := targetParam(w, r)
	if !ok {
		return
	}

	ctx, span := telemetry.Tracer(tracerName).Start(r.Context(), "captures.download")
	defer span.End()
	span.SetAttributes(telemetry.RelayAttributes("download", hostOf(target))...)

	res, err := s.relay.Download(ctx, target, auth.CDNCookie(r))
	if err != nil {
		fail(span, w, r, err)
		return
	}
	defer func() { _ = res.Body.Close() }()

	w.Header().Set("Content-Type", res.ContentType)
	w.Header().Set("Content-Disposition", res.ContentDisposition)
	if res.ContentLength >= 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(res.ContentLength, 10))
	}
	w.WriteHeader(http.StatusOK)
	copyBody(w, r, "download", res.Body)
}

// copyBody streams body to the client, flushing after every chunk so bytes
// reach the client as they arrive upstream.
func copyBody(w http.ResponseWriter, r *http.Request, op string, body io.Reader) {
	fw := &flushWriter{w: w, rc: http.NewResponseController(w)}
	buf := make([]byte, copyBufferSize)
	n, err := io.CopyBuffer(fw, body, buf)
	metrics.AddRelayBytes(op, n)
	if err != nil && r.Context().Err() == nil {
		logger := log.WithComponentFromContext(r.Context(), "api")
		logger.Debug().
			Err(err).
			Str(log.FieldEvent, "api.relay_copy_aborted").
			Str(log.FieldOperation, op).
			Int64(log.FieldBytes, n).
			Msg("relay copy ended early")
	}
}

type flushWriter struct {
	w  io.Writer
	rc *http.ResponseController
}

func (f *flushWriter) Write(p []byte) (int, error) {
	n, err := f.w.Write(p)
	if n > 0 {
		_ = f.rc.Flush()
	}
	return n, err
}

// targetParam reads the required url query parameter.
func targetParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	target := r.URL.Query().Get("url")
	if target == "" {
		writeBadRequest(w, r, "MissingUrl", "url query parameter is required")
		return "", false
	}
	return target, true
}

func problemUnauthorized(w http.ResponseWriter, r *http.Request, code, detail string) {
	writeProblem(w, r, http.StatusUnauthorized, code, detail)
}

// hostOf returns the host of raw for span attributes, or "".
func hostOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return u.Hostname()
}
