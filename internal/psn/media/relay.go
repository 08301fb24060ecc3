// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package media relays cookie-gated CDN media: previews, HLS streams and
// file downloads.
package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/elnormous/contenttype"
	"github.com/h2non/filetype"

	"github.com/ManuGH/capturerelay/internal/log"
	"github.com/ManuGH/capturerelay/internal/metrics"
	"github.com/ManuGH/capturerelay/internal/platform/httpx"
	pnet "github.com/ManuGH/capturerelay/internal/platform/net"
	"github.com/ManuGH/capturerelay/internal/playlist"
)

const (
	// DefaultStreamEndpoint is where rewritten playlist lines point.
	DefaultStreamEndpoint = "/captures/stream"
	// MaxPreviewBytes caps buffered preview bodies.
	MaxPreviewBytes = 16 << 20

	maxPlaylistBytes = 4 << 20
	maxRedirects     = 10

	fallbackPreviewType = "image/jpeg"
	fallbackBinaryType  = "application/octet-stream"
)

// Config configures the relay.
type Config struct {
	Policy         pnet.MediaHostPolicy
	StreamEndpoint string
}

// PreviewResult is a fully buffered preview image.
type PreviewResult struct {
	Body        []byte
	ContentType string
}

// StreamKind tells whether a stream result is rewritten text or live bytes.
type StreamKind int

const (
	StreamBytes StreamKind = iota
	StreamText
)

// StreamResult is either a rewritten playlist (Text) or a live body the
// caller must copy and close.
type StreamResult struct {
	Kind          StreamKind
	Text          string
	Body          io.ReadCloser
	ContentType   string
	ContentLength int64
}

// DownloadResult is a live body with attachment metadata. Callers close Body.
type DownloadResult struct {
	Body               io.ReadCloser
	ContentType        string
	ContentDisposition string
	ContentLength      int64
}

// Relay fetches allow-listed media with a caller-supplied CDN cookie.
// It is stateless and safe for concurrent use.
type Relay struct {
	cfg    Config
	client *http.Client
}

// New creates a Relay. The client is copied and re-validates every redirect
// hop against the host policy. A nil client gets a streaming default.
func New(cfg Config, client *http.Client) *Relay {
	if cfg.StreamEndpoint == "" {
		cfg.StreamEndpoint = DefaultStreamEndpoint
	}
	if len(cfg.Policy.Suffixes()) == 0 {
		cfg.Policy, _ = pnet.NewMediaHostPolicy(nil)
	}
	if client == nil {
		client = httpx.NewStreamingClient(0)
	}
	cp := *client
	policy := cfg.Policy
	cp.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		if len(via) >= maxRedirects {
			return fmt.Errorf("stopped after %d redirects", maxRedirects)
		}
		return policy.Check(req.URL)
	}
	return &Relay{cfg: cfg, client: &cp}
}

// Preview fetches a thumbnail and buffers it.
func (r *Relay) Preview(ctx context.Context, rawURL, cookie string) (PreviewResult, error) {
	_, resp, err := r.open(ctx, "preview", rawURL, cookie)
	if err != nil {
		// Transport failures surface as an internal error status.
		return PreviewResult{}, retype(err, ErrPreviewFetchFailed, http.StatusInternalServerError)
	}
	defer func() { _ = resp.Body.Close() }()

	if !success(resp.StatusCode) {
		return PreviewResult{}, &Error{Kind: ErrPreviewFetchFailed, Op: "preview", Status: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxPreviewBytes+1))
	if err != nil {
		return PreviewResult{}, &Error{Kind: ErrPreviewFetchFailed, Op: "preview", Status: http.StatusBadGateway, Err: err}
	}
	if len(body) > MaxPreviewBytes {
		return PreviewResult{}, &Error{Kind: ErrPreviewFetchFailed, Op: "preview", Status: http.StatusBadGateway, Err: fmt.Errorf("preview exceeds %d bytes", MaxPreviewBytes)}
	}

	ct := resp.Header.Get("Content-Type")
	if ct == "" {
		ct = sniffContentType(body)
	}
	return PreviewResult{Body: body, ContentType: ct}, nil
}

// Stream fetches a media resource. HLS playlists are buffered and rewritten
// so nested requests come back through the relay; anything else is returned
// as a live body.
func (r *Relay) Stream(ctx context.Context, rawURL, cookie string) (StreamResult, error) {
	target, resp, err := r.open(ctx, "stream", rawURL, cookie)
	if err != nil {
		return StreamResult{}, retype(err, ErrStreamFetchFailed, 0)
	}
	if !success(resp.StatusCode) || resp.Body == nil {
		closeBody(resp)
		return StreamResult{}, &Error{Kind: ErrStreamFetchFailed, Op: "stream", Status: resp.StatusCode}
	}

	ct := resp.Header.Get("Content-Type")
	if !isPlaylist(ct, target) {
		if ct == "" {
			ct = fallbackBinaryType
		}
		return StreamResult{Kind: StreamBytes, Body: resp.Body, ContentType: ct, ContentLength: resp.ContentLength}, nil
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxPlaylistBytes+1))
	if err != nil {
		return StreamResult{}, &Error{Kind: ErrStreamFetchFailed, Op: "stream", Status: http.StatusBadGateway, Err: err}
	}
	// A cut playlist would end mid-line, so it is rejected instead of rewritten.
	if len(raw) > maxPlaylistBytes {
		return StreamResult{}, &Error{Kind: ErrStreamFetchFailed, Op: "stream", Status: http.StatusBadGateway, Err: fmt.Errorf("playlist exceeds %d bytes", maxPlaylistBytes)}
	}
	// Rewrites resolve against the URL that produced the body, after redirects.
	base := target
	if resp.Request != nil && resp.Request.URL != nil {
		base = resp.Request.URL
	}
	text := playlist.RewriteMediaPlaylist(string(raw), base, r.cfg.StreamEndpoint)
	metrics.PlaylistRewritesTotal.Inc()
	if ct == "" {
		ct = "application/vnd.apple.mpegurl"
	}
	return StreamResult{Kind: StreamText, Text: text, ContentType: ct, ContentLength: int64(len(text))}, nil
}

// Download fetches a full media file for saving.
func (r *Relay) Download(ctx context.Context, rawURL, cookie string) (DownloadResult, error) {
	target, resp, err := r.open(ctx, "download", rawURL, cookie)
	if err != nil {
		return DownloadResult{}, retype(err, ErrStreamFetchFailed, 0)
	}
	if !success(resp.StatusCode) || resp.Body == nil {
		closeBody(resp)
		return DownloadResult{}, &Error{Kind: ErrStreamFetchFailed, Op: "download", Status: resp.StatusCode}
	}

	ct := resp.Header.Get("Content-Type")
	if ct == "" {
		ct = fallbackBinaryType
	}
	disposition := resp.Header.Get("Content-Disposition")
	if disposition == "" {
		disposition = AttachmentDisposition(target)
	}
	return DownloadResult{
		Body:               resp.Body,
		ContentType:        ct,
		ContentDisposition: disposition,
		ContentLength:      resp.ContentLength,
	}, nil
}

// AttachmentDisposition synthesizes a Content-Disposition from the last
// path segment of target.
func AttachmentDisposition(target *url.URL) string {
	name := target.Path[strings.LastIndex(target.Path, "/")+1:]
	if name == "" {
		name = "capture"
	}
	return fmt.Sprintf("attachment; filename=%q", url.PathEscape(name))
}

var errTransport = errors.New("transport failure")

// open validates the target and cookie, then issues the GET. No network I/O
// happens unless both checks pass.
func (r *Relay) open(ctx context.Context, op, rawURL, cookie string) (*url.URL, *http.Response, error) {
	logger := log.WithComponentFromContext(ctx, "psn.media")

	target, err := r.cfg.Policy.Parse(rawURL)
	if err != nil {
		kind := ErrHostNotAllowed
		reason := "host_not_allowed"
		if errors.Is(err, ErrInvalidURL) {
			kind, reason = ErrInvalidURL, "invalid_url"
		}
		metrics.IncRelayBlocked(reason)
		logger.Warn().
			Str(log.FieldEvent, "media.target_rejected").
			Str(log.FieldOperation, op).
			Str(log.FieldTargetURL, pnet.RedactURL(rawURL)).
			Msg("relay target rejected")
		return nil, nil, &Error{Kind: kind, Op: op, Err: err}
	}
	if strings.TrimSpace(cookie) == "" {
		metrics.IncRelayBlocked("missing_cookie")
		return nil, nil, &Error{Kind: ErrMissingCookie, Op: op}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return nil, nil, &Error{Kind: ErrInvalidURL, Op: op, Err: err}
	}
	req.Header.Set("Cookie", cookie)

	start := time.Now()
	resp, err := r.client.Do(req)
	if err != nil {
		if errors.Is(err, ErrHostNotAllowed) || errors.Is(err, ErrInvalidURL) {
			metrics.IncRelayBlocked("redirect_not_allowed")
			logger.Warn().
				Str(log.FieldEvent, "media.redirect_rejected").
				Str(log.FieldOperation, op).
				Str(log.FieldTargetURL, pnet.RedactURL(rawURL)).
				Msg("relay redirect left the allow-list")
			return nil, nil, &Error{Kind: ErrHostNotAllowed, Op: op, Err: err}
		}
		metrics.ObserveUpstream(ctx, "media", op, metrics.OutcomeNetwork, time.Since(start))
		return nil, nil, &Error{Kind: errTransport, Op: op, Err: err}
	}

	outcome := metrics.OutcomeOK
	if !success(resp.StatusCode) {
		outcome = metrics.OutcomeRejected
		logger.Debug().
			Str(log.FieldEvent, "media.upstream_status").
			Str(log.FieldOperation, op).
			Int(log.FieldUpstreamStatus, resp.StatusCode).
			Str(log.FieldTargetURL, pnet.RedactURL(target.String())).
			Msg("upstream media request not successful")
	}
	metrics.ObserveUpstream(ctx, "media", op, outcome, time.Since(start))
	return target, resp, nil
}

// retype maps a transport failure from open to the operation's public kind.
func retype(err error, kind error, status int) error {
	var e *Error
	if errors.As(err, &e) && e.Kind == errTransport {
		return &Error{Kind: kind, Op: e.Op, Status: status, Err: e.Err}
	}
	return err
}

func isPlaylist(contentType string, target *url.URL) bool {
	if contentType != "" {
		sub := strings.ToLower(contenttype.NewMediaType(contentType).Subtype)
		if strings.Contains(sub, "mpegurl") || strings.Contains(sub, "m3u") {
			return true
		}
	}
	return playlist.IsPlaylist(target.Path)
}

func sniffContentType(body []byte) string {
	kind, err := filetype.Match(body)
	if err != nil || kind == filetype.Unknown || kind.MIME.Value == "" {
		return fallbackPreviewType
	}
	return kind.MIME.Value
}

func success(status int) bool {
	return status >= 200 && status < 300
}

func closeBody(resp *http.Response) {
	if resp != nil && resp.Body != nil {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		_ = resp.Body.Close()
	}
}
