// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package catalog lists a user's cloud media gallery and harvests the CDN
// cookies needed to fetch the listed media.
package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/ManuGH/capturerelay/internal/auth"
	"github.com/ManuGH/capturerelay/internal/log"
	"github.com/ManuGH/capturerelay/internal/metrics"
	"github.com/ManuGH/capturerelay/internal/platform/httpx"
)

const (
	// DefaultBaseURL lists every capture type of the cloud media gallery.
	DefaultBaseURL      = "https://m.np.playstation.com/api/gameMediaService/v2/c2s/category/cloudMediaGallery/ugcType/all"
	DefaultPageSize     = 100
	DefaultCookiePrefix = "CloudFront"

	maxCatalogBodyBytes = 8 << 20
)

// Config configures the catalog endpoint.
type Config struct {
	BaseURL      string
	PageSize     int
	CookiePrefix string
}

func (c Config) withDefaults() Config {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.PageSize <= 0 {
		c.PageSize = DefaultPageSize
	}
	if c.CookiePrefix == "" {
		c.CookiePrefix = DefaultCookiePrefix
	}
	return c
}

// Result is one successful listing.
type Result struct {
	Captures []Capture
	// CDNCookie is the "name=value; name=value" set of CDN cookies, or "".
	CDNCookie string
	// Tokenized reports whether the listing carries tokenized media URLs.
	Tokenized bool
}

// Catalog lists captures. It is stateless and safe for concurrent use.
type Catalog struct {
	cfg      Config
	client   *http.Client
	validate *validator.Validate
}

// New creates a Catalog. A nil client gets a hardened default.
func New(cfg Config, client *http.Client) *Catalog {
	if client == nil {
		client = httpx.NewClient(0)
	}
	return &Catalog{
		cfg:      cfg.withDefaults(),
		client:   client,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

type attempt struct {
	status  int
	body    []byte
	header  http.Header
	elapsed time.Duration
}

// ListOptions tunes one listing. The zero value asks for tokenized media
// URLs and falls back to plain URLs on a scope rejection.
type ListOptions struct {
	// SkipTokenized requests plain media URLs from the start.
	SkipTokenized bool
}

// errPayloadTooLarge marks a listing body above maxCatalogBodyBytes.
var errPayloadTooLarge = fmt.Errorf("payload too large (over %d bytes)", maxCatalogBodyBytes)

// List fetches the gallery with the caller's access token. A 403 scope
// rejection of the tokenized request is retried once without tokenized URLs.
func (c *Catalog) List(ctx context.Context, accessToken string, opts ListOptions) (Result, error) {
	logger := log.WithComponentFromContext(ctx, "psn.catalog")

	token := auth.NormalizeBearer(accessToken)
	if token == "" {
		return Result{}, &Error{Kind: ErrInvalidToken, Op: "list", Err: errors.New("empty access token")}
	}

	jar := newCookieJar(c.cfg.CookiePrefix)
	tokenized := !opts.SkipTokenized

	res, err := c.fetch(ctx, token, tokenized)
	if err != nil {
		return Result{}, err
	}
	jar.add(res.header)

	if tokenized && res.status == http.StatusForbidden && IsScopeError(res.body) {
		metrics.CatalogScopeFallbackTotal.Inc()
		logger.Info().
			Str(log.FieldEvent, "catalog.scope_fallback").
			Msg("token lacks tokenized-url scope, retrying without")

		tokenized = false
		res, err = c.fetch(ctx, token, tokenized)
		if err != nil {
			return Result{}, err
		}
		jar.add(res.header)
	}

	if res.status == http.StatusForbidden && IsScopeError(res.body) {
		return Result{}, &Error{Kind: ErrInvalidToken, Op: "list", Status: res.status, Body: truncate(res.body)}
	}

	if res.status >= 400 {
		logger.Warn().
			Str(log.FieldEvent, "catalog.fetch_failed").
			Int(log.FieldUpstreamStatus, res.status).
			Bool(log.FieldTokenized, tokenized).
			Msg("catalog request rejected")
		return Result{}, &Error{Kind: ErrFetchFailed, Op: "list", Status: res.status, Body: truncate(res.body)}
	}

	captures, err := c.parse(res.body)
	if err != nil {
		metrics.ObserveUpstream(ctx, "catalog", "list", metrics.OutcomeParse, res.elapsed)
		logger.Error().
			Err(err).
			Str(log.FieldEvent, "catalog.parse_failed").
			Str(log.FieldPayloadShape, payloadShape(res.body)).
			Msg("catalog payload rejected")
		return Result{}, &Error{Kind: ErrParse, Op: "list", Status: res.status, Err: err}
	}
	metrics.ObserveUpstream(ctx, "catalog", "list", metrics.OutcomeOK, res.elapsed)

	metrics.CatalogCapturesListed.Observe(float64(len(captures)))
	logger.Debug().
		Str(log.FieldEvent, "catalog.listed").
		Int(log.FieldCaptureCount, len(captures)).
		Bool(log.FieldTokenized, tokenized).
		Msg("catalog listed")

	return Result{
		Captures:  captures,
		CDNCookie: jar.String(),
		Tokenized: tokenized,
	}, nil
}

func (c *Catalog) listURL(tokenized bool) (string, error) {
	u, err := url.Parse(c.cfg.BaseURL)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("includeTokenizedUrls", strconv.FormatBool(tokenized))
	q.Set("limit", strconv.Itoa(c.cfg.PageSize))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (c *Catalog) fetch(ctx context.Context, token string, tokenized bool) (attempt, error) {
	target, err := c.listURL(tokenized)
	if err != nil {
		return attempt{}, &Error{Kind: ErrFetchFailed, Op: "list", Err: err}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return attempt{}, &Error{Kind: ErrFetchFailed, Op: "list", Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		metrics.ObserveUpstream(ctx, "catalog", "list", metrics.OutcomeNetwork, time.Since(start))
		return attempt{}, &Error{Kind: ErrNetwork, Op: "list", Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxCatalogBodyBytes+1))
	elapsed := time.Since(start)
	if err != nil {
		metrics.ObserveUpstream(ctx, "catalog", "list", metrics.OutcomeNetwork, elapsed)
		return attempt{}, &Error{Kind: ErrNetwork, Op: "list", Status: resp.StatusCode, Err: err}
	}
	if len(body) > maxCatalogBodyBytes {
		metrics.ObserveUpstream(ctx, "catalog", "list", metrics.OutcomeRejected, elapsed)
		return attempt{}, &Error{Kind: ErrFetchFailed, Op: "list", Status: resp.StatusCode, Err: errPayloadTooLarge}
	}

	// Successful bodies are observed once parsed, as ok or parse.
	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		metrics.ObserveUpstream(ctx, "catalog", "list", metrics.OutcomeRateLimited, elapsed)
	case resp.StatusCode >= 400:
		metrics.ObserveUpstream(ctx, "catalog", "list", metrics.OutcomeRejected, elapsed)
	}

	return attempt{status: resp.StatusCode, body: body, header: resp.Header, elapsed: elapsed}, nil
}

func (c *Catalog) parse(body []byte) ([]Capture, error) {
	var raw rawResponse
	dec := json.NewDecoder(bytes.NewReader(body))
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if err := c.validate.Struct(raw); err != nil {
		return nil, fmt.Errorf("validate: %w", err)
	}

	captures := make([]Capture, 0, len(raw.UgcDocument))
	for _, r := range raw.UgcDocument {
		capture, err := normalize(r)
		if err != nil {
			return nil, err
		}
		captures = append(captures, capture)
	}
	return captures, nil
}
