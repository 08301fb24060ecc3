// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package auth exchanges a PlayStation NPSSO session token for an OAuth
// token pair and refreshes that pair.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ManuGH/capturerelay/internal/log"
	"github.com/ManuGH/capturerelay/internal/metrics"
	"github.com/ManuGH/capturerelay/internal/platform/httpx"
)

// Vendor OAuth constants used by the PlayStation mobile client.
const (
	DefaultClientID    = "09515159-7237-4370-9b40-3806e67c0891"
	DefaultScope       = "psn:mobile.v2.core psn:clientapp"
	DefaultRedirectURI = "com.scee.psxandroid.scecompcall://redirect"
	DefaultTokenURL    = "https://ca.account.sony.com/api/authz/v3/oauth/token"

	defaultAuthorizeBase = "https://ca.account.sony.com/api/authz/v3/oauth/authorize"
	tokenFormat          = "jwt"
	maxTokenBodyBytes    = 64 << 10
)

// DefaultAuthorizeURL is the authorize endpoint with the fixed query the
// vendor expects. The scope separator is %20 and the redirect URI is left
// unescaped.
var DefaultAuthorizeURL = defaultAuthorizeBase +
	"?access_type=offline" +
	"&client_id=" + DefaultClientID +
	"&response_type=code" +
	"&scope=" + strings.ReplaceAll(DefaultScope, " ", "%20") +
	"&redirect_uri=" + DefaultRedirectURI

// Config holds the vendor endpoints and the server-held client credential.
type Config struct {
	AuthorizeURL string
	TokenURL     string
	// ClientToken is the Basic credential as issued by the vendor (already base64).
	ClientToken string
	RedirectURI string
}

func (c Config) withDefaults() Config {
	if c.AuthorizeURL == "" {
		c.AuthorizeURL = DefaultAuthorizeURL
	}
	if c.TokenURL == "" {
		c.TokenURL = DefaultTokenURL
	}
	if c.RedirectURI == "" {
		c.RedirectURI = DefaultRedirectURI
	}
	return c
}

// TokenPair is the OAuth credential pair returned to callers.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Authenticator performs the NPSSO exchange and token refresh.
// It holds no per-user state and is safe for concurrent use.
type Authenticator struct {
	cfg    Config
	client *http.Client
}

// New creates an Authenticator. The supplied client is copied and never
// follows redirects; a nil client gets a hardened default.
func New(cfg Config, client *http.Client) *Authenticator {
	if client == nil {
		client = httpx.NewClient(0)
	}
	return &Authenticator{
		cfg:    cfg.withDefaults(),
		client: httpx.WithoutRedirects(client),
	}
}

// Authenticate exchanges an NPSSO session token for a token pair.
// The session token and the intermediate authorization code are never logged.
func (a *Authenticator) Authenticate(ctx context.Context, sessionToken string) (TokenPair, error) {
	logger := log.WithComponentFromContext(ctx, "psn.auth")

	code, err := a.authorize(ctx, sessionToken)
	if err != nil {
		logger.Warn().Err(err).Str(log.FieldEvent, "auth.authorize_failed").Msg("authorization code request failed")
		return TokenPair{}, err
	}

	form := url.Values{
		"code":         {code},
		"grant_type":   {"authorization_code"},
		"redirect_uri": {a.cfg.RedirectURI},
		"token_format": {tokenFormat},
	}
	resp, err := a.postToken(ctx, "token", form)
	if err != nil {
		logger.Warn().Err(err).Str(log.FieldEvent, "auth.token_failed").Msg("token exchange failed")
		return TokenPair{}, err
	}

	var tr tokenResponse
	if err := json.Unmarshal(resp, &tr); err != nil {
		return TokenPair{}, &Error{Kind: ErrMissingTokens, Op: "token", Err: err}
	}
	if tr.AccessToken == "" || tr.RefreshToken == "" {
		return TokenPair{}, &Error{Kind: ErrMissingTokens, Op: "token"}
	}

	logger.Info().Str(log.FieldEvent, "auth.authenticated").Msg("session token exchanged")
	return TokenPair{AccessToken: tr.AccessToken, RefreshToken: tr.RefreshToken}, nil
}

// Refresh obtains a new token pair from a refresh token. When the vendor
// omits a rotated refresh token the input token is carried forward.
func (a *Authenticator) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	logger := log.WithComponentFromContext(ctx, "psn.auth")

	if strings.TrimSpace(refreshToken) == "" {
		return TokenPair{}, &Error{Kind: ErrRefreshFailed, Op: "refresh", Err: errors.New("empty refresh token")}
	}

	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
		"redirect_uri":  {a.cfg.RedirectURI},
		"token_format":  {tokenFormat},
	}
	body, err := a.postToken(ctx, "refresh", form)
	if err != nil {
		// Every refresh failure collapses into one kind.
		var e *Error
		if errors.As(err, &e) {
			err = &Error{Kind: ErrRefreshFailed, Op: "refresh", Status: e.Status, Err: e.Err}
		}
		logger.Warn().Err(err).Str(log.FieldEvent, "auth.refresh_failed").Msg("token refresh failed")
		return TokenPair{}, err
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return TokenPair{}, &Error{Kind: ErrRefreshFailed, Op: "refresh", Err: err}
	}
	if tr.AccessToken == "" {
		return TokenPair{}, &Error{Kind: ErrRefreshFailed, Op: "refresh", Err: errors.New("access_token missing")}
	}
	if tr.RefreshToken == "" {
		tr.RefreshToken = refreshToken
	}

	logger.Info().Str(log.FieldEvent, "auth.refreshed").Msg("token pair refreshed")
	return TokenPair{AccessToken: tr.AccessToken, RefreshToken: tr.RefreshToken}, nil
}

// authorize performs step one: GET the authorize endpoint with the NPSSO
// cookie and read the code from the 302 Location.
func (a *Authenticator) authorize(ctx context.Context, sessionToken string) (string, error) {
	if strings.TrimSpace(sessionToken) == "" {
		return "", &Error{Kind: ErrAuthCodeFailed, Op: "authorize", Err: errors.New("empty session token")}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.cfg.AuthorizeURL, nil)
	if err != nil {
		return "", &Error{Kind: ErrAuthCodeFailed, Op: "authorize", Err: err}
	}
	req.Header.Set("Cookie", "npsso="+sessionToken)

	start := time.Now()
	resp, err := a.client.Do(req)
	if err != nil {
		metrics.ObserveUpstream(ctx, "auth", "authorize", metrics.OutcomeNetwork, time.Since(start))
		return "", &Error{Kind: ErrNetwork, Op: "authorize", Err: err}
	}
	defer drainClose(resp.Body)

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		metrics.ObserveUpstream(ctx, "auth", "authorize", metrics.OutcomeRateLimited, time.Since(start))
		return "", &Error{Kind: ErrRateLimited, Op: "authorize", Status: resp.StatusCode}
	case resp.StatusCode != http.StatusFound:
		metrics.ObserveUpstream(ctx, "auth", "authorize", metrics.OutcomeRejected, time.Since(start))
		return "", &Error{Kind: ErrAuthCodeFailed, Op: "authorize", Status: resp.StatusCode}
	}
	metrics.ObserveUpstream(ctx, "auth", "authorize", metrics.OutcomeOK, time.Since(start))

	location := resp.Header.Get("Location")
	if location == "" {
		return "", &Error{Kind: ErrNoAuthCode, Op: "authorize", Status: resp.StatusCode, Err: errors.New("missing Location header")}
	}
	u, err := url.Parse(location)
	if err != nil {
		return "", &Error{Kind: ErrNoAuthCode, Op: "authorize", Status: resp.StatusCode, Err: errors.New("unparseable Location header")}
	}
	code := u.Query().Get("code")
	if code == "" {
		return "", &Error{Kind: ErrNoAuthCode, Op: "authorize", Status: resp.StatusCode}
	}
	return code, nil
}

// postToken POSTs a form to the token endpoint and returns the 2xx body.
func (a *Authenticator) postToken(ctx context.Context, op string, form url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, &Error{Kind: ErrTokenExchangeFailed, Op: op, Err: err}
	}
	req.Header.Set("Authorization", "Basic "+a.cfg.ClientToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := a.client.Do(req)
	if err != nil {
		metrics.ObserveUpstream(ctx, "auth", op, metrics.OutcomeNetwork, time.Since(start))
		return nil, &Error{Kind: ErrNetwork, Op: op, Err: err}
	}
	defer drainClose(resp.Body)

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		metrics.ObserveUpstream(ctx, "auth", op, metrics.OutcomeRateLimited, time.Since(start))
		return nil, &Error{Kind: ErrRateLimited, Op: op, Status: resp.StatusCode}
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		metrics.ObserveUpstream(ctx, "auth", op, metrics.OutcomeRejected, time.Since(start))
		return nil, &Error{Kind: ErrTokenExchangeFailed, Op: op, Status: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxTokenBodyBytes))
	if err != nil {
		metrics.ObserveUpstream(ctx, "auth", op, metrics.OutcomeNetwork, time.Since(start))
		return nil, &Error{Kind: ErrNetwork, Op: op, Status: resp.StatusCode, Err: err}
	}
	metrics.ObserveUpstream(ctx, "auth", op, metrics.OutcomeOK, time.Since(start))
	return body, nil
}

func drainClose(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, io.LimitReader(body, 4<<10))
	_ = body.Close()
}
