// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package session applies the caller-side refresh policy on top of the
// stateless catalog: when a listing is rejected for credential reasons the
// stored refresh token is used once and the listing is retried once.
package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/ManuGH/capturerelay/internal/credstore"
	"github.com/ManuGH/capturerelay/internal/log"
	psnauth "github.com/ManuGH/capturerelay/internal/psn/auth"
	"github.com/ManuGH/capturerelay/internal/psn/catalog"
)

// Refresher rotates a token pair.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (psnauth.TokenPair, error)
}

// Lister lists captures for an access token.
type Lister interface {
	List(ctx context.Context, accessToken string, opts catalog.ListOptions) (catalog.Result, error)
}

// TokenStore loads and persists token pairs per profile.
type TokenStore interface {
	Get(ctx context.Context, profile string) (credstore.Credentials, error)
	Put(ctx context.Context, profile string, pair psnauth.TokenPair) error
}

// ErrNotLoggedIn is returned when the profile has no stored tokens.
var ErrNotLoggedIn = errors.New("session: not logged in")

// Session lists captures for one stored profile.
type Session struct {
	profile string
	auth    Refresher
	catalog Lister
	store   TokenStore
}

// New creates a Session for profile.
func New(profile string, auth Refresher, lister Lister, store TokenStore) *Session {
	if profile == "" {
		profile = credstore.DefaultProfile
	}
	return &Session{profile: profile, auth: auth, catalog: lister, store: store}
}

// NeedsRefresh reports whether err means the access token should be
// refreshed: a scope rejection or an upstream 401.
func NeedsRefresh(err error) bool {
	if errors.Is(err, catalog.ErrInvalidToken) {
		return true
	}
	return errors.Is(err, catalog.ErrFetchFailed) && catalog.StatusOf(err) == http.StatusUnauthorized
}

// ListCaptures lists with the stored access token, refreshing at most once.
func (s *Session) ListCaptures(ctx context.Context) (catalog.Result, error) {
	logger := log.WithComponentFromContext(ctx, "session")

	creds, err := s.store.Get(ctx, s.profile)
	if err != nil {
		if errors.Is(err, credstore.ErrNotFound) {
			return catalog.Result{}, fmt.Errorf("%w: profile %q", ErrNotLoggedIn, s.profile)
		}
		return catalog.Result{}, err
	}

	res, err := s.catalog.List(ctx, creds.Pair.AccessToken, catalog.ListOptions{})
	if err == nil || !NeedsRefresh(err) {
		return res, err
	}

	logger.Info().Str(log.FieldEvent, "session.refresh").Msg("access token rejected, refreshing once")
	pair, rerr := s.auth.Refresh(ctx, creds.Pair.RefreshToken)
	if rerr != nil {
		return catalog.Result{}, fmt.Errorf("session: refresh after %v: %w", err, rerr)
	}
	if err := s.store.Put(ctx, s.profile, pair); err != nil {
		return catalog.Result{}, err
	}
	return s.catalog.List(ctx, pair.AccessToken, catalog.ListOptions{})
}
