// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testClientToken = "Y2xpZW50OnNlY3JldA=="

// fakeVendor serves /authorize and /token like the vendor endpoints.
type fakeVendor struct {
	authorize     http.HandlerFunc
	token         http.HandlerFunc
	authorizeHits atomic.Int32
	tokenHits     atomic.Int32
	lastForm      atomic.Value // url.Values
	lastAuthz     atomic.Value // string
	lastCookie    atomic.Value // string
}

func (f *fakeVendor) start(t *testing.T) (*httptest.Server, *Authenticator) {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/authorize", func(w http.ResponseWriter, r *http.Request) {
		f.authorizeHits.Add(1)
		f.lastCookie.Store(r.Header.Get("Cookie"))
		f.authorize(w, r)
	})
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		f.tokenHits.Add(1)
		assert.NoError(t, r.ParseForm())
		f.lastForm.Store(r.PostForm)
		f.lastAuthz.Store(r.Header.Get("Authorization"))
		f.token(w, r)
	})
	mux.HandleFunc("/landing", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	a := New(Config{
		AuthorizeURL: srv.URL + "/authorize",
		TokenURL:     srv.URL + "/token",
		ClientToken:  testClientToken,
	}, srv.Client())
	return srv, a
}

func redirectWithCode(code string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Location", DefaultRedirectURI+"/?code="+code+"&cid=abc")
		w.WriteHeader(http.StatusFound)
	}
}

func tokenJSON(access, refresh string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token":  access,
			"refresh_token": refresh,
			"expires_in":    3599,
		})
	}
}

func status(code int) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(code) }
}

func TestAuthenticate_Success(t *testing.T) {
	f := &fakeVendor{authorize: redirectWithCode("v3.CODE"), token: tokenJSON("A", "R")}
	_, a := f.start(t)

	pair, err := a.Authenticate(context.Background(), "my-npsso")
	require.NoError(t, err)
	assert.Equal(t, TokenPair{AccessToken: "A", RefreshToken: "R"}, pair)

	assert.Equal(t, "npsso=my-npsso", f.lastCookie.Load())
	assert.Equal(t, "Basic "+testClientToken, f.lastAuthz.Load())
	form := f.lastForm.Load().(url.Values)
	assert.Equal(t, "v3.CODE", form.Get("code"))
	assert.Equal(t, "authorization_code", form.Get("grant_type"))
	assert.Equal(t, DefaultRedirectURI, form.Get("redirect_uri"))
	assert.Equal(t, "jwt", form.Get("token_format"))
}

func TestAuthenticate_DoesNotFollowRedirect(t *testing.T) {
	f := &fakeVendor{token: tokenJSON("A", "R")}
	srv, a := f.start(t)
	f.authorize = func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, srv.URL+"/landing?code=XYZ", http.StatusFound)
	}

	pair, err := a.Authenticate(context.Background(), "n")
	require.NoError(t, err)
	assert.Equal(t, "A", pair.AccessToken)
	form := f.lastForm.Load().(url.Values)
	assert.Equal(t, "XYZ", form.Get("code"))
}

func TestAuthenticate_Failures(t *testing.T) {
	cases := []struct {
		name          string
		authorize     http.HandlerFunc
		token         http.HandlerFunc
		wantKind      error
		wantStatus    int
		wantTokenHits int32
	}{
		{
			name:       "authorize rate limited",
			authorize:  status(http.StatusTooManyRequests),
			wantKind:   ErrRateLimited,
			wantStatus: http.StatusTooManyRequests,
		},
		{
			name:       "authorize not redirected",
			authorize:  status(http.StatusOK),
			wantKind:   ErrAuthCodeFailed,
			wantStatus: http.StatusOK,
		},
		{
			name:       "authorize unauthorized",
			authorize:  status(http.StatusUnauthorized),
			wantKind:   ErrAuthCodeFailed,
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "redirect without location",
			authorize:  status(http.StatusFound),
			wantKind:   ErrNoAuthCode,
			wantStatus: http.StatusFound,
		},
		{
			name: "redirect without code",
			authorize: func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Location", DefaultRedirectURI+"/?error=login_required")
				w.WriteHeader(http.StatusFound)
			},
			wantKind:   ErrNoAuthCode,
			wantStatus: http.StatusFound,
		},
		{
			name:          "token rate limited",
			authorize:     redirectWithCode("c"),
			token:         status(http.StatusTooManyRequests),
			wantKind:      ErrRateLimited,
			wantStatus:    http.StatusTooManyRequests,
			wantTokenHits: 1,
		},
		{
			name:          "token rejected",
			authorize:     redirectWithCode("c"),
			token:         status(http.StatusBadRequest),
			wantKind:      ErrTokenExchangeFailed,
			wantStatus:    http.StatusBadRequest,
			wantTokenHits: 1,
		},
		{
			name:          "token missing refresh",
			authorize:     redirectWithCode("c"),
			token:         tokenJSON("A", ""),
			wantKind:      ErrMissingTokens,
			wantTokenHits: 1,
		},
		{
			name:      "token body not json",
			authorize: redirectWithCode("c"),
			token: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte("<html>"))
			},
			wantKind:      ErrMissingTokens,
			wantTokenHits: 1,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := &fakeVendor{authorize: tc.authorize, token: tc.token}
			if f.token == nil {
				f.token = func(w http.ResponseWriter, _ *http.Request) {
					t.Error("token endpoint must not be called")
				}
			}
			_, a := f.start(t)

			_, err := a.Authenticate(context.Background(), "n")
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.wantKind)
			assert.Equal(t, tc.wantStatus, StatusOf(err))
			assert.Equal(t, int32(1), f.authorizeHits.Load())
			assert.Equal(t, tc.wantTokenHits, f.tokenHits.Load())
		})
	}
}

func TestAuthenticate_EmptySessionTokenSkipsNetwork(t *testing.T) {
	f := &fakeVendor{authorize: redirectWithCode("c"), token: tokenJSON("A", "R")}
	_, a := f.start(t)

	_, err := a.Authenticate(context.Background(), "  ")
	assert.ErrorIs(t, err, ErrAuthCodeFailed)
	assert.Zero(t, f.authorizeHits.Load())
}

func TestAuthenticate_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	a := New(Config{AuthorizeURL: base + "/authorize", TokenURL: base + "/token"}, nil)
	_, err := a.Authenticate(context.Background(), "n")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNetwork)
}

func TestAuthenticate_ContextCanceled(t *testing.T) {
	f := &fakeVendor{authorize: redirectWithCode("c"), token: tokenJSON("A", "R")}
	_, a := f.start(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := a.Authenticate(ctx, "n")
	assert.ErrorIs(t, err, ErrNetwork)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestRefresh(t *testing.T) {
	t.Run("rotated pair", func(t *testing.T) {
		f := &fakeVendor{token: tokenJSON("A2", "R2")}
		_, a := f.start(t)

		pair, err := a.Refresh(context.Background(), "R1")
		require.NoError(t, err)
		assert.Equal(t, TokenPair{AccessToken: "A2", RefreshToken: "R2"}, pair)

		form := f.lastForm.Load().(url.Values)
		assert.Equal(t, "refresh_token", form.Get("grant_type"))
		assert.Equal(t, "R1", form.Get("refresh_token"))
		assert.Equal(t, "jwt", form.Get("token_format"))
		assert.Equal(t, "Basic "+testClientToken, f.lastAuthz.Load())
		assert.Zero(t, f.authorizeHits.Load())
	})

	t.Run("refresh token carried forward", func(t *testing.T) {
		f := &fakeVendor{token: tokenJSON("A2", "")}
		_, a := f.start(t)

		pair, err := a.Refresh(context.Background(), "R1")
		require.NoError(t, err)
		assert.Equal(t, "R1", pair.RefreshToken)
	})

	for name, h := range map[string]http.HandlerFunc{
		"unauthorized":   status(http.StatusUnauthorized),
		"rate limited":   status(http.StatusTooManyRequests),
		"server error":   status(http.StatusInternalServerError),
		"missing access": tokenJSON("", "R2"),
		"not json": func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("nope"))
		},
	} {
		t.Run(name, func(t *testing.T) {
			f := &fakeVendor{token: h}
			_, a := f.start(t)

			_, err := a.Refresh(context.Background(), "R1")
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrRefreshFailed)
			assert.NotErrorIs(t, err, ErrRateLimited)
		})
	}

	t.Run("empty token", func(t *testing.T) {
		f := &fakeVendor{token: tokenJSON("A", "R")}
		_, a := f.start(t)
		_, err := a.Refresh(context.Background(), "")
		assert.ErrorIs(t, err, ErrRefreshFailed)
		assert.Zero(t, f.tokenHits.Load())
	})
}

func TestDefaultAuthorizeURL(t *testing.T) {
	assert.Equal(t,
		"https://ca.account.sony.com/api/authz/v3/oauth/authorize?access_type=offline"+
			"&client_id=09515159-7237-4370-9b40-3806e67c0891&response_type=code"+
			"&scope=psn:mobile.v2.core%20psn:clientapp"+
			"&redirect_uri=com.scee.psxandroid.scecompcall://redirect",
		DefaultAuthorizeURL)
}

func TestError_Message(t *testing.T) {
	err := &Error{Kind: ErrTokenExchangeFailed, Op: "token", Status: 400}
	assert.Equal(t, "token: psn auth: token exchange rejected (HTTP 400)", err.Error())
	assert.Zero(t, StatusOf(errors.New("plain")))
}
