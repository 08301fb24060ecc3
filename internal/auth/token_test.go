// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package auth

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeBearer(t *testing.T) {
	cases := map[string]string{
		"Bearer abc":     "abc",
		"bearer  abc ":   "abc",
		"BEARER\tabc":    "abc",
		"abc":            "abc",
		"  abc  ":        "abc",
		"":               "",
		"Bearer":         "",
		"Bearer a b":     "",
		"Token abc":      "",
		"Bearer eyJ.x.y": "eyJ.x.y",
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizeBearer(in), "input %q", in)
	}
}

func TestBearerToken(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/captures", nil)
	assert.Equal(t, "", BearerToken(r))

	r.Header.Set("Authorization", "Bearer tok")
	assert.Equal(t, "tok", BearerToken(r))
	assert.Equal(t, "", BearerToken(nil))
}

func TestCDNCookieRoundTrip(t *testing.T) {
	const set = "CloudFront-Policy=p~1; CloudFront-Signature=s_2; CloudFront-Key-Pair-Id=K3"

	rec := httptest.NewRecorder()
	SetCDNCookie(rec, set, true)

	header := rec.Header().Get("Set-Cookie")
	require.NotEmpty(t, header)
	assert.True(t, strings.HasPrefix(header, CDNCookieName+"="))
	assert.Contains(t, header, "Path=/")
	assert.Contains(t, header, "HttpOnly")
	assert.Contains(t, header, "Secure")
	assert.Contains(t, header, "SameSite=Lax")
	assert.Contains(t, header, "Max-Age=3600")

	r := httptest.NewRequest(http.MethodGet, "/captures/preview", nil)
	for _, c := range rec.Result().Cookies() {
		r.AddCookie(c)
	}
	assert.Equal(t, set, CDNCookie(r))
}

func TestSetCDNCookie_InsecureAndEmpty(t *testing.T) {
	rec := httptest.NewRecorder()
	SetCDNCookie(rec, "", true)
	assert.Empty(t, rec.Header().Values("Set-Cookie"))

	SetCDNCookie(rec, "CloudFront-Policy=p", false)
	assert.NotContains(t, rec.Header().Get("Set-Cookie"), "Secure")
}

func TestCDNCookie_Missing(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Equal(t, "", CDNCookie(r))
	r.AddCookie(&http.Cookie{Name: CDNCookieName, Value: "%zz"})
	assert.Equal(t, "", CDNCookie(r))
	assert.Equal(t, "", CDNCookie(nil))
}
