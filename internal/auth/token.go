// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package auth extracts caller-held credentials from inbound requests.
// The relay stores nothing; tokens and CDN cookies travel with every call.
package auth

import (
	"net/http"
	"net/url"
	"strings"
)

const (
	// CDNCookieName is the HTTP-only cookie carrying the harvested CDN cookie set.
	CDNCookieName = "psn_cf"
	// CDNCookieMaxAge matches the lifetime of the vendor's signed CDN cookies.
	CDNCookieMaxAge = 3600
)

// NormalizeBearer accepts either "Bearer <token>" (any case) or a bare token
// and returns the bare token. It returns "" when no token is present.
func NormalizeBearer(raw string) string {
	fields := strings.Fields(raw)
	switch len(fields) {
	case 1:
		if strings.EqualFold(fields[0], "bearer") {
			return ""
		}
		return fields[0]
	case 2:
		if strings.EqualFold(fields[0], "bearer") {
			return fields[1]
		}
	}
	return ""
}

// BearerToken retrieves the access token from the Authorization header.
func BearerToken(r *http.Request) string {
	if r == nil {
		return ""
	}
	return NormalizeBearer(r.Header.Get("Authorization"))
}

// CDNCookie returns the decoded CDN cookie set from the request, or "".
func CDNCookie(r *http.Request) string {
	if r == nil {
		return ""
	}
	c, err := r.Cookie(CDNCookieName)
	if err != nil || c.Value == "" {
		return ""
	}
	v, err := url.QueryUnescape(c.Value)
	if err != nil {
		return ""
	}
	return v
}

// SetCDNCookie stores the CDN cookie set on the client as an HTTP-only cookie.
// It is a no-op when value is empty.
func SetCDNCookie(w http.ResponseWriter, value string, secure bool) {
	if value == "" {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CDNCookieName,
		Value:    url.QueryEscape(value),
		Path:     "/",
		MaxAge:   CDNCookieMaxAge,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}
