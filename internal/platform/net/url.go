// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package net

import (
	"errors"
	"net/url"
	"strings"
)

const redactedInvalidURL = "<invalid url>"

// RedactURL reduces raw to scheme, host and path for logs. Signed CDN URLs
// carry their credentials in the query, so the query never survives.
func RedactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return redactedInvalidURL
	}
	return (&url.URL{Scheme: u.Scheme, Host: u.Host, Path: u.Path, RawPath: u.RawPath}).String()
}

// ParseAbsoluteURL parses raw as an absolute http(s) URL without userinfo.
// The fragment is dropped; it is never sent upstream anyway.
func ParseAbsoluteURL(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, errors.New("empty url")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, errors.New("malformed url")
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
	default:
		return nil, errors.New("not an http(s) url")
	}
	if u.Host == "" {
		return nil, errors.New("missing host")
	}
	if u.User != nil {
		return nil, errors.New("userinfo not allowed")
	}
	u.Fragment, u.RawFragment = "", ""
	return u, nil
}
