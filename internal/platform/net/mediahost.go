// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package net

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
)

var (
	// ErrInvalidURL indicates the relay target could not be parsed or is structurally unsafe.
	ErrInvalidURL = errors.New("invalid relay url")
	// ErrHostNotAllowed indicates the relay target is outside the media host allow-list.
	ErrHostNotAllowed = errors.New("relay host not allowed")
)

// DefaultMediaHosts are the vendor media and CDN domains relayed by default.
var DefaultMediaHosts = []string{"cloudfront.net", "playstation.com", "playstation.net"}

// MediaHostPolicy restricts relay targets to https URLs on an allow-listed
// domain or one of its subdomains.
type MediaHostPolicy struct {
	suffixes []string
}

// NewMediaHostPolicy builds a policy from a list of allowed domain suffixes.
// An empty list yields the default vendor domains.
func NewMediaHostPolicy(suffixes []string) (MediaHostPolicy, error) {
	if len(suffixes) == 0 {
		suffixes = DefaultMediaHosts
	}
	normalized, err := NormalizeHosts(suffixes)
	if err != nil {
		return MediaHostPolicy{}, err
	}
	if len(normalized) == 0 {
		return MediaHostPolicy{}, fmt.Errorf("media host allow-list is empty")
	}
	return MediaHostPolicy{suffixes: normalized}, nil
}

// Suffixes returns a copy of the normalized allow-list.
func (p MediaHostPolicy) Suffixes() []string {
	return append([]string(nil), p.suffixes...)
}

// Parse validates raw as a relay target and returns the parsed URL.
func (p MediaHostPolicy) Parse(raw string) (*url.URL, error) {
	u, err := ParseAbsoluteURL(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v: %s", ErrInvalidURL, err, RedactURL(raw))
	}
	if err := p.Check(u); err != nil {
		return nil, err
	}
	return u, nil
}

// Check verifies an already parsed URL, e.g. a redirect hop.
func (p MediaHostPolicy) Check(u *url.URL) error {
	if u == nil {
		return ErrInvalidURL
	}
	if !strings.EqualFold(u.Scheme, "https") {
		return fmt.Errorf("%w: scheme %q", ErrHostNotAllowed, u.Scheme)
	}
	if u.User != nil {
		return fmt.Errorf("%w: userinfo present", ErrInvalidURL)
	}
	if port := u.Port(); port != "" && port != "443" {
		return fmt.Errorf("%w: port %s", ErrHostNotAllowed, port)
	}
	host, err := NormalizeHost(u.Hostname())
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if net.ParseIP(host) != nil {
		return fmt.Errorf("%w: ip literal %s", ErrHostNotAllowed, host)
	}
	for _, suffix := range p.suffixes {
		if host == suffix || strings.HasSuffix(host, "."+suffix) {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrHostNotAllowed, host)
}
