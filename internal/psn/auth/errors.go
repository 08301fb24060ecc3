// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package auth

import (
	"errors"
	"fmt"
)

var (
	// Sentinel errors for errors.Is checks at the boundary.
	ErrRateLimited         = errors.New("psn auth: rate limited")
	ErrAuthCodeFailed      = errors.New("psn auth: authorization request not redirected")
	ErrNoAuthCode          = errors.New("psn auth: no authorization code in redirect")
	ErrTokenExchangeFailed = errors.New("psn auth: token exchange rejected")
	ErrMissingTokens       = errors.New("psn auth: token response incomplete")
	ErrNetwork             = errors.New("psn auth: transport failure")
	ErrRefreshFailed       = errors.New("psn auth: refresh failed")
)

// Error wraps one of the sentinel errors with request context.
type Error struct {
	Kind   error
	Op     string // authorize|token|refresh
	Status int
	Err    error // Nested lower-level error (e.g. net.Error)
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %v", e.Op, e.Kind)
	if e.Status > 0 {
		msg = fmt.Sprintf("%s (HTTP %d)", msg, e.Status)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap exposes both the sentinel and the nested cause, so callers can
// match ErrNetwork as well as context.Canceled.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// StatusOf returns the upstream HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Status
	}
	return 0
}
