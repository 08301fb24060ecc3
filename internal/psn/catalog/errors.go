// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package catalog

import (
	"errors"
	"fmt"
	"regexp"
)

var (
	// Sentinel errors for errors.Is checks at the boundary.
	ErrFetchFailed  = errors.New("psn catalog: fetch failed")
	ErrInvalidToken = errors.New("psn catalog: token lacks media gallery scope")
	ErrNetwork      = errors.New("psn catalog: transport failure")
	ErrParse        = errors.New("psn catalog: unexpected payload")
)

const maxErrorBody = 512

// Error wraps one of the sentinel errors with request context.
type Error struct {
	Kind   error
	Op     string
	Status int
	Body   string // truncated upstream body, only for ErrFetchFailed/ErrInvalidToken
	Err    error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %v", e.Op, e.Kind)
	if e.Status > 0 {
		msg = fmt.Sprintf("%s (HTTP %d)", msg, e.Status)
	}
	if e.Body != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Body)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

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

var scopeErrorPattern = regexp.MustCompile(`(?i)Invalid PSN scope`)

// IsScopeError reports whether an upstream 403 body says the token lacks the
// scope needed for tokenized media URLs.
func IsScopeError(body []byte) bool {
	return scopeErrorPattern.Match(body)
}

func truncate(b []byte) string {
	if len(b) <= maxErrorBody {
		return string(b)
	}
	return string(b[:maxErrorBody]) + "..."
}
