// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package media

import (
	"errors"
	"fmt"

	pnet "github.com/ManuGH/capturerelay/internal/platform/net"
)

var (
	// Sentinel errors for errors.Is checks at the boundary.
	ErrInvalidURL         = pnet.ErrInvalidURL
	ErrHostNotAllowed     = pnet.ErrHostNotAllowed
	ErrMissingCookie      = errors.New("psn media: missing CDN cookie")
	ErrPreviewFetchFailed = errors.New("psn media: preview fetch failed")
	ErrStreamFetchFailed  = errors.New("psn media: stream fetch failed")
)

// Error wraps one of the sentinel errors with request context.
type Error struct {
	Kind   error
	Op     string // preview|stream|download
	Status int
	Err    error
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
