// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import "errors"

// ErrMissingConfig means Run was called with a nil config holder.
var ErrMissingConfig = errors.New("daemon: config holder is required")

// ErrServerStartFailed wraps listener errors.
var ErrServerStartFailed = errors.New("daemon: server failed to start")
