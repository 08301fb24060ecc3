// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldRequestID     = "request_id"
	FieldCorrelationID = "correlation_id"
	FieldTraceID       = "trace_id"
	FieldSpanID        = "span_id"

	// Process fields
	FieldEvent     = "event"
	FieldComponent = "component"
	FieldOperation = "op"

	// Upstream fields
	FieldUpstreamStatus = "upstream_status"
	FieldTargetURL      = "target_url"
	FieldTokenized      = "tokenized"

	// Catalog fields
	FieldCaptureCount = "capture_count"
	FieldCaptureID    = "capture_id"
	FieldPayloadShape = "payload_shape"

	// HTTP fields
	FieldMethod   = "method"
	FieldRoute    = "route"
	FieldPath     = "path"
	FieldStatus   = "status"
	FieldBytes    = "bytes"
	FieldDuration = "duration_ms"
	FieldRemote   = "remote_addr"
)
