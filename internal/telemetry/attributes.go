// SPDX-License-Identifier: MIT

package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Attribute keys shared by capturerelay spans.
const (
	CaptureCountKey     = "capture.count"
	CaptureTokenizedKey = "capture.tokenized"

	RelayOpKey   = "relay.op"
	RelayHostKey = "relay.host"
	RelayKindKey = "relay.kind"

	ErrorKey     = "error"
	ErrorTypeKey = "error.type"
)

// CatalogAttributes describes a catalog listing result.
func CatalogAttributes(count int, tokenized bool) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int(CaptureCountKey, count),
		attribute.Bool(CaptureTokenizedKey, tokenized),
	}
}

// RelayAttributes describes a media relay request. Only the host is
// recorded; signed query strings never become span data.
func RelayAttributes(op, host string) []attribute.KeyValue {
	attrs := []attribute.KeyValue{attribute.String(RelayOpKey, op)}
	if host != "" {
		attrs = append(attrs, attribute.String(RelayHostKey, host))
	}
	return attrs
}

// RelayKindAttribute tells playlist rewrites apart from byte relays.
func RelayKindAttribute(kind string) attribute.KeyValue {
	return attribute.String(RelayKindKey, kind)
}

// ErrorAttributes tags a span with an error taxonomy code.
func ErrorAttributes(errorType string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Bool(ErrorKey, true),
		attribute.String(ErrorTypeKey, errorType),
	}
}
