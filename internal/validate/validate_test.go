// SPDX-License-Identifier: MIT
package validate

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestValidator_URL(t *testing.T) {
	tests := []struct {
		name           string
		value          string
		allowedSchemes []string
		wantErr        bool
	}{
		{"valid https", "https://ca.account.sony.com/api", []string{"https"}, false},
		{"empty url", "", []string{"https"}, true},
		{"no host", "https://", []string{"https"}, true},
		{"invalid scheme", "ftp://example.com", []string{"http", "https"}, true},
		{"no scheme", "example.com", []string{"https"}, true},
		{"with port", "http://127.0.0.1:8080", []string{"http"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := New()
			v.URL("testURL", tt.value, tt.allowedSchemes)

			if tt.wantErr && v.IsValid() {
				t.Errorf("expected error, got none")
			}
			if !tt.wantErr && !v.IsValid() {
				t.Errorf("unexpected error: %v", v.Err())
			}
		})
	}
}

func TestValidator_ListenAddr(t *testing.T) {
	tests := []struct {
		addr    string
		wantErr bool
	}{
		{":8080", false},
		{"127.0.0.1:8080", false},
		{"localhost:443", false},
		{"[::1]:9000", false},
		{"8080", true},
		{":0", true},
		{":99999", true},
		{":http", true},
		{"", true},
	}

	for _, tt := range tests {
		t.Run(tt.addr, func(t *testing.T) {
			v := New()
			v.ListenAddr("Listen", tt.addr)
			if tt.wantErr == v.IsValid() {
				t.Errorf("ListenAddr(%q) valid=%v, wantErr=%v (%v)", tt.addr, v.IsValid(), tt.wantErr, v.Err())
			}
		})
	}
}

func TestValidator_Ranges(t *testing.T) {
	v := New()
	v.Range("a", 5, 1, 10)
	v.FloatRange("b", 0.5, 0, 1)
	v.DurationRange("c", time.Second, time.Millisecond, time.Minute)
	if !v.IsValid() {
		t.Fatalf("unexpected error: %v", v.Err())
	}

	v.Range("a", 0, 1, 10)
	v.FloatRange("b", 1.5, 0, 1)
	v.DurationRange("c", time.Hour, time.Millisecond, time.Minute)
	if got := len(v.Errors()); got != 3 {
		t.Fatalf("expected 3 errors, got %d", got)
	}
}

func TestValidator_OneOfAndPositive(t *testing.T) {
	v := New()
	v.OneOf("exporter", "grpc", []string{"", "grpc", "http"})
	v.Positive("rpm", 1)
	v.NotEmpty("name", "x")
	if !v.IsValid() {
		t.Fatalf("unexpected error: %v", v.Err())
	}

	v.OneOf("exporter", "zipkin", []string{"", "grpc", "http"})
	v.Positive("rpm", 0)
	v.NotEmpty("name", "  ")
	if got := len(v.Errors()); got != 3 {
		t.Fatalf("expected 3 errors, got %d", got)
	}
}

func TestValidator_Custom(t *testing.T) {
	v := New()
	v.Custom("hosts", []string{"bad host"}, func(interface{}) error {
		return errors.New("invalid host")
	})
	if v.IsValid() {
		t.Fatal("expected custom validator to record an error")
	}
	if v.Errors()[0].Field != "hosts" {
		t.Errorf("unexpected field %q", v.Errors()[0].Field)
	}
}

func TestValidationError_Message(t *testing.T) {
	v := New()
	if v.Err() != nil {
		t.Fatal("expected nil error for valid validator")
	}

	v.AddError("A", "first", nil)
	if got := v.Err().Error(); got != "validation failed for A: first" {
		t.Errorf("unexpected single message %q", got)
	}

	v.AddError("B", "second", nil)
	err := v.Err()
	if !strings.Contains(err.Error(), "; ") {
		t.Errorf("expected joined message, got %q", err.Error())
	}

	var ve ValidationError
	if !errors.As(err, &ve) || len(ve.Errors()) != 2 {
		t.Errorf("expected ValidationError with 2 entries, got %#v", err)
	}
}

func TestParseLogLevel(t *testing.T) {
	for _, s := range []string{"trace", "debug", "info", "warn", "error"} {
		if _, err := ParseLogLevel(s); err != nil {
			t.Errorf("ParseLogLevel(%q) unexpected error: %v", s, err)
		}
	}
	if _, err := ParseLogLevel("verbose"); err == nil {
		t.Error("expected error for unknown level")
	}
}
