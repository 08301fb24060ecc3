// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/capturerelay/internal/validate"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*AppConfig)
		field  string
	}{
		{"bad listen", func(c *AppConfig) { c.Listen = "8080" }, "Listen"},
		{"bad log level", func(c *AppConfig) { c.LogLevel = "loud" }, "LogLevel"},
		{"bad environment", func(c *AppConfig) { c.Environment = "staging" }, "Environment"},
		{"bad token url", func(c *AppConfig) { c.PSN.TokenURL = "ftp://x" }, "PSN.TokenURL"},
		{"bad catalog url", func(c *AppConfig) { c.PSN.CatalogURL = "" }, "PSN.CatalogURL"},
		{"timeout too small", func(c *AppConfig) { c.Upstream.Timeout = time.Millisecond }, "Upstream.Timeout"},
		{"blank hosts", func(c *AppConfig) { c.Media.AllowedHosts = []string{" ", ""} }, "Media.AllowedHosts"},
		{"bad origin", func(c *AppConfig) { c.API.AllowedOrigins = []string{"localhost"} }, "API.AllowedOrigins[0]"},
		{"zero rpm", func(c *AppConfig) { c.API.RateLimitRPM = 0 }, "API.RateLimitRPM"},
		{"zero auth rpm", func(c *AppConfig) { c.API.AuthRateLimitRPM = -1 }, "API.AuthRateLimitRPM"},
		{"bad exporter", func(c *AppConfig) { c.Tracing.Exporter = "zipkin" }, "Tracing.Exporter"},
		{"exporter without endpoint", func(c *AppConfig) { c.Tracing.Exporter = "http" }, "Tracing.Endpoint"},
		{"sampling above one", func(c *AppConfig) { c.Tracing.SamplingRate = 2 }, "Tracing.SamplingRate"},
	}

	require.NoError(t, Validate(Defaults()))

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(&cfg)

			err := Validate(cfg)
			require.Error(t, err)

			var ve validate.ValidationError
			require.True(t, errors.As(err, &ve))
			fields := make([]string, 0, len(ve.Errors()))
			for _, e := range ve.Errors() {
				fields = append(fields, e.Field)
			}
			assert.Contains(t, fields, tt.field)
		})
	}
}

func TestValidate_WildcardOrigin(t *testing.T) {
	cfg := Defaults()
	cfg.API.AllowedOrigins = []string{"*"}
	assert.NoError(t, Validate(cfg))
}
