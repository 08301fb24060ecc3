// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"fmt"
	"strings"
	"time"

	pnet "github.com/ManuGH/capturerelay/internal/platform/net"
	"github.com/ManuGH/capturerelay/internal/validate"
)

// Validate checks an AppConfig. The PSN client token is not required here;
// readiness reports it instead so the relay can still serve media.
func Validate(cfg AppConfig) error {
	v := validate.New()

	v.ListenAddr("Listen", cfg.Listen)
	if _, err := validate.ParseLogLevel(strings.ToLower(cfg.LogLevel)); err != nil {
		v.AddError("LogLevel", err.Error(), cfg.LogLevel)
	}
	v.OneOf("Environment", cfg.Environment, []string{EnvDevelopment, EnvProduction})

	v.URL("PSN.AuthorizeURL", cfg.PSN.AuthorizeURL, []string{"https", "http"})
	v.URL("PSN.TokenURL", cfg.PSN.TokenURL, []string{"https", "http"})
	v.URL("PSN.CatalogURL", cfg.PSN.CatalogURL, []string{"https", "http"})

	v.DurationRange("Upstream.Timeout", cfg.Upstream.Timeout, time.Second, 5*time.Minute)

	v.Custom("Media.AllowedHosts", cfg.Media.AllowedHosts, func(interface{}) error {
		_, err := pnet.NewMediaHostPolicy(cfg.Media.AllowedHosts)
		return err
	})

	for i, origin := range cfg.API.AllowedOrigins {
		if origin == "*" {
			continue
		}
		v.URL(fmt.Sprintf("API.AllowedOrigins[%d]", i), origin, []string{"http", "https"})
	}
	v.Positive("API.RateLimitRPM", cfg.API.RateLimitRPM)
	v.Positive("API.AuthRateLimitRPM", cfg.API.AuthRateLimitRPM)

	v.OneOf("Tracing.Exporter", cfg.Tracing.Exporter, []string{"", "grpc", "http"})
	if cfg.Tracing.Exporter != "" {
		v.NotEmpty("Tracing.Endpoint", cfg.Tracing.Endpoint)
	}
	v.FloatRange("Tracing.SamplingRate", cfg.Tracing.SamplingRate, 0, 1)

	return v.Err()
}
