// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package config loads capturerelay configuration from defaults, an optional
// strict YAML file and environment variables, in increasing precedence.
package config

import "time"

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// AppConfig is the effective runtime configuration.
type AppConfig struct {
	Listen      string
	LogLevel    string
	Environment string

	PSN      PSNConfig
	Upstream UpstreamConfig
	Media    MediaConfig
	API      APIConfig
	Tracing  TracingConfig
	CLI      CLIConfig
}

// PSNConfig holds the vendor endpoints and the server-held client credential.
type PSNConfig struct {
	ClientToken  string
	AuthorizeURL string
	TokenURL     string
	CatalogURL   string
}

// UpstreamConfig bounds calls to the vendor API (not media streams).
type UpstreamConfig struct {
	Timeout time.Duration
}

// MediaConfig holds the relay host allow-list.
type MediaConfig struct {
	AllowedHosts []string
}

// APIConfig holds inbound HTTP settings.
type APIConfig struct {
	AllowedOrigins   []string
	RateLimitRPM     int
	AuthRateLimitRPM int
}

// TracingConfig configures OTLP trace export. An empty Exporter disables it.
type TracingConfig struct {
	Exporter     string // "", "grpc" or "http"
	Endpoint     string
	SamplingRate float64
}

// CLIConfig holds settings used only by the command line caller.
type CLIConfig struct {
	Store string
}

// IsProduction reports whether cookies must be marked Secure.
func (c AppConfig) IsProduction() bool {
	return c.Environment == EnvProduction
}

// FileConfig is the YAML file layout. Every key is optional.
type FileConfig struct {
	Listen      string `yaml:"listen,omitempty"`
	LogLevel    string `yaml:"logLevel,omitempty"`
	Environment string `yaml:"environment,omitempty"`

	PSN      PSNFileConfig      `yaml:"psn,omitempty"`
	Upstream UpstreamFileConfig `yaml:"upstream,omitempty"`
	Media    MediaFileConfig    `yaml:"media,omitempty"`
	API      APIFileConfig      `yaml:"api,omitempty"`
	Tracing  TracingFileConfig  `yaml:"tracing,omitempty"`
	CLI      CLIFileConfig      `yaml:"cli,omitempty"`
}

type PSNFileConfig struct {
	ClientToken  string `yaml:"clientToken,omitempty"`
	AuthorizeURL string `yaml:"authorizeUrl,omitempty"`
	TokenURL     string `yaml:"tokenUrl,omitempty"`
	CatalogURL   string `yaml:"catalogUrl,omitempty"`
}

type UpstreamFileConfig struct {
	Timeout string `yaml:"timeout,omitempty"`
}

type MediaFileConfig struct {
	AllowedHosts []string `yaml:"allowedHosts,omitempty"`
}

type APIFileConfig struct {
	AllowedOrigins   []string `yaml:"allowedOrigins,omitempty"`
	RateLimitRPM     *int     `yaml:"rateLimitRPM,omitempty"`
	AuthRateLimitRPM *int     `yaml:"authRateLimitRPM,omitempty"`
}

type TracingFileConfig struct {
	Exporter     string   `yaml:"exporter,omitempty"`
	Endpoint     string   `yaml:"endpoint,omitempty"`
	SamplingRate *float64 `yaml:"sampling,omitempty"`
}

type CLIFileConfig struct {
	Store string `yaml:"store,omitempty"`
}
