// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	pnet "github.com/ManuGH/capturerelay/internal/platform/net"
	psnauth "github.com/ManuGH/capturerelay/internal/psn/auth"
	"github.com/ManuGH/capturerelay/internal/psn/catalog"
)

const (
	DefaultListen           = ":8080"
	DefaultLogLevel         = "info"
	DefaultUpstreamTimeout  = 30 * time.Second
	DefaultRateLimitRPM     = 600
	DefaultAuthRateLimitRPM = 10
	DefaultSamplingRate     = 1.0
)

// ErrUnknownConfigField classifies strict YAML parse failures caused by unknown keys.
// Use errors.Is(err, ErrUnknownConfigField) instead of string matching.
var ErrUnknownConfigField = errors.New("unknown config field")

// DefaultAllowedOrigins are the local development front-end origins.
var DefaultAllowedOrigins = []string{"http://localhost:3000", "http://127.0.0.1:3000"}

// Loader handles configuration loading with precedence ENV > file > defaults.
type Loader struct {
	configPath      string
	ConsumedEnvKeys map[string]struct{}
}

// NewLoader creates a loader. An empty path means ENV-only configuration.
func NewLoader(configPath string) *Loader {
	return &Loader{
		configPath:      configPath,
		ConsumedEnvKeys: make(map[string]struct{}),
	}
}

// Path returns the config file path, if any.
func (l *Loader) Path() string {
	return l.configPath
}

// Load parses the file (strict), applies the environment and validates.
func (l *Loader) Load() (AppConfig, error) {
	cfg := Defaults()

	if l.configPath != "" {
		fileCfg, err := LoadFileConfig(l.configPath)
		if err != nil {
			return AppConfig{}, fmt.Errorf("load config file: %w", err)
		}
		if err := mergeFileConfig(&cfg, fileCfg); err != nil {
			return AppConfig{}, err
		}
	}

	l.mergeEnv(&cfg)

	if err := Validate(cfg); err != nil {
		return AppConfig{}, err
	}
	return cfg, nil
}

// Defaults returns the built-in configuration.
func Defaults() AppConfig {
	return AppConfig{
		Listen:      DefaultListen,
		LogLevel:    DefaultLogLevel,
		Environment: EnvDevelopment,
		PSN: PSNConfig{
			AuthorizeURL: psnauth.DefaultAuthorizeURL,
			TokenURL:     psnauth.DefaultTokenURL,
			CatalogURL:   catalog.DefaultBaseURL,
		},
		Upstream: UpstreamConfig{Timeout: DefaultUpstreamTimeout},
		Media:    MediaConfig{AllowedHosts: append([]string(nil), pnet.DefaultMediaHosts...)},
		API: APIConfig{
			AllowedOrigins:   append([]string(nil), DefaultAllowedOrigins...),
			RateLimitRPM:     DefaultRateLimitRPM,
			AuthRateLimitRPM: DefaultAuthRateLimitRPM,
		},
		Tracing: TracingConfig{SamplingRate: DefaultSamplingRate},
		CLI:     CLIConfig{Store: defaultStorePath()},
	}
}

func defaultStorePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "credentials.db"
	}
	return filepath.Join(dir, "capturerelay", "credentials.db")
}

// LoadFileConfig decodes a YAML file, rejecting unknown keys and trailing documents.
func LoadFileConfig(path string) (*FileConfig, error) {
	// #nosec G304 -- configuration file paths are provided by the operator via CLI/ENV
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	var fileCfg FileConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	if err := dec.Decode(&fileCfg); err != nil {
		if errors.Is(err, io.EOF) {
			return &FileConfig{}, nil
		}
		if isYAMLUnknownFieldError(err) {
			return nil, fmt.Errorf("strict config parse error: %w: %w", ErrUnknownConfigField, err)
		}
		return nil, fmt.Errorf("strict config parse error: %w", err)
	}

	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config file contains multiple documents or trailing content")
	}
	return &fileCfg, nil
}

func isYAMLUnknownFieldError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "field") && strings.Contains(msg, "not found")
}

func mergeFileConfig(dst *AppConfig, src *FileConfig) error {
	setString(&dst.Listen, src.Listen)
	setString(&dst.LogLevel, src.LogLevel)
	setString(&dst.Environment, src.Environment)

	setString(&dst.PSN.ClientToken, expandEnv(src.PSN.ClientToken))
	setString(&dst.PSN.AuthorizeURL, src.PSN.AuthorizeURL)
	setString(&dst.PSN.TokenURL, src.PSN.TokenURL)
	setString(&dst.PSN.CatalogURL, src.PSN.CatalogURL)

	if src.Upstream.Timeout != "" {
		d, err := time.ParseDuration(src.Upstream.Timeout)
		if err != nil {
			return fmt.Errorf("upstream.timeout: %w", err)
		}
		dst.Upstream.Timeout = d
	}

	if len(src.Media.AllowedHosts) > 0 {
		dst.Media.AllowedHosts = append([]string(nil), src.Media.AllowedHosts...)
	}

	if len(src.API.AllowedOrigins) > 0 {
		dst.API.AllowedOrigins = append([]string(nil), src.API.AllowedOrigins...)
	}
	if src.API.RateLimitRPM != nil {
		dst.API.RateLimitRPM = *src.API.RateLimitRPM
	}
	if src.API.AuthRateLimitRPM != nil {
		dst.API.AuthRateLimitRPM = *src.API.AuthRateLimitRPM
	}

	setString(&dst.Tracing.Exporter, src.Tracing.Exporter)
	setString(&dst.Tracing.Endpoint, src.Tracing.Endpoint)
	if src.Tracing.SamplingRate != nil {
		dst.Tracing.SamplingRate = *src.Tracing.SamplingRate
	}

	setString(&dst.CLI.Store, expandEnv(src.CLI.Store))
	return nil
}

func (l *Loader) mergeEnv(cfg *AppConfig) {
	cfg.Listen = l.envString(EnvListen, cfg.Listen)
	cfg.LogLevel = l.envString(EnvLogLevel, cfg.LogLevel)
	cfg.Environment = l.envString(EnvEnvironment, cfg.Environment)

	cfg.PSN.ClientToken = l.envString(EnvClientToken, cfg.PSN.ClientToken)
	cfg.PSN.AuthorizeURL = l.envString(EnvAuthorizeURL, cfg.PSN.AuthorizeURL)
	cfg.PSN.TokenURL = l.envString(EnvTokenURL, cfg.PSN.TokenURL)
	cfg.PSN.CatalogURL = l.envString(EnvCatalogURL, cfg.PSN.CatalogURL)

	cfg.Upstream.Timeout = l.envDuration(EnvUpstreamTimeout, cfg.Upstream.Timeout)
	cfg.Media.AllowedHosts = l.envList(EnvMediaHosts, cfg.Media.AllowedHosts)

	cfg.API.AllowedOrigins = l.envList(EnvAllowedOrigins, cfg.API.AllowedOrigins)
	cfg.API.RateLimitRPM = l.envInt(EnvRateLimitRPM, cfg.API.RateLimitRPM)
	cfg.API.AuthRateLimitRPM = l.envInt(EnvAuthRateLimitRPM, cfg.API.AuthRateLimitRPM)

	cfg.Tracing.Exporter = l.envString(EnvTracingExporter, cfg.Tracing.Exporter)
	cfg.Tracing.Endpoint = l.envString(EnvTracingEndpoint, cfg.Tracing.Endpoint)
	cfg.Tracing.SamplingRate = l.envFloat(EnvTracingSampling, cfg.Tracing.SamplingRate)

	cfg.CLI.Store = l.envString(EnvStore, cfg.CLI.Store)
}

// Wrapper methods for mechanical tracking of consumed keys.

func (l *Loader) envString(key, defaultVal string) string {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseString(key, defaultVal)
}

func (l *Loader) envInt(key string, defaultVal int) int {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseInt(key, defaultVal)
}

func (l *Loader) envFloat(key string, defaultVal float64) float64 {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseFloat(key, defaultVal)
}

func (l *Loader) envDuration(key string, defaultVal time.Duration) time.Duration {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseDuration(key, defaultVal)
}

func (l *Loader) envList(key string, defaultVal []string) []string {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseStringList(key, defaultVal)
}

func setString(dst *string, v string) {
	if v = strings.TrimSpace(v); v != "" {
		*dst = v
	}
}

// expandEnv expands ${VAR} references so secrets can stay out of the file.
func expandEnv(s string) string {
	if !strings.Contains(s, "$") {
		return s
	}
	return os.ExpandEnv(s)
}
