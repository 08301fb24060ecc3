// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package api exposes the capture relay over HTTP.
package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ManuGH/capturerelay/internal/api/middleware"
	"github.com/ManuGH/capturerelay/internal/health"
	psnauth "github.com/ManuGH/capturerelay/internal/psn/auth"
	"github.com/ManuGH/capturerelay/internal/psn/catalog"
	"github.com/ManuGH/capturerelay/internal/psn/media"
)

// Authenticator exchanges and refreshes vendor credentials.
type Authenticator interface {
	Authenticate(ctx context.Context, sessionToken string) (psnauth.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (psnauth.TokenPair, error)
}

// CaptureLister lists a user's captures.
type CaptureLister interface {
	List(ctx context.Context, accessToken string, opts catalog.ListOptions) (catalog.Result, error)
}

// MediaRelay proxies cookie-gated CDN media.
type MediaRelay interface {
	Preview(ctx context.Context, rawURL, cookie string) (media.PreviewResult, error)
	Stream(ctx context.Context, rawURL, cookie string) (media.StreamResult, error)
	Download(ctx context.Context, rawURL, cookie string) (media.DownloadResult, error)
}

// Config holds the HTTP surface settings.
type Config struct {
	// SecureCookies marks the CDN cookie Secure (production).
	SecureCookies    bool
	AllowedOrigins   []string
	RateLimitRPM     int
	AuthRateLimitRPM int
	// TracingService enables inbound spans when non-empty.
	TracingService string
	Version        string
}

// Deps are the collaborators the handlers call into.
type Deps struct {
	Auth    Authenticator
	Catalog CaptureLister
	Relay   MediaRelay
	Health  *health.Manager
}

// Server serves the relay API. It holds no per-user state.
type Server struct {
	cfg     Config
	auth    Authenticator
	catalog CaptureLister
	relay   MediaRelay
	health  *health.Manager
}

// New creates a Server.
func New(cfg Config, deps Deps) *Server {
	hm := deps.Health
	if hm == nil {
		hm = health.NewManager(cfg.Version)
	}
	return &Server{
		cfg:     cfg,
		auth:    deps.Auth,
		catalog: deps.Catalog,
		relay:   deps.Relay,
		health:  hm,
	}
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.routes()
}

func (s *Server) routes() http.Handler {
	r := middleware.NewRouter(middleware.StackConfig{
		AllowedOrigins: s.cfg.AllowedOrigins,
		EnableMetrics:  true,
		TracingService: s.cfg.TracingService,
		EnableLogging:  true,
		RateLimitRPM:   s.cfg.RateLimitRPM,
	})

	s.registerPublicRoutes(r)

	r.Route("/auth", func(r chi.Router) {
		if s.cfg.AuthRateLimitRPM > 0 {
			r.Use(middleware.AuthRateLimit(s.cfg.AuthRateLimitRPM))
		}
		r.Post("/authenticate", s.handleAuthenticate)
		r.Post("/refresh", s.handleRefresh)
	})

	r.Get("/captures", s.handleListCaptures)
	r.Get("/captures/preview", s.handlePreview)
	r.Get("/captures/stream", s.handleStream)
	r.Get("/captures/download", s.handleDownload)

	r.NotFound(writeNotFound)
	r.MethodNotAllowed(writeMethodNotAllowed)
	return r
}

func (s *Server) registerPublicRoutes(r chi.Router) {
	r.Get("/healthz", s.health.ServeHealth)
	r.Get("/readyz", s.health.ServeReady)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	r.Get("/openapi.yaml", serveOpenAPI)
}
