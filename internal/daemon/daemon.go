// SPDX-License-Identifier: MIT

// Package daemon runs the relay server and its background subsystems.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ManuGH/capturerelay/internal/api"
	"github.com/ManuGH/capturerelay/internal/config"
	"github.com/ManuGH/capturerelay/internal/health"
	"github.com/ManuGH/capturerelay/internal/log"
	"github.com/ManuGH/capturerelay/internal/telemetry"
)

const serviceName = "capturerelay"

// Options holds process-level settings that do not come from the config file.
type Options struct {
	Version string

	ReadHeaderTimeout time.Duration
	IdleTimeout       time.Duration
	MaxHeaderBytes    int
	ShutdownTimeout   time.Duration

	// Listener overrides cfg.Listen when set.
	Listener net.Listener
}

func (o Options) withDefaults() Options {
	if o.ReadHeaderTimeout <= 0 {
		o.ReadHeaderTimeout = 10 * time.Second
	}
	if o.IdleTimeout <= 0 {
		o.IdleTimeout = 120 * time.Second
	}
	if o.MaxHeaderBytes <= 0 {
		o.MaxHeaderBytes = 1 << 20
	}
	if o.ShutdownTimeout <= 0 {
		o.ShutdownTimeout = 15 * time.Second
	}
	return o
}

// Run serves the relay until ctx is cancelled or a subsystem fails. The
// config watcher and the SIGHUP reload trigger run alongside the server.
func Run(ctx context.Context, holder *config.Holder, opts Options) error {
	if holder == nil {
		return ErrMissingConfig
	}
	opts = opts.withDefaults()
	cfg := holder.Get()
	logger := log.WithComponent("daemon")

	logger.Info().
		Str(log.FieldEvent, "daemon.start").
		Str("version", opts.Version).
		Interface("config", config.MaskSecrets(cfg)).
		Msg("starting capturerelay")

	tp, err := telemetry.NewProvider(ctx, telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: opts.Version,
		Environment:    cfg.Environment,
		ExporterType:   cfg.Tracing.Exporter,
		Endpoint:       cfg.Tracing.Endpoint,
		SamplingRate:   cfg.Tracing.SamplingRate,
	})
	if err != nil {
		logger.Warn().Err(err).Msg("telemetry initialization failed, continuing without tracing")
	}

	comps, err := NewComponents(cfg)
	if err != nil {
		return err
	}

	hm := health.NewManager(opts.Version)
	hm.RegisterChecker(health.NewClientTokenChecker(func() string { return holder.Get().PSN.ClientToken }))
	hm.RegisterChecker(health.NewConfigReloadChecker(holder.LastReloadError))

	apiCfg := api.Config{
		SecureCookies:    cfg.IsProduction(),
		AllowedOrigins:   cfg.API.AllowedOrigins,
		RateLimitRPM:     cfg.API.RateLimitRPM,
		AuthRateLimitRPM: cfg.API.AuthRateLimitRPM,
		Version:          opts.Version,
	}
	if tp.Enabled() {
		apiCfg.TracingService = serviceName
	}
	srv := api.New(apiCfg, api.Deps{
		Auth:    comps.Auth,
		Catalog: comps.Catalog,
		Relay:   comps.Relay,
		Health:  hm,
	})

	ln := opts.Listener
	if ln == nil {
		ln, err = net.Listen("tcp", cfg.Listen)
		if err != nil {
			return fmt.Errorf("%w: listen %s: %w", ErrServerStartFailed, cfg.Listen, err)
		}
	}
	httpSrv := &http.Server{
		Handler:           srv.Handler(),
		ReadHeaderTimeout: opts.ReadHeaderTimeout,
		IdleTimeout:       opts.IdleTimeout,
		MaxHeaderBytes:    opts.MaxHeaderBytes,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info().Str(log.FieldEvent, "http.listen").Str("addr", ln.Addr().String()).Msg("HTTP server listening")
		if err := httpSrv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Str(log.FieldEvent, "daemon.shutdown").Msg("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), opts.ShutdownTimeout)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("HTTP server shutdown error")
		}
		if err := tp.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("telemetry shutdown error")
		}
		return nil
	})

	// Watcher failures are not fatal; the server keeps its current config.
	g.Go(func() error {
		if err := holder.Watch(gctx); err != nil {
			logger.Warn().Err(err).Str(log.FieldEvent, "config.watcher_failed").Msg("config watcher stopped")
		}
		return nil
	})

	g.Go(func() error {
		hup := make(chan os.Signal, 1)
		signal.Notify(hup, syscall.SIGHUP)
		defer signal.Stop(hup)
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-hup:
				logger.Info().Str(log.FieldEvent, "config.reload_signal").Msg("received SIGHUP, reloading config")
				if err := holder.Reload(); err != nil {
					logger.Warn().Err(err).Str(log.FieldEvent, "config.reload_failed").Msg("config reload failed")
				}
			}
		}
	})

	err = g.Wait()
	logger.Info().Str(log.FieldEvent, "daemon.stopped").Msg("daemon stopped")
	return err
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
func SignalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
