// SPDX-License-Identifier: MIT

package config

import (
	"context"
	"fmt"
	"path/filepath"
	"reflect"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	xglog "github.com/ManuGH/capturerelay/internal/log"
)

const reloadDebounce = 250 * time.Millisecond

// Holder holds the effective configuration and reloads it when the file
// changes. Only the log level is applied live; other changes are logged as
// requiring a restart.
type Holder struct {
	mu      sync.RWMutex
	current AppConfig
	lastErr error
	loader  *Loader
	logger  zerolog.Logger
}

// NewHolder creates a holder with an already loaded initial config.
func NewHolder(initial AppConfig, loader *Loader) *Holder {
	return &Holder{
		current: initial,
		loader:  loader,
		logger:  xglog.WithComponent("config"),
	}
}

// Get returns the current configuration (thread-safe read).
func (h *Holder) Get() AppConfig {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.current
}

// LastReloadError returns the error of the most recent failed reload, or nil
// once a reload succeeds.
func (h *Holder) LastReloadError() error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.lastErr
}

// Reload re-reads the configuration. On failure the old configuration is kept.
func (h *Holder) Reload() error {
	next, err := h.loader.Load()
	if err != nil {
		h.mu.Lock()
		h.lastErr = err
		h.mu.Unlock()
		h.logger.Error().
			Err(err).
			Str(xglog.FieldEvent, "config.reload_failed").
			Msg("configuration reload failed, keeping previous configuration")
		return fmt.Errorf("reload config: %w", err)
	}

	h.mu.Lock()
	prev := h.current
	h.current = next
	h.lastErr = nil
	h.mu.Unlock()

	if prev.LogLevel != next.LogLevel {
		if err := xglog.SetLevel(next.LogLevel); err != nil {
			h.logger.Warn().Err(err).Str("level", next.LogLevel).Msg("log level not applied")
		} else {
			h.logger.Info().
				Str(xglog.FieldEvent, "config.log_level_changed").
				Str("old", prev.LogLevel).
				Str("new", next.LogLevel).
				Msg("log level changed")
		}
	}
	h.logRestartRequired(prev, next)

	h.logger.Info().Str(xglog.FieldEvent, "config.reload_success").Msg("configuration reloaded")
	return nil
}

// logRestartRequired names top-level sections that changed but are only
// read at startup.
func (h *Holder) logRestartRequired(prev, next AppConfig) {
	prevV, nextV := reflect.ValueOf(prev), reflect.ValueOf(next)
	typ := prevV.Type()
	for i := 0; i < typ.NumField(); i++ {
		name := typ.Field(i).Name
		if name == "LogLevel" {
			continue
		}
		if !reflect.DeepEqual(prevV.Field(i).Interface(), nextV.Field(i).Interface()) {
			h.logger.Warn().
				Str(xglog.FieldEvent, "config.restart_required").
				Str("section", name).
				Msg("configuration change takes effect after restart")
		}
	}
}

// Watch reloads the configuration whenever the file changes and blocks until
// ctx is done. Without a config file it just waits.
func (h *Holder) Watch(ctx context.Context) error {
	path := h.loader.Path()
	if path == "" {
		h.logger.Info().
			Str(xglog.FieldEvent, "config.watcher_disabled").
			Msg("config file watcher disabled (using ENV-only configuration)")
		<-ctx.Done()
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	// Watch the directory: editors often replace the file via rename.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("watch config dir: %w", err)
	}
	target := filepath.Clean(path)

	h.logger.Info().
		Str(xglog.FieldEvent, "config.watcher_started").
		Str(xglog.FieldPath, path).
		Msg("watching config file for changes")

	var debounce *time.Timer
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			h.logger.Info().Str(xglog.FieldEvent, "config.watcher_stopped").Msg("config watcher stopped")
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(reloadDebounce, func() {
				if ctx.Err() != nil {
					return
				}
				_ = h.Reload()
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			h.logger.Error().
				Err(err).
				Str(xglog.FieldEvent, "config.watcher_error").
				Msg("config watcher error")
		}
	}
}
