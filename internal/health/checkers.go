// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package health

import (
	"context"
	"strings"
)

// ClientTokenChecker fails readiness when the PSN client credential is
// missing; authentication routes cannot work without it.
type ClientTokenChecker struct {
	token func() string
}

// NewClientTokenChecker reads the token through fn so reloads are observed.
func NewClientTokenChecker(fn func() string) *ClientTokenChecker {
	return &ClientTokenChecker{token: fn}
}

func (c *ClientTokenChecker) Name() string {
	return "psn_client_token"
}

func (c *ClientTokenChecker) Check(context.Context) CheckResult {
	if strings.TrimSpace(c.token()) == "" {
		return CheckResult{
			Status: StatusUnhealthy,
			Error:  "PSN_CLIENT_TOKEN is not configured",
		}
	}
	return CheckResult{Status: StatusHealthy, Message: "configured"}
}

// ConfigReloadChecker reports a degraded state while the last config reload
// failed and the previous configuration is still in use.
type ConfigReloadChecker struct {
	lastErr func() error
}

func NewConfigReloadChecker(fn func() error) *ConfigReloadChecker {
	return &ConfigReloadChecker{lastErr: fn}
}

func (c *ConfigReloadChecker) Name() string {
	return "config"
}

func (c *ConfigReloadChecker) Check(context.Context) CheckResult {
	if err := c.lastErr(); err != nil {
		return CheckResult{
			Status:  StatusDegraded,
			Message: "last reload failed, previous configuration active",
			Error:   err.Error(),
		}
	}
	return CheckResult{Status: StatusHealthy}
}
