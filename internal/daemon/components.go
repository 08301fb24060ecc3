// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import (
	"fmt"

	"github.com/ManuGH/capturerelay/internal/config"
	"github.com/ManuGH/capturerelay/internal/platform/httpx"
	pnet "github.com/ManuGH/capturerelay/internal/platform/net"
	psnauth "github.com/ManuGH/capturerelay/internal/psn/auth"
	"github.com/ManuGH/capturerelay/internal/psn/catalog"
	"github.com/ManuGH/capturerelay/internal/psn/media"
)

// Components are the three core services built from one configuration.
type Components struct {
	Auth    *psnauth.Authenticator
	Catalog *catalog.Catalog
	Relay   *media.Relay
}

// NewComponents wires the core services with instrumented upstream clients.
// API calls are bounded by the upstream timeout; media streams only bound
// the wait for response headers.
func NewComponents(cfg config.AppConfig) (Components, error) {
	policy, err := pnet.NewMediaHostPolicy(cfg.Media.AllowedHosts)
	if err != nil {
		return Components{}, fmt.Errorf("media host policy: %w", err)
	}

	apiClient := httpx.Instrument(httpx.NewClient(cfg.Upstream.Timeout))
	streamClient := httpx.Instrument(httpx.NewStreamingClient(0))

	return Components{
		Auth: psnauth.New(psnauth.Config{
			AuthorizeURL: cfg.PSN.AuthorizeURL,
			TokenURL:     cfg.PSN.TokenURL,
			ClientToken:  cfg.PSN.ClientToken,
		}, apiClient),
		Catalog: catalog.New(catalog.Config{BaseURL: cfg.PSN.CatalogURL}, apiClient),
		Relay:   media.New(media.Config{Policy: policy}, streamClient),
	}, nil
}
