// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"github.com/spf13/cobra"

	"github.com/ManuGH/capturerelay/internal/config"
	"github.com/ManuGH/capturerelay/internal/daemon"
	"github.com/ManuGH/capturerelay/internal/version"
)

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP relay",
		Long: `Run the HTTP relay until SIGINT or SIGTERM. The config file is watched;
log level changes apply immediately and SIGHUP forces a reload.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := daemon.SignalContext(cmd.Context())
			defer stop()

			holder := config.NewHolder(a.cfg, a.loader)
			return daemon.Run(ctx, holder, daemon.Options{Version: version.Version})
		},
	}
}
