// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ManuGH/capturerelay/internal/daemon"
)

// EnvNPSSO supplies the session token without putting it on the command line.
const EnvNPSSO = "PSN_NPSSO"

func newLoginCmd(a *app) *cobra.Command {
	var npsso string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Exchange an NPSSO token and store the token pair",
		Long: `Exchange an NPSSO session token for an OAuth token pair and store it in the
local credential store under --profile. The token can also be supplied via
the PSN_NPSSO environment variable.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if npsso == "" {
				npsso = os.Getenv(EnvNPSSO)
			}
			npsso = strings.TrimSpace(npsso)
			if npsso == "" {
				return errors.New("an NPSSO token is required (--npsso or " + EnvNPSSO + ")")
			}

			comps, err := daemon.NewComponents(a.cfg)
			if err != nil {
				return err
			}
			pair, err := comps.Auth.Authenticate(cmd.Context(), npsso)
			if err != nil {
				return err
			}

			store, err := a.openStore(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()
			if err := store.Put(cmd.Context(), a.profile, pair); err != nil {
				return err
			}
			_, err = fmt.Fprintf(a.stdout, "logged in, credentials stored for profile %q\n", a.profile)
			return err
		},
	}
	cmd.Flags().StringVar(&npsso, "npsso", "", "NPSSO session token")
	return cmd
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove stored credentials for the profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := a.openStore(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()
			if err := store.Delete(cmd.Context(), a.profile); err != nil {
				return err
			}
			_, err = fmt.Fprintf(a.stdout, "credentials removed for profile %q\n", a.profile)
			return err
		},
	}
}
