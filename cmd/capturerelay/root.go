// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/ManuGH/capturerelay/internal/config"
	"github.com/ManuGH/capturerelay/internal/credstore"
	"github.com/ManuGH/capturerelay/internal/log"
	"github.com/ManuGH/capturerelay/internal/version"
)

// app carries state shared by every subcommand after PersistentPreRunE.
type app struct {
	stdout io.Writer
	stderr io.Writer

	configPath string
	envFile    string
	profile    string
	logLevel   string

	loader *config.Loader
	cfg    config.AppConfig
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	a := &app{stdout: stdout, stderr: stderr}

	root := &cobra.Command{
		Use:   "capturerelay [command] [flags]",
		Short: "PlayStation capture gallery relay",
		Long: `capturerelay exchanges PlayStation session tokens for OAuth tokens, lists the
cloud media gallery and relays cookie-gated media.

Examples:
  # Run the HTTP relay
  capturerelay serve --config config.yaml

  # Log in once, then list and download captures
  capturerelay login --npsso <token>
  capturerelay captures list
  capturerelay captures pull --dir ./captures --type video`,
		SilenceErrors:     true,
		SilenceUsage:      true,
		PersistentPreRunE: a.preRun,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "path to config file (YAML)")
	pf.StringVar(&a.envFile, "env-file", ".env", "dotenv file loaded before the environment is read")
	pf.StringVar(&a.profile, "profile", credstore.DefaultProfile, "credential profile for client commands")
	pf.StringVar(&a.logLevel, "log-level", "", "override the configured log level")

	root.AddCommand(
		newServeCmd(a),
		newLoginCmd(a),
		newLogoutCmd(a),
		newCapturesCmd(a),
		newVersionCmd(a),
	)
	return root
}

// preRun loads .env, the config file and the environment, then configures
// logging. Logs go to stderr so command output stays machine readable.
func (a *app) preRun(cmd *cobra.Command, _ []string) error {
	if cmd.Name() == "version" {
		return nil
	}
	if a.envFile != "" {
		if err := godotenv.Load(a.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", a.envFile, err)
		}
	}

	log.Configure(log.Config{Level: "info", Output: a.stderr, Service: "capturerelay", Version: version.Version})

	a.loader = config.NewLoader(a.configPath)
	cfg, err := a.loader.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if a.logLevel != "" {
		cfg.LogLevel = a.logLevel
	}
	if err := log.SetLevel(cfg.LogLevel); err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	a.cfg = cfg
	return nil
}

func (a *app) openStore(cmd *cobra.Command) (*credstore.Store, error) {
	return credstore.Open(cmd.Context(), a.cfg.CLI.Store)
}

func newVersionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			_, err := fmt.Fprintln(a.stdout, version.String())
			return err
		},
	}
}
