// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ManuGH/capturerelay/internal/daemon"
	"github.com/ManuGH/capturerelay/internal/psn/catalog"
	"github.com/ManuGH/capturerelay/internal/pull"
	"github.com/ManuGH/capturerelay/internal/session"
)

func newCapturesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "captures",
		Short: "List and download captures for the logged-in profile",
	}
	cmd.AddCommand(newCapturesListCmd(a), newCapturesPullCmd(a))
	return cmd
}

// listCaptures runs one listing through the stored session, refreshing the
// token pair once when the access token was rejected.
func (a *app) listCaptures(cmd *cobra.Command) (daemon.Components, catalog.Result, error) {
	comps, err := daemon.NewComponents(a.cfg)
	if err != nil {
		return daemon.Components{}, catalog.Result{}, err
	}
	store, err := a.openStore(cmd)
	if err != nil {
		return daemon.Components{}, catalog.Result{}, err
	}
	defer func() { _ = store.Close() }()

	res, err := session.New(a.profile, comps.Auth, comps.Catalog, store).ListCaptures(cmd.Context())
	if err != nil {
		return daemon.Components{}, catalog.Result{}, err
	}
	return comps, res, nil
}

func newCapturesListCmd(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List captures",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, res, err := a.listCaptures(cmd)
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(a.stdout)
				enc.SetIndent("", "  ")
				captures := res.Captures
				if captures == nil {
					captures = []catalog.Capture{}
				}
				return enc.Encode(captures)
			}
			return printCaptures(a.stdout, res.Captures)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print captures as JSON")
	return cmd
}

func printCaptures(w io.Writer, captures []catalog.Capture) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tKIND\tGAME\tCREATED\tTITLE")
	for _, c := range captures {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", c.ID, c.Kind, deref(c.Game), deref(c.CreatedAt), c.Title)
	}
	return tw.Flush()
}

func deref(s *string) string {
	if s == nil {
		return "-"
	}
	return *s
}

func newCapturesPullCmd(a *app) *cobra.Command {
	var (
		opts pull.Options
		kind string
	)
	cmd := &cobra.Command{
		Use:   "pull",
		Short: "Download captures into a directory",
		Long: `Download every capture of the gallery into --dir. Files that already exist
are skipped unless --overwrite is set. Downloads run concurrently and are
paced by --rps.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			switch catalog.Kind(kind) {
			case "", catalog.KindImage, catalog.KindVideo:
				opts.Kind = catalog.Kind(kind)
			default:
				return fmt.Errorf("invalid --type %q (want image or video)", kind)
			}

			comps, res, err := a.listCaptures(cmd)
			if err != nil {
				return err
			}
			sum, err := pull.New(comps.Relay, opts).Pull(cmd.Context(), res)
			for _, o := range sum.Outcomes {
				if o.Err != nil {
					fmt.Fprintf(a.stderr, "failed %s: %v\n", o.ID, o.Err)
				}
			}
			fmt.Fprintf(a.stdout, "downloaded %d, skipped %d, failed %d (%d bytes)\n",
				sum.Downloaded, sum.Skipped, sum.Failed, sum.Bytes)
			if err != nil {
				return err
			}
			if sum.Failed > 0 {
				return fmt.Errorf("%d capture(s) failed", sum.Failed)
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.Dir, "dir", ".", "target directory")
	f.IntVar(&opts.Concurrency, "concurrency", pull.DefaultConcurrency, "parallel downloads")
	f.Float64Var(&opts.RPS, "rps", pull.DefaultRPS, "download starts per second")
	f.StringVar(&kind, "type", "", "only pull one kind: image or video")
	f.BoolVar(&opts.Overwrite, "overwrite", false, "replace existing files")
	return cmd
}
