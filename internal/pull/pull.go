// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package pull downloads every capture of a listing into a directory.
package pull

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/ManuGH/capturerelay/internal/log"
	"github.com/ManuGH/capturerelay/internal/metrics"
	"github.com/ManuGH/capturerelay/internal/psn/catalog"
	"github.com/ManuGH/capturerelay/internal/psn/media"
)

const (
	DefaultConcurrency = 4
	// DefaultRPS stays well below the vendor CDN's throttling threshold.
	DefaultRPS = 2.0
)

// ErrNoMediaURL marks captures that carry no downloadable URL.
var ErrNoMediaURL = errors.New("pull: capture has no media url")

// Downloader fetches one media file.
type Downloader interface {
	Download(ctx context.Context, rawURL, cookie string) (media.DownloadResult, error)
}

// Options controls a pull run.
type Options struct {
	Dir         string
	Concurrency int
	// RPS paces download starts; <= 0 uses DefaultRPS.
	RPS float64
	// Kind limits the run to one capture kind; empty pulls everything.
	Kind      catalog.Kind
	Overwrite bool
}

// Outcome is the result for one capture.
type Outcome struct {
	ID      string
	Path    string
	Bytes   int64
	Skipped bool
	Err     error
}

// Summary aggregates a run.
type Summary struct {
	Downloaded int
	Skipped    int
	Failed     int
	Bytes      int64
	Outcomes   []Outcome
}

// Puller downloads captures with bounded concurrency and paced requests.
type Puller struct {
	dl      Downloader
	opts    Options
	limiter *rate.Limiter
}

// New creates a Puller.
func New(dl Downloader, opts Options) *Puller {
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	if opts.RPS <= 0 {
		opts.RPS = DefaultRPS
	}
	return &Puller{
		dl:      dl,
		opts:    opts,
		limiter: rate.NewLimiter(rate.Limit(opts.RPS), 1),
	}
}

// Pull downloads every matching capture of res into the target directory.
// Individual failures are recorded in the summary; only cancellation and
// directory errors abort the run.
func (p *Puller) Pull(ctx context.Context, res catalog.Result) (Summary, error) {
	logger := log.WithComponentFromContext(ctx, "pull")

	if err := os.MkdirAll(p.opts.Dir, 0o755); err != nil {
		return Summary{}, fmt.Errorf("pull: create %s: %w", p.opts.Dir, err)
	}

	var selected []catalog.Capture
	for _, c := range res.Captures {
		if p.opts.Kind == "" || c.Kind == p.opts.Kind {
			selected = append(selected, c)
		}
	}

	outcomes := make([]Outcome, len(selected))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.Concurrency)

	for i, c := range selected {
		g.Go(func() error {
			out := p.pullOne(gctx, c, res.CDNCookie)
			outcomes[i] = out
			if out.Err != nil && gctx.Err() != nil {
				return gctx.Err()
			}
			return nil
		})
	}
	err := g.Wait()

	sum := Summary{Outcomes: outcomes}
	for _, o := range outcomes {
		switch {
		case o.Skipped:
			sum.Skipped++
		case o.Err != nil:
			sum.Failed++
			logger.Warn().Err(o.Err).Str(log.FieldCaptureID, o.ID).Msg("capture download failed")
		case o.Path != "":
			sum.Downloaded++
			sum.Bytes += o.Bytes
		}
	}
	logger.Info().
		Str(log.FieldEvent, "pull.done").
		Int("downloaded", sum.Downloaded).
		Int("skipped", sum.Skipped).
		Int("failed", sum.Failed).
		Int64(log.FieldBytes, sum.Bytes).
		Msg("pull finished")
	return sum, err
}

func (p *Puller) pullOne(ctx context.Context, c catalog.Capture, cookie string) Outcome {
	out := Outcome{ID: c.ID, Path: filepath.Join(p.opts.Dir, FileName(c))}

	target := c.MediaURL()
	if target == "" {
		out.Err = ErrNoMediaURL
		return out
	}
	if !p.opts.Overwrite {
		if _, err := os.Stat(out.Path); err == nil {
			out.Skipped = true
			return out
		}
	}
	if err := p.limiter.Wait(ctx); err != nil {
		out.Err = err
		return out
	}

	res, err := p.dl.Download(ctx, target, cookie)
	if err != nil {
		out.Err = err
		return out
	}
	defer func() { _ = res.Body.Close() }()

	n, err := writeAtomic(ctx, out.Path, res.Body)
	out.Bytes = n
	out.Err = err
	if err == nil {
		metrics.AddRelayBytes("pull", n)
	}
	return out
}

// writeAtomic streams r into path. The file appears only once complete.
func writeAtomic(ctx context.Context, path string, r io.Reader) (int64, error) {
	logger := log.FromContext(ctx)

	pendingFile, err := renameio.NewPendingFile(path, renameio.WithPermissions(0o644))
	if err != nil {
		return 0, fmt.Errorf("create pending file: %w", err)
	}
	defer func() {
		if err := pendingFile.Cleanup(); err != nil {
			logger.Debug().Err(err).Msg("cleanup pending capture file")
		}
	}()

	n, err := io.Copy(pendingFile, contextReader{ctx: ctx, r: r})
	if err != nil {
		return n, fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	if err := pendingFile.CloseAtomicallyReplace(); err != nil {
		return n, fmt.Errorf("atomically replace %s: %w", filepath.Base(path), err)
	}
	return n, nil
}

// contextReader stops a copy once ctx is done.
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
