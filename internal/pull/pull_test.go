// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package pull

import (
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/capturerelay/internal/psn/catalog"
	"github.com/ManuGH/capturerelay/internal/psn/media"
)

func strPtr(s string) *string { return &s }

type fakeDownloader struct {
	mu      sync.Mutex
	bodies  map[string]string
	cookies []string
}

func (f *fakeDownloader) Download(_ context.Context, rawURL, cookie string) (media.DownloadResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cookies = append(f.cookies, cookie)
	body, ok := f.bodies[rawURL]
	if !ok {
		return media.DownloadResult{}, &media.Error{Kind: media.ErrStreamFetchFailed, Op: "download", Status: http.StatusNotFound}
	}
	return media.DownloadResult{Body: io.NopCloser(strings.NewReader(body)), ContentLength: int64(len(body))}, nil
}

func video(id, title, url string) catalog.Capture {
	return catalog.Capture{ID: id, Title: title, Kind: catalog.KindVideo, FileType: strPtr("MP4"), Video: &catalog.VideoDetails{DownloadURL: strPtr(url)}}
}

func image(id, title, url string) catalog.Capture {
	return catalog.Capture{ID: id, Title: title, Kind: catalog.KindImage, Image: &catalog.ImageDetails{ScreenshotURL: strPtr(url)}}
}

func TestPull(t *testing.T) {
	dir := t.TempDir()
	dl := &fakeDownloader{bodies: map[string]string{
		"https://cdn.cloudfront.net/v1.mp4": "video-one",
		"https://cdn.cloudfront.net/i1.jpg": "image-one",
	}}
	res := catalog.Result{
		CDNCookie: "CloudFront-Policy=p",
		Captures: []catalog.Capture{
			video("v1", "Astro Bot", "https://cdn.cloudfront.net/v1.mp4"),
			image("i1", "Astro Bot", "https://cdn.cloudfront.net/i1.jpg"),
			video("v2", "Gone", "https://cdn.cloudfront.net/missing.mp4"),
			{ID: "v3", Title: "No URL", Kind: catalog.KindVideo},
		},
	}

	sum, err := New(dl, Options{Dir: dir, Concurrency: 2, RPS: 1000}).Pull(context.Background(), res)
	require.NoError(t, err)

	assert.Equal(t, 2, sum.Downloaded)
	assert.Equal(t, 2, sum.Failed)
	assert.Equal(t, int64(len("video-one")+len("image-one")), sum.Bytes)
	assert.ErrorIs(t, sum.Outcomes[3].Err, ErrNoMediaURL)
	assert.ErrorIs(t, sum.Outcomes[2].Err, media.ErrStreamFetchFailed)

	got, err := os.ReadFile(filepath.Join(dir, "Astro_Bot_v1.mp4"))
	require.NoError(t, err)
	assert.Equal(t, "video-one", string(got))
	got, err = os.ReadFile(filepath.Join(dir, "Astro_Bot_i1.jpg"))
	require.NoError(t, err)
	assert.Equal(t, "image-one", string(got))

	_, err = os.Stat(filepath.Join(dir, "Gone_v2.mp4"))
	assert.True(t, os.IsNotExist(err), "failed downloads leave no file")

	for _, c := range dl.cookies {
		assert.Equal(t, "CloudFront-Policy=p", c)
	}
}

func TestPull_SkipsExistingAndFiltersKind(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Clip_v1.mp4"), []byte("old"), 0o644))

	dl := &fakeDownloader{bodies: map[string]string{
		"https://cdn.cloudfront.net/v1.mp4": "new",
		"https://cdn.cloudfront.net/i1.jpg": "img",
	}}
	res := catalog.Result{Captures: []catalog.Capture{
		video("v1", "Clip", "https://cdn.cloudfront.net/v1.mp4"),
		image("i1", "Shot", "https://cdn.cloudfront.net/i1.jpg"),
	}}

	sum, err := New(dl, Options{Dir: dir, RPS: 1000, Kind: catalog.KindVideo}).Pull(context.Background(), res)
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Skipped)
	assert.Zero(t, sum.Downloaded)
	assert.Empty(t, dl.cookies)

	got, _ := os.ReadFile(filepath.Join(dir, "Clip_v1.mp4"))
	assert.Equal(t, "old", string(got))

	sum, err = New(dl, Options{Dir: dir, RPS: 1000, Overwrite: true}).Pull(context.Background(), res)
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Downloaded)
	got, _ = os.ReadFile(filepath.Join(dir, "Clip_v1.mp4"))
	assert.Equal(t, "new", string(got))
}

func TestPull_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	dl := &fakeDownloader{bodies: map[string]string{"https://cdn.cloudfront.net/v1.mp4": "x"}}
	res := catalog.Result{Captures: []catalog.Capture{video("v1", "Clip", "https://cdn.cloudfront.net/v1.mp4")}}

	_, err := New(dl, Options{Dir: t.TempDir()}).Pull(ctx, res)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFileName(t *testing.T) {
	tests := []struct {
		name string
		in   catalog.Capture
		want string
	}{
		{"file type wins", video("abc", "Astro Bot", "https://x/y.webm"), "Astro_Bot_abc.mp4"},
		{"accents folded", image("1", "Pokémon: Légendes", "https://x/shot.PNG"), "Pokemon_Legendes_1.png"},
		{"punctuation collapses", image("2", "  a//b??c  ", ""), "a_b_c_2.jpg"},
		{"empty title", catalog.Capture{ID: "3", Kind: catalog.KindVideo}, "capture_3.mp4"},
		{"non latin title", image("4", "ゼルダ", "https://x/a"), "capture_4.jpg"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FileName(tt.in))
		})
	}
}
