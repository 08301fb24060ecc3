// SPDX-License-Identifier: MIT

// Package playlist rewrites HLS media playlists so that every nested
// segment or variant request is routed back through the relay.
package playlist

import (
	"net/url"
	"strings"
)

// BaseURL returns origin plus the target path with its last segment
// stripped, e.g. https://cdn/a/b/master.m3u8 -> https://cdn/a/b/.
func BaseURL(target *url.URL) *url.URL {
	dir := target.EscapedPath()
	if i := strings.LastIndex(dir, "/"); i >= 0 {
		dir = dir[:i+1]
	} else {
		dir = "/"
	}
	base := &url.URL{Scheme: target.Scheme, Host: target.Host}
	if p, err := url.PathUnescape(dir); err == nil {
		base.Path = p
		base.RawPath = dir
	} else {
		base.Path = dir
	}
	return base
}

// RewriteMediaPlaylist points every URI line of body at endpoint?url=<abs>.
// Tags and comments, absolute http(s) lines and lines already routed
// through endpoint are kept. Lines are trimmed and joined with "\n".
func RewriteMediaPlaylist(body string, target *url.URL, endpoint string) string {
	base := BaseURL(target)
	relayed := endpoint + "?"

	lines := strings.Split(body, "\n")
	for i, line := range lines {
		line = strings.TrimSpace(line)
		lines[i] = line
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "http") || strings.HasPrefix(line, relayed) {
			continue
		}
		ref, err := url.Parse(line)
		if err != nil {
			continue
		}
		abs := base.ResolveReference(ref)
		lines[i] = relayed + "url=" + url.QueryEscape(abs.String())
	}
	return strings.Join(lines, "\n")
}

// IsPlaylist reports whether a path names an HLS playlist.
func IsPlaylist(path string) bool {
	return strings.HasSuffix(strings.ToLower(path), ".m3u8")
}
