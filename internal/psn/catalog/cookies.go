// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package catalog

import (
	"net/http"
	"strings"
)

// cookieJar collects prefixed cookies across attempts. Order is first-seen;
// a later value for the same name replaces the earlier one in place.
type cookieJar struct {
	prefix string
	names  []string
	values map[string]string
}

func newCookieJar(prefix string) *cookieJar {
	return &cookieJar{prefix: strings.ToLower(prefix), values: make(map[string]string)}
}

func (j *cookieJar) add(h http.Header) {
	for _, line := range h.Values("Set-Cookie") {
		pair, _, _ := strings.Cut(line, ";")
		pair = strings.TrimSpace(pair)
		name, _, ok := strings.Cut(pair, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			continue
		}
		if !strings.HasPrefix(strings.ToLower(name), j.prefix) {
			continue
		}
		if _, seen := j.values[name]; !seen {
			j.names = append(j.names, name)
		}
		j.values[name] = pair
	}
}

// String renders the jar as a Cookie header value.
func (j *cookieJar) String() string {
	pairs := make([]string, 0, len(j.names))
	for _, name := range j.names {
		pairs = append(pairs, j.values[name])
	}
	return strings.Join(pairs, "; ")
}
