// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package pull

import (
	"net/url"
	"path"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/ManuGH/capturerelay/internal/psn/catalog"
)

const maxStemLength = 80

// stripMarks decomposes and drops combining marks ("Pokémon" -> "Pokemon").
var stripMarks = transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// FileName derives a stable, filesystem-safe name for c:
// "<title>_<id>.<ext>".
func FileName(c catalog.Capture) string {
	stem := slug(c.Title)
	if stem == "" {
		stem = "capture"
	}
	id := slug(c.ID)
	if id != "" {
		stem += "_" + id
	}
	return stem + "." + extension(c)
}

func slug(s string) string {
	folded, _, err := transform.String(stripMarks, s)
	if err != nil {
		folded = s
	}

	var b strings.Builder
	lastSep := true
	for _, r := range folded {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)), r == '-':
			b.WriteRune(r)
			lastSep = false
		default:
			if !lastSep {
				b.WriteByte('_')
				lastSep = true
			}
		}
		if b.Len() >= maxStemLength {
			break
		}
	}
	return strings.Trim(b.String(), "_")
}

// extension prefers the declared file type, then the media URL's
// extension, then a default per kind.
func extension(c catalog.Capture) string {
	if c.FileType != nil {
		if ext := slug(strings.ToLower(*c.FileType)); ext != "" {
			return ext
		}
	}
	if u, err := url.Parse(c.MediaURL()); err == nil {
		if ext := strings.TrimPrefix(strings.ToLower(path.Ext(u.Path)), "."); ext != "" && slug(ext) == ext {
			return ext
		}
	}
	if c.Kind == catalog.KindImage {
		return "jpg"
	}
	return "mp4"
}
