// Package category normalizes the free-text category donors type into a
// canonical slug so browse filters match spelling variants.
package category

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var (
	nonAlphanumeric = regexp.MustCompile(`[^a-z0-9]+`)
	multipleHyphens = regexp.MustCompile(`-+`)
)

// Slugify converts a string to a URL-safe slug.
// "Science Fiction" -> "science-fiction".
// "Café Noir" -> "cafe-noir".
func Slugify(s string) string {
	// Decompose accented characters, then drop the marks.
	s = norm.NFKD.String(s)
	s = strings.Map(func(r rune) rune {
		if r > unicode.MaxASCII {
			return -1
		}
		return r
	}, s)

	s = strings.ToLower(s)
	s = nonAlphanumeric.ReplaceAllString(s, "-")
	s = multipleHyphens.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// Canonical returns the canonical slug for raw, resolving known aliases.
// Unknown categories slugify as-is. Empty input returns "".
func Canonical(raw string) string {
	slug := Slugify(raw)
	if canon, ok := aliases[slug]; ok {
		return canon
	}
	return slug
}

// Match reports whether a book filed under category satisfies filter.
// An empty filter matches everything.
func Match(category, filter string) bool {
	want := Canonical(filter)
	return want == "" || Canonical(category) == want
}
