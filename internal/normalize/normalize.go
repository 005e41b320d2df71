// Package normalize cleans user-supplied free text before it is stored:
// markup is stripped, text is NFC-normalised and whitespace is collapsed.
package normalize

import (
	"html"
	"strings"
	"sync"
	"unicode"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/text/unicode/norm"
)

var (
	policyOnce sync.Once
	policy     *bluemonday.Policy
)

func strictPolicy() *bluemonday.Policy {
	policyOnce.Do(func() {
		policy = bluemonday.StrictPolicy()
	})
	return policy
}

// stripMarkup removes all HTML, leaving decoded text. The strict policy
// escapes entities on output, so they are unescaped again.
func stripMarkup(s string) string {
	if !strings.ContainsAny(s, "<>&") {
		return s
	}
	return html.UnescapeString(strictPolicy().Sanitize(s))
}

// dropControl removes control characters other than newline and tab.
func dropControl(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
}

// Text cleans a single-line value such as a name or book title. Runs of
// whitespace, including newlines, become one space.
func Text(s string) string {
	s = norm.NFC.String(dropControl(stripMarkup(s)))
	return strings.Join(strings.Fields(s), " ")
}

// Multiline cleans a value where line breaks matter, such as a description
// or postal address. Spaces within a line are collapsed, blank lines removed.
func Multiline(s string) string {
	s = norm.NFC.String(dropControl(stripMarkup(s)))
	lines := strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n")
	out := lines[:0]
	for _, line := range lines {
		if line = strings.Join(strings.Fields(line), " "); line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}

// Phone cleans a phone number. Formatting characters are kept so the
// number reads back the way it was entered.
func Phone(s string) string {
	return Text(s)
}

// Contact cleans both halves of a phone/address pair.
func Contact(phone, address string) (string, string) {
	return Phone(phone), Multiline(address)
}
