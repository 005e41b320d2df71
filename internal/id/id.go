// Package id generates prefixed entity identifiers.
package id

import (
	"fmt"
	"strings"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Entity prefixes.
const (
	PrefixUser     = "usr"
	PrefixBook     = "bk"
	PrefixRequest  = "req"
	PrefixExchange = "xch"
	PrefixSession  = "ses"
)

// Generate creates a prefixed NanoID, e.g. "bk-V1StGXR8_Z5jdHi6B-myT".
// It fails only when the system has insufficient entropy.
func Generate(prefix string) (string, error) {
	raw, err := gonanoid.New()
	if err != nil {
		return "", fmt.Errorf("generate nanoid: %w", err)
	}
	return prefix + "-" + raw, nil
}

// MustGenerate is like Generate but panics on failure. Use for seeding and tests.
func MustGenerate(prefix string) string {
	out, err := Generate(prefix)
	if err != nil {
		panic(fmt.Sprintf("failed to generate ID: %v", err))
	}
	return out
}

// HasPrefix reports whether id was generated with prefix.
func HasPrefix(id, prefix string) bool {
	return strings.HasPrefix(id, prefix+"-") && len(id) > len(prefix)+1
}
