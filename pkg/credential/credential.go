// Package credential turns the many shapes an upstream API key arrives in
// (bare keys, bearer tokens, already-prefixed tokens) into the single
// canonical form the Generect API expects, and decides which source wins when
// several could supply one.
package credential

import (
	"strings"
	"unicode"
)

// Prefix is the scheme every canonical credential starts with.
const Prefix = "Token "

var schemes = []string{"bearer", "token"}

// Normalize strips any stack of bearer/token scheme words from raw and
// re-applies exactly one canonical Prefix. The boolean is false when no key
// remains, in which case the returned string is empty.
//
// Normalize is idempotent: Normalize(Normalize(x)) == Normalize(x).
func Normalize(raw string) (string, bool) {
	key := bareKey(raw)
	if key == "" {
		return "", false
	}
	return Prefix + key, true
}

// IsCanonical reports whether value is already in canonical form.
func IsCanonical(value string) bool {
	normalized, ok := Normalize(value)
	return ok && normalized == value
}

func bareKey(raw string) string {
	s := strings.TrimSpace(raw)
	for {
		rest, ok := stripScheme(s)
		if !ok {
			return s
		}
		s = rest
	}
}

// stripScheme removes one leading scheme word. A lone scheme word with no key
// after it collapses to the empty string.
func stripScheme(s string) (string, bool) {
	for _, scheme := range schemes {
		if len(s) < len(scheme) || !strings.EqualFold(s[:len(scheme)], scheme) {
			continue
		}
		rest := s[len(scheme):]
		if rest == "" {
			return "", true
		}
		r := rune(rest[0])
		if !unicode.IsSpace(r) {
			continue
		}
		return strings.TrimSpace(rest), true
	}
	return s, false
}

// Redact returns a log-safe rendering of a credential.
func Redact(value string) string {
	key := bareKey(value)
	if key == "" {
		return "<none>"
	}
	if len(key) <= 4 {
		return Prefix + "****"
	}
	return Prefix + key[:4] + "****"
}
