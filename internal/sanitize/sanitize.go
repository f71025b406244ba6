// Package sanitize normalizes text produced by external services before it is
// stored or sent to clients.
package sanitize

import (
	"strings"
	"unicode/utf8"
)

// Text returns s with every decoding artifact removed: invalid UTF-8 bytes
// (including UTF-8 encoded surrogate halves), U+FFFD replacement runes left
// behind by lossy decoders, and NUL bytes. Text without such artifacts is
// returned unchanged.
func Text(s string) string {
	if IsClean(s) {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		if !dropped(r) {
			b.WriteString(s[i : i+size])
		}
		i += size
	}
	return b.String()
}

// IsClean reports whether Text would return s unchanged.
func IsClean(s string) bool {
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		if dropped(r) {
			return false
		}
		i += size
	}
	return true
}

// dropped covers both an invalid byte (decoded as RuneError with size 1) and
// a literal U+FFFD. The decoder never yields surrogate code points.
func dropped(r rune) bool {
	return r == utf8.RuneError || r == 0
}
