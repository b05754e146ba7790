package proxy

import (
	"strings"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
)

// stripDisallowed removes every rune outside the filename set. It holds no
// state, so one instance is shared.
var stripDisallowed = runes.Remove(runes.Predicate(func(r rune) bool {
	return filenameRune(r) == -1
}))

// SanitizeTitle reduces title to ASCII letters, digits, underscore, hyphen
// and space, trimmed of surrounding spaces. Any other rune is dropped,
// accented letters included ("Café" becomes "Caf").
func SanitizeTitle(title string) string {
	cleaned, _, err := transform.String(stripDisallowed, title)
	if err != nil {
		cleaned = strings.Map(filenameRune, title)
	}
	return strings.TrimSpace(cleaned)
}

func filenameRune(r rune) rune {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return r
	case r == '_' || r == '-' || r == ' ':
		return r
	}
	return -1
}
