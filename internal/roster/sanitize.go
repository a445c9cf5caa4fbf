package roster

import (
	"strings"
	"unicode"
)

// Sanitize strips control characters and markup characters from a field
// value and trims surrounding whitespace.
func Sanitize(value string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case '<', '>', '"', '\'':
			return -1
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, value)
	return strings.TrimSpace(cleaned)
}
