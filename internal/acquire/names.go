package acquire

import (
	"strings"
	"unicode"
)

// TimestampLayout is the second-precision timestamp embedded in staged file
// names. Two acquisitions of one table within the same second collide.
const TimestampLayout = "2006-01-02T15:04:05"

// SafeName reduces a table name to a filesystem-safe stem: surrounding
// whitespace is trimmed, only letters, digits and spaces are kept, and
// spaces become underscores.
//
// The mapping is lossy; "Rate!" and "Rate" produce the same stem.
func SafeName(name string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(name) {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			b.WriteRune(r)
		case r == ' ':
			b.WriteByte('_')
		}
	}
	return b.String()
}
