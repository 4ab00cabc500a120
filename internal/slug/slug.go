// Package slug derives file-system-safe names from conversation titles.
package slug

import (
	"strings"
	"unicode"
)

const maxLen = 64

// Make lowercases the title, collapses every non-alphanumeric run into
// a single dash, and caps the result. Empty input yields "untitled".
func Make(title string) string {
	var sb strings.Builder
	dash := false
	for _, r := range strings.ToLower(title) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			sb.WriteRune(r)
			dash = false
		default:
			if !dash && sb.Len() > 0 {
				sb.WriteByte('-')
				dash = true
			}
		}
	}
	out := strings.Trim(sb.String(), "-")
	if out == "" {
		return "untitled"
	}
	if len(out) > maxLen {
		out = strings.Trim(out[:maxLen], "-")
	}
	return out
}
