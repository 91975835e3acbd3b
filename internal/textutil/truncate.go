// Package textutil holds small text helpers shared by the network adapters.
package textutil

import (
	"strings"
	"unicode"
)

// Truncate caps text at limit characters (code points). Text already within
// the limit is returned unchanged. Otherwise the first limit-1 characters
// are kept, trailing whitespace is stripped, and a single ellipsis is
// appended, so the result never exceeds limit. A limit of one or less
// leaves no room for the ellipsis and hard-cuts instead.
func Truncate(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	if limit <= 1 {
		if limit <= 0 {
			return ""
		}
		return string(runes[:limit])
	}

	head := strings.TrimRightFunc(string(runes[:limit-1]), unicode.IsSpace)
	return head + "…"
}
