package utils

import (
	"strings"
	"unicode"
)

// CollapseWhitespace folds every run of whitespace into a single space, keeping
// paragraph breaks as one newline.
func CollapseWhitespace(text string) string {
	var b strings.Builder
	b.Grow(len(text))

	space, newline := false, false
	for _, r := range text {
		if unicode.IsSpace(r) {
			if r == '\n' {
				newline = true
			}
			space = true
			continue
		}
		if space && b.Len() > 0 {
			if newline {
				b.WriteByte('\n')
			} else {
				b.WriteByte(' ')
			}
		}
		space, newline = false, false
		b.WriteRune(r)
	}
	return b.String()
}

// Excerpt returns at most n runes of text, cut at the last space when possible.
func Excerpt(text string, n int) string {
	runes := []rune(strings.TrimSpace(text))
	if len(runes) <= n {
		return string(runes)
	}
	cut := runes[:n]
	if i := strings.LastIndexFunc(string(cut), unicode.IsSpace); i > n/2 {
		return strings.TrimSpace(string(cut)[:i]) + "..."
	}
	return string(cut) + "..."
}
