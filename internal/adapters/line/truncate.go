package line

import "strings"

const ellipsis = "…"

// Truncate shortens the text to at most limit runes, never splitting a
// multi-byte code point. Text already within the limit comes back
// byte-identical; only a truncated tail is trimmed before the ellipsis
// marker so the cut never ends in whitespace.
func Truncate(text string, limit int) string {
	if limit <= 0 {
		return ""
	}

	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}

	cut := strings.TrimSpace(string(runes[:limit-1]))
	return cut + ellipsis
}
