// Package stringutil provides UTF-8-safe string helpers used wherever the
// core clips text for display or for hook/observer payloads.
package stringutil

// floorCharBoundary returns the largest byte index <= i that falls on a
// UTF-8 codepoint boundary in s.
func floorCharBoundary(s string, i int) int {
	if i >= len(s) {
		return len(s)
	}
	pos := i
	for pos > 0 && isContinuationByte(s[pos]) {
		pos--
	}
	return pos
}

func isContinuationByte(b byte) bool {
	return b&0xC0 == 0x80
}

// Truncate clips s to at most maxBytes bytes, never splitting a UTF-8
// codepoint. If maxBytes falls inside a multi-byte codepoint, that
// codepoint is dropped entirely rather than truncated.
func Truncate(s string, maxBytes int) string {
	if maxBytes <= 0 {
		return ""
	}
	if len(s) <= maxBytes {
		return s
	}
	return s[:floorCharBoundary(s, maxBytes)]
}

// TruncateWithEllipsis truncates s to maxBytes and appends "..." if the
// string was clipped. The ellipsis is not counted against maxBytes.
func TruncateWithEllipsis(s string, maxBytes int) string {
	if len(s) <= maxBytes {
		return s
	}
	return Truncate(s, maxBytes) + "..."
}
