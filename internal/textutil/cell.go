package textutil

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Cell prepares an API value for a single table cell or line: the text is
// made valid UTF-8, control characters (terminal escapes included) are
// dropped, and runs of whitespace collapse to one space.
func Cell(s string) string {
	if s == "" {
		return s
	}
	s = EnsureUTF8(s)

	var sb strings.Builder
	sb.Grow(len(s))
	space := false
	for _, r := range s {
		switch {
		case unicode.IsSpace(r):
			space = sb.Len() > 0
			continue
		case unicode.IsControl(r), r == '​', r == '﻿':
			continue
		}
		if space {
			sb.WriteByte(' ')
			space = false
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// TruncateRunes cuts s to maxRunes runes, ending in "..." when cut.
func TruncateRunes(s string, maxRunes int) string {
	if maxRunes <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= maxRunes {
		return s
	}
	runes := []rune(s)
	if maxRunes <= 3 {
		return string(runes[:maxRunes])
	}
	return string(runes[:maxRunes-3]) + "..."
}

// FirstLine returns the first line of s, after leading newlines.
func FirstLine(s string) string {
	s = strings.TrimLeft(s, "\r\n")
	line, _, _ := strings.Cut(s, "\n")
	return line
}
