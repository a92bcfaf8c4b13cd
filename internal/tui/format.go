package tui

import (
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/mattn/go-runewidth"

	"github.com/staffdesk/staffdesk/internal/textutil"
)

// highlightTerm renders every case-insensitive occurrence of the search
// term in a table cell with highlightStyle. Matching is done on runes so a
// lower-casing that changes byte length cannot shift the spans.
func highlightTerm(text, term string) string {
	needle := []rune(strings.ToLower(strings.TrimSpace(term)))
	if len(needle) == 0 || text == "" {
		return text
	}
	orig := []rune(text)
	lower := []rune(strings.ToLower(text))
	if len(lower) != len(orig) {
		return text
	}

	var sb strings.Builder
	prev := 0
	for i := 0; i+len(needle) <= len(lower); {
		if !slices.Equal(lower[i:i+len(needle)], needle) {
			i++
			continue
		}
		sb.WriteString(string(orig[prev:i]))
		sb.WriteString(highlightStyle.Render(string(orig[i : i+len(needle)])))
		i += len(needle)
		prev = i
	}
	if prev == 0 {
		return text
	}
	sb.WriteString(string(orig[prev:]))
	return sb.String()
}

// padRight pads a string with spaces to fill width terminal cells.
// Uses lipgloss.Width to correctly handle ANSI codes and full-width characters.
func padRight(s string, width int) string {
	if width <= 0 {
		return ""
	}
	sw := lipgloss.Width(s)
	if sw >= width {
		return ansi.Truncate(s, width, "")
	}
	return s + strings.Repeat(" ", width-sw)
}

// truncateRunes truncates a string to fit within maxWidth terminal cells.
// The value is flattened to one clean line first so a cell never breaks the layout.
func truncateRunes(s string, maxWidth int) string {
	s = textutil.Cell(s)

	if runewidth.StringWidth(s) <= maxWidth {
		return s
	}
	if maxWidth <= 3 {
		return runewidth.Truncate(s, maxWidth, "")
	}
	return runewidth.Truncate(s, maxWidth, "...")
}

// wrapText wraps text to fit within width terminal cells.
func wrapText(text string, width int) []string {
	if width <= 0 {
		width = 80
	}

	var result []string
	for _, line := range strings.Split(text, "\n") {
		if runewidth.StringWidth(line) <= width {
			result = append(result, line)
			continue
		}

		runes := []rune(line)
		for len(runes) > 0 {
			currentWidth := 0
			breakAt := 0
			lastSpace := -1

			for i, r := range runes {
				rw := runewidth.RuneWidth(r)
				if currentWidth+rw > width {
					break
				}
				currentWidth += rw
				breakAt = i + 1
				if r == ' ' {
					lastSpace = i
				}
			}

			// Prefer breaking at a space in the latter half.
			if lastSpace > breakAt/2 && breakAt < len(runes) {
				breakAt = lastSpace
			}
			if breakAt == 0 {
				breakAt = 1
			}

			result = append(result, string(runes[:breakAt]))
			runes = runes[breakAt:]
			for len(runes) > 0 && runes[0] == ' ' {
				runes = runes[1:]
			}
		}
	}
	return result
}

// truncateToWidth returns the prefix of s that fits within maxWidth visual columns.
func truncateToWidth(s string, maxWidth int) string {
	return ansi.Truncate(s, maxWidth, "")
}

// skipToWidth returns the suffix of s starting after skipWidth visual columns.
func skipToWidth(s string, skipWidth int) string {
	return ansi.Cut(s, skipWidth, 10000)
}
