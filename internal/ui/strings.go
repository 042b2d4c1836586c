package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

const ellipsis = "…"

// clip shortens s to at most width terminal cells. Width is measured in
// cells, not runes, so server messages in CJK and suggestion emoji line up.
func clip(s string, width int) string {
	s = strings.TrimSpace(s)
	if width <= 0 || lipgloss.Width(s) <= width {
		return s
	}
	budget, tail := width-lipgloss.Width(ellipsis), ellipsis
	if budget <= 0 {
		budget, tail = width, ""
	}
	var b strings.Builder
	used := 0
	for _, r := range s {
		w := lipgloss.Width(string(r))
		if used+w > budget {
			break
		}
		b.WriteRune(r)
		used += w
	}
	b.WriteString(tail)
	return b.String()
}

// padCells right-pads s with spaces to width cells.
func padCells(s string, width int) string {
	if gap := width - lipgloss.Width(s); gap > 0 {
		return s + strings.Repeat(" ", gap)
	}
	return s
}

// levelLabel renders a player level such as "elite" or "upper_intermediate"
// for display. An empty level reads as Beginner.
func levelLabel(level string) string {
	level = strings.ToLower(strings.TrimSpace(level))
	if level == "" {
		return "Beginner"
	}
	words := strings.FieldsFunc(level, func(r rune) bool {
		return r == '_' || r == '-' || r == ' '
	})
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
