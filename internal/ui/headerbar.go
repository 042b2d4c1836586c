package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// headerBar paints header segments on one surface color. Each word is
// styled separately and the spaces between them carry the background too,
// since lipgloss resets after every styled run and would leave holes.
type headerBar struct {
	bg       lipgloss.Color
	space    string
	segments []string
}

func newHeaderBar(surface string) *headerBar {
	bg := lipgloss.Color(surface)
	return &headerBar{bg: bg, space: lipgloss.NewStyle().Background(bg).Render(" ")}
}

// add appends text as one segment. Blank text is skipped.
func (h *headerBar) add(text string, style lipgloss.Style) {
	if strings.TrimSpace(text) == "" {
		return
	}
	style = style.Background(h.bg)
	words := strings.Split(text, " ")
	for i, w := range words {
		if w != "" {
			words[i] = style.Render(w)
		}
	}
	h.segments = append(h.segments, strings.Join(words, h.space))
}

// render joins the segments with a divider and fills the line to width.
// A non-positive width leaves the line unpadded.
func (h *headerBar) render(divider string, width int) string {
	line := strings.Join(h.segments, lipgloss.NewStyle().Background(h.bg).Render(divider))
	if width <= 0 {
		return line
	}
	return lipgloss.NewStyle().Background(h.bg).Width(width).Render(line)
}
