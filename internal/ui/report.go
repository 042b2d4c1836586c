package ui

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/five82/smashtrack/internal/analysis"
)

const defaultSuggestionIcon = "💡"

// suggestionIcons maps the Material icon names the analysis emits to emoji
// a terminal can show.
var suggestionIcons = map[string]string{
	"mdi-motion":       "🏃",
	"directions_run":   "🏃",
	"motion":           "🏃",
	"badminton":        "🏸",
	"mdi-badminton":    "🏸",
	"arm-flex":         "💪",
	"mdi-arm-flex":     "💪",
	"fitness_center":   "💪",
	"flight":           "✈️",
	"flight_takeoff":   "✈️",
	"lightbulb":        "💡",
	"tips_and_updates": "💡",
}

// SuggestionIcon returns the emoji for a suggestion icon name.
func SuggestionIcon(name string) string {
	if icon, ok := suggestionIcons[strings.ToLower(strings.TrimSpace(name))]; ok {
		return icon
	}
	return defaultSuggestionIcon
}

func (m Model) renderReport() string {
	styles := m.theme.Styles()
	if !m.report.HasReport {
		return styles.MutedText.Render("No analysis yet. Press n to analyze a clip, or y to open one from history.")
	}
	r := m.report.Report
	var b strings.Builder

	speed := lipgloss.NewStyle().
		Foreground(lipgloss.Color(m.theme.Accent)).
		Bold(true).
		Render(fmt.Sprintf("%.0f km/h", r.Speed))
	b.WriteString(speed)
	b.WriteString("  ")
	b.WriteString(styles.LevelStyle(r.Level).Render(levelLabel(r.Level)))
	b.WriteString("\n")

	rank := fmt.Sprintf("Faster than %.0f%% of players", r.Rank)
	if r.RankPosition > 0 {
		rank += fmt.Sprintf(" (#%.0f)", r.RankPosition)
	}
	b.WriteString(styles.MutedText.Render(rank))
	b.WriteString("\n")
	b.WriteString(styles.Text.Render(fmt.Sprintf("Score %.1f / 10", r.Score)))
	b.WriteString("\n\n")

	b.WriteString(styles.AccentText.Bold(true).Render("Technique"))
	b.WriteString("\n")
	b.WriteString(m.renderBar("Power", r.Technique.Power))
	b.WriteString(m.renderBar("Angle", r.Technique.Angle))
	b.WriteString(m.renderBar("Coordination", r.Technique.Coordination))

	if len(r.Suggestions) > 0 {
		b.WriteString("\n")
		b.WriteString(styles.AccentText.Bold(true).Render("Suggestions"))
		b.WriteString("\n")
		width := max(m.width-8, 20)
		for _, s := range r.Suggestions {
			b.WriteString(SuggestionIcon(s.Icon))
			b.WriteString(" ")
			b.WriteString(styles.Text.Bold(true).Render(s.Title))
			b.WriteString("\n")
			b.WriteString(lipgloss.NewStyle().
				Foreground(lipgloss.Color(m.theme.Muted)).
				Width(width).
				PaddingLeft(3).
				Render(s.Description))
			b.WriteString("\n")
			if s.Highlight != "" {
				b.WriteString(styles.WarningText.Render("   › " + s.Highlight))
				b.WriteString("\n")
			}
		}
	}
	if r.AnalyzedAt != "" {
		b.WriteString("\n")
		b.WriteString(styles.FaintText.Render("Analyzed " + r.AnalyzedAt))
	}
	return strings.TrimRight(b.String(), "\n")
}

// renderBar draws one 0..100 technique score.
func (m Model) renderBar(label string, value float64) string {
	styles := m.theme.Styles()
	filled := int(math.Round(value / 100 * LayoutBarWidth))
	if filled < 0 {
		filled = 0
	}
	if filled > LayoutBarWidth {
		filled = LayoutBarWidth
	}
	bar := styles.SuccessText.Render(strings.Repeat("█", filled)) +
		styles.FaintText.Render(strings.Repeat("░", LayoutBarWidth-filled))
	return fmt.Sprintf("%s %s %s\n", styles.MutedText.Render(padCells(label, 13)), bar, styles.Text.Render(fmt.Sprintf("%3.0f", value)))
}

// reportSummary is the one-line form used in the header.
func reportSummary(r analysis.Report) string {
	return fmt.Sprintf("%.0f km/h · %.1f/10", r.Speed, r.Score)
}
