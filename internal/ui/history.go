package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

func (m Model) handleHistoryKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	items := m.hist.Page.Items
	switch {
	case key.Matches(msg, m.keys.Again):
		return m, refreshHistoryCmd(m.ctx, m.refreshHistory)
	case key.Matches(msg, m.keys.Down):
		if m.histRow < len(items)-1 {
			m.histRow++
		}
	case key.Matches(msg, m.keys.Up):
		if m.histRow > 0 {
			m.histRow--
		}
	case key.Matches(msg, m.keys.Top):
		m.histRow = 0
	case key.Matches(msg, m.keys.Bottom):
		m.histRow = max(len(items)-1, 0)
	case key.Matches(msg, m.keys.Submit):
		if m.histRow < len(items) {
			m.flash = "Loading analysis..."
			return m, recallCmd(m.ctx, m.recall, items[m.histRow].ID)
		}
	}
	return m, nil
}

func (m *Model) clampHistoryRow() {
	n := len(m.hist.Page.Items)
	if m.histRow >= n {
		m.histRow = max(n-1, 0)
	}
}

func (m Model) renderHistory() string {
	styles := m.theme.Styles()
	var b strings.Builder

	stats := m.hist.Stats
	b.WriteString(styles.AccentText.Bold(true).Render("History"))
	b.WriteString("  ")
	b.WriteString(styles.MutedText.Render(fmt.Sprintf("%d analyses · best %.0f km/h · avg score %.1f ·",
		stats.Total, stats.MaxSpeed, stats.AverageScore)))
	b.WriteString(" ")
	level := stats.Level
	if level == "" {
		level = "beginner"
	}
	b.WriteString(styles.LevelStyle(level).Render(levelLabel(level)))
	b.WriteString("\n\n")

	if !m.hist.HasPage {
		switch {
		case m.hist.LastError != nil:
			b.WriteString(styles.DangerText.Render(m.hist.LastError.Error()))
		default:
			b.WriteString(styles.MutedText.Render("Loading..."))
		}
		return b.String()
	}
	if len(m.hist.Page.Items) == 0 {
		b.WriteString(styles.MutedText.Render("No analyses yet."))
		return b.String()
	}

	header := fmt.Sprintf("%s %s %s %s", padCells("ANALYZED", 22), padCells("SPEED", 8), padCells("SCORE", 7), "LEVEL")
	b.WriteString(styles.FaintText.Render(header))
	b.WriteString("\n")
	for i, it := range m.hist.Page.Items {
		row := fmt.Sprintf("%s %s %s %s",
			padCells(clip(it.AnalyzedAt, 22), 22),
			padCells(fmt.Sprintf("%.0f", it.Speed), 8),
			padCells(fmt.Sprintf("%.1f", it.Score), 7),
			levelLabel(it.Level))
		if i == m.histRow {
			b.WriteString(styles.Selected.Render(padCells(row, m.width-2)))
		} else {
			b.WriteString(styles.Text.Render(row))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	footer := fmt.Sprintf("page %d · updated %s", m.hist.Page.Page, m.hist.LastUpdated.Format(time.Kitchen))
	if m.hist.IsOffline() {
		footer += " · " + styles.DangerText.Render("offline")
	}
	b.WriteString(styles.FaintText.Render(footer))
	return b.String()
}
