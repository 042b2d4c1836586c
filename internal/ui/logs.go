package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/smashtrack/internal/logtail"
)

type logsMsg struct {
	lines []string
	err   error
}

func readLogsCmd(path string) tea.Cmd {
	if path == "" {
		return nil
	}
	return func() tea.Msg {
		lines, err := logtail.Read(path, LogBufferLimit)
		if err != nil {
			return logsMsg{err: err}
		}
		return logsMsg{lines: logtail.FormatLines(lines)}
	}
}

func (m *Model) handleLogs(msg logsMsg) {
	if msg.err != nil {
		m.flash = msg.err.Error()
		return
	}
	follow := m.logView.AtBottom() || len(m.logLines) == 0
	m.logLines = msg.lines
	m.logView.SetContent(strings.Join(m.logLines, "\n"))
	if follow {
		m.logView.GotoBottom()
	}
}

func (m *Model) resizeLogView() {
	m.logView.Width = max(m.width-2, 20)
	m.logView.Height = max(m.height-5, 5)
}

func (m Model) handleLogsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Again):
		return m, readLogsCmd(m.logPath)
	case key.Matches(msg, m.keys.Top):
		m.logView.GotoTop()
		return m, nil
	case key.Matches(msg, m.keys.Bottom):
		m.logView.GotoBottom()
		return m, nil
	}
	var cmd tea.Cmd
	m.logView, cmd = m.logView.Update(msg)
	return m, cmd
}

func (m Model) renderLogs() string {
	if len(m.logLines) == 0 {
		return m.theme.Styles().MutedText.Render("No log entries yet.")
	}
	return m.logView.View()
}
