package ui

import (
	"strings"

	"github.com/five82/smashtrack/internal/session"
)

type navTab struct {
	key   string
	label string
	route session.Route
}

var navTabs = []navTab{
	{"n", "Analyze", session.RouteUpload},
	{"r", "Report", session.RouteReport},
	{"y", "History", session.RouteHistory},
	{"l", "Logs", routeLogs},
}

// renderHeader renders the logo, the signed-in user and the latest report.
func (m Model) renderHeader() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bar := newHeaderBar(m.theme.Surface)

	bar.add("SMASHTRACK", styles.Logo)
	if m.accounts != nil {
		if user, ok := m.accounts.CurrentUser(); ok && m.signedIn() {
			bar.add(clip(user.DisplayName(), 24), styles.Text)
		}
	}
	if !m.signedIn() {
		bar.add("signed out", styles.MutedText)
	}
	if m.report.HasReport {
		bar.add(reportSummary(m.report.Report), styles.AccentText)
	}
	if m.hist.IsOffline() {
		bar.add("offline", styles.DangerText)
	}
	return bar.render("  │  ", m.width)
}

// renderCommandBar renders the screen tabs and the keys for the current screen.
func (m Model) renderCommandBar() string {
	styles := m.theme.Styles()
	segments := make([]string, 0, len(navTabs)+2)
	for _, tab := range navTabs {
		active := tab.route == m.route ||
			(tab.route == session.RouteUpload && m.route == session.RouteAnalysis)
		label := "<" + tab.key + "> " + tab.label
		if active {
			segments = append(segments, styles.AccentText.Bold(true).Render(label))
		} else {
			segments = append(segments, styles.MutedText.Render(label))
		}
	}
	if m.width >= LayoutCompactWidth {
		segments = append(segments, styles.FaintText.Render("<?> Help"), styles.FaintText.Render("<q> Quit"))
	}
	return strings.Join(segments, "  ")
}
