package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines all keyboard bindings for the application. Screens with a
// text form only see the ctrl variants; plain letters go to the input.
type keyMap struct {
	// Global
	Quit       key.Binding
	Help       key.Binding
	CycleTheme key.Binding
	Logout     key.Binding

	// View switching
	ViewUpload  key.Binding
	ViewReport  key.Binding
	ViewHistory key.Binding
	ViewLogs    key.Binding

	// Forms
	NextField      key.Binding
	PrevField      key.Binding
	Submit         key.Binding
	ToggleRegister key.Binding

	// Analysis
	Cancel key.Binding
	Again  key.Binding

	// Navigation
	Up     key.Binding
	Down   key.Binding
	Top    key.Binding
	Bottom key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() keyMap {
	return keyMap{
		// Global
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c", "q"),
			key.WithHelp("q", "Quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("f1", "?"),
			key.WithHelp("?/f1", "Toggle help"),
		),
		CycleTheme: key.NewBinding(
			key.WithKeys("ctrl+t", "T"),
			key.WithHelp("T", "Cycle theme"),
		),
		Logout: key.NewBinding(
			key.WithKeys("ctrl+o", "o"),
			key.WithHelp("o", "Log out"),
		),

		// View switching
		ViewUpload: key.NewBinding(
			key.WithKeys("ctrl+n", "n"),
			key.WithHelp("n", "New analysis"),
		),
		ViewReport: key.NewBinding(
			key.WithKeys("ctrl+r", "r"),
			key.WithHelp("r", "Report"),
		),
		ViewHistory: key.NewBinding(
			key.WithKeys("ctrl+y", "y"),
			key.WithHelp("y", "History"),
		),
		ViewLogs: key.NewBinding(
			key.WithKeys("ctrl+l", "l"),
			key.WithHelp("l", "Logs"),
		),

		// Forms
		NextField: key.NewBinding(
			key.WithKeys("tab", "down"),
			key.WithHelp("tab", "Next field"),
		),
		PrevField: key.NewBinding(
			key.WithKeys("shift+tab", "up"),
			key.WithHelp("shift+tab", "Previous field"),
		),
		Submit: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "Submit"),
		),
		ToggleRegister: key.NewBinding(
			key.WithKeys("ctrl+x"),
			key.WithHelp("ctrl+x", "Switch login/register"),
		),

		// Analysis
		Cancel: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "Cancel analysis"),
		),
		Again: key.NewBinding(
			key.WithKeys("f5", "ctrl+a"),
			key.WithHelp("f5", "Retry / refresh"),
		),

		// Navigation
		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/up", "Move up"),
		),
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/down", "Move down"),
		),
		Top: key.NewBinding(
			key.WithKeys("g", "home"),
			key.WithHelp("g", "Go to top"),
		),
		Bottom: key.NewBinding(
			key.WithKeys("G", "end"),
			key.WithHelp("G", "Go to bottom"),
		),
	}
}

// ShortHelp returns key bindings for the short help view.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Help, k.Quit}
}

// FullHelp returns key bindings for the full help view.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.ViewUpload, k.ViewReport, k.ViewHistory, k.ViewLogs},
		{k.NextField, k.PrevField, k.Submit, k.ToggleRegister},
		{k.Cancel, k.Again},
		{k.Up, k.Down, k.Top, k.Bottom},
		{k.CycleTheme, k.Logout, k.Help, k.Quit},
	}
}
