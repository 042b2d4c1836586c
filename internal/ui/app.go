package ui

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/smashtrack/internal/analysis"
	"github.com/five82/smashtrack/internal/gateway"
	"github.com/five82/smashtrack/internal/session"
	"github.com/five82/smashtrack/internal/state"
	"github.com/five82/smashtrack/internal/upload"
)

// routeLogs is the local log viewer. It needs no session.
const routeLogs session.Route = "logs"

// Accounts is the session surface the login screen drives.
type Accounts interface {
	Login(ctx context.Context, creds session.Credentials) (session.User, error)
	Register(ctx context.Context, reg session.Registration) (session.User, error)
	Logout(ctx context.Context) error
	CurrentUser() (session.User, bool)
}

// Pipeline runs upload and analysis for the analyze screen.
type Pipeline interface {
	Run(ctx context.Context, f upload.File, trim *upload.TrimWindow) (upload.MediaReference, analysis.Result, error)
	Analyze(ctx context.Context, ref upload.MediaReference) (analysis.Result, error)
	Cancel(refID string) bool
}

// Options configures the UI.
type Options struct {
	Context        context.Context
	Accounts       Accounts
	Tokens         session.TokenReader
	Pipeline       Pipeline
	Reports        *state.Store
	History        *state.HistoryStore
	Recall         func(ctx context.Context, id string) (analysis.Report, error)
	RefreshHistory func(ctx context.Context) error
	Limits         upload.Limits
	LogPath        string
	PollTick       time.Duration
	ThemeName      string
}

// Model is the root application state for Bubble Tea.
type Model struct {
	// Configuration
	ctx            context.Context
	accounts       Accounts
	tokens         session.TokenReader
	pipeline       Pipeline
	reports        *state.Store
	history        *state.HistoryStore
	recall         func(ctx context.Context, id string) (analysis.Report, error)
	refreshHistory func(ctx context.Context) error
	limits         upload.Limits
	logPath        string
	pollTick       time.Duration

	// UI state
	theme    Theme
	keys     keyMap
	route    session.Route
	width    int
	height   int
	ready    bool
	showHelp bool
	flash    string

	// Screens
	login    loginForm
	job      analyzeJob
	report   state.Snapshot
	hist     state.HistorySnapshot
	histRow  int
	logView  viewport.Model
	logLines []string
}

// New creates a new Bubble Tea model.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	pollTick := opts.PollTick
	if pollTick <= 0 {
		pollTick = DefaultUIInterval
	}
	limits := opts.Limits
	if limits == (upload.Limits{}) {
		limits = upload.DefaultLimits()
	}
	reports := opts.Reports
	if reports == nil {
		reports = &state.Store{}
	}
	hist := opts.History
	if hist == nil {
		hist = &state.HistoryStore{}
	}

	m := Model{
		ctx:            ctx,
		accounts:       opts.Accounts,
		tokens:         opts.Tokens,
		pipeline:       opts.Pipeline,
		reports:        reports,
		history:        hist,
		recall:         opts.Recall,
		refreshHistory: opts.RefreshHistory,
		limits:         limits,
		logPath:        opts.LogPath,
		pollTick:       pollTick,
		theme:          GetTheme(opts.ThemeName),
		keys:           DefaultKeyMap(),
		login:          newLoginForm(),
		job:            newAnalyzeJob(limits),
		report:         reports.Snapshot(),
		hist:           hist.Snapshot(),
		logView:        viewport.New(80, 20),
	}
	m.navigate(session.RouteUpload)
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(tickCmd(m.pollTick), m.routeCmd())
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.resizeLogView()
		return m, nil

	case tickMsg:
		return m.handleTick()

	case spinner.TickMsg:
		if !m.job.running {
			return m, nil
		}
		var cmd tea.Cmd
		m.job.spinner, cmd = m.job.spinner.Update(msg)
		return m, cmd

	case authDoneMsg:
		return m.handleAuthDone(msg)

	case logoutDoneMsg:
		m.history.Reset()
		m.hist = m.history.Snapshot()
		m.flash = "Signed out"
		if msg.err != nil {
			m.flash = "Sign out failed: " + gateway.Message(msg.err)
		}
		m.navigate(session.RouteLogin)
		return m, nil

	case analyzeDoneMsg:
		return m.handleAnalyzeDone(msg)

	case recallDoneMsg:
		if msg.err != nil {
			m.flash = m.errorText(msg.err)
			return m, nil
		}
		m.report = m.reports.Snapshot()
		m.navigate(session.RouteReport)
		return m, nil

	case historyRefreshedMsg:
		m.hist = m.history.Snapshot()
		if msg.err != nil {
			m.flash = m.errorText(msg.err)
		}
		m.clampHistoryRow()
		return m, nil

	case logsMsg:
		m.handleLogs(msg)
		return m, nil
	}

	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	if m.showHelp {
		return m.renderHelp()
	}
	return m.renderMain()
}

// Route returns the screen currently shown.
func (m Model) Route() session.Route {
	return m.route
}

// navigate moves to r through the session guard, which redirects protected
// routes to login when no credential is stored.
func (m *Model) navigate(r session.Route) {
	target := r
	guard := session.Guard{Tokens: m.tokens, Nav: session.NavigatorFunc(func(to session.Route) {
		target = to
	})}
	guard.Enter(r)
	if target == session.RouteAnalysis && !m.job.running {
		target = session.RouteUpload
	}
	m.route = target
	switch target {
	case session.RouteLogin:
		m.login.register = false
		m.login.focusField(0)
	case session.RouteRegister:
		m.login.register = true
		m.login.focusField(0)
	case session.RouteUpload:
		m.job.focusField(m.job.focus)
	}
}

// routeCmd returns the command that loads data for the current route.
func (m Model) routeCmd() tea.Cmd {
	switch m.route {
	case session.RouteHistory:
		return refreshHistoryCmd(m.ctx, m.refreshHistory)
	case routeLogs:
		return readLogsCmd(m.logPath)
	default:
		return nil
	}
}

// typing reports whether printable keys belong to a text input.
func (m Model) typing() bool {
	switch m.route {
	case session.RouteLogin, session.RouteRegister:
		return !m.login.busy
	case session.RouteUpload:
		return !m.job.running
	default:
		return false
	}
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.showHelp {
		m.showHelp = false
		return m, nil
	}
	if m.typing() && msg.Type == tea.KeyRunes {
		return m.updateForm(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		if m.job.running {
			m.cancelJob()
		}
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		return m, nil

	case key.Matches(msg, m.keys.CycleTheme):
		m.theme = GetTheme(NextTheme(m.theme.Name))
		return m, nil

	case key.Matches(msg, m.keys.Logout):
		if m.accounts == nil || !m.signedIn() {
			return m, nil
		}
		if m.job.running {
			m.cancelJob()
		}
		return m, logoutCmd(m.ctx, m.accounts)

	case key.Matches(msg, m.keys.ViewUpload):
		m.flash = ""
		if m.job.running {
			m.navigate(session.RouteAnalysis)
		} else {
			m.navigate(session.RouteUpload)
		}
		return m, m.routeCmd()

	case key.Matches(msg, m.keys.ViewReport):
		m.flash = ""
		m.report = m.reports.Snapshot()
		m.navigate(session.RouteReport)
		return m, m.routeCmd()

	case key.Matches(msg, m.keys.ViewHistory):
		m.flash = ""
		m.navigate(session.RouteHistory)
		return m, m.routeCmd()

	case key.Matches(msg, m.keys.ViewLogs):
		m.flash = ""
		m.route = routeLogs
		return m, m.routeCmd()
	}

	switch m.route {
	case session.RouteLogin, session.RouteRegister:
		return m.handleLoginKey(msg)
	case session.RouteUpload, session.RouteAnalysis:
		return m.handleUploadKey(msg)
	case session.RouteHistory:
		return m.handleHistoryKey(msg)
	case routeLogs:
		return m.handleLogsKey(msg)
	}
	return m, nil
}

func (m Model) updateForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.route {
	case session.RouteLogin, session.RouteRegister:
		cmd = m.login.update(msg)
	case session.RouteUpload:
		cmd = m.job.update(msg)
	}
	return m, cmd
}

// handleTick pulls the stores and re-applies the guard, so a credential
// cleared by a 401 anywhere sends the user back to login.
func (m Model) handleTick() (tea.Model, tea.Cmd) {
	cmds := []tea.Cmd{tickCmd(m.pollTick)}

	if snap := m.reports.Snapshot(); snap.Version != m.report.Version {
		m.report = snap
	}
	m.hist = m.history.Snapshot()
	m.clampHistoryRow()

	if m.route.Protected() {
		before := m.route
		m.navigate(m.route)
		if m.route != before {
			m.flash = gateway.ErrUnauthorized.Error()
		}
	}
	if m.route == routeLogs {
		cmds = append(cmds, readLogsCmd(m.logPath))
	}
	return m, tea.Batch(cmds...)
}

func (m Model) signedIn() bool {
	return session.CanEnter(m.tokens).Allow
}

// errorText maps err to a flash message and, for a 401, routes to login.
func (m *Model) errorText(err error) string {
	if errors.Is(err, gateway.ErrUnauthorized) {
		m.navigate(session.RouteLogin)
	}
	return gateway.Message(err)
}

// renderMain renders the full UI.
func (m Model) renderMain() string {
	var b strings.Builder

	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.renderCommandBar())
	b.WriteString("\n\n")
	b.WriteString(m.renderContent())
	if m.flash != "" {
		b.WriteString("\n\n")
		b.WriteString(m.theme.Styles().WarningText.Render(m.flash))
	}
	return b.String()
}

// renderContent renders the main content area based on current route.
func (m Model) renderContent() string {
	switch m.route {
	case session.RouteLogin, session.RouteRegister:
		return m.renderLogin()
	case session.RouteUpload, session.RouteAnalysis:
		return m.renderUpload()
	case session.RouteReport:
		return m.renderReport()
	case session.RouteHistory:
		return m.renderHistory()
	case routeLogs:
		return m.renderLogs()
	default:
		return ""
	}
}

// Messages

type tickMsg time.Time

type authDoneMsg struct {
	user session.User
	err  error
}

type logoutDoneMsg struct{ err error }

type recallDoneMsg struct {
	report analysis.Report
	err    error
}

type historyRefreshedMsg struct{ err error }

// Commands

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func logoutCmd(ctx context.Context, accounts Accounts) tea.Cmd {
	return func() tea.Msg {
		return logoutDoneMsg{err: accounts.Logout(ctx)}
	}
}

func refreshHistoryCmd(ctx context.Context, refresh func(context.Context) error) tea.Cmd {
	if refresh == nil {
		return nil
	}
	return func() tea.Msg {
		return historyRefreshedMsg{err: refresh(ctx)}
	}
}

func recallCmd(ctx context.Context, recall func(context.Context, string) (analysis.Report, error), id string) tea.Cmd {
	if recall == nil {
		return nil
	}
	return func() tea.Msg {
		r, err := recall(ctx, id)
		return recallDoneMsg{report: r, err: err}
	}
}

// Run starts the Bubble Tea program.
func Run(opts Options) error {
	m := New(opts)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(m.ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && m.ctx.Err() != nil {
		return nil
	}
	return err
}
