package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/smashtrack/internal/gateway"
	"github.com/five82/smashtrack/internal/session"
)

const (
	fieldUsername = iota
	fieldPassword
	fieldNickname
	fieldEmail
)

// loginForm backs both the login and the register screen.
type loginForm struct {
	inputs   [4]textinput.Model
	focus    int
	register bool
	busy     bool
	err      string
}

func newLoginForm() loginForm {
	var f loginForm
	placeholders := [4]string{"username", "password", "nickname (optional)", "email (optional)"}
	for i := range f.inputs {
		ti := textinput.New()
		ti.Placeholder = placeholders[i]
		ti.CharLimit = 64
		ti.Prompt = ""
		f.inputs[i] = ti
	}
	f.inputs[fieldPassword].EchoMode = textinput.EchoPassword
	f.inputs[fieldPassword].EchoCharacter = '•'
	f.focusField(0)
	return f
}

// fieldCount is 2 for login and 4 for register.
func (f loginForm) fieldCount() int {
	if f.register {
		return len(f.inputs)
	}
	return 2
}

func (f *loginForm) focusField(i int) {
	n := f.fieldCount()
	i = ((i % n) + n) % n
	for j := range f.inputs {
		if j == i {
			f.inputs[j].Focus()
		} else {
			f.inputs[j].Blur()
		}
	}
	f.focus = i
}

func (f *loginForm) update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	f.inputs[f.focus], cmd = f.inputs[f.focus].Update(msg)
	return cmd
}

func (f loginForm) value(i int) string {
	return strings.TrimSpace(f.inputs[i].Value())
}

func (m Model) handleLoginKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.login.busy {
		return m, nil
	}
	switch {
	case key.Matches(msg, m.keys.ToggleRegister):
		if m.login.register {
			m.navigate(session.RouteLogin)
		} else {
			m.navigate(session.RouteRegister)
		}
		m.login.err = ""
		return m, nil

	case key.Matches(msg, m.keys.NextField):
		m.login.focusField(m.login.focus + 1)
		return m, nil

	case key.Matches(msg, m.keys.PrevField):
		m.login.focusField(m.login.focus - 1)
		return m, nil

	case key.Matches(msg, m.keys.Submit):
		if m.login.focus < m.login.fieldCount()-1 && m.login.value(m.login.focus) == "" {
			m.login.focusField(m.login.focus + 1)
			return m, nil
		}
		return m.submitLogin()
	}
	return m.updateForm(msg)
}

func (m Model) submitLogin() (tea.Model, tea.Cmd) {
	if m.accounts == nil {
		return m, nil
	}
	m.login.busy = true
	m.login.err = ""
	ctx := m.ctx
	accounts := m.accounts
	form := m.login
	return m, func() tea.Msg {
		var (
			user session.User
			err  error
		)
		if form.register {
			user, err = accounts.Register(ctx, session.Registration{
				Username: form.value(fieldUsername),
				Password: form.inputs[fieldPassword].Value(),
				Nickname: form.value(fieldNickname),
				Email:    form.value(fieldEmail),
			})
		} else {
			user, err = accounts.Login(ctx, session.Credentials{
				Username: form.value(fieldUsername),
				Password: form.inputs[fieldPassword].Value(),
			})
		}
		return authDoneMsg{user: user, err: err}
	}
}

func (m Model) handleAuthDone(msg authDoneMsg) (tea.Model, tea.Cmd) {
	m.login.busy = false
	if msg.err != nil {
		m.login.err = gateway.Message(msg.err)
		return m, nil
	}
	m.login.inputs[fieldPassword].SetValue("")
	m.login.err = ""
	m.flash = "Welcome, " + msg.user.DisplayName()
	m.navigate(session.RouteUpload)
	return m, refreshHistoryCmd(m.ctx, m.refreshHistory)
}

func (m Model) renderLogin() string {
	styles := m.theme.Styles()
	var b strings.Builder

	title := "Sign in"
	if m.login.register {
		title = "Create account"
	}
	b.WriteString(styles.AccentText.Bold(true).Render(title))
	b.WriteString("\n\n")

	labels := [4]string{"Username", "Password", "Nickname", "Email"}
	for i := 0; i < m.login.fieldCount(); i++ {
		label := padCells(labels[i], 10)
		if i == m.login.focus {
			b.WriteString(styles.AccentText.Render("› " + label))
		} else {
			b.WriteString(styles.MutedText.Render("  " + label))
		}
		b.WriteString(m.login.inputs[i].View())
		b.WriteString("\n")
	}

	b.WriteString("\n")
	switch {
	case m.login.busy:
		b.WriteString(styles.InfoText.Render("Contacting server..."))
	case m.login.err != "":
		b.WriteString(styles.DangerText.Render(m.login.err))
	default:
		other := "create an account"
		if m.login.register {
			other = "sign in"
		}
		b.WriteString(styles.FaintText.Render("enter to submit, ctrl+x to " + other))
	}
	return b.String()
}
