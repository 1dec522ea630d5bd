package ui

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ClinicFlow2/frontend/internal/clinic"
	"github.com/ClinicFlow2/frontend/internal/prefs"
)

const (
	fieldUsername = iota
	fieldPassword
	fieldCount
)

// loginForm is the only editable form in the UI.
type loginForm struct {
	inputs     [fieldCount]textinput.Model
	focusIdx   int
	submitting bool
	err        string
}

var blinkCmd tea.Cmd = textinput.Blink

func newLoginForm(username string) loginForm {
	var f loginForm

	user := textinput.New()
	user.Prompt = "Username  "
	user.Placeholder = "username or email"
	user.CharLimit = 150
	user.SetValue(username)
	f.inputs[fieldUsername] = user

	pass := textinput.New()
	pass.Prompt = "Password  "
	pass.Placeholder = "password"
	pass.EchoMode = textinput.EchoPassword
	pass.EchoCharacter = '•'
	pass.CharLimit = 128
	f.inputs[fieldPassword] = pass

	return f
}

// initialField puts the cursor on the password when the username is
// remembered.
func (f loginForm) initialField() int {
	if strings.TrimSpace(f.inputs[fieldUsername].Value()) != "" {
		return fieldPassword
	}
	return fieldUsername
}

func (f *loginForm) focus(idx int) tea.Cmd {
	f.focusIdx = idx
	var cmd tea.Cmd
	for i := range f.inputs {
		if i == idx {
			cmd = f.inputs[i].Focus()
			continue
		}
		f.inputs[i].Blur()
	}
	return cmd
}

func (f *loginForm) reset(username string) {
	f.inputs[fieldUsername].SetValue(username)
	f.inputs[fieldPassword].Reset()
	f.submitting = false
	f.err = ""
}

func (f loginForm) credentials() (string, string) {
	return strings.TrimSpace(f.inputs[fieldUsername].Value()), f.inputs[fieldPassword].Value()
}

type loginResultMsg struct {
	username string
	identity clinic.Identity
	err      error
}

func loginCmd(ctx context.Context, client API, username, password string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, requestTimeout)
		defer cancel()

		if _, err := client.Login(ctx, username, password); err != nil {
			return loginResultMsg{username: username, err: err}
		}
		// Identity is display-only; a token without readable claims still
		// signs the user in.
		id, _ := client.Claims()
		return loginResultMsg{username: username, identity: id}
	}
}

func (m Model) handleLoginKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		return m, tea.Quit
	}
	if m.login.submitting {
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Submit):
		if m.login.focusIdx == fieldUsername {
			return m, m.login.focus(fieldPassword)
		}
		return m.submitLogin()
	case key.Matches(msg, m.keys.NextField):
		return m, m.login.focus((m.login.focusIdx + 1) % fieldCount)
	case key.Matches(msg, m.keys.PrevField):
		return m, m.login.focus((m.login.focusIdx + fieldCount - 1) % fieldCount)
	}

	var cmd tea.Cmd
	idx := m.login.focusIdx
	m.login.inputs[idx], cmd = m.login.inputs[idx].Update(msg)
	return m, cmd
}

func (m Model) submitLogin() (tea.Model, tea.Cmd) {
	username, password := m.login.credentials()
	switch {
	case username == "":
		m.login.err = "Username is required."
		return m, m.login.focus(fieldUsername)
	case password == "":
		m.login.err = "Password is required."
		return m, m.login.focus(fieldPassword)
	}
	m.login.err = ""
	m.login.submitting = true
	return m, loginCmd(m.ctx, m.client, username, password)
}

func (m Model) handleLoginResult(msg loginResultMsg) (tea.Model, tea.Cmd) {
	m.login.submitting = false
	if msg.err != nil {
		m.log.Info().Err(msg.err).Str("username", msg.username).Msg("sign in rejected")
		m.login.err = loginFailure(msg.err)
		m.login.inputs[fieldPassword].Reset()
		return m, m.login.focus(fieldPassword)
	}

	m.log.Info().Str("username", msg.username).Msg("signed in")
	m.notice = ""
	m.login.inputs[fieldPassword].Reset()
	if m.store != nil {
		m.store.Reset()
	}
	m.snapshot.Identity = msg.identity
	m.snapshot.IdentityKnown = msg.identity.Username != "" || msg.identity.UserID != ""

	if m.prefs.Username != msg.username {
		m.prefs.Username = msg.username
		if err := prefs.Save(m.prefsPath, m.prefs); err != nil {
			m.log.Warn().Err(err).Msg("save preferences failed")
		}
	}

	m.refresh()
	return m.navigate(ViewPatients)
}

// loginFailure turns a login error into the line shown under the form.
func loginFailure(err error) string {
	if clinic.IsUnauthorized(err) || clinic.StatusCode(err) == http.StatusBadRequest {
		var apiErr *clinic.APIError
		if errors.As(err, &apiErr) {
			if detail := apiErr.Detail(); detail != "" {
				return detail
			}
		}
		return "Invalid username or password."
	}
	return describeError(err)
}

func (m Model) renderLogin() string {
	styles := m.theme.Styles()
	height := m.contentHeight()

	var b strings.Builder
	b.WriteString(styles.Logo.Render("ClinicFlow"))
	b.WriteString("\n")
	b.WriteString(styles.MutedText.Render("Sign in to continue"))
	b.WriteString("\n\n")

	if m.notice != "" {
		b.WriteString(styles.WarningText.Render(m.notice))
		b.WriteString("\n\n")
	}

	for i := range m.login.inputs {
		input := m.login.inputs[i]
		input.PromptStyle = styles.MutedText
		input.TextStyle = styles.Text
		if i == m.login.focusIdx {
			input.PromptStyle = styles.AccentText
		}
		b.WriteString(input.View())
		b.WriteString("\n")
	}
	b.WriteString("\n")

	switch {
	case m.login.submitting:
		b.WriteString(styles.InfoText.Render("Signing in..."))
	case m.login.err != "":
		b.WriteString(styles.DangerText.Render(m.login.err))
	default:
		b.WriteString(styles.FaintText.Render("enter: sign in  •  tab: next field  •  ctrl+c: quit"))
	}

	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(m.theme.BorderFocus)).
		Padding(1, 3).
		Width(min(60, max(m.width-4, 30))).
		Render(b.String())

	return lipgloss.Place(m.width, height, lipgloss.Center, lipgloss.Center, box)
}
