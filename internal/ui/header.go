package ui

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// renderHeader renders the status bar.
func (m Model) renderHeader() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)

	content := m.buildStatusContent(styles, bg, time.Now())

	return lipgloss.NewStyle().
		Background(lipgloss.Color(m.theme.Surface)).
		Foreground(lipgloss.Color(m.theme.Text)).
		Width(m.width).
		MaxHeight(1).
		Render(content)
}

// buildStatusContent builds the status bar content string.
func (m Model) buildStatusContent(styles Styles, bg BgStyle, now time.Time) string {
	compact := m.width < 100
	sep := bg.Spaces(2)

	parts := []string{bg.Render("clinicflow", styles.Logo)}

	if host := hostOf(m.baseURL); host != "" && !compact {
		parts = append(parts, bg.Render(host, styles.FaintText))
	}

	if m.currentView == ViewLogin {
		parts = append(parts, bg.Render("● signed out", styles.WarningText))
		return bg.Join(parts, "  ")
	}

	// Signed-in user and token expiry
	snap := m.snapshot
	if snap.IdentityKnown {
		user := snap.Identity.Username
		if user == "" {
			user = "#" + snap.Identity.UserID
		}
		parts = append(parts, bg.Render("● "+user, styles.SuccessText))
		if exp := formatExpiry(snap.Identity.ExpiresAt, now); exp != "" {
			style := styles.MutedText
			if snap.Identity.Expired(now) {
				style = styles.WarningText
			}
			parts = append(parts, bg.Render("token", styles.FaintText)+bg.Space()+bg.Render(exp, style))
		}
	} else {
		parts = append(parts, bg.Render("● signed in", styles.SuccessText))
	}

	if snap.HasData {
		parts = append(parts,
			bg.Render("Patients:", styles.MutedText)+bg.Space()+
				bg.Render(fmt.Sprintf("%d", snap.PatientCount), styles.Text)+
				sep+bg.Render("•", styles.FaintText)+sep+
				bg.Render("Upcoming:", styles.MutedText)+bg.Space()+
				bg.Render(fmt.Sprintf("%d", len(snap.Appointments)), styles.Text),
		)
	}

	if ts := formatTimestamp(m.lastUpdated, now); ts != "" {
		parts = append(parts, bg.Render(ts, styles.MutedText))
	}

	if snap.IsOffline() {
		parts = append(parts, bg.Render(classifyConnectionError(snap.LastError), styles.DangerText.Bold(true))+
			bg.Space()+bg.Render("Retrying...", styles.WarningText))
	} else if snap.LastError != nil {
		maxErr := 80
		if compact {
			maxErr = 40
		}
		parts = append(parts,
			bg.Render("ERROR", styles.DangerText.Bold(true))+bg.Space()+
				bg.Render(truncate(describeError(snap.LastError), maxErr), styles.DangerText),
		)
	}

	if m.errorMsg != "" {
		parts = append(parts,
			bg.Render("!", styles.WarningText.Bold(true))+bg.Space()+
				bg.Render(truncate(m.errorMsg, 60), styles.WarningText),
		)
	}

	return bg.Join(parts, "  ")
}

// renderCommandBar renders the key hints for the current view.
func (m Model) renderCommandBar() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)

	type cmd struct{ key, desc string }
	var commands []cmd

	switch m.currentView {
	case ViewLogin:
		commands = []cmd{
			{"enter", "Sign in"},
			{"tab", "Next field"},
			{"ctrl+c", "Quit"},
		}
	case ViewPatients:
		commands = []cmd{
			{"j/k", "Navigate"},
			{"enter", "Open"},
			{"[/]", "Page"},
			{"a", "Appointments"},
			{"x", "Prescriptions"},
			{"r", "Refresh"},
			{"?", "More"},
		}
	case ViewPatient:
		commands = []cmd{
			{"j/k", "Scroll"},
			{"esc", "Back"},
			{"r", "Reload"},
			{"?", "More"},
		}
	default:
		commands = []cmd{
			{"j/k", "Navigate"},
			{"p", "Patients"},
			{"a", "Appointments"},
			{"x", "Prescriptions"},
			{"r", "Refresh"},
			{"?", "More"},
		}
	}

	colon := bg.Sep(":")
	segments := make([]string, 0, len(commands)+1)
	for _, c := range commands {
		segments = append(segments,
			bg.Render(c.key, styles.AccentText)+colon+bg.Render(c.desc, styles.MutedText))
	}
	segments = append(segments,
		bg.Render("T", styles.AccentText)+colon+bg.Render(m.theme.Name, styles.FaintText))

	return styles.Header.Width(m.width).MaxHeight(1).Render(strings.Join(segments, bg.Spaces(2)))
}

// formatTimestamp formats the last update time with a relative indicator.
func formatTimestamp(t, now time.Time) string {
	if t.IsZero() {
		return ""
	}
	since := now.Sub(t)
	out := t.Format("15:04:05")
	switch {
	case since < time.Minute:
		out += " (now)"
	case since < time.Hour:
		out += fmt.Sprintf(" (%dm ago)", int(since.Minutes()))
	case since < 24*time.Hour:
		out += fmt.Sprintf(" (%dh ago)", int(since.Hours()))
	}
	return out
}

// formatExpiry describes when the access token expires. An expired token is
// not an error here: the next request refreshes it.
func formatExpiry(exp, now time.Time) string {
	if exp.IsZero() {
		return ""
	}
	if !now.Before(exp) {
		return "expired, renews on next request"
	}
	return "expires in " + humanizeDuration(exp.Sub(now))
}

// classifyConnectionError returns a short label for a poll failure.
func classifyConnectionError(err error) string {
	if err == nil {
		return "OFFLINE"
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "connection refused"):
		return "OFFLINE"
	case strings.Contains(msg, "no such host"):
		return "HOST NOT FOUND"
	case strings.Contains(msg, "timeout"), strings.Contains(msg, "deadline exceeded"):
		return "TIMEOUT"
	default:
		return "UNREACHABLE"
	}
}

func hostOf(baseURL string) string {
	u, err := url.Parse(baseURL)
	if err != nil {
		return ""
	}
	return u.Host
}
