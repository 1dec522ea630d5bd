package ui

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ClinicFlow2/frontend/internal/clinic"
)

func newTable(cols []table.Column) table.Model {
	return table.New(
		table.WithColumns(cols),
		table.WithFocused(true),
		table.WithHeight(10),
	)
}

// columnWidths splits width across weights, giving any remainder to the
// last column.
func columnWidths(width int, weights ...int) []int {
	total := 0
	for _, w := range weights {
		total += w
	}
	// Each cell carries one column of padding on either side.
	usable := max(width-2*len(weights), len(weights))
	out := make([]int, len(weights))
	used := 0
	for i, w := range weights {
		out[i] = max(usable*w/total, 1)
		used += out[i]
	}
	out[len(out)-1] += max(usable-used, 0)
	return out
}

func patientColumns(width int) []table.Column {
	w := columnWidths(width, 2, 5, 3, 3, 3, 3)
	return []table.Column{
		{Title: "Code", Width: w[0]},
		{Title: "Name", Width: w[1]},
		{Title: "Born", Width: w[2]},
		{Title: "Phone", Width: w[3]},
		{Title: "Last visit", Width: w[4]},
		{Title: "Next visit", Width: w[5]},
	}
}

func appointmentColumns(width int) []table.Column {
	w := columnWidths(width, 4, 5, 4, 3, 6)
	return []table.Column{
		{Title: "When", Width: w[0]},
		{Title: "Patient", Width: w[1]},
		{Title: "Doctor", Width: w[2]},
		{Title: "Status", Width: w[3]},
		{Title: "Reason", Width: w[4]},
	}
}

func prescriptionColumns(width int) []table.Column {
	w := columnWidths(width, 1, 3, 4, 2, 8)
	return []table.Column{
		{Title: "#", Width: w[0]},
		{Title: "Date", Width: w[1]},
		{Title: "Doctor", Width: w[2]},
		{Title: "Items", Width: w[3]},
		{Title: "Notes", Width: w[4]},
	}
}

func updateTable(t table.Model, msg tea.KeyMsg, keys keyMap) (table.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Top):
		t.GotoTop()
		return t, nil
	case key.Matches(msg, keys.Bottom):
		t.GotoBottom()
		return t, nil
	}
	return t.Update(msg)
}

func (m *Model) syncPatients() {
	rows := make([]table.Row, 0, len(m.patientList))
	for _, p := range m.patientList {
		rows = append(rows, table.Row{
			dash(p.PatientCode),
			p.FullName(),
			clinic.FormatDOB(p.DateOfBirth),
			dash(p.Phone),
			clinic.FormatDate(p.LastVisitDate),
			clinic.FormatDate(p.NextVisitDate),
		})
	}
	setRows(&m.patients, rows)
}

func (m *Model) syncAppointments() {
	rows := make([]table.Row, 0, len(m.snapshot.Appointments))
	for _, a := range m.snapshot.Appointments {
		rows = append(rows, table.Row{
			clinic.FormatDateTime(a.ScheduledAt),
			a.Patient.Name(),
			a.DoctorName(),
			clinic.StatusLabel(a.Status),
			dash(oneLine(a.Reason)),
		})
	}
	setRows(&m.appointments, rows)
}

func (m *Model) syncPrescriptions() {
	rows := make([]table.Row, 0, len(m.rxList))
	for _, rx := range m.rxList {
		items := rx.ItemsCount
		if items == 0 {
			items = len(rx.Items)
		}
		rows = append(rows, table.Row{
			strconv.FormatInt(rx.ID, 10),
			clinic.FormatDateTime(rx.CreatedAt),
			dash(rx.DoctorName),
			strconv.Itoa(items),
			dash(oneLine(rx.Notes)),
		})
	}
	setRows(&m.prescriptions, rows)
}

// setRows replaces the rows and keeps the cursor in range.
func setRows(t *table.Model, rows []table.Row) {
	t.SetRows(rows)
	switch {
	case len(rows) == 0:
		t.SetCursor(0)
	case t.Cursor() >= len(rows):
		t.SetCursor(len(rows) - 1)
	}
}

func (m Model) selectedPatient() (clinic.Patient, bool) {
	idx := m.patients.Cursor()
	if idx < 0 || idx >= len(m.patientList) {
		return clinic.Patient{}, false
	}
	return m.patientList[idx], true
}

func (m Model) renderPatients() string {
	title := fmt.Sprintf("Patients (%d)", m.patientCount)
	if pages := m.patientPages(); pages > 1 {
		title = fmt.Sprintf("Patients (%d) page %d/%d", m.patientCount, m.patientPage, pages)
	}
	if len(m.patientList) == 0 {
		return m.renderEmptyBox(title, m.emptyMessage("No patients"))
	}
	return m.renderTitledBox(title, m.patients.View(), m.width, m.contentHeight(), true)
}

func (m Model) patientPages() int {
	size := max(m.prefs.PageSize, 1)
	return (m.patientCount + size - 1) / size
}

func (m Model) renderAppointments() string {
	title := fmt.Sprintf("Upcoming appointments (%d)", len(m.snapshot.Appointments))
	if len(m.snapshot.Appointments) == 0 {
		return m.renderEmptyBox(title, m.emptyMessage("No upcoming appointments"))
	}
	return m.renderTitledBox(title, m.appointments.View(), m.width, m.contentHeight(), true)
}

func (m Model) renderPrescriptions() string {
	title := fmt.Sprintf("Prescriptions (%d) · %d templates", m.rxCount, m.templateCount)
	if len(m.rxList) == 0 {
		return m.renderEmptyBox(title, m.emptyMessage("No prescriptions"))
	}
	return m.renderTitledBox(title, m.prescriptions.View(), m.width, m.contentHeight(), true)
}

func (m Model) emptyMessage(fallback string) string {
	if !m.snapshot.HasData && m.snapshot.LastError == nil && m.errorMsg == "" {
		return "Loading..."
	}
	return fallback
}

func (m Model) renderEmptyBox(title, message string) string {
	bg := NewBgStyle(m.theme.SurfaceAlt)
	styles := m.theme.Styles()
	innerHeight := max(m.contentHeight()-2, 1)
	body := lipgloss.Place(
		max(m.width-2, 1), innerHeight,
		lipgloss.Center, lipgloss.Center,
		bg.Render(message, styles.MutedText),
		lipgloss.WithWhitespaceBackground(lipgloss.Color(m.theme.SurfaceAlt)),
	)
	return m.renderTitledBox(title, body, m.width, m.contentHeight(), false)
}

// renderTitledBox draws a bordered pane with the title embedded in the top
// border.
func (m Model) renderTitledBox(title, content string, width, height int, focused bool) string {
	borderColor := m.theme.Border
	bgColor := m.theme.SurfaceAlt
	if focused {
		borderColor = m.theme.BorderFocus
	}
	bg := NewBgStyle(bgColor)
	borderStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(borderColor))
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(m.theme.Text))

	innerWidth := max(width-2, 1)
	title = truncate(title, max(innerWidth-4, 1))
	titleLen := lipgloss.Width(title)
	leftPad := max((innerWidth-titleLen-2)/2, 0)
	rightPad := max(innerWidth-titleLen-2-leftPad, 0)

	top := bg.Render("┌", borderStyle) +
		bg.Render(strings.Repeat("─", leftPad), borderStyle) +
		bg.Render(" "+title+" ", titleStyle) +
		bg.Render(strings.Repeat("─", rightPad), borderStyle) +
		bg.Render("┐", borderStyle)

	bottom := bg.Render("└", borderStyle) +
		bg.Render(strings.Repeat("─", innerWidth), borderStyle) +
		bg.Render("┘", borderStyle)

	lineStyle := lipgloss.NewStyle().Width(innerWidth).MaxWidth(innerWidth).Background(lipgloss.Color(bgColor))
	side := bg.Render("│", borderStyle)

	lines := strings.Split(content, "\n")
	boxHeight := max(height-2, 0)
	rows := make([]string, 0, height)
	rows = append(rows, top)
	for i := 0; i < boxHeight; i++ {
		var line string
		if i < len(lines) {
			line = lines[i]
		}
		rows = append(rows, side+lineStyle.Render(line)+side)
	}
	rows = append(rows, bottom)
	return strings.Join(rows, "\n")
}

type patientsPageMsg struct {
	page   int
	result clinic.Page[clinic.Patient]
	err    error
}

func fetchPatientsCmd(ctx context.Context, client API, page, pageSize int) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, requestTimeout)
		defer cancel()
		result, err := client.ListPatients(ctx, clinic.ListOptions{Page: page, PageSize: pageSize})
		return patientsPageMsg{page: page, result: result, err: err}
	}
}

type prescriptionsMsg struct {
	items     []clinic.Prescription
	count     int
	templates int
	err       error
}

func fetchPrescriptionsCmd(ctx context.Context, client API, pageSize int) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, requestTimeout)
		defer cancel()

		page, err := client.ListPrescriptions(ctx, clinic.PrescriptionFilter{
			ListOptions: clinic.ListOptions{PageSize: pageSize},
		})
		if err != nil {
			return prescriptionsMsg{err: err}
		}
		templates, err := client.ListPrescriptionTemplates(ctx)
		if err != nil {
			return prescriptionsMsg{err: err}
		}
		return prescriptionsMsg{items: page.Results, count: max(page.Count, len(page.Results)), templates: len(templates)}
	}
}
