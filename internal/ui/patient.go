package ui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/sync/errgroup"

	"github.com/ClinicFlow2/frontend/internal/clinic"
)

// patientDetail is everything shown for one patient. Visits, prescriptions
// and files are fetched when the patient is opened, never polled.
type patientDetail struct {
	id            int64
	patient       clinic.Patient
	visits        []clinic.Visit
	prescriptions []clinic.Prescription
	files         []clinic.PatientFile
	loading       bool
	err           error
}

type patientDetailMsg struct {
	patientDetail
}

func fetchPatientDetailCmd(ctx context.Context, client API, id int64) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, requestTimeout)
		defer cancel()

		d := patientDetail{id: id}
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			p, err := client.GetPatient(gctx, id)
			d.patient = p
			return err
		})
		g.Go(func() error {
			visits, err := client.ListVisits(gctx, id)
			d.visits = visits
			return err
		})
		g.Go(func() error {
			page, err := client.ListPrescriptions(gctx, clinic.PrescriptionFilter{Patient: id})
			d.prescriptions = page.Results
			return err
		})
		g.Go(func() error {
			files, err := client.ListPatientFiles(gctx, id)
			d.files = files
			return err
		})
		d.err = g.Wait()
		return patientDetailMsg{patientDetail: d}
	}
}

func (m *Model) syncDetail() {
	m.detailViewport.SetContent(m.detailContent(m.detailViewport.Width))
	if m.detail.loading {
		m.detailViewport.GotoTop()
	}
}

func (m Model) renderPatientDetail() string {
	title := "Patient"
	if name := m.detail.patient.FullName(); strings.TrimSpace(name) != "" {
		title = name
	}
	if m.detail.loading {
		title += " (loading)"
	}
	return m.renderTitledBox(title, " "+strings.ReplaceAll(m.detailViewport.View(), "\n", "\n "), m.width, m.contentHeight(), true)
}

// detailContent renders the patient record as plain text blocks.
func (m Model) detailContent(width int) string {
	d := m.detail
	if d.id == 0 {
		return ""
	}
	styles := m.theme.Styles().WithBackground(m.theme.SurfaceAlt)
	var b strings.Builder

	section := func(title string) {
		b.WriteString("\n")
		b.WriteString(styles.AccentText.Bold(true).Render(title))
		b.WriteString("\n")
	}
	row := func(label, value string) {
		b.WriteString(styles.MutedText.Render(fmt.Sprintf("%-14s", label)))
		b.WriteString(styles.Text.Render(dash(value)))
		b.WriteString("\n")
	}

	p := d.patient
	row("Code", p.PatientCode)
	row("Born", clinic.FormatDOB(p.DateOfBirth))
	row("Sex", p.Sex)
	row("Phone", p.Phone)
	row("Address", oneLine(p.Address))
	row("Last visit", clinic.FormatDateLong(p.LastVisitDate))
	row("Next visit", clinic.FormatDateLong(p.NextVisitDate))

	if d.err != nil {
		b.WriteString("\n")
		b.WriteString(styles.DangerText.Render(truncate(describeError(d.err), max(width, 20))))
		b.WriteString("\n")
	}
	if d.loading {
		return b.String()
	}

	section(fmt.Sprintf("Visits (%d)", len(d.visits)))
	if len(d.visits) == 0 {
		b.WriteString(styles.FaintText.Render("No visits recorded"))
		b.WriteString("\n")
	}
	for _, v := range d.visits {
		head := clinic.FormatDateTime(v.VisitDate)
		if v.VisitType != "" {
			head += "  " + titleCase(v.VisitType)
		}
		b.WriteString(styles.Text.Bold(true).Render(head))
		b.WriteString("\n")
		if v.ChiefComplaint != "" {
			b.WriteString("  " + truncate(oneLine(v.ChiefComplaint), max(width-2, 10)) + "\n")
		}
		if v.Assessment != "" {
			b.WriteString(styles.MutedText.Render("  Assessment: ") + truncate(oneLine(v.Assessment), max(width-16, 10)) + "\n")
		}
		for _, vs := range v.VitalSigns {
			if line := vitalsLine(vs); line != "" {
				b.WriteString(styles.InfoText.Render("  " + line))
				b.WriteString("\n")
			}
		}
	}

	section(fmt.Sprintf("Prescriptions (%d)", len(d.prescriptions)))
	if len(d.prescriptions) == 0 {
		b.WriteString(styles.FaintText.Render("No prescriptions"))
		b.WriteString("\n")
	}
	for _, rx := range d.prescriptions {
		b.WriteString(styles.Text.Bold(true).Render(fmt.Sprintf("#%d  %s", rx.ID, clinic.FormatDateTime(rx.CreatedAt))))
		if rx.DoctorName != "" {
			b.WriteString(styles.MutedText.Render("  " + rx.DoctorName))
		}
		b.WriteString("\n")
		for _, item := range rx.Items {
			b.WriteString("  • " + truncate(item.Summary(), max(width-4, 10)) + "\n")
		}
	}

	section(fmt.Sprintf("Files (%d)", len(d.files)))
	if len(d.files) == 0 {
		b.WriteString(styles.FaintText.Render("No files"))
		b.WriteString("\n")
	}
	for _, f := range d.files {
		b.WriteString(fmt.Sprintf("%-12s %s", titleCase(f.Category), truncate(f.OriginalFilename, max(width-30, 10))))
		b.WriteString(styles.MutedText.Render(fmt.Sprintf("  %s  %s", formatBytes(f.FileSize), clinic.FormatDate(f.UploadedAt))))
		b.WriteString("\n")
	}

	return b.String()
}

func vitalsLine(v clinic.VitalSigns) string {
	var parts []string
	if bp := v.BloodPressure(); bp != "" && bp != "-" {
		parts = append(parts, "BP "+bp)
	}
	if v.HeartRateBPM != nil {
		parts = append(parts, fmt.Sprintf("HR %d", *v.HeartRateBPM))
	}
	if v.TemperatureC != nil {
		parts = append(parts, fmt.Sprintf("T %.1f°C", *v.TemperatureC))
	}
	if v.OxygenSaturationPct != nil {
		parts = append(parts, fmt.Sprintf("SpO2 %.0f%%", *v.OxygenSaturationPct))
	}
	if v.WeightKG != nil {
		parts = append(parts, fmt.Sprintf("%.1f kg", *v.WeightKG))
	}
	if v.HeightCM != nil {
		parts = append(parts, fmt.Sprintf("%.0f cm", *v.HeightCM))
	}
	return strings.Join(parts, " · ")
}
