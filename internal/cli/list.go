package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/ClinicFlow2/frontend/internal/app"
	"github.com/ClinicFlow2/frontend/internal/clinic"
)

var headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
var cellStyle = lipgloss.NewStyle().Padding(0, 1)

func renderTable(w io.Writer, headers []string, rows [][]string) {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	printf(w, "%s\n", t.String())
}

func newPatientsCommand(g *globalFlags) *cobra.Command {
	var opts clinic.ListOptions

	cmd := &cobra.Command{
		Use:   "patients",
		Short: "List patients",
		Long: `List patients, one page at a time.

Examples:
  clinicflow patients
  clinicflow patients --search smith --page-size 50`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withEnv(func(env *app.Env) error {
				if opts.PageSize <= 0 {
					opts.PageSize = env.Prefs.PageSize
				}
				page, err := env.Client.ListPatients(cmd.Context(), opts)
				if err != nil {
					return fmt.Errorf("list patients: %w", err)
				}

				out := cmd.OutOrStdout()
				if len(page.Results) == 0 {
					printf(out, "No patients found.\n")
					return nil
				}
				rows := make([][]string, 0, len(page.Results))
				for _, p := range page.Results {
					rows = append(rows, []string{
						strconv.FormatInt(p.ID, 10),
						orDash(p.PatientCode),
						p.FullName(),
						clinic.FormatDOB(p.DateOfBirth),
						orDash(p.Phone),
						clinic.FormatDate(p.NextVisitDate),
					})
				}
				renderTable(out, []string{"ID", "Code", "Name", "Born", "Phone", "Next visit"}, rows)

				current := max(opts.Page, 1)
				printf(out, "%d patients, page %d", page.Count, current)
				if page.HasNext() {
					printf(out, " (next: --page %d)", current+1)
				}
				printf(out, "\n")
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&opts.Search, "search", "s", "", "filter by name, code or phone")
	cmd.Flags().IntVar(&opts.Page, "page", 1, "page number")
	cmd.Flags().IntVar(&opts.PageSize, "page-size", 0, "results per page (default from preferences)")
	return cmd
}

func newAppointmentsCommand(g *globalFlags) *cobra.Command {
	var filter clinic.AppointmentFilter

	cmd := &cobra.Command{
		Use:   "appointments",
		Short: "List appointments",
		Long: `List appointments, upcoming ones by default.

Statuses: ` + strings.Join(clinic.AppointmentStatuses, ", ") + `

Examples:
  clinicflow appointments
  clinicflow appointments --upcoming=false --status COMPLETED
  clinicflow appointments --patient 42`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter.Status = strings.ToUpper(strings.TrimSpace(filter.Status))
			if filter.Status != "" && !validStatus(filter.Status) {
				return fmt.Errorf("unknown status %q (want one of %s)", filter.Status, strings.Join(clinic.AppointmentStatuses, ", "))
			}
			return g.withEnv(func(env *app.Env) error {
				if filter.PageSize <= 0 {
					filter.PageSize = env.Prefs.PageSize
				}
				page, err := env.Client.ListAppointments(cmd.Context(), filter)
				if err != nil {
					return fmt.Errorf("list appointments: %w", err)
				}

				out := cmd.OutOrStdout()
				if len(page.Results) == 0 {
					printf(out, "No appointments found.\n")
					return nil
				}
				rows := make([][]string, 0, len(page.Results))
				for _, a := range page.Results {
					rows = append(rows, []string{
						strconv.FormatInt(a.ID, 10),
						clinic.FormatDateTime(a.ScheduledAt),
						a.Patient.Name(),
						a.DoctorName(),
						clinic.StatusLabel(a.Status),
						orDash(a.Reason),
					})
				}
				renderTable(out, []string{"ID", "When", "Patient", "Doctor", "Status", "Reason"}, rows)
				printf(out, "%d appointments\n", max(page.Count, len(page.Results)))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&filter.Upcoming, "upcoming", true, "only appointments from now on")
	cmd.Flags().StringVar(&filter.Status, "status", "", "filter by status")
	cmd.Flags().Int64Var(&filter.Patient, "patient", 0, "filter by patient id")
	cmd.Flags().IntVar(&filter.Page, "page", 1, "page number")
	cmd.Flags().IntVar(&filter.PageSize, "page-size", 0, "results per page (default from preferences)")
	return cmd
}

func validStatus(s string) bool {
	for _, status := range clinic.AppointmentStatuses {
		if s == status {
			return true
		}
	}
	return false
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
