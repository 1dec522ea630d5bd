package ui

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/ClinicFlow2/frontend/internal/clinic"
	"github.com/ClinicFlow2/frontend/internal/prefs"
	"github.com/ClinicFlow2/frontend/internal/state"
)

// View represents the current active view.
type View int

const (
	ViewLogin View = iota
	ViewPatients
	ViewAppointments
	ViewPrescriptions
	ViewPatient
)

func (v View) String() string {
	switch v {
	case ViewLogin:
		return "Sign in"
	case ViewPatients:
		return "Patients"
	case ViewAppointments:
		return "Appointments"
	case ViewPrescriptions:
		return "Prescriptions"
	case ViewPatient:
		return "Patient"
	default:
		return "Unknown"
	}
}

// tabOrder is the cycle for tab and shift+tab.
var tabOrder = []View{ViewPatients, ViewAppointments, ViewPrescriptions}

const (
	requestTimeout = 20 * time.Second
	expiredNotice  = "Your session has expired. Please sign in again."
	signedOutNote  = "Signed out."
)

// API is the part of the clinic client the UI drives.
type API interface {
	Authenticator
	Login(ctx context.Context, identifier, secret string) (*clinic.LoginResponse, error)
	Logout() error
	Claims() (clinic.Identity, error)
	ListPatients(ctx context.Context, opts clinic.ListOptions) (clinic.Page[clinic.Patient], error)
	GetPatient(ctx context.Context, id int64) (clinic.Patient, error)
	ListAppointments(ctx context.Context, filter clinic.AppointmentFilter) (clinic.Page[clinic.Appointment], error)
	ListPrescriptions(ctx context.Context, filter clinic.PrescriptionFilter) (clinic.Page[clinic.Prescription], error)
	ListPrescriptionTemplates(ctx context.Context) ([]clinic.PrescriptionTemplate, error)
	ListVisits(ctx context.Context, patientID int64) ([]clinic.Visit, error)
	ListPatientFiles(ctx context.Context, patientID int64) ([]clinic.PatientFile, error)
}

var _ API = (*clinic.Client)(nil)

// Options configures the UI.
type Options struct {
	Context   context.Context
	Client    API
	Store     *state.Store
	Refresh   func() // asks the poller for an immediate round
	PollTick  time.Duration
	Prefs     prefs.Prefs
	PrefsPath string
	BaseURL   string
	Log       zerolog.Logger
}

// Model is the root application state for Bubble Tea.
type Model struct {
	// Configuration
	ctx       context.Context
	client    API
	store     *state.Store
	refresh   func()
	prefs     prefs.Prefs
	prefsPath string
	pollTick  time.Duration
	baseURL   string
	log       zerolog.Logger
	keys      keyMap

	// UI state
	theme       Theme
	currentView View
	width       int
	height      int
	ready       bool
	showHelp    bool
	help        help.Model

	// notice is shown on the login view (expired session, sign-out).
	notice string
	// errorMsg holds the last on-demand fetch failure.
	errorMsg string

	// Data state
	snapshot    state.Snapshot
	lastUpdated time.Time

	login loginForm

	patients      table.Model
	patientList   []clinic.Patient
	patientCount  int
	patientPage   int
	appointments  table.Model
	prescriptions table.Model
	rxList        []clinic.Prescription
	rxCount       int
	templateCount int

	detail         patientDetail
	detailViewport viewport.Model
}

// New creates a new Bubble Tea model.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}

	pollTick := opts.PollTick
	if pollTick == 0 {
		pollTick = time.Second
	}

	p := opts.Prefs
	if p.Theme == "" {
		p = prefs.Defaults()
	}

	prefsPath := opts.PrefsPath
	if prefsPath == "" {
		prefsPath = prefs.DefaultPath()
	}

	refresh := opts.Refresh
	if refresh == nil {
		refresh = func() {}
	}

	m := Model{
		ctx:         ctx,
		client:      opts.Client,
		store:       opts.Store,
		refresh:     refresh,
		prefs:       p,
		prefsPath:   prefsPath,
		pollTick:    pollTick,
		baseURL:     opts.BaseURL,
		log:         opts.Log,
		keys:        DefaultKeyMap(),
		theme:       GetTheme(p.Theme),
		help:        help.New(),
		login:       newLoginForm(p.Username),
		patientPage: 1,
	}
	m.patients = newTable(patientColumns(80))
	m.appointments = newTable(appointmentColumns(80))
	m.prescriptions = newTable(prescriptionColumns(80))
	m.detailViewport = viewport.New(80, 20)
	m.applyTheme()
	m.currentView = guard(m.client, ViewPatients)
	if m.currentView == ViewLogin {
		m.login.focus(m.login.initialField())
	}
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{tickCmd(m.pollTick)}
	if m.store != nil {
		cmds = append(cmds, fetchSnapshotCmd(m.store))
	}
	if m.currentView == ViewLogin {
		cmds = append(cmds, blinkCmd)
	}
	return tea.Batch(cmds...)
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
		m.resize()
		return m, nil

	case tickMsg:
		return m.handleTick()

	case snapshotMsg:
		return m.handleSnapshot(state.Snapshot(msg))

	case loginResultMsg:
		return m.handleLoginResult(msg)

	case patientsPageMsg:
		if m.sessionLost(msg.err) {
			return m.expire()
		}
		if msg.err != nil {
			m.errorMsg = describeError(msg.err)
			return m, nil
		}
		m.errorMsg = ""
		m.patientPage = msg.page
		m.patientList = msg.result.Results
		m.patientCount = msg.result.Count
		m.syncPatients()
		return m, nil

	case prescriptionsMsg:
		if m.sessionLost(msg.err) {
			return m.expire()
		}
		if msg.err != nil {
			m.errorMsg = describeError(msg.err)
			return m, nil
		}
		m.errorMsg = ""
		m.rxList = msg.items
		m.rxCount = msg.count
		m.templateCount = msg.templates
		m.syncPrescriptions()
		return m, nil

	case patientDetailMsg:
		if msg.id != m.detail.id {
			return m, nil // stale response for a patient no longer shown
		}
		if m.sessionLost(msg.err) {
			return m.expire()
		}
		d := msg.patientDetail
		if d.patient.ID == 0 {
			d.patient = m.detail.patient
		}
		m.detail = d
		m.detail.loading = false
		m.syncDetail()
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

// handleKey processes keyboard input.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.showHelp {
		m.showHelp = false
		return m, nil
	}

	if m.currentView == ViewLogin {
		return m.handleLoginKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		return m, nil
	case key.Matches(msg, m.keys.CycleTheme):
		m.cycleTheme()
		return m, nil
	case key.Matches(msg, m.keys.Logout):
		return m.signOut()
	case key.Matches(msg, m.keys.Refresh):
		return m.reload()
	case key.Matches(msg, m.keys.Tab):
		return m.navigate(m.cycleView(1))
	case key.Matches(msg, m.keys.ShiftTab):
		return m.navigate(m.cycleView(-1))
	case key.Matches(msg, m.keys.ViewPatients):
		return m.navigate(ViewPatients)
	case key.Matches(msg, m.keys.ViewAppointments):
		return m.navigate(ViewAppointments)
	case key.Matches(msg, m.keys.ViewPrescriptions):
		return m.navigate(ViewPrescriptions)
	case key.Matches(msg, m.keys.Escape):
		if m.currentView == ViewPatient {
			return m.navigate(ViewPatients)
		}
		return m, nil
	}

	switch m.currentView {
	case ViewPatients:
		return m.handlePatientsKey(msg)
	case ViewAppointments:
		var cmd tea.Cmd
		m.appointments, cmd = updateTable(m.appointments, msg, m.keys)
		return m, cmd
	case ViewPrescriptions:
		var cmd tea.Cmd
		m.prescriptions, cmd = updateTable(m.prescriptions, msg, m.keys)
		return m, cmd
	case ViewPatient:
		var cmd tea.Cmd
		m.detailViewport, cmd = m.detailViewport.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) handlePatientsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Open):
		p, ok := m.selectedPatient()
		if !ok {
			return m, nil
		}
		return m.openPatient(p)
	case key.Matches(msg, m.keys.NextPage):
		if m.patientPage*m.prefs.PageSize >= m.patientCount {
			return m, nil
		}
		return m, fetchPatientsCmd(m.ctx, m.client, m.patientPage+1, m.prefs.PageSize)
	case key.Matches(msg, m.keys.PrevPage):
		if m.patientPage <= 1 {
			return m, nil
		}
		return m, fetchPatientsCmd(m.ctx, m.client, m.patientPage-1, m.prefs.PageSize)
	}
	var cmd tea.Cmd
	m.patients, cmd = updateTable(m.patients, msg, m.keys)
	return m, cmd
}

// navigate switches views through the route guard and starts any on-demand
// fetch the target view needs.
func (m Model) navigate(requested View) (tea.Model, tea.Cmd) {
	target := guard(m.client, requested)
	m.currentView = target
	m.errorMsg = ""

	switch target {
	case ViewLogin:
		m.login.reset(m.prefs.Username)
		m.login.focus(m.login.initialField())
		return m, blinkCmd
	case ViewPrescriptions:
		return m, fetchPrescriptionsCmd(m.ctx, m.client, m.prefs.PageSize)
	}
	return m, nil
}

// cycleView returns the view step positions away in the tab cycle. The
// patient detail view counts as the patient list.
func (m Model) cycleView(step int) View {
	current := m.currentView
	if current == ViewPatient {
		current = ViewPatients
	}
	for i, v := range tabOrder {
		if v == current {
			n := len(tabOrder)
			return tabOrder[((i+step)%n+n)%n]
		}
	}
	return tabOrder[0]
}

func (m Model) openPatient(p clinic.Patient) (tea.Model, tea.Cmd) {
	next, cmd := m.navigate(ViewPatient)
	m = next.(Model)
	if m.currentView != ViewPatient {
		return m, cmd
	}
	m.detail = patientDetail{id: p.ID, patient: p, loading: true}
	m.syncDetail()
	return m, fetchPatientDetailCmd(m.ctx, m.client, p.ID)
}

func (m Model) reload() (tea.Model, tea.Cmd) {
	m.refresh()
	switch m.currentView {
	case ViewPatients:
		if m.patientPage > 1 {
			return m, fetchPatientsCmd(m.ctx, m.client, m.patientPage, m.prefs.PageSize)
		}
	case ViewPrescriptions:
		return m, fetchPrescriptionsCmd(m.ctx, m.client, m.prefs.PageSize)
	case ViewPatient:
		m.detail.loading = true
		return m, fetchPatientDetailCmd(m.ctx, m.client, m.detail.id)
	}
	return m, nil
}

func (m Model) signOut() (tea.Model, tea.Cmd) {
	if err := m.client.Logout(); err != nil {
		m.log.Warn().Err(err).Msg("sign out failed")
		m.errorMsg = describeError(err)
		return m, nil
	}
	m.log.Info().Msg("signed out")
	m.clearData()
	m.notice = signedOutNote
	return m.navigate(ViewLogin)
}

// expire drops every piece of clinical data and shows the login view.
func (m Model) expire() (tea.Model, tea.Cmd) {
	m.clearData()
	m.notice = expiredNotice
	return m.navigate(ViewLogin)
}

func (m *Model) clearData() {
	if m.store != nil {
		m.store.Reset()
	}
	m.snapshot = state.Snapshot{}
	m.patientList = nil
	m.patientCount = 0
	m.patientPage = 1
	m.rxList = nil
	m.rxCount = 0
	m.templateCount = 0
	m.detail = patientDetail{}
	m.syncPatients()
	m.syncAppointments()
	m.syncPrescriptions()
	m.syncDetail()
}

// sessionLost reports whether err ended the session, either because the
// refresh failed or because the store no longer holds a token.
func (m Model) sessionLost(err error) bool {
	if err != nil && errors.Is(err, clinic.ErrSessionExpired) {
		return true
	}
	return m.currentView != ViewLogin && guard(m.client, m.currentView) == ViewLogin
}

func (m *Model) cycleTheme() {
	m.theme = GetTheme(NextTheme(m.theme.Name))
	m.prefs.Theme = m.theme.Name
	m.applyTheme()
	if m.prefsPath != "" {
		if err := prefs.Save(m.prefsPath, m.prefs); err != nil {
			m.log.Warn().Err(err).Msg("save preferences failed")
		}
	}
}

func (m *Model) applyTheme() {
	styles := m.theme.TableStyles(m.theme.SurfaceAlt)
	m.patients.SetStyles(styles)
	m.appointments.SetStyles(styles)
	m.prescriptions.SetStyles(styles)
	m.help.Styles.ShortKey = m.theme.Styles().AccentText
	m.help.Styles.FullKey = m.theme.Styles().AccentText
	m.help.Styles.FullDesc = m.theme.Styles().Text
	m.help.Styles.ShortDesc = m.theme.Styles().MutedText
}

// handleTick processes the polling tick.
func (m Model) handleTick() (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	if m.store != nil {
		cmds = append(cmds, fetchSnapshotCmd(m.store))
	}
	cmds = append(cmds, tickCmd(m.pollTick))
	return m, tea.Batch(cmds...)
}

func (m Model) handleSnapshot(snap state.Snapshot) (tea.Model, tea.Cmd) {
	if m.currentView != ViewLogin && (snap.SessionExpired || guard(m.client, m.currentView) == ViewLogin) {
		m.log.Debug().Msg("session expired; switching to sign-in")
		return m.expire()
	}
	m.snapshot = snap
	if !snap.LastUpdated.IsZero() {
		m.lastUpdated = snap.LastUpdated
	}
	if m.patientPage == 1 && snap.HasData {
		m.patientList = snap.Patients
		m.patientCount = snap.PatientCount
	}
	m.syncPatients()
	m.syncAppointments()
	return m, nil
}

// renderMain renders the full UI.
func (m Model) renderMain() string {
	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.renderCommandBar())
	b.WriteString("\n")
	b.WriteString(m.renderContent())
	return b.String()
}

// renderContent renders the main content area based on current view.
func (m Model) renderContent() string {
	switch m.currentView {
	case ViewLogin:
		return m.renderLogin()
	case ViewPatients:
		return m.renderPatients()
	case ViewAppointments:
		return m.renderAppointments()
	case ViewPrescriptions:
		return m.renderPrescriptions()
	case ViewPatient:
		return m.renderPatientDetail()
	default:
		return ""
	}
}

func (m *Model) resize() {
	contentHeight := m.contentHeight()
	tableHeight := max(contentHeight-3, 3) // box borders and table header
	innerWidth := max(m.width-2, 20)

	m.patients.SetColumns(patientColumns(innerWidth))
	m.patients.SetHeight(tableHeight)
	m.patients.SetWidth(innerWidth)
	m.appointments.SetColumns(appointmentColumns(innerWidth))
	m.appointments.SetHeight(tableHeight)
	m.appointments.SetWidth(innerWidth)
	m.prescriptions.SetColumns(prescriptionColumns(innerWidth))
	m.prescriptions.SetHeight(tableHeight)
	m.prescriptions.SetWidth(innerWidth)

	m.detailViewport.Width = max(innerWidth-2, 10)
	m.detailViewport.Height = max(contentHeight-2, 3)
	m.help.Width = m.width
	m.syncDetail()
}

func (m Model) contentHeight() int {
	return max(m.height-2, 5) // header + command bar
}

// Messages

type tickMsg time.Time

type snapshotMsg state.Snapshot

// Commands

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func fetchSnapshotCmd(store *state.Store) tea.Cmd {
	return func() tea.Msg {
		return snapshotMsg(store.Snapshot())
	}
}

// Run starts the Bubble Tea program.
func Run(opts Options) error {
	m := New(opts)
	programOpts := []tea.ProgramOption{tea.WithAltScreen()}
	if opts.Context != nil {
		programOpts = append(programOpts, tea.WithContext(opts.Context))
	}
	p := tea.NewProgram(m, programOpts...)
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && opts.Context != nil && opts.Context.Err() != nil {
		return nil
	}
	return err
}
