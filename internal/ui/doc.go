// Package ui provides the ClinicFlow terminal interface, built on Bubble Tea.
//
// # Views
//
//   - Login: username and password form, the only editable form
//   - Patients: paged patient list; enter opens the patient record
//   - Appointments: upcoming appointments from the last poll
//   - Prescriptions: recent prescriptions, fetched when the view opens
//   - Patient: one record with visits, prescriptions and files, fetched on
//     demand
//
// Every view switch, including the initial one, passes through guard: with
// no stored access token the login view is shown instead of the requested
// one. The UI never decides on its own that a token has expired; that is
// learned from the client (a 401 the refresh could not recover), which marks
// the shared state.Store. The next snapshot tick then drops all clinical
// data and returns to the login view with a notice.
//
// # Package Structure
//
//   - app.go: Model, Update loop, navigation, Run
//   - guard.go: route guard
//   - login.go: sign-in form
//   - tables.go: list views and the titled pane renderer
//   - patient.go: patient record view
//   - header.go, help.go: status bar, command bar, help overlay
//   - keys.go, theme.go, style_helpers.go: bindings and styling
//
// Key bindings are defined in keys.go using bubbles/key. Themes (Nightfox,
// Kanagawa, Slate) cycle with T and persist through the prefs package.
package ui
