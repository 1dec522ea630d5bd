// Package state provides thread-safe state sharing between the background
// poller and the ClinicFlow UI.
//
// # Overview
//
// The poller fetches the first page of patients and the upcoming
// appointments on a fixed cadence and writes them into a Store. The UI reads
// Snapshots on its own tick and renders them. Neither side blocks the other
// for longer than a copy.
//
//	Producer (poller):             Consumer (UI):
//	┌──────────────────┐          ┌──────────────────┐
//	│ ListPatients()   │          │                  │
//	│ ListAppointments │          │                  │
//	│      ↓           │          │                  │
//	│ store.Update()   │─────────→│ store.Snapshot() │
//	│      ↓           │ (mutex)  │      ↓           │
//	│  repeat...       │          │  render          │
//	└──────────────────┘          └──────────────────┘
//
// # Update Semantics
//
//	// Success: replace the dashboard, clear the error
//	store.Update(&dashboard, nil)
//
//	// Failure: keep the last good dashboard, record the error
//	store.Update(nil, err)
//
// A failed poll keeps showing the last data so a transient outage does not
// blank the screen. ConsecutiveFailures counts failures since the last
// success and drives the offline indicator.
//
// # Session Expiry
//
// MarkSessionExpired is called when the client gives up on the session.
// Unlike a poll failure it drops the clinical data: once the user is signed
// out nothing about patients should stay on screen. Reset clears the flag
// after a new sign-in.
//
// # Copies
//
// Update and Snapshot copy slices so the UI can never observe or cause a
// partial write. The zero Store is ready to use.
package state
