package state

import (
	"fmt"
	"sync"
	"time"

	"github.com/ClinicFlow2/frontend/internal/clinic"
)

// Dashboard is what one poll fetches.
type Dashboard struct {
	Patients      []clinic.Patient
	PatientCount  int
	Appointments  []clinic.Appointment
	Identity      clinic.Identity
	IdentityKnown bool
}

// Snapshot represents the latest data available to the UI.
type Snapshot struct {
	Dashboard
	HasData             bool
	LastUpdated         time.Time
	LastError           error
	ConsecutiveFailures int // Number of consecutive poll failures
	SessionExpired      bool
}

// IsOffline returns true when the API has been unreachable for multiple polls.
func (s Snapshot) IsOffline() bool {
	return s.ConsecutiveFailures >= 2
}

// Store coordinates concurrent updates to the snapshot.
type Store struct {
	mu       sync.RWMutex
	snapshot Snapshot
}

// Update replaces the stored dashboard. When err is non-nil the previous data
// is kept but the error is recorded for visibility.
func (s *Store) Update(d *Dashboard, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		s.snapshot.LastError = err
		s.snapshot.LastUpdated = time.Now()
		s.snapshot.ConsecutiveFailures++
		return
	}

	if d != nil {
		s.snapshot.Dashboard = cloneDashboard(*d)
		s.snapshot.HasData = true
	} else {
		s.snapshot.Dashboard = Dashboard{}
		s.snapshot.HasData = false
	}
	s.snapshot.LastError = nil
	s.snapshot.LastUpdated = time.Now()
	s.snapshot.ConsecutiveFailures = 0
	s.snapshot.SessionExpired = false
}

// MarkSessionExpired drops all clinical data and flags the session as over.
func (s *Store) MarkSessionExpired(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snapshot = Snapshot{
		LastError:      err,
		LastUpdated:    time.Now(),
		SessionExpired: true,
	}
}

// Reset returns the store to its zero state, typically after a new sign-in.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot = Snapshot{}
}

// Snapshot returns a copy of the current snapshot.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := s.snapshot
	snap.Dashboard = cloneDashboard(s.snapshot.Dashboard)
	if s.snapshot.LastError != nil {
		snap.LastError = fmt.Errorf("%w", s.snapshot.LastError)
	}
	return snap
}

func cloneDashboard(d Dashboard) Dashboard {
	d.Patients = cloneSlice(d.Patients)
	d.Appointments = cloneSlice(d.Appointments)
	return d
}

func cloneSlice[T any](items []T) []T {
	if len(items) == 0 {
		return nil
	}
	dup := make([]T, len(items))
	copy(dup, items)
	return dup
}
