package state

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/ClinicFlow2/frontend/internal/clinic"
)

func sampleDashboard() *Dashboard {
	return &Dashboard{
		Patients:     []clinic.Patient{{ID: 1, FirstName: "Ada"}, {ID: 2, FirstName: "Alan"}},
		PatientCount: 40,
		Appointments: []clinic.Appointment{{ID: 7, Status: clinic.StatusScheduled}},
	}
}

func TestStore_UpdateAndSnapshotClone(t *testing.T) {
	var s Store

	before := time.Now()
	s.Update(sampleDashboard(), nil)

	snap := s.Snapshot()
	if !snap.HasData || snap.PatientCount != 40 {
		t.Fatalf("snapshot = %#v, want HasData with count 40", snap)
	}
	if len(snap.Patients) != 2 || snap.Patients[0].ID != 1 {
		t.Fatalf("snapshot patients = %#v, want 2 items", snap.Patients)
	}
	if len(snap.Appointments) != 1 || snap.Appointments[0].ID != 7 {
		t.Fatalf("snapshot appointments = %#v, want 1 item", snap.Appointments)
	}
	if snap.LastUpdated.Before(before) {
		t.Fatalf("LastUpdated = %v, want >= %v", snap.LastUpdated, before)
	}
	if snap.LastError != nil {
		t.Fatalf("LastError = %v, want nil", snap.LastError)
	}

	// Returned snapshot should be independent of the stored one.
	snap.Patients[0].ID = 999
	snap.Appointments[0].ID = 999
	snap2 := s.Snapshot()
	if snap2.Patients[0].ID != 1 || snap2.Appointments[0].ID != 7 {
		t.Fatalf("Snapshot should clone slices; got %d/%d", snap2.Patients[0].ID, snap2.Appointments[0].ID)
	}
}

func TestStore_UpdateErrorKeepsPreviousData(t *testing.T) {
	var s Store

	s.Update(sampleDashboard(), nil)
	prev := s.Snapshot()

	before := time.Now()
	origErr := errors.New("boom")
	s.Update(nil, origErr)

	snap := s.Snapshot()
	if snap.HasData != prev.HasData || len(snap.Patients) != len(prev.Patients) {
		t.Fatalf("data changed on error: got %#v want %#v", snap.Dashboard, prev.Dashboard)
	}
	if snap.LastUpdated.Before(before) {
		t.Fatalf("LastUpdated = %v, want >= %v", snap.LastUpdated, before)
	}
	if snap.LastError == nil || snap.LastError.Error() != "boom" {
		t.Fatalf("LastError = %v, want boom", snap.LastError)
	}
	if reflect.ValueOf(snap.LastError).Pointer() == reflect.ValueOf(origErr).Pointer() {
		t.Fatalf("Snapshot should clone error instance")
	}
	if !errors.Is(snap.LastError, origErr) {
		t.Fatalf("cloned error should still match the original")
	}
}

func TestStore_ConsecutiveFailures(t *testing.T) {
	var s Store

	snap := s.Snapshot()
	if snap.ConsecutiveFailures != 0 || snap.IsOffline() {
		t.Fatalf("fresh store: failures=%d offline=%v", snap.ConsecutiveFailures, snap.IsOffline())
	}

	s.Update(nil, errors.New("fail 1"))
	snap = s.Snapshot()
	if snap.ConsecutiveFailures != 1 {
		t.Fatalf("ConsecutiveFailures = %d, want 1", snap.ConsecutiveFailures)
	}
	if snap.IsOffline() {
		t.Fatal("IsOffline() = true, want false with 1 failure")
	}

	s.Update(nil, errors.New("fail 2"))
	snap = s.Snapshot()
	if !snap.IsOffline() {
		t.Fatal("IsOffline() = false, want true with 2 failures")
	}

	s.Update(sampleDashboard(), nil)
	snap = s.Snapshot()
	if snap.ConsecutiveFailures != 0 || snap.IsOffline() {
		t.Fatalf("after success: failures=%d offline=%v", snap.ConsecutiveFailures, snap.IsOffline())
	}
}

func TestStore_SessionExpiredDropsData(t *testing.T) {
	var s Store

	s.Update(sampleDashboard(), nil)
	expired := errors.New("session expired")
	s.MarkSessionExpired(expired)

	snap := s.Snapshot()
	if !snap.SessionExpired {
		t.Fatal("SessionExpired = false, want true")
	}
	if snap.HasData || len(snap.Patients) != 0 || len(snap.Appointments) != 0 {
		t.Fatalf("clinical data kept after expiry: %#v", snap.Dashboard)
	}
	if !errors.Is(snap.LastError, expired) {
		t.Fatalf("LastError = %v, want session expired", snap.LastError)
	}

	s.Update(sampleDashboard(), nil)
	if s.Snapshot().SessionExpired {
		t.Fatal("a successful poll should clear SessionExpired")
	}

	s.MarkSessionExpired(expired)
	s.Reset()
	if snap := s.Snapshot(); snap.SessionExpired || snap.LastError != nil {
		t.Fatalf("Reset left %#v", snap)
	}
}
