package ui

import (
	"testing"

	"github.com/ClinicFlow2/frontend/internal/clinic"
)

func TestThemeNames(t *testing.T) {
	names := ThemeNames()
	want := []string{"Nightfox", "Kanagawa", "Slate"}
	if len(names) != len(want) {
		t.Fatalf("ThemeNames() returned %d names, want %d", len(names), len(want))
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("ThemeNames() = %v, want %v", names, want)
		}
	}
}

func TestNextTheme(t *testing.T) {
	if got := NextTheme("Nightfox"); got != "Kanagawa" {
		t.Fatalf("NextTheme(Nightfox) = %q, want Kanagawa", got)
	}
	if got := NextTheme("Slate"); got != "Nightfox" {
		t.Fatalf("NextTheme(Slate) = %q, want Nightfox", got)
	}
	if got := NextTheme("Unknown"); got != "Nightfox" {
		t.Fatalf("NextTheme(Unknown) = %q, want Nightfox", got)
	}
}

func TestGetTheme(t *testing.T) {
	for _, name := range ThemeNames() {
		if got := GetTheme(name).Name; got != name {
			t.Fatalf("GetTheme(%s).Name = %q", name, got)
		}
	}
	if got := GetTheme("Dracula").Name; got != "Nightfox" {
		t.Fatalf("GetTheme(Dracula).Name = %q, want Nightfox (fallback)", got)
	}
}

func TestThemesColorEveryAppointmentStatus(t *testing.T) {
	for _, name := range ThemeNames() {
		th := GetTheme(name)
		for _, status := range clinic.AppointmentStatuses {
			if th.StatusColors[status] == "" {
				t.Fatalf("theme %s has no color for %s", name, status)
			}
		}
	}
}

func TestStatusStyle_FallsBackToMuted(t *testing.T) {
	th := GetTheme("Slate")
	styles := th.Styles()

	got := styles.StatusStyle("ARCHIVED").GetBackground()
	if got != styles.StatusStyle("").GetBackground() {
		t.Fatalf("unknown statuses should share the muted fallback")
	}
	if styles.StatusStyle(clinic.StatusNoShow).GetBackground() == got {
		t.Fatalf("NO_SHOW should not use the fallback color")
	}
}
