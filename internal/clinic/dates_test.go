package clinic

import (
	"encoding/json"
	"testing"
	"time"
)

func TestParseTimeLayouts(t *testing.T) {
	if ParseTime("2025-12-13T10:11:12Z").IsZero() {
		t.Fatalf("ParseTime should parse RFC3339")
	}
	if ParseTime("2025-12-13T10:11:12.123456+01:00").IsZero() {
		t.Fatalf("ParseTime should parse RFC3339 with fraction")
	}
	got := ParseTime("2025-12-13")
	if got.Year() != 2025 || got.Month() != time.December || got.Day() != 13 {
		t.Fatalf("ParseTime = %v, want 2025-12-13", got)
	}
	if !ParseTime("yesterday").IsZero() {
		t.Fatalf("ParseTime should reject garbage")
	}
}

func TestFormatHelpers(t *testing.T) {
	local := time.Date(2024, time.February, 3, 14, 30, 0, 0, time.Local)
	value := local.Format(time.RFC3339)

	if got := FormatDate(value); got != "03/02/2024" {
		t.Fatalf("FormatDate = %q, want 03/02/2024", got)
	}
	if got := FormatTime(value); got != "14:30" {
		t.Fatalf("FormatTime = %q, want 14:30", got)
	}
	if got := FormatDateTime(value); got != "03/02/2024 14:30" {
		t.Fatalf("FormatDateTime = %q, want 03/02/2024 14:30", got)
	}
	if got := FormatDateLong(value); got != "3 February 2024" {
		t.Fatalf("FormatDateLong = %q, want 3 February 2024", got)
	}
	for _, fn := range []func(string) string{FormatDate, FormatTime, FormatDateTime, FormatDateLong} {
		if got := fn(""); got != "-" {
			t.Fatalf("empty input = %q, want -", got)
		}
		if got := fn("not a date"); got != "-" {
			t.Fatalf("invalid input = %q, want -", got)
		}
	}
}

func TestFormatDOB(t *testing.T) {
	tests := map[string]string{
		"1815-12-10": "10-12-1815",
		"2000-01-01": "01-01-2000",
		"":           "-",
		"2000-01":    "-",
		"2000--01":   "-",
	}
	for in, want := range tests {
		if got := FormatDOB(in); got != want {
			t.Fatalf("FormatDOB(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestStatusLabel(t *testing.T) {
	tests := map[string]string{
		StatusScheduled: "Scheduled",
		StatusNoShow:    "No-show",
		StatusCancelled: "Cancelled",
		"":              "-",
	}
	for in, want := range tests {
		if got := StatusLabel(in); got != want {
			t.Fatalf("StatusLabel(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestRefDecoding(t *testing.T) {
	var a Appointment
	if err := jsonUnmarshal(`{"id":1,"patient":"7","visit":null,"doctor":{"id":3}}`, &a); err != nil {
		t.Fatalf("decode appointment: %v", err)
	}
	if a.Patient.ID != 7 || a.Visit != 0 || a.Doctor != 3 {
		t.Fatalf("appointment refs = %+v", a)
	}
	if a.DoctorName() != "Doctor #3" {
		t.Fatalf("DoctorName = %q, want Doctor #3", a.DoctorName())
	}
	if err := jsonUnmarshal(`{"patient":"abc"}`, &a); err == nil {
		t.Fatalf("non-numeric reference should fail")
	}
}

func jsonUnmarshal(s string, v any) error {
	return json.Unmarshal([]byte(s), v)
}
