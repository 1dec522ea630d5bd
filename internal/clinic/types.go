package clinic

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Page is the backend's pagination envelope.
type Page[T any] struct {
	Count    int     `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  []T     `json:"results"`
}

// HasNext reports whether another page follows.
func (p Page[T]) HasNext() bool {
	return p.Next != nil && *p.Next != ""
}

// Patch is a partial update body sent with PATCH.
type Patch map[string]any

// ListOptions pages and filters list endpoints.
type ListOptions struct {
	Page     int
	PageSize int
	Search   string
}

// Ref is a foreign key rendered either as a bare id or as an object with an
// "id" field.
type Ref int64

func (r *Ref) UnmarshalJSON(data []byte) error {
	id, _, err := decodeRef(data)
	if err != nil {
		return err
	}
	*r = Ref(id)
	return nil
}

func decodeRef(data []byte) (int64, json.RawMessage, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return 0, nil, nil
	}
	switch data[0] {
	case '{':
		var obj struct {
			ID int64 `json:"id"`
		}
		if err := json.Unmarshal(data, &obj); err != nil {
			return 0, nil, fmt.Errorf("decode reference: %w", err)
		}
		return obj.ID, data, nil
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return 0, nil, fmt.Errorf("decode reference: %w", err)
		}
		if strings.TrimSpace(s) == "" {
			return 0, nil, nil
		}
		id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		if err != nil {
			return 0, nil, fmt.Errorf("decode reference %q: %w", s, err)
		}
		return id, nil, nil
	default:
		var id int64
		if err := json.Unmarshal(data, &id); err != nil {
			return 0, nil, fmt.Errorf("decode reference: %w", err)
		}
		return id, nil, nil
	}
}

// Patient is a clinic patient record.
type Patient struct {
	ID            int64  `json:"id"`
	PatientCode   string `json:"patient_code,omitempty"`
	FirstName     string `json:"first_name"`
	LastName      string `json:"last_name"`
	DateOfBirth   string `json:"date_of_birth,omitempty"`
	Sex           string `json:"sex,omitempty"`
	Phone         string `json:"phone,omitempty"`
	Address       string `json:"address,omitempty"`
	LastVisitDate string `json:"last_visit_date,omitempty"`
	NextVisitDate string `json:"next_visit_date,omitempty"`
}

// FullName joins first and last name, falling back to the patient id.
func (p Patient) FullName() string {
	if name := strings.TrimSpace(p.FirstName + " " + p.LastName); name != "" {
		return name
	}
	return fmt.Sprintf("Patient #%d", p.ID)
}

// PatientInput is the body for creating a patient.
type PatientInput struct {
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	DateOfBirth string `json:"date_of_birth,omitempty"`
	Sex         string `json:"sex,omitempty"`
	Phone       string `json:"phone,omitempty"`
	Address     string `json:"address,omitempty"`
}

// PatientRef is a patient foreign key that may arrive expanded.
type PatientRef struct {
	ID        int64
	FirstName string
	LastName  string
}

func (r *PatientRef) UnmarshalJSON(data []byte) error {
	id, raw, err := decodeRef(data)
	if err != nil {
		return err
	}
	*r = PatientRef{ID: id}
	if raw != nil {
		var names struct {
			FirstName string `json:"first_name"`
			LastName  string `json:"last_name"`
		}
		if err := json.Unmarshal(raw, &names); err != nil {
			return fmt.Errorf("decode patient: %w", err)
		}
		r.FirstName = names.FirstName
		r.LastName = names.LastName
	}
	return nil
}

func (r PatientRef) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.ID)
}

// Name returns the patient's name when the reference was expanded.
func (r PatientRef) Name() string {
	if name := strings.TrimSpace(r.FirstName + " " + r.LastName); name != "" {
		return name
	}
	return fmt.Sprintf("Patient #%d", r.ID)
}

// Visit is a clinical encounter.
type Visit struct {
	ID                      int64        `json:"id,omitempty"`
	Patient                 PatientRef   `json:"patient"`
	VisitDate               string       `json:"visit_date,omitempty"`
	VisitType               string       `json:"visit_type,omitempty"`
	ChiefComplaint          string       `json:"chief_complaint,omitempty"`
	HistoryOfPresentIllness string       `json:"history_of_present_illness,omitempty"`
	PhysicalExam            string       `json:"physical_exam,omitempty"`
	Assessment              string       `json:"assessment,omitempty"`
	Plan                    string       `json:"plan,omitempty"`
	Notes                   string       `json:"notes,omitempty"`
	VitalSigns              []VitalSigns `json:"vital_signs,omitempty"`
}

// VitalSigns is one set of measurements taken during a visit. Absent
// measurements are nil.
type VitalSigns struct {
	ID                  int64    `json:"id,omitempty"`
	Visit               Ref      `json:"visit"`
	MeasuredAt          string   `json:"measured_at,omitempty"`
	HeightCM            *float64 `json:"height_cm,omitempty"`
	WeightKG            *float64 `json:"weight_kg,omitempty"`
	TemperatureC        *float64 `json:"temperature_c,omitempty"`
	HeartRateBPM        *int     `json:"heart_rate_bpm,omitempty"`
	RespiratoryRateRPM  *int     `json:"respiratory_rate_rpm,omitempty"`
	BPSystolic          *int     `json:"bp_systolic,omitempty"`
	BPDiastolic         *int     `json:"bp_diastolic,omitempty"`
	OxygenSaturationPct *float64 `json:"oxygen_saturation_pct,omitempty"`
	HeadCircumferenceCM *float64 `json:"head_circumference_cm,omitempty"`
	Notes               string   `json:"notes,omitempty"`
}

// BloodPressure renders "120/80", or "-" when either side is missing.
func (v VitalSigns) BloodPressure() string {
	if v.BPSystolic == nil || v.BPDiastolic == nil {
		return "-"
	}
	return fmt.Sprintf("%d/%d", *v.BPSystolic, *v.BPDiastolic)
}

// Medication is a catalogue entry used by prescription items.
type Medication struct {
	ID       int64  `json:"id,omitempty"`
	Name     string `json:"name"`
	Form     string `json:"form,omitempty"`
	Strength string `json:"strength,omitempty"`
}

// PrescriptionItem is one medication line.
type PrescriptionItem struct {
	Medication           Ref    `json:"medication"`
	MedicationName       string `json:"medication_name,omitempty"`
	MedicationDisplay    string `json:"medication_display,omitempty"`
	Dosage               string `json:"dosage"`
	Route                string `json:"route"`
	Frequency            string `json:"frequency"`
	Duration             string `json:"duration"`
	Instructions         string `json:"instructions"`
	AllowOutsidePurchase bool   `json:"allow_outside_purchase"`
}

// Label is the best available display name for the medication.
func (i PrescriptionItem) Label() string {
	switch {
	case i.MedicationDisplay != "":
		return i.MedicationDisplay
	case i.MedicationName != "":
		return i.MedicationName
	case i.Medication != 0:
		return fmt.Sprintf("Medication #%d", i.Medication)
	default:
		return "-"
	}
}

// Summary renders "<label> - dosage, frequency, duration, route" omitting
// empty parts.
func (i PrescriptionItem) Summary() string {
	var parts []string
	for _, p := range []string{i.Dosage, i.Frequency, i.Duration, i.Route} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		return i.Label()
	}
	return i.Label() + " - " + strings.Join(parts, ", ")
}

// PrescriptionTemplate is a reusable set of items.
type PrescriptionTemplate struct {
	ID    int64              `json:"id"`
	Name  string             `json:"name"`
	Items []PrescriptionItem `json:"items,omitempty"`
}

// Prescription is an issued prescription.
type Prescription struct {
	ID           int64              `json:"id"`
	Visit        Ref                `json:"visit"`
	TemplateUsed Ref                `json:"template_used"`
	DoctorName   string             `json:"doctor_name,omitempty"`
	Notes        string             `json:"notes,omitempty"`
	ItemsCount   int                `json:"items_count,omitempty"`
	CreatedAt    string             `json:"created_at,omitempty"`
	Items        []PrescriptionItem `json:"items,omitempty"`
}

// PrescriptionInput is the body for creating a prescription.
type PrescriptionInput struct {
	Visit        int64              `json:"visit"`
	TemplateUsed *int64             `json:"template_used,omitempty"`
	Notes        string             `json:"notes"`
	Items        []PrescriptionItem `json:"items"`
}

// FromTemplate copies a template's items into an input for visit. The
// template's display fields are dropped; only the medication id is sent.
func FromTemplate(visit int64, tmpl PrescriptionTemplate, notes string) PrescriptionInput {
	id := tmpl.ID
	items := make([]PrescriptionItem, 0, len(tmpl.Items))
	for _, it := range tmpl.Items {
		items = append(items, PrescriptionItem{
			Medication:   it.Medication,
			Dosage:       it.Dosage,
			Route:        it.Route,
			Frequency:    it.Frequency,
			Duration:     it.Duration,
			Instructions: it.Instructions,
		})
	}
	return PrescriptionInput{Visit: visit, TemplateUsed: &id, Notes: notes, Items: items}
}

// Appointment statuses.
const (
	StatusScheduled = "SCHEDULED"
	StatusConfirmed = "CONFIRMED"
	StatusCancelled = "CANCELLED"
	StatusCompleted = "COMPLETED"
	StatusNoShow    = "NO_SHOW"
)

// AppointmentStatuses lists every status in display order.
var AppointmentStatuses = []string{StatusScheduled, StatusConfirmed, StatusCancelled, StatusCompleted, StatusNoShow}

// Doctor is the expanded doctor attached to an appointment.
type Doctor struct {
	FullName  string `json:"full_name,omitempty"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Username  string `json:"username,omitempty"`
}

// Appointment is a scheduled patient slot.
type Appointment struct {
	ID            int64      `json:"id"`
	Patient       PatientRef `json:"patient"`
	ScheduledAt   string     `json:"scheduled_at"`
	Status        string     `json:"status"`
	Reason        string     `json:"reason,omitempty"`
	Notes         string     `json:"notes,omitempty"`
	Visit         Ref        `json:"visit,omitempty"`
	Doctor        Ref        `json:"doctor,omitempty"`
	DoctorDetails *Doctor    `json:"doctor_details,omitempty"`
}

// DoctorName returns the doctor's display name or "-".
func (a Appointment) DoctorName() string {
	if d := a.DoctorDetails; d != nil {
		if d.FullName != "" {
			return d.FullName
		}
		if name := strings.TrimSpace(d.FirstName + " " + d.LastName); name != "" {
			return name
		}
		if d.Username != "" {
			return d.Username
		}
	}
	if a.Doctor != 0 {
		return fmt.Sprintf("Doctor #%d", a.Doctor)
	}
	return "-"
}

// StatusLabel renders the status for display.
func StatusLabel(status string) string {
	switch status {
	case StatusNoShow:
		return "No-show"
	case "":
		return "-"
	default:
		return strings.ToUpper(status[:1]) + strings.ToLower(status[1:])
	}
}

// AppointmentInput is the body for creating an appointment.
type AppointmentInput struct {
	Patient     int64     `json:"patient"`
	ScheduledAt time.Time `json:"scheduled_at"`
	Status      string    `json:"status"`
	Reason      string    `json:"reason"`
	Notes       string    `json:"notes"`
	Visit       *int64    `json:"visit"`
}

// AppointmentFilter narrows ListAppointments.
type AppointmentFilter struct {
	Patient  int64
	Status   string
	Upcoming bool
	Page     int
	PageSize int
}

// File categories accepted by the upload endpoint.
const (
	CategoryLabResult    = "lab_result"
	CategoryImaging      = "imaging"
	CategoryPrescription = "prescription"
	CategoryConsent      = "consent"
	CategoryInsurance    = "insurance"
	CategoryOther        = "other"
)

// FileCategories lists every upload category.
var FileCategories = []string{CategoryLabResult, CategoryImaging, CategoryPrescription, CategoryConsent, CategoryInsurance, CategoryOther}

// PatientFile is an uploaded document attached to a patient.
type PatientFile struct {
	ID               int64  `json:"id"`
	OriginalFilename string `json:"original_filename"`
	FileType         string `json:"file_type,omitempty"`
	FileSize         int64  `json:"file_size,omitempty"`
	Category         string `json:"category"`
	Description      string `json:"description,omitempty"`
	UploadedAt       string `json:"uploaded_at,omitempty"`
}
