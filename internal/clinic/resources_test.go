package clinic

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/ClinicFlow2/frontend/internal/credstore"
)

type recorded struct {
	method string
	path   string
	query  url.Values
	body   []byte
	ctype  string
}

// recordingServer answers every request with the canned body registered for
// its path and records what it saw.
func recordingServer(t *testing.T, bodies map[string]string) (*Client, chan recorded) {
	t.Helper()
	seen := make(chan recorded, 16)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		seen <- recorded{method: r.Method, path: r.URL.Path, query: r.URL.Query(), body: body, ctype: r.Header.Get("Content-Type")}
		payload, ok := bodies[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		if payload == "" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, payload)
	}))
	t.Cleanup(server.Close)

	c, err := NewClient(server.URL, credstore.NewMemoryStore())
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	return c, seen
}

func TestListPatients_EncodesQueryAndDecodesPage(t *testing.T) {
	t.Parallel()

	c, seen := recordingServer(t, map[string]string{
		"/api/patients/": `{"count":11,"next":"http://x/api/patients/?page=3","previous":null,"results":[{"id":5,"first_name":"Ada","last_name":"Lovelace","date_of_birth":"1815-12-10"}]}`,
	})

	page, err := c.ListPatients(testContext(t), ListOptions{Page: 2, PageSize: 10, Search: " ada "})
	if err != nil {
		t.Fatalf("ListPatients returned error: %v", err)
	}
	if page.Count != 11 || !page.HasNext() || len(page.Results) != 1 {
		t.Fatalf("page = %+v, want count 11 with next and one result", page)
	}
	if got := page.Results[0].FullName(); got != "Ada Lovelace" {
		t.Fatalf("FullName = %q, want Ada Lovelace", got)
	}

	req := <-seen
	if req.query.Get("page") != "2" || req.query.Get("page_size") != "10" || req.query.Get("search") != "ada" {
		t.Fatalf("query = %v, want page=2 page_size=10 search=ada", req.query)
	}
}

func TestListVisits_AcceptsBareArray(t *testing.T) {
	t.Parallel()

	c, seen := recordingServer(t, map[string]string{
		"/api/visits/": `[{"id":1,"patient":5,"visit_date":"2025-01-02","chief_complaint":"cough"},{"id":2,"patient":{"id":5,"first_name":"Ada","last_name":"Lovelace"}}]`,
	})

	visits, err := c.ListVisits(testContext(t), 5)
	if err != nil {
		t.Fatalf("ListVisits returned error: %v", err)
	}
	if len(visits) != 2 {
		t.Fatalf("len(visits) = %d, want 2", len(visits))
	}
	if visits[0].Patient.ID != 5 || visits[1].Patient.ID != 5 {
		t.Fatalf("patient refs = %+v / %+v, want id 5", visits[0].Patient, visits[1].Patient)
	}
	if got := visits[1].Patient.Name(); got != "Ada Lovelace" {
		t.Fatalf("expanded patient name = %q, want Ada Lovelace", got)
	}
	if got := visits[0].Patient.Name(); got != "Patient #5" {
		t.Fatalf("bare patient name = %q, want Patient #5", got)
	}
	if req := <-seen; req.query.Get("patient") != "5" {
		t.Fatalf("query = %v, want patient=5", req.query)
	}
}

func TestVisitAndVitals_WriteMethods(t *testing.T) {
	t.Parallel()

	c, seen := recordingServer(t, map[string]string{
		"/api/visits/3/":        `{"id":3,"patient":5,"plan":"rest"}`,
		"/api/visits/vitals/":   `{"id":8,"visit":3,"heart_rate_bpm":72,"bp_systolic":120,"bp_diastolic":80}`,
		"/api/visits/vitals/8/": "",
	})
	ctx := testContext(t)

	visit, err := c.UpdateVisit(ctx, 3, Patch{"plan": "rest"})
	if err != nil {
		t.Fatalf("UpdateVisit returned error: %v", err)
	}
	if visit.Plan != "rest" {
		t.Fatalf("visit.Plan = %q, want rest", visit.Plan)
	}
	if req := <-seen; req.method != http.MethodPatch || string(req.body) != `{"plan":"rest"}` {
		t.Fatalf("request = %s %s, want PATCH {\"plan\":\"rest\"}", req.method, req.body)
	}

	hr := 72
	vitals, err := c.CreateVitals(ctx, VitalSigns{Visit: 3, HeartRateBPM: &hr})
	if err != nil {
		t.Fatalf("CreateVitals returned error: %v", err)
	}
	if vitals.BloodPressure() != "120/80" {
		t.Fatalf("BloodPressure = %q, want 120/80", vitals.BloodPressure())
	}
	req := <-seen
	var sent map[string]any
	if err := json.Unmarshal(req.body, &sent); err != nil {
		t.Fatalf("decode sent vitals: %v", err)
	}
	if sent["visit"] != float64(3) || sent["heart_rate_bpm"] != float64(72) {
		t.Fatalf("sent vitals = %v", sent)
	}
	if _, ok := sent["weight_kg"]; ok {
		t.Fatalf("absent measurements must be omitted: %v", sent)
	}

	if err := c.DeleteVitals(ctx, 8); err != nil {
		t.Fatalf("DeleteVitals returned error: %v", err)
	}
	if req := <-seen; req.method != http.MethodDelete || req.path != "/api/visits/vitals/8/" {
		t.Fatalf("request = %s %s, want DELETE /api/visits/vitals/8/", req.method, req.path)
	}

	if err := c.DeleteVisit(ctx, 0); err == nil {
		t.Fatalf("DeleteVisit(0) should fail")
	}
}

func TestCreateAppointment_DefaultsAndFilters(t *testing.T) {
	t.Parallel()

	c, seen := recordingServer(t, map[string]string{
		"/api/appointments/": `{"id":4,"patient":5,"scheduled_at":"2025-03-01T09:30:00Z","status":"SCHEDULED","doctor_details":{"first_name":"Gregory","last_name":"House"}}`,
	})
	ctx := testContext(t)

	when := time.Date(2025, time.March, 1, 10, 30, 0, 0, time.FixedZone("CET", 3600))
	appt, err := c.CreateAppointment(ctx, AppointmentInput{Patient: 5, ScheduledAt: when, Reason: "follow-up"})
	if err != nil {
		t.Fatalf("CreateAppointment returned error: %v", err)
	}
	if appt.DoctorName() != "Gregory House" {
		t.Fatalf("DoctorName = %q, want Gregory House", appt.DoctorName())
	}

	req := <-seen
	var sent map[string]any
	if err := json.Unmarshal(req.body, &sent); err != nil {
		t.Fatalf("decode sent appointment: %v", err)
	}
	if sent["status"] != StatusScheduled || sent["scheduled_at"] != "2025-03-01T09:30:00Z" || sent["visit"] != nil {
		t.Fatalf("sent appointment = %v", sent)
	}

	if _, err := c.CreateAppointment(ctx, AppointmentInput{}); err == nil {
		t.Fatalf("CreateAppointment without patient should fail")
	}

	filter := AppointmentFilter{Patient: 5, Status: StatusConfirmed, Upcoming: true, Page: 1, PageSize: 200}
	got := filter.values()
	if got.Get("patient") != "5" || got.Get("status") != "CONFIRMED" || got.Get("upcoming") != "true" || got.Get("page_size") != "200" {
		t.Fatalf("filter values = %v", got)
	}
}

func TestPatientFiles_UploadDownloadDelete(t *testing.T) {
	t.Parallel()

	c, seen := recordingServer(t, map[string]string{
		"/api/patients/5/files/":            `{"id":9,"original_filename":"cbc.pdf","category":"lab_result","file_size":2048}`,
		"/api/patients/5/files/9/download/": `%PDF-1.7`,
		"/api/patients/5/files/9/":          "",
	})
	ctx := testContext(t)

	file, err := c.UploadPatientFile(ctx, 5, FileUpload{
		Filename:    "cbc.pdf",
		Content:     strings.NewReader("pdf-bytes"),
		Category:    CategoryLabResult,
		Description: "blood count",
	})
	if err != nil {
		t.Fatalf("UploadPatientFile returned error: %v", err)
	}
	if file.ID != 9 || file.OriginalFilename != "cbc.pdf" {
		t.Fatalf("file = %+v", file)
	}

	req := <-seen
	if !strings.HasPrefix(req.ctype, "multipart/form-data") {
		t.Fatalf("content type = %q, want multipart/form-data", req.ctype)
	}
	for _, want := range []string{`name="file"; filename="cbc.pdf"`, "pdf-bytes", `name="category"`, "lab_result", "blood count"} {
		if !strings.Contains(string(req.body), want) {
			t.Fatalf("multipart body missing %q", want)
		}
	}

	data, err := c.DownloadPatientFile(ctx, 5, 9)
	if err != nil {
		t.Fatalf("DownloadPatientFile returned error: %v", err)
	}
	if string(data) != "%PDF-1.7" {
		t.Fatalf("download = %q", data)
	}
	<-seen

	if err := c.DeletePatientFile(ctx, 5, 9); err != nil {
		t.Fatalf("DeletePatientFile returned error: %v", err)
	}
	if req := <-seen; req.method != http.MethodDelete {
		t.Fatalf("method = %s, want DELETE", req.method)
	}

	if _, err := c.UploadPatientFile(ctx, 5, FileUpload{Content: strings.NewReader("x"), Category: "xray"}); err == nil {
		t.Fatalf("unknown category should fail")
	}
}

func TestPrescriptions_TemplateToInput(t *testing.T) {
	t.Parallel()

	c, seen := recordingServer(t, map[string]string{
		"/api/prescriptions/templates/2/": `{"id":2,"name":"Otitis","items":[{"medication":11,"medication_name":"Amoxicillin","dosage":"500mg","frequency":"tid","duration":"7d","route":"oral"}]}`,
		"/api/prescriptions/":             `{"id":30,"visit":3,"template_used":2,"items_count":1}`,
		"/api/prescriptions/30/pdf/":      `%PDF`,
	})
	ctx := testContext(t)

	tmpl, err := c.GetPrescriptionTemplate(ctx, 2)
	if err != nil {
		t.Fatalf("GetPrescriptionTemplate returned error: %v", err)
	}
	<-seen
	if got := tmpl.Items[0].Summary(); got != "Amoxicillin - 500mg, tid, 7d, oral" {
		t.Fatalf("Summary = %q", got)
	}

	rx, err := c.CreatePrescription(ctx, FromTemplate(3, tmpl, "take with food"))
	if err != nil {
		t.Fatalf("CreatePrescription returned error: %v", err)
	}
	if rx.ID != 30 || rx.TemplateUsed != 2 {
		t.Fatalf("prescription = %+v", rx)
	}
	req := <-seen
	var sent struct {
		Visit        int64 `json:"visit"`
		TemplateUsed int64 `json:"template_used"`
		Items        []map[string]any
	}
	if err := json.Unmarshal(req.body, &sent); err != nil {
		t.Fatalf("decode sent prescription: %v", err)
	}
	if sent.Visit != 3 || sent.TemplateUsed != 2 || len(sent.Items) != 1 || sent.Items[0]["medication"] != float64(11) {
		t.Fatalf("sent prescription = %+v", sent)
	}
	if _, ok := sent.Items[0]["medication_name"]; ok {
		t.Fatalf("display fields must not be sent: %v", sent.Items[0])
	}

	if _, err := c.DownloadPrescriptionPDF(ctx, 30, "fr"); err != nil {
		t.Fatalf("DownloadPrescriptionPDF returned error: %v", err)
	}
	if req := <-seen; req.query.Get("lang") != "fr" {
		t.Fatalf("query = %v, want lang=fr", req.query)
	}
}

func TestNotFound(t *testing.T) {
	t.Parallel()

	c, _ := recordingServer(t, map[string]string{})
	_, err := c.GetPatient(testContext(t), 404)
	if !IsNotFound(err) {
		t.Fatalf("err = %v, want 404", err)
	}
}
