package clinic

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

const (
	prescriptionsPath = "/api/prescriptions/"
	templatesPath     = "/api/prescriptions/templates/"
	medicationsPath   = "/api/prescriptions/medications/"
)

// PrescriptionFilter narrows ListPrescriptions.
type PrescriptionFilter struct {
	ListOptions
	Patient int64
}

// ListPrescriptionTemplates returns every template.
func (c *Client) ListPrescriptionTemplates(ctx context.Context) ([]PrescriptionTemplate, error) {
	return listAll[PrescriptionTemplate](ctx, c, templatesPath, nil)
}

// GetPrescriptionTemplate returns a template with its items.
func (c *Client) GetPrescriptionTemplate(ctx context.Context, id int64) (PrescriptionTemplate, error) {
	if err := requireID("template", id); err != nil {
		return PrescriptionTemplate{}, err
	}
	return getJSON[PrescriptionTemplate](ctx, c, itemPath(templatesPath, id), nil)
}

// ListPrescriptions returns one page of prescriptions.
func (c *Client) ListPrescriptions(ctx context.Context, filter PrescriptionFilter) (Page[Prescription], error) {
	query := filter.values()
	if filter.Patient > 0 {
		query.Set("patient", strconv.FormatInt(filter.Patient, 10))
	}
	return listPage[Prescription](ctx, c, prescriptionsPath, query)
}

func (c *Client) GetPrescription(ctx context.Context, id int64) (Prescription, error) {
	if err := requireID("prescription", id); err != nil {
		return Prescription{}, err
	}
	return getJSON[Prescription](ctx, c, itemPath(prescriptionsPath, id), nil)
}

func (c *Client) CreatePrescription(ctx context.Context, in PrescriptionInput) (Prescription, error) {
	return sendJSON[Prescription](ctx, c, http.MethodPost, prescriptionsPath, in)
}

func (c *Client) UpdatePrescription(ctx context.Context, id int64, patch Patch) (Prescription, error) {
	if err := requireID("prescription", id); err != nil {
		return Prescription{}, err
	}
	return sendJSON[Prescription](ctx, c, http.MethodPatch, itemPath(prescriptionsPath, id), patch)
}

func (c *Client) DeletePrescription(ctx context.Context, id int64) error {
	if err := requireID("prescription", id); err != nil {
		return err
	}
	return c.remove(ctx, itemPath(prescriptionsPath, id))
}

// DownloadPrescriptionPDF returns the rendered prescription in the given
// language ("en", "fr"); an empty lang lets the backend choose.
func (c *Client) DownloadPrescriptionPDF(ctx context.Context, id int64, lang string) ([]byte, error) {
	if err := requireID("prescription", id); err != nil {
		return nil, err
	}
	req := NewRequest(http.MethodGet, itemPath(prescriptionsPath, id)+"pdf/")
	req.Header = http.Header{"Accept": []string{"application/pdf"}}
	if lang = strings.TrimSpace(lang); lang != "" {
		req.Query = url.Values{"lang": []string{lang}}
	}
	resp, err := c.Do(ctx, req)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// ListMedications returns the medication catalogue, optionally searched.
func (c *Client) ListMedications(ctx context.Context, search string) ([]Medication, error) {
	return listAll[Medication](ctx, c, medicationsPath, ListOptions{Search: search}.values())
}

func (c *Client) CreateMedication(ctx context.Context, in Medication) (Medication, error) {
	return sendJSON[Medication](ctx, c, http.MethodPost, medicationsPath, in)
}

func (c *Client) UpdateMedication(ctx context.Context, id int64, patch Patch) (Medication, error) {
	if err := requireID("medication", id); err != nil {
		return Medication{}, err
	}
	return sendJSON[Medication](ctx, c, http.MethodPatch, itemPath(medicationsPath, id), patch)
}

func (c *Client) DeleteMedication(ctx context.Context, id int64) error {
	if err := requireID("medication", id); err != nil {
		return err
	}
	return c.remove(ctx, itemPath(medicationsPath, id))
}
