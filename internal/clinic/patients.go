package clinic

import (
	"context"
	"net/http"
)

const patientsPath = "/api/patients/"

// ListPatients returns one page of patients.
func (c *Client) ListPatients(ctx context.Context, opts ListOptions) (Page[Patient], error) {
	return listPage[Patient](ctx, c, patientsPath, opts.values())
}

// GetPatient returns a single patient.
func (c *Client) GetPatient(ctx context.Context, id int64) (Patient, error) {
	if err := requireID("patient", id); err != nil {
		return Patient{}, err
	}
	return getJSON[Patient](ctx, c, itemPath(patientsPath, id), nil)
}

// CreatePatient registers a new patient and returns the stored record.
func (c *Client) CreatePatient(ctx context.Context, in PatientInput) (Patient, error) {
	return sendJSON[Patient](ctx, c, http.MethodPost, patientsPath, in)
}

// UpdatePatient applies a partial update.
func (c *Client) UpdatePatient(ctx context.Context, id int64, patch Patch) (Patient, error) {
	if err := requireID("patient", id); err != nil {
		return Patient{}, err
	}
	return sendJSON[Patient](ctx, c, http.MethodPatch, itemPath(patientsPath, id), patch)
}
