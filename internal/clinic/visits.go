package clinic

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
)

const (
	visitsPath = "/api/visits/"
	vitalsPath = "/api/visits/vitals/"
)

// ListVisits returns visits, filtered to one patient when patientID > 0.
func (c *Client) ListVisits(ctx context.Context, patientID int64) ([]Visit, error) {
	query := url.Values{}
	if patientID > 0 {
		query.Set("patient", strconv.FormatInt(patientID, 10))
	}
	return listAll[Visit](ctx, c, visitsPath, query)
}

func (c *Client) GetVisit(ctx context.Context, id int64) (Visit, error) {
	if err := requireID("visit", id); err != nil {
		return Visit{}, err
	}
	return getJSON[Visit](ctx, c, itemPath(visitsPath, id), nil)
}

func (c *Client) CreateVisit(ctx context.Context, in Visit) (Visit, error) {
	return sendJSON[Visit](ctx, c, http.MethodPost, visitsPath, in)
}

func (c *Client) UpdateVisit(ctx context.Context, id int64, patch Patch) (Visit, error) {
	if err := requireID("visit", id); err != nil {
		return Visit{}, err
	}
	return sendJSON[Visit](ctx, c, http.MethodPatch, itemPath(visitsPath, id), patch)
}

func (c *Client) DeleteVisit(ctx context.Context, id int64) error {
	if err := requireID("visit", id); err != nil {
		return err
	}
	return c.remove(ctx, itemPath(visitsPath, id))
}

// ListVitals returns vital signs, filtered to one visit when visitID > 0.
func (c *Client) ListVitals(ctx context.Context, visitID int64) ([]VitalSigns, error) {
	query := url.Values{}
	if visitID > 0 {
		query.Set("visit", strconv.FormatInt(visitID, 10))
	}
	return listAll[VitalSigns](ctx, c, vitalsPath, query)
}

func (c *Client) GetVitals(ctx context.Context, id int64) (VitalSigns, error) {
	if err := requireID("vitals", id); err != nil {
		return VitalSigns{}, err
	}
	return getJSON[VitalSigns](ctx, c, itemPath(vitalsPath, id), nil)
}

func (c *Client) CreateVitals(ctx context.Context, in VitalSigns) (VitalSigns, error) {
	return sendJSON[VitalSigns](ctx, c, http.MethodPost, vitalsPath, in)
}

func (c *Client) UpdateVitals(ctx context.Context, id int64, patch Patch) (VitalSigns, error) {
	if err := requireID("vitals", id); err != nil {
		return VitalSigns{}, err
	}
	return sendJSON[VitalSigns](ctx, c, http.MethodPatch, itemPath(vitalsPath, id), patch)
}

func (c *Client) DeleteVitals(ctx context.Context, id int64) error {
	if err := requireID("vitals", id); err != nil {
		return err
	}
	return c.remove(ctx, itemPath(vitalsPath, id))
}
