package clinic

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

const appointmentsPath = "/api/appointments/"

func (f AppointmentFilter) values() url.Values {
	values := ListOptions{Page: f.Page, PageSize: f.PageSize}.values()
	if f.Patient > 0 {
		values.Set("patient", strconv.FormatInt(f.Patient, 10))
	}
	if status := strings.TrimSpace(f.Status); status != "" {
		values.Set("status", status)
	}
	if f.Upcoming {
		values.Set("upcoming", "true")
	}
	return values
}

// ListAppointments returns appointments matching filter.
func (c *Client) ListAppointments(ctx context.Context, filter AppointmentFilter) (Page[Appointment], error) {
	return listPage[Appointment](ctx, c, appointmentsPath, filter.values())
}

func (c *Client) CreateAppointment(ctx context.Context, in AppointmentInput) (Appointment, error) {
	if err := requireID("patient", in.Patient); err != nil {
		return Appointment{}, err
	}
	if in.Status == "" {
		in.Status = StatusScheduled
	}
	in.ScheduledAt = in.ScheduledAt.UTC()
	return sendJSON[Appointment](ctx, c, http.MethodPost, appointmentsPath, in)
}

func (c *Client) UpdateAppointment(ctx context.Context, id int64, patch Patch) (Appointment, error) {
	if err := requireID("appointment", id); err != nil {
		return Appointment{}, err
	}
	return sendJSON[Appointment](ctx, c, http.MethodPatch, itemPath(appointmentsPath, id), patch)
}

func (c *Client) DeleteAppointment(ctx context.Context, id int64) error {
	if err := requireID("appointment", id); err != nil {
		return err
	}
	return c.remove(ctx, itemPath(appointmentsPath, id))
}
