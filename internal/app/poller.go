package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/ClinicFlow2/frontend/internal/clinic"
	"github.com/ClinicFlow2/frontend/internal/state"
)

const (
	defaultPollInterval = 10 * time.Second
	maxBackoff          = 30 * time.Second
	upcomingPageSize    = 50
	defaultPollPageSize = 10
)

// DashboardSource is the part of the clinic client the poller uses.
type DashboardSource interface {
	IsAuthenticated() bool
	Claims() (clinic.Identity, error)
	ListPatients(ctx context.Context, opts clinic.ListOptions) (clinic.Page[clinic.Patient], error)
	ListAppointments(ctx context.Context, filter clinic.AppointmentFilter) (clinic.Page[clinic.Appointment], error)
}

var _ DashboardSource = (*clinic.Client)(nil)

// Poller refreshes the dashboard in the background.
type Poller struct {
	store    *state.Store
	source   DashboardSource
	interval time.Duration
	pageSize int
	log      zerolog.Logger
	wake     chan struct{}
}

// NewPoller returns a poller that fetches pageSize patients per cycle.
func NewPoller(store *state.Store, source DashboardSource, interval time.Duration, pageSize int, log zerolog.Logger) *Poller {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	if pageSize <= 0 {
		pageSize = defaultPollPageSize
	}
	return &Poller{
		store:    store,
		source:   source,
		interval: interval,
		pageSize: pageSize,
		log:      log,
		wake:     make(chan struct{}, 1),
	}
}

// Start launches the polling goroutine. It returns immediately.
func (p *Poller) Start(ctx context.Context) {
	go func() {
		failures := 0
		for {
			if err := p.Refresh(ctx); err != nil {
				failures++
				p.log.Warn().Err(err).Int("failures", failures).Msg("dashboard poll failed")
			} else {
				failures = 0
			}

			timer := time.NewTimer(calculateBackoff(failures, p.interval))
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-p.wake:
				timer.Stop()
			case <-timer.C:
			}
		}
	}()
}

// Wake asks the poller to refresh now instead of at the next tick.
func (p *Poller) Wake() {
	select {
	case p.wake <- struct{}{}:
	default:
	}
}

// Refresh runs one poll cycle. Patients and upcoming appointments are
// fetched concurrently. Without a session there is nothing to fetch.
func (p *Poller) Refresh(ctx context.Context) error {
	if !p.source.IsAuthenticated() {
		return nil
	}

	var d state.Dashboard
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		page, err := p.source.ListPatients(gctx, clinic.ListOptions{Page: 1, PageSize: p.pageSize})
		if err != nil {
			return fmt.Errorf("list patients: %w", err)
		}
		d.Patients = page.Results
		d.PatientCount = page.Count
		return nil
	})
	g.Go(func() error {
		page, err := p.source.ListAppointments(gctx, clinic.AppointmentFilter{Upcoming: true, Page: 1, PageSize: upcomingPageSize})
		if err != nil {
			return fmt.Errorf("list appointments: %w", err)
		}
		d.Appointments = page.Results
		return nil
	})
	if err := g.Wait(); err != nil {
		if errors.Is(err, clinic.ErrSessionExpired) {
			// The session listener already recorded this.
			return nil
		}
		p.store.Update(nil, err)
		return err
	}

	if id, err := p.source.Claims(); err == nil {
		d.Identity = id
		d.IdentityKnown = true
	}
	p.store.Update(&d, nil)
	return nil
}

// calculateBackoff doubles the interval for each consecutive failure, capped
// at maxBackoff.
func calculateBackoff(failures int, base time.Duration) time.Duration {
	if failures <= 0 {
		return base
	}
	wait := base
	for i := 0; i < failures; i++ {
		wait *= 2
		if wait >= maxBackoff {
			return maxBackoff
		}
	}
	return wait
}
