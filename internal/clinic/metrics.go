package clinic

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// Refresh outcomes recorded by clinicflow_token_refresh_total.
const (
	outcomeSuccess        = "success"
	outcomeFailure        = "failure"
	outcomeNoRefreshToken = "no_refresh_token"
)

type metrics struct {
	requests  *prometheus.CounterVec
	refreshes *prometheus.CounterVec
	replays   prometheus.Counter
	waiters   prometheus.Gauge
}

// newMetrics builds the collectors and registers them with reg when it is
// not nil. Unregistered collectors still count, which keeps call sites free
// of nil checks.
func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "clinicflow_requests_total",
			Help: "HTTP exchanges with the clinic backend by status code (0 for transport errors).",
		}, []string{"code"}),
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "clinicflow_token_refresh_total",
			Help: "Token refresh attempts by outcome.",
		}, []string{"outcome"}),
		replays: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "clinicflow_request_replays_total",
			Help: "Requests sent a second time after a 401.",
		}),
		waiters: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "clinicflow_refresh_waiters",
			Help: "Requests currently queued behind an in-flight token refresh.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.requests, m.refreshes, m.replays, m.waiters)
	}
	return m
}

func (m *metrics) observeStatus(code int) {
	m.requests.WithLabelValues(strconv.Itoa(code)).Inc()
}

func (m *metrics) observeRefresh(outcome string) {
	m.refreshes.WithLabelValues(outcome).Inc()
}
