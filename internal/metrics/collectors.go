// Package metrics holds the prometheus collectors of the gateway. A nil *Collectors is valid and
// records nothing.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace string = "gateway"

const (
	OutcomeSuccess string = "success"
	OutcomeFailure string = "failure"
)

type Collectors struct {
	refreshes   *prometheus.CounterVec
	retries     prometheus.Counter
	authExpired prometheus.Counter
	waiters     prometheus.Histogram
	logins      prometheus.Counter
}

// NewCollectors creates the collectors and registers them with the registerer.
func NewCollectors(registerer prometheus.Registerer) (*Collectors, error) {
	c := &Collectors{
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "token_refreshes_total",
			Help:      "Access token refresh requests sent to the API, by outcome.",
		}, []string{"outcome"}),
		retries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "request_retries_total",
			Help:      "API requests resent after an authentication failure.",
		}),
		authExpired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_expired_total",
			Help:      "Sessions whose credentials could not be refreshed.",
		}),
		waiters: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "token_refresh_waiters",
			Help:      "Requests that waited on a single token refresh.",
			Buckets:   []float64{0, 1, 2, 5, 10, 25, 50},
		}),
		logins: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "logins_total",
			Help:      "Successful user logins and registrations.",
		}),
	}
	for _, collector := range []prometheus.Collector{c.refreshes, c.retries, c.authExpired, c.waiters, c.logins} {
		if err := registerer.Register(collector); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *Collectors) RefreshFinished(outcome string, waiters int) {
	if c == nil {
		return
	}
	c.refreshes.WithLabelValues(outcome).Inc()
	c.waiters.Observe(float64(waiters))
}

func (c *Collectors) RequestRetried() {
	if c == nil {
		return
	}
	c.retries.Inc()
}

func (c *Collectors) SessionExpired() {
	if c == nil {
		return
	}
	c.authExpired.Inc()
}

func (c *Collectors) UserLoggedIn() {
	if c == nil {
		return
	}
	c.logins.Inc()
}

// Refreshes returns the refresh counter of one outcome.
func (c *Collectors) Refreshes(outcome string) prometheus.Counter {
	return c.refreshes.WithLabelValues(outcome)
}
