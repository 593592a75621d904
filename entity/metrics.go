package entity

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Patch outcomes recorded by Metrics.
const (
	OutcomeOK           = "ok"
	OutcomeUnauthorized = "unauthorized"
	OutcomeInvalid      = "invalid"
	OutcomeNotFound     = "not_found"
	OutcomeError        = "error"
)

// Metrics collects patch call counters and latencies.
type Metrics struct {
	calls    *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetrics creates the patch collectors and registers them with reg when it is not nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ckanpatch",
			Name:      "patch_total",
			Help:      "Patch calls by entity kind and outcome.",
		}, []string{"kind", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "ckanpatch",
			Name:      "patch_duration_seconds",
			Help:      "Time spent in a patch call, including show and update.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"kind"}),
	}
	if reg != nil {
		reg.MustRegister(m.calls, m.duration)
	}
	return m
}

// Calls returns the counter for kind and outcome.
func (m *Metrics) Calls(kind Kind, outcome string) prometheus.Counter {
	return m.calls.WithLabelValues(string(kind), outcome)
}

func (m *Metrics) observe(kind Kind, start time.Time, err error) {
	if m == nil {
		return
	}
	m.calls.WithLabelValues(string(kind), outcomeOf(err)).Inc()
	m.duration.WithLabelValues(string(kind)).Observe(time.Since(start).Seconds())
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, ErrUnauthorized):
		return OutcomeUnauthorized
	case errors.Is(err, ErrMissingField), errors.Is(err, ErrValidation), errors.Is(err, ErrShape):
		return OutcomeInvalid
	case errors.Is(err, ErrNotFound):
		return OutcomeNotFound
	default:
		return OutcomeError
	}
}
