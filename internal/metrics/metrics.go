// Package metrics exposes prometheus instruments for billing computations
// and reminder delivery. A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "creche"

type Metrics struct {
	registry *prometheus.Registry

	computations *prometheus.CounterVec
	duration     *prometheus.HistogramVec
	cacheLookups *prometheus.CounterVec
	arrears      *prometheus.GaugeVec
	amountDue    prometheus.Gauge
	reminders    *prometheus.CounterVec
}

// New registers every instrument on a fresh registry, together with the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		computations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "computations_total",
			Help:      "Billing computations by kind and outcome.",
		}, []string{"kind", "outcome"}),
		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "computation_duration_seconds",
			Help:      "Time spent loading records and computing results.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"kind"}),
		cacheLookups: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Memoized result lookups by result.",
		}, []string{"result"}),
		arrears: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "arrears_entries",
			Help:      "Outstanding obligations from the last detection, by band.",
		}, []string{"band"}),
		amountDue: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "arrears_amount_due_cents",
			Help:      "Total amount due from the last detection.",
		}),
		reminders: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reminders_total",
			Help:      "Reminders by outcome.",
		}, []string{"outcome"}),
	}
}

// ObserveComputation records one computation of kind.
func (m *Metrics) ObserveComputation(kind string, start time.Time, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.computations.WithLabelValues(kind, outcome).Inc()
	m.duration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
}

func (m *Metrics) CacheLookup(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.cacheLookups.WithLabelValues("hit").Inc()
		return
	}
	m.cacheLookups.WithLabelValues("miss").Inc()
}

// SetArrears publishes the band counts and total due of the latest detection.
func (m *Metrics) SetArrears(mild, serious, critical int, dueCents int64) {
	if m == nil {
		return
	}
	m.arrears.WithLabelValues("mild").Set(float64(mild))
	m.arrears.WithLabelValues("serious").Set(float64(serious))
	m.arrears.WithLabelValues("critical").Set(float64(critical))
	m.amountDue.Set(float64(dueCents))
}

// Reminder counts a reminder outcome: sent, failed or skipped.
func (m *Metrics) Reminder(outcome string) {
	if m == nil {
		return
	}
	m.reminders.WithLabelValues(outcome).Inc()
}

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}
