// Package observability registers the Prometheus metrics shared by the wellness binaries.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcomes used as metric label values.
const (
	OutcomeOK         = "ok"
	OutcomeSeeded     = "seeded"
	OutcomeCorrupt    = "corrupt"
	OutcomeFailed     = "failed"
	OutcomeSuperseded = "superseded"
)

var (
	slotLoads = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "wellness",
		Subsystem: "records",
		Name:      "slot_loads_total",
		Help:      "Record slot loads grouped by domain and outcome (ok, seeded, corrupt, failed).",
	}, []string{"domain", "outcome"})

	slotWrites = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "wellness",
		Subsystem: "records",
		Name:      "slot_writes_total",
		Help:      "Full-list slot writes grouped by domain and outcome (ok, failed, superseded).",
	}, []string{"domain", "outcome"})

	writeDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "wellness",
		Subsystem: "records",
		Name:      "slot_write_duration_seconds",
		Help:      "Time spent writing a full record list to the key-value store.",
		Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
	}, []string{"domain"})

	lastWriteGauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "wellness",
		Subsystem: "records",
		Name:      "last_write_timestamp_seconds",
		Help:      "Unix timestamp of the most recent successful slot write per domain.",
	}, []string{"domain"})

	validationFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "wellness",
		Subsystem: "form",
		Name:      "validation_failures_total",
		Help:      "Form submissions rejected by validation, grouped by domain.",
	}, []string{"domain"})

	weatherFetches = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "wellness",
		Subsystem: "weather",
		Name:      "fetches_total",
		Help:      "Weather lookups grouped by outcome.",
	}, []string{"outcome"})
)

func init() {
	prometheus.MustRegister(slotLoads, slotWrites, writeDuration, lastWriteGauge, validationFailures, weatherFetches)
}

// RecordSlotLoad counts one load of a domain slot.
func RecordSlotLoad(domain, outcome string) {
	slotLoads.WithLabelValues(domain, outcome).Inc()
}

// RecordSlotWrite counts one settled write and, on success, moves the watermark.
func RecordSlotWrite(domain, outcome string, elapsed time.Duration) {
	slotWrites.WithLabelValues(domain, outcome).Inc()
	if outcome == OutcomeSuperseded {
		return
	}
	writeDuration.WithLabelValues(domain).Observe(elapsed.Seconds())
	if outcome == OutcomeOK {
		lastWriteGauge.WithLabelValues(domain).Set(float64(time.Now().Unix()))
	}
}

// RecordValidationFailure counts a rejected form submission.
func RecordValidationFailure(domain string) {
	validationFailures.WithLabelValues(domain).Inc()
}

// RecordWeatherFetch counts a weather lookup.
func RecordWeatherFetch(outcome string) {
	weatherFetches.WithLabelValues(outcome).Inc()
}
