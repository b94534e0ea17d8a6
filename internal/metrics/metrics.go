// Package metrics exposes Prometheus collectors for booking admission and
// the summary cache.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	admissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookmyslot_admissions_total",
			Help: "Booking admission attempts by outcome",
		},
		[]string{"outcome"},
	)

	admissionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bookmyslot_admission_duration_seconds",
			Help:    "Time spent deciding a booking admission",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		},
		[]string{"outcome"},
	)

	cacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookmyslot_summary_cache_lookups_total",
			Help: "Event summary cache lookups by result",
		},
		[]string{"result"},
	)
)

// Cache lookup results.
const (
	CacheHit   = "hit"
	CacheMiss  = "miss"
	CacheError = "error"
)

// Recorder records admission outcomes.
type Recorder struct{}

// NewRecorder returns a Recorder backed by the package collectors.
func NewRecorder() *Recorder { return &Recorder{} }

// ObserveAdmission counts one admission attempt and its latency.
func (r *Recorder) ObserveAdmission(outcome string, elapsed time.Duration) {
	admissionsTotal.WithLabelValues(outcome).Inc()
	admissionDuration.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

// TrackCacheLookup counts one summary cache lookup.
func TrackCacheLookup(result string) {
	cacheLookups.WithLabelValues(result).Inc()
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
