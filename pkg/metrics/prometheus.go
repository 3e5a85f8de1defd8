package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	daysComputed    *prometheus.CounterVec
	periodsFound    *prometheus.CounterVec
	relaxAttempts   prometheus.Histogram
	degenerateDays  *prometheus.CounterVec
	cacheOps        *prometheus.CounterVec
	intervalsStored *prometheus.CounterVec
	errorsTotal     *prometheus.CounterVec
	lastPrice       *prometheus.GaugeVec
	latency         *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		daysComputed: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gridpulse_days_computed_total",
				Help: "Total day detections computed",
			},
			[]string{"zone", "direction", "outcome"},
		),
		periodsFound: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gridpulse_periods_found_total",
				Help: "Total periods reported",
			},
			[]string{"zone", "direction"},
		),
		relaxAttempts: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "gridpulse_relaxation_attempts",
				Help:    "Relaxation attempts consumed per day detection",
				Buckets: prometheus.LinearBuckets(0, 1, 13),
			},
		),
		degenerateDays: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gridpulse_degenerate_days_total",
				Help: "Days with a near-flat price curve",
			},
			[]string{"zone"},
		),
		cacheOps: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gridpulse_result_cache_ops_total",
				Help: "Detection result cache hits and misses",
			},
			[]string{"result"},
		),
		intervalsStored: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gridpulse_intervals_stored_total",
				Help: "Price intervals written to the backend",
			},
			[]string{"backend", "zone"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gridpulse_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		lastPrice: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "gridpulse_last_price",
				Help: "Last spot price seen for a zone",
			},
			[]string{"zone"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gridpulse_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordDayComputed records one finished day detection.
func (r *Recorder) RecordDayComputed(zone, direction, outcome string) {
	r.daysComputed.WithLabelValues(zone, direction, outcome).Inc()
}

// RecordPeriods records the number of periods reported for a day.
func (r *Recorder) RecordPeriods(zone, direction string, n int) {
	r.periodsFound.WithLabelValues(zone, direction).Add(float64(n))
}

// RecordRelaxAttempts records how many relaxation attempts a day consumed.
func (r *Recorder) RecordRelaxAttempts(n int) {
	r.relaxAttempts.Observe(float64(n))
}

// RecordDegenerateDay records a near-flat day.
func (r *Recorder) RecordDegenerateDay(zone string) {
	r.degenerateDays.WithLabelValues(zone).Inc()
}

// RecordCacheOp records a result cache hit or miss.
func (r *Recorder) RecordCacheOp(result string) {
	r.cacheOps.WithLabelValues(result).Inc()
}

// RecordIntervalsStored records intervals written to a backend.
func (r *Recorder) RecordIntervalsStored(backend, zone string, n int) {
	r.intervalsStored.WithLabelValues(backend, zone).Add(float64(n))
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLastPrice records the last spot price for a zone.
func (r *Recorder) RecordLastPrice(zone string, price float64) {
	r.lastPrice.WithLabelValues(zone).Set(price)
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
