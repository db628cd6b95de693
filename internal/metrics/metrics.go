// Package metrics exposes Prometheus collectors for the conversion daemon.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	conversions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "stackedpdf",
			Name:      "conversions_total",
			Help:      "Total conversions by result (ok, failed, cancelled)",
		},
		[]string{"result"},
	)

	conversionDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "stackedpdf",
			Name:      "conversion_duration_seconds",
			Help:      "End-to-end duration of conversions",
			// pdfjam runs LaTeX, so these skew much slower than typical
			// request buckets
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600},
		},
	)

	toolFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "stackedpdf",
			Name:      "tool_failures_total",
			Help:      "External tool failures by tool (pdfjam, pdfinfo, podofocrop)",
		},
		[]string{"tool"},
	)

	queueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "stackedpdf",
			Name:      "queue_depth",
			Help:      "Jobs currently waiting in the conversion stream",
		},
	)

	jobsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "stackedpdf",
			Name:      "jobs_in_flight",
			Help:      "Conversions currently being processed by workers",
		},
	)
)

// Init registers collectors.
func Init() {
	prometheus.MustRegister(conversions, conversionDuration, toolFailures, queueDepth, jobsInFlight)
}

// Handler returns the http.Handler for /metrics.
func Handler() http.Handler { return promhttp.Handler() }

// ObserveConversion records one finished conversion.
func ObserveConversion(result string, dur time.Duration) {
	conversions.WithLabelValues(result).Inc()
	conversionDuration.Observe(dur.Seconds())
}

// IncCancelled counts a job cancelled before it ever ran, so the duration
// histogram stays untouched.
func IncCancelled() { conversions.WithLabelValues("cancelled").Inc() }

func IncToolFailure(tool string) { toolFailures.WithLabelValues(tool).Inc() }

func SetQueueDepth(v int64) { queueDepth.Set(float64(v)) }

func JobStarted()  { jobsInFlight.Inc() }
func JobFinished() { jobsInFlight.Dec() }
