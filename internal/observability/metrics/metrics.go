package metrics

import (
	"log"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "cement_"

	resultSuccess = "success"
	resultError   = "error"
)

var (
	registerOnce sync.Once

	timelineRecords prometheus.Gauge

	streamSessionsActive prometheus.Gauge
	streamSessionsTotal  prometheus.Counter
	streamEmissions      *prometheus.CounterVec

	reportExportTotal   *prometheus.CounterVec
	reportExportLatency *prometheus.HistogramVec

	advisorRequestTotal   *prometheus.CounterVec
	advisorRequestLatency *prometheus.HistogramVec
)

// Init registers observability metrics.
func Init(logger *log.Logger) {
	registerOnce.Do(func() {
		timelineRecords = prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: metricPrefix + "timeline_records",
				Help: "Number of merged telemetry records loaded at startup",
			},
		)

		streamSessionsActive = prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: metricPrefix + "stream_sessions_active",
				Help: "Currently connected live feed subscribers",
			},
		)
		streamSessionsTotal = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "stream_sessions_total",
				Help: "Total live feed subscriber sessions",
			},
		)
		streamEmissions = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "stream_emissions_total",
				Help: "Total live feed emissions by result",
			},
			[]string{"result"},
		)

		reportExportTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "report_export_total",
				Help: "Total report export operations by format and result",
			},
			[]string{"format", "result"},
		)
		reportExportLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "report_export_latency_seconds",
				Help:    "Report export latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"format", "result"},
		)

		advisorRequestTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "advisor_requests_total",
				Help: "Total advisory requests by kind and result",
			},
			[]string{"kind", "result"},
		)
		advisorRequestLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "advisor_request_latency_seconds",
				Help:    "Advisory request latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"kind", "result"},
		)

		prometheus.MustRegister(
			timelineRecords,
			streamSessionsActive,
			streamSessionsTotal,
			streamEmissions,
			reportExportTotal,
			reportExportLatency,
			advisorRequestTotal,
			advisorRequestLatency,
		)

		if logger != nil {
			logger.Printf("metrics registered with prefix %q", metricPrefix)
		}
	})
}

// SetTimelineRecords records the loaded timeline length.
func SetTimelineRecords(n int) {
	if timelineRecords != nil {
		timelineRecords.Set(float64(n))
	}
}

// IncStreamSession marks a subscriber session opened.
func IncStreamSession() {
	if streamSessionsActive != nil {
		streamSessionsActive.Inc()
	}
	if streamSessionsTotal != nil {
		streamSessionsTotal.Inc()
	}
}

// DecStreamSession marks a subscriber session closed.
func DecStreamSession() {
	if streamSessionsActive != nil {
		streamSessionsActive.Dec()
	}
}

// IncStreamEmission increments the emission counter.
func IncStreamEmission(err error) {
	if streamEmissions == nil {
		return
	}
	result := resultSuccess
	if err != nil {
		result = resultError
	}
	streamEmissions.WithLabelValues(result).Inc()
}

// ObserveReportExport records a report export by format.
func ObserveReportExport(format string, err error, duration time.Duration) {
	result := resultSuccess
	if err != nil {
		result = resultError
	}
	if reportExportTotal != nil {
		reportExportTotal.WithLabelValues(format, result).Inc()
	}
	if reportExportLatency != nil {
		reportExportLatency.WithLabelValues(format, result).Observe(duration.Seconds())
	}
}

// ObserveAdvisorRequest records an advisory request by kind.
func ObserveAdvisorRequest(kind string, err error, duration time.Duration) {
	result := resultSuccess
	if err != nil {
		result = resultError
	}
	if advisorRequestTotal != nil {
		advisorRequestTotal.WithLabelValues(kind, result).Inc()
	}
	if advisorRequestLatency != nil {
		advisorRequestLatency.WithLabelValues(kind, result).Observe(duration.Seconds())
	}
}
