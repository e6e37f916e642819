package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	wireline = "wireline"

	// Job metrics
	jobsSubmittedTotal = "jobs_submitted_total"
	jobsFinishedTotal  = "jobs_finished_total"
	JobQueueDepth      = "job_queue_depth"

	// Device metrics
	deviceExecutionsTotal          = "device_executions_total"
	deviceExecutionDurationSeconds = "device_execution_duration_seconds"

	// Labels
	jobTypeLabel         = "type"
	jobStateLabel        = "state"
	resultStatusLabel    = "status"
	resultErrorKindLabel = "error_kind"
)

var jobsSubmittedTotalLabels = []string{
	jobTypeLabel,
}

var jobsFinishedTotalLabels = []string{
	jobStateLabel,
}

var deviceExecutionsTotalLabels = []string{
	resultStatusLabel,
	resultErrorKindLabel,
}

var deviceExecutionDurationLabels = []string{
	resultStatusLabel,
}

/**
* Metrics definition
**/
var jobsSubmittedTotalMetric = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Subsystem: wireline,
		Name:      jobsSubmittedTotal,
		Help:      "number of jobs accepted for dispatch, by job type",
	},
	jobsSubmittedTotalLabels,
)

var jobsFinishedTotalMetric = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Subsystem: wireline,
		Name:      jobsFinishedTotal,
		Help:      "number of jobs that reached a terminal state, by state",
	},
	jobsFinishedTotalLabels,
)

var jobQueueDepthMetric = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Subsystem: wireline,
		Name:      JobQueueDepth,
		Help:      "number of jobs waiting in the dispatch queue",
	},
)

var deviceExecutionsTotalMetric = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Subsystem: wireline,
		Name:      deviceExecutionsTotal,
		Help:      "number of per-device executions, by result status and error kind",
	},
	deviceExecutionsTotalLabels,
)

var deviceExecutionDurationMetric = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Subsystem: wireline,
		Name:      deviceExecutionDurationSeconds,
		Help:      "wall time of one device execution",
		Buckets:   []float64{0.05, 0.25, 1, 5, 15, 30, 60, 120},
	},
	deviceExecutionDurationLabels,
)

func IncreaseJobsSubmittedMetric(jobType string) {
	labels := prometheus.Labels{
		jobTypeLabel: jobType,
	}
	jobsSubmittedTotalMetric.With(labels).Inc()
}

func IncreaseJobsFinishedMetric(state string) {
	labels := prometheus.Labels{
		jobStateLabel: state,
	}
	jobsFinishedTotalMetric.With(labels).Inc()
}

func UpdateJobQueueDepthMetric(depth int) {
	jobQueueDepthMetric.Set(float64(depth))
}

func IncreaseDeviceExecutionsMetric(status, errorKind string) {
	labels := prometheus.Labels{
		resultStatusLabel:    status,
		resultErrorKindLabel: errorKind,
	}
	deviceExecutionsTotalMetric.With(labels).Inc()
}

func ObserveDeviceExecutionDuration(status string, seconds float64) {
	labels := prometheus.Labels{
		resultStatusLabel: status,
	}
	deviceExecutionDurationMetric.With(labels).Observe(seconds)
}

func init() {
	registerMetrics()
}

func registerMetrics() {
	prometheus.MustRegister(jobsSubmittedTotalMetric)
	prometheus.MustRegister(jobsFinishedTotalMetric)
	prometheus.MustRegister(jobQueueDepthMetric)
	prometheus.MustRegister(deviceExecutionsTotalMetric)
	prometheus.MustRegister(deviceExecutionDurationMetric)
	prometheus.MustRegister(totalActiveOperatorsPerDayMetric)
}
