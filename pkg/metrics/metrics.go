package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	namespace = "hbkbrowser"

	metricLabelHandler  = "handler"
	metricLabelStatus   = "status"
	metricLabelEndpoint = "endpoint"
	metricLabelOrigin   = "origin"
)

// Metrics is the structure that holds all prometheus metrics
var (
	// BackendRequestCounter count the number of requests against the help backend
	BackendRequestCounter = newCounterVec(
		"backend_request_count",
		"Count of requests to the help backend for each endpoint",
		metricLabelEndpoint, metricLabelStatus,
	)
	// BackendRequestDuration observe the duration of requests against the help backend
	BackendRequestDuration = newSummaryVec(
		"backend_request_duration_seconds",
		"Seconds to fetch and decode a help backend response",
		metricLabelEndpoint, metricLabelStatus,
	)
	// ServiceRequestCounter count the number of requests for each gateway handler
	ServiceRequestCounter = newCounterVec(
		"service_request_count",
		"Count of requests for each handler",
		metricLabelHandler, metricLabelStatus,
	)
	// ServiceRequestDuration observe the duration of requests for each gateway handler
	ServiceRequestDuration = newSummaryVec(
		"service_request_duration_seconds",
		"Seconds to unmarshal requests, execute a handler and marshal its responses",
		metricLabelHandler, metricLabelStatus,
	)
	// ChildLoadCounter count lazy children loads
	ChildLoadCounter = newCounterVec(
		"child_load_count",
		"Number of lazy children loads of toc nodes",
		metricLabelStatus,
	)
	// ExpandDuration observe the duration of path expansions
	ExpandDuration = newSummaryVec(
		"expand_duration_seconds",
		"Duration in seconds to walk and load a toc path",
	)
	// ResolveCounter count link resolutions
	ResolveCounter = newCounterVec(
		"resolve_count",
		"Number of link resolutions",
		metricLabelStatus,
	)
	// NavigationCounter count navigations by origin
	NavigationCounter = newCounterVec(
		"navigation_count",
		"Number of navigations",
		metricLabelOrigin, metricLabelStatus,
	)
	// SessionsGauge keep track of the number of live sessions
	SessionsGauge = newGaugeVec(
		"sessions_total",
		"Total number of currently held browsing sessions",
	)
	// SnapshotPersistFailedCounter count the number of failed attempts to persist a session snapshot
	SnapshotPersistFailedCounter = newCounterVec(
		"snapshot_persist_failed_count",
		"Number of failures to store a session snapshot",
	)
)

func newSummaryVec(name, help string, labels ...string) *prometheus.SummaryVec {
	vec := prometheus.NewSummaryVec(
		prometheus.SummaryOpts{
			Namespace: namespace,
			Name:      name,
			Help:      help,
		}, labels)
	prometheus.MustRegister(vec)
	return vec
}

func newCounterVec(name, help string, labels ...string) *prometheus.CounterVec {
	vec := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      name,
			Help:      help,
		}, labels)
	prometheus.MustRegister(vec)
	return vec
}

func newGaugeVec(name, help string, labels ...string) *prometheus.GaugeVec {
	vec := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      name,
			Help:      help,
		}, labels)
	prometheus.MustRegister(vec)
	return vec
}

// StatusLabel the status label value for an error
func StatusLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
