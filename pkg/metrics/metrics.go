// Package metrics records invocation telemetry. The dispatcher talks to the
// Recorder interface; the Prometheus implementation backs the /metrics
// endpoint.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder receives one observation per completed invocation and per macro
// resolution pass.
type Recorder interface {
	RecordInvocation(pluginType, pluginName, status string, duration time.Duration)
	RecordResolution(status string, duration time.Duration)
}

// NewNop returns a Recorder that discards all observations.
func NewNop() Recorder {
	return nopRecorder{}
}

type nopRecorder struct{}

func (nopRecorder) RecordInvocation(string, string, string, time.Duration) {}
func (nopRecorder) RecordResolution(string, time.Duration)                 {}

// PrometheusRecorder implements Recorder on Prometheus collectors.
type PrometheusRecorder struct {
	invocations        *prometheus.CounterVec
	invocationDuration *prometheus.HistogramVec
	resolutions        *prometheus.CounterVec
	resolutionDuration prometheus.Histogram
}

// NewPrometheus creates a recorder and registers its collectors with reg.
func NewPrometheus(reg prometheus.Registerer) *PrometheusRecorder {
	r := &PrometheusRecorder{
		invocations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "g4",
			Subsystem: "plugins",
			Name:      "invocations_total",
			Help:      "Completed plugin invocations by type, plugin, and status.",
		}, []string{"plugin_type", "plugin_name", "status"}),
		invocationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "g4",
			Subsystem: "plugins",
			Name:      "invocation_duration_seconds",
			Help:      "Wall time of plugin invocations, including session guard wait.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"plugin_type", "plugin_name"}),
		resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "g4",
			Subsystem: "plugins",
			Name:      "macro_resolutions_total",
			Help:      "Macro resolution passes by status.",
		}, []string{"status"}),
		resolutionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "g4",
			Subsystem: "plugins",
			Name:      "macro_resolution_duration_seconds",
			Help:      "Wall time of macro resolution passes.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		}),
	}
	reg.MustRegister(r.invocations, r.invocationDuration, r.resolutions, r.resolutionDuration)
	return r
}

// RecordInvocation observes one completed invocation.
func (r *PrometheusRecorder) RecordInvocation(pluginType, pluginName, status string, duration time.Duration) {
	r.invocations.WithLabelValues(pluginType, pluginName, status).Inc()
	r.invocationDuration.WithLabelValues(pluginType, pluginName).Observe(duration.Seconds())
}

// RecordResolution observes one macro resolution pass.
func (r *PrometheusRecorder) RecordResolution(status string, duration time.Duration) {
	r.resolutions.WithLabelValues(status).Inc()
	r.resolutionDuration.Observe(duration.Seconds())
}
