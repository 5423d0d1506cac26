// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PlexDesk Contributors

package plugin

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Transitions counts lifecycle transitions by target state.
// Use RegisterMetrics to register this with a Prometheus registry.
var Transitions = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "plexdesk_plugin_transitions_total",
		Help: "Total number of plugin lifecycle transitions",
	},
	[]string{"state"},
)

// HookDuration is the histogram of lifecycle hook durations.
// Use RegisterMetrics to register this with a Prometheus registry.
var HookDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "plexdesk_plugin_hook_duration_seconds",
		Help:    "Plugin lifecycle hook duration in seconds",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"phase"},
)

// PluginFailures counts plugin failures by phase and error code.
// Use RegisterMetrics to register this with a Prometheus registry.
var PluginFailures = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "plexdesk_plugin_failures_total",
		Help: "Total number of plugin lifecycle failures",
	},
	[]string{"phase", "code"},
)

// RegisterMetrics registers plugin lifecycle metrics with the given Prometheus registry.
// Panics if registration fails (following prometheus convention).
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(Transitions)
	reg.MustRegister(HookDuration)
	reg.MustRegister(PluginFailures)
}

func recordTransition(to State) {
	Transitions.WithLabelValues(to.String()).Inc()
}

func recordHookDuration(phase Phase, d time.Duration) {
	HookDuration.WithLabelValues(string(phase)).Observe(d.Seconds())
}

func recordFailure(phase Phase, code string) {
	PluginFailures.WithLabelValues(string(phase), code).Inc()
}
