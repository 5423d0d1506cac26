// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PlexDesk Contributors

package registry

import "github.com/prometheus/client_golang/prometheus"

// Contributions is the gauge of registered contributions per extension point.
// Use RegisterMetrics to register this with a Prometheus registry.
var Contributions = prometheus.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "plexdesk_extension_contributions",
		Help: "Number of contributions registered per extension point",
	},
	[]string{"point"},
)

// RegisterMetrics registers registry metrics with the given Prometheus registry.
// Panics if registration fails (following prometheus convention).
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(Contributions)
}
