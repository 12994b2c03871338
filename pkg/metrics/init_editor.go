package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initEditorMetrics() {
	r.CommandsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "mapeditor_commands_total",
			Help: "Total number of editor commands by outcome",
		},
		[]string{"command", "status"},
	)

	r.CommandDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mapeditor_command_duration_seconds",
			Help:    "Editor command latency in seconds, index rebuild included",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0},
		},
		[]string{"command"},
	)

	r.IndexRebuildDuration = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "mapeditor_index_rebuild_duration_seconds",
			Help:    "Time spent rebuilding the port index",
			Buckets: []float64{0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
		},
	)

	r.IndexPorts = promauto.With(r.registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "mapeditor_index_ports",
			Help: "Number of ports in the index of each open session",
		},
		[]string{"session"},
	)

	r.AssetsTotal = promauto.With(r.registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "mapeditor_assets_total",
			Help: "Number of assets in the energy system of each open session",
		},
		[]string{"session"},
	)

	r.SessionsActive = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "mapeditor_sessions_active",
			Help: "Number of open editing sessions",
		},
	)

	r.DanglingReferencesTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "mapeditor_dangling_references_total",
			Help: "connectedTo entries removed because their port disappeared",
		},
	)

	r.EventsDroppedTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "mapeditor_events_dropped_total",
			Help: "Session events dropped because a subscriber was not keeping up",
		},
	)
}
