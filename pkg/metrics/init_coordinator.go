package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initCoordinatorMetrics() {
	r.SavesTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "fluxstore_saves_total",
			Help: "Completed graph save passes",
		},
	)

	r.SaveDuration = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "fluxstore_save_duration_seconds",
			Help:    "Duration of a full graph save pass",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		},
	)

	r.LoadsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "fluxstore_loads_total",
			Help: "Graph load passes by outcome",
		},
		[]string{"outcome"},
	)

	r.LoadDuration = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "fluxstore_load_duration_seconds",
			Help:    "Duration of a full replay into a reconstructed graph",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		},
	)

	r.NodesReconstructed = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "fluxstore_nodes_reconstructed",
			Help: "Nodes in the most recently reconstructed graph",
		},
	)

	r.DanglingReferences = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "fluxstore_dangling_references_total",
			Help: "Replayed records referencing unknown node ids",
		},
	)
}
