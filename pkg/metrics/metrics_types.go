// Package metrics exposes Prometheus instrumentation for the persistence
// core: WAL appends and recovery, codec throughput, and coordinator
// save/load/compaction activity.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds all metrics for the persistence core
type Registry struct {
	// WAL metrics
	WALAppendsTotal   *prometheus.CounterVec
	WALAppendDuration prometheus.Histogram
	WALSizeBytes      prometheus.Gauge
	WALLastSequence   prometheus.Gauge
	WALRecordsRead    prometheus.Counter
	WALCorruptRecords prometheus.Counter
	WALCompactions    prometheus.Counter

	// Codec metrics
	CodecEncodeBytes  prometheus.Histogram
	CodecDecodeErrors prometheus.Counter

	// Coordinator metrics
	SavesTotal         prometheus.Counter
	SaveDuration       prometheus.Histogram
	LoadsTotal         *prometheus.CounterVec
	LoadDuration       prometheus.Histogram
	NodesReconstructed prometheus.Gauge
	DanglingReferences prometheus.Counter

	registry *prometheus.Registry
}

var (
	defaultRegistry *Registry
	once            sync.Once
)

// DefaultRegistry returns the global metrics registry
func DefaultRegistry() *Registry {
	once.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}

// NewRegistry creates a new metrics registry with all metrics initialized
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	r := &Registry{
		registry: reg,
	}

	r.initWALMetrics()
	r.initCodecMetrics()
	r.initCoordinatorMetrics()

	return r
}

// GetPrometheusRegistry returns the underlying Prometheus registry
func (r *Registry) GetPrometheusRegistry() *prometheus.Registry {
	return r.registry
}
