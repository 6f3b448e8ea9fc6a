package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initWALMetrics() {
	r.WALAppendsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "fluxstore_wal_appends_total",
			Help: "Records appended to the write-ahead log by kind",
		},
		[]string{"kind"},
	)

	r.WALAppendDuration = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "fluxstore_wal_append_duration_seconds",
			Help:    "Latency of a durable append, including fsync",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 14),
		},
	)

	r.WALSizeBytes = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "fluxstore_wal_size_bytes",
			Help: "Valid end-of-log offset of the write-ahead log",
		},
	)

	r.WALLastSequence = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "fluxstore_wal_last_sequence",
			Help: "Sequence number of the last validated record",
		},
	)

	r.WALRecordsRead = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "fluxstore_wal_records_read_total",
			Help: "Records validated during replay and recovery scans",
		},
	)

	r.WALCorruptRecords = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "fluxstore_wal_corrupt_records_total",
			Help: "Records that failed checksum or length validation",
		},
	)

	r.WALCompactions = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "fluxstore_wal_compactions_total",
			Help: "Times the log was rewritten into a checkpoint",
		},
	)
}
