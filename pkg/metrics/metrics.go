package metrics

import (
	"time"
)

// RecordAppend records a durable WAL append
func (r *Registry) RecordAppend(kind string, duration time.Duration, logSize int64, sequence uint64) {
	r.WALAppendsTotal.WithLabelValues(kind).Inc()
	r.WALAppendDuration.Observe(duration.Seconds())
	r.WALSizeBytes.Set(float64(logSize))
	r.WALLastSequence.Set(float64(sequence))
}

// RecordSave records a completed save pass
func (r *Registry) RecordSave(duration time.Duration) {
	r.SavesTotal.Inc()
	r.SaveDuration.Observe(duration.Seconds())
}

// RecordLoad records a completed load pass. outcome is "clean" or "partial".
func (r *Registry) RecordLoad(outcome string, duration time.Duration, nodes int) {
	r.LoadsTotal.WithLabelValues(outcome).Inc()
	r.LoadDuration.Observe(duration.Seconds())
	r.NodesReconstructed.Set(float64(nodes))
}

// RecordCompaction records a log rewrite and the resulting size
func (r *Registry) RecordCompaction(newSize int64) {
	r.WALCompactions.Inc()
	r.WALSizeBytes.Set(float64(newSize))
}
