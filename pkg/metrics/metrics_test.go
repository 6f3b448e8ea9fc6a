package metrics

import (
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"
)

func findMetric(t *testing.T, r *Registry, name string) *dto.MetricFamily {
	t.Helper()
	families, err := r.GetPrometheusRegistry().Gather()
	if err != nil {
		t.Fatalf("Gather failed: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func TestRegistry_AllMetricsRegistered(t *testing.T) {
	r := NewRegistry()

	// Touch vectors so they show up in Gather
	r.RecordAppend("NODE_CREATE", time.Millisecond, 1024, 1)
	r.RecordLoad("clean", time.Millisecond, 3)

	for _, name := range []string{
		"fluxstore_wal_appends_total",
		"fluxstore_wal_append_duration_seconds",
		"fluxstore_wal_size_bytes",
		"fluxstore_wal_last_sequence",
		"fluxstore_loads_total",
		"fluxstore_nodes_reconstructed",
	} {
		if findMetric(t, r, name) == nil {
			t.Errorf("Metric %s not registered", name)
		}
	}
}

func TestRegistry_RecordAppend(t *testing.T) {
	r := NewRegistry()

	r.RecordAppend("NODE_CREATE", 2*time.Millisecond, 512, 7)
	r.RecordAppend("NODE_CREATE", 2*time.Millisecond, 600, 8)
	r.RecordAppend("LINK_ADD", 2*time.Millisecond, 700, 9)

	mf := findMetric(t, r, "fluxstore_wal_appends_total")
	if mf == nil {
		t.Fatal("append counter not found")
	}
	total := 0.0
	for _, m := range mf.GetMetric() {
		total += m.GetCounter().GetValue()
	}
	if total != 3 {
		t.Errorf("Expected 3 appends recorded, got %v", total)
	}

	gauge := findMetric(t, r, "fluxstore_wal_last_sequence")
	if got := gauge.GetMetric()[0].GetGauge().GetValue(); got != 9 {
		t.Errorf("Expected last sequence gauge 9, got %v", got)
	}
}

func TestDefaultRegistry_Singleton(t *testing.T) {
	if DefaultRegistry() != DefaultRegistry() {
		t.Error("DefaultRegistry must return the same instance")
	}
}
