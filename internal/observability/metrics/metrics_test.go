package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func findMetric(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) *dto.Metric {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather failed: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			if hasLabels(m, labels) {
				return m
			}
		}
	}
	t.Fatalf("metric %s%v not found", name, labels)
	return nil
}

func hasLabels(m *dto.Metric, want map[string]string) bool {
	got := map[string]string{}
	for _, lp := range m.GetLabel() {
		got[lp.GetName()] = lp.GetValue()
	}
	for k, v := range want {
		if got[k] != v {
			return false
		}
	}
	return true
}

func TestDashboardMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewDashboardMetrics(reg)

	m.ObserveViewRequest("overview", CacheMiss)
	m.ObserveViewRequest("overview", CacheHit)
	m.ObserveViewRequest("overview", CacheHit)
	m.ObserveCompute("overview", 0.002)

	hits := findMetric(t, reg, "clinic_dashboard_view_requests_total", map[string]string{"view": "overview", "cache": "hit"})
	if got := hits.GetCounter().GetValue(); got != 2 {
		t.Fatalf("expected 2 hits, got %v", got)
	}
	latency := findMetric(t, reg, "clinic_dashboard_view_compute_seconds", map[string]string{"view": "overview"})
	if got := latency.GetHistogram().GetSampleCount(); got != 1 {
		t.Fatalf("expected 1 latency sample, got %d", got)
	}
}

func TestDashboardMetricsObserveLoad(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewDashboardMetrics(reg)

	m.ObserveLoad("file", nil, map[string]int{"patients": 4, "bills": 5})
	m.ObserveLoad("file", errors.New("boom"), map[string]int{"patients": 99})

	patients := findMetric(t, reg, "clinic_dataset_records", map[string]string{"collection": "patients"})
	if got := patients.GetGauge().GetValue(); got != 4 {
		t.Fatalf("failed load must not overwrite record gauge, got %v", got)
	}
	failed := findMetric(t, reg, "clinic_dataset_loads_total", map[string]string{"source": "file", "status": "error"})
	if got := failed.GetCounter().GetValue(); got != 1 {
		t.Fatalf("expected 1 failed load, got %v", got)
	}
}

func TestDashboardMetricsNilSafe(t *testing.T) {
	var m *DashboardMetrics
	m.ObserveViewRequest("overview", CacheHit)
	m.ObserveCompute("overview", 0.1)
	m.ObserveLoad("file", nil, nil)
}
