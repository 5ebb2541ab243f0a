package metrics

import "github.com/prometheus/client_golang/prometheus"

// Cache outcomes recorded on view requests.
const (
	CacheHit    = "hit"
	CacheMiss   = "miss"
	CacheBypass = "bypass"
)

// DashboardMetrics exposes counters/histograms for dashboard views and
// dataset loads.
type DashboardMetrics struct {
	viewRequests   *prometheus.CounterVec
	computeLatency *prometheus.HistogramVec
	datasetRecords *prometheus.GaugeVec
	datasetLoads   *prometheus.CounterVec
}

func NewDashboardMetrics(reg prometheus.Registerer) *DashboardMetrics {
	m := &DashboardMetrics{
		viewRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "dashboard",
			Name:      "view_requests_total",
			Help:      "Total dashboard view requests by cache outcome",
		}, []string{"view", "cache"}),
		computeLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "clinic",
			Subsystem: "dashboard",
			Name:      "view_compute_seconds",
			Help:      "Latency of dashboard view aggregation",
			Buckets:   []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"view"}),
		datasetRecords: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "clinic",
			Subsystem: "dataset",
			Name:      "records",
			Help:      "Records per collection in the loaded dataset",
		}, []string{"collection"}),
		datasetLoads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "dataset",
			Name:      "loads_total",
			Help:      "Dataset loads by source and status",
		}, []string{"source", "status"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.viewRequests, m.computeLatency, m.datasetRecords, m.datasetLoads)
	return m
}

func (m *DashboardMetrics) ObserveViewRequest(view, cache string) {
	if m == nil {
		return
	}
	m.viewRequests.WithLabelValues(view, cache).Inc()
}

func (m *DashboardMetrics) ObserveCompute(view string, seconds float64) {
	if m == nil {
		return
	}
	m.computeLatency.WithLabelValues(view).Observe(seconds)
}

// ObserveLoad counts a dataset load attempt. On success counts carries the
// records per collection of the new dataset.
func (m *DashboardMetrics) ObserveLoad(source string, err error, counts map[string]int) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.datasetLoads.WithLabelValues(source, status).Inc()
	if err != nil {
		return
	}
	for collection, n := range counts {
		m.datasetRecords.WithLabelValues(collection).Set(float64(n))
	}
}
