package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/clinic-bi/internal/analytics"
	"github.com/wolfman30/clinic-bi/internal/dataset"
	"github.com/wolfman30/clinic-bi/internal/observability/metrics"
	"github.com/wolfman30/clinic-bi/pkg/logging"
)

func fixtureSource() dataset.Source {
	return dataset.NewFileSource(filepath.Join("..", "..", "testdata", "clinic.json"), logging.New("error"))
}

// swapSource returns whatever dataset or error is currently configured.
type swapSource struct {
	mu   sync.Mutex
	data *dataset.Dataset
	err  error
}

func (s *swapSource) Name() string { return "swap" }

func (s *swapSource) Load(context.Context) (*dataset.Dataset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data, s.err
}

func (s *swapSource) set(d *dataset.Dataset, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data, s.err = d, err
}

// countingCache records calls on top of a memory cache.
type countingCache struct {
	*MemoryCache
	gets, sets int
	failGet    bool
	failSet    bool
}

func (c *countingCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	c.gets++
	if c.failGet {
		return nil, false, errors.New("cache down")
	}
	return c.MemoryCache.Get(ctx, key)
}

func (c *countingCache) Set(ctx context.Context, key string, value []byte) error {
	c.sets++
	if c.failSet {
		return errors.New("cache down")
	}
	return c.MemoryCache.Set(ctx, key, value)
}

func viewRequests(t *testing.T, reg *prometheus.Registry, view, outcome string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != "clinic_dashboard_view_requests_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			labels := map[string]string{}
			for _, lp := range m.GetLabel() {
				labels[lp.GetName()] = lp.GetValue()
			}
			if labels["view"] == view && labels["cache"] == outcome {
				return m.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func TestServiceReload(t *testing.T) {
	svc := NewService(fixtureSource(), analytics.Options{}, nil, nil, logging.New("error"))
	assert.Nil(t, svc.Snapshot())

	snap, err := svc.Reload(context.Background())
	require.NoError(t, err)
	assert.Same(t, snap, svc.Snapshot())
	assert.Equal(t, "file", snap.Source)
	assert.Len(t, snap.Version, 16)
	assert.Equal(t, 4, snap.Dataset.Counts()["patients"])
	assert.False(t, snap.LoadedAt.IsZero())
}

func TestServiceReloadFailureKeepsSnapshot(t *testing.T) {
	src := &swapSource{data: &dataset.Dataset{Patients: []dataset.Patient{{ID: 1}}}}
	svc := NewService(src, analytics.Options{}, nil, nil, nil)

	first, err := svc.Reload(context.Background())
	require.NoError(t, err)

	src.set(nil, errors.New("s3 unavailable"))
	_, err = svc.Reload(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dashboard: reload from swap")
	assert.Same(t, first, svc.Snapshot())
}

func TestServiceReloadWithoutSource(t *testing.T) {
	svc := NewService(nil, analytics.Options{}, nil, nil, nil)
	_, err := svc.Reload(context.Background())
	assert.Error(t, err)
}

func TestServiceComputeCachesPerVersion(t *testing.T) {
	reg := prometheus.NewRegistry()
	cache := &countingCache{MemoryCache: NewMemoryCache(time.Minute, 100)}
	src := &swapSource{data: &dataset.Dataset{Bills: []dataset.Bill{{ID: 1, Gross: 100}}}}
	svc := NewService(src, analytics.Options{}, cache, metrics.NewDashboardMetrics(reg), nil)
	ctx := context.Background()

	_, err := svc.Reload(ctx)
	require.NoError(t, err)

	first, err := svc.Compute(ctx, "billing", analytics.Filter{})
	require.NoError(t, err)
	second, err := svc.Compute(ctx, "billing", analytics.Filter{Location: "All", Limit: analytics.DefaultPageSize})
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, cache.sets, "equivalent filters share one cache entry")
	assert.Equal(t, 1.0, viewRequests(t, reg, "billing", metrics.CacheMiss))
	assert.Equal(t, 1.0, viewRequests(t, reg, "billing", metrics.CacheHit))

	var billing analytics.BillingView
	require.NoError(t, json.Unmarshal(first, &billing))
	assert.Equal(t, 100.0, billing.TotalBilled)

	// a reload with different data changes the version and therefore the key
	src.set(&dataset.Dataset{Bills: []dataset.Bill{{ID: 1, Gross: 250}}}, nil)
	_, err = svc.Reload(ctx)
	require.NoError(t, err)

	third, err := svc.Compute(ctx, "billing", analytics.Filter{})
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(third, &billing))
	assert.Equal(t, 250.0, billing.TotalBilled)
	assert.Equal(t, 2, cache.sets)
}

func TestServiceComputeDegradesOnCacheFailure(t *testing.T) {
	reg := prometheus.NewRegistry()
	cache := &countingCache{MemoryCache: NewMemoryCache(time.Minute, 100), failGet: true, failSet: true}
	svc := NewService(fixtureSource(), analytics.Options{}, cache, metrics.NewDashboardMetrics(reg), logging.New("error"))
	ctx := context.Background()
	_, err := svc.Reload(ctx)
	require.NoError(t, err)

	data, err := svc.Compute(ctx, "overview", analytics.Filter{})
	require.NoError(t, err)

	var overview analytics.Overview
	require.NoError(t, json.Unmarshal(data, &overview))
	assert.Equal(t, 2000.0, overview.TotalRevenue)
	assert.Equal(t, 1.0, viewRequests(t, reg, "overview", metrics.CacheBypass))
}

func TestServiceComputeSetFailureStillServes(t *testing.T) {
	cache := &countingCache{MemoryCache: NewMemoryCache(time.Minute, 100), failSet: true}
	svc := NewService(fixtureSource(), analytics.Options{}, cache, nil, logging.New("error"))
	ctx := context.Background()
	_, err := svc.Reload(ctx)
	require.NoError(t, err)

	_, err = svc.Compute(ctx, "locations", analytics.Filter{})
	require.NoError(t, err)
	_, err = svc.Compute(ctx, "locations", analytics.Filter{})
	require.NoError(t, err)
	assert.Equal(t, 2, cache.sets, "nothing was stored, so both requests computed")
}

func TestServiceComputeErrors(t *testing.T) {
	svc := NewService(fixtureSource(), analytics.Options{}, nil, nil, nil)
	ctx := context.Background()

	_, err := svc.Compute(ctx, "overview", analytics.Filter{})
	assert.ErrorIs(t, err, ErrNotLoaded)

	_, err = svc.Reload(ctx)
	require.NoError(t, err)
	_, err = svc.Compute(ctx, "revenue", analytics.Filter{})
	assert.ErrorIs(t, err, ErrUnknownView)
}

func TestServiceComputeUsesOptions(t *testing.T) {
	svc := NewService(fixtureSource(), analytics.Options{Attribution: analytics.AttributionSplit, TrendMode: analytics.TrendSynthetic, TrendSeed: 3}, nil, nil, nil)
	ctx := context.Background()
	_, err := svc.Reload(ctx)
	require.NoError(t, err)

	data, err := svc.Compute(ctx, "operators", analytics.Filter{})
	require.NoError(t, err)
	var ops analytics.OperatorsView
	require.NoError(t, json.Unmarshal(data, &ops))
	assert.Equal(t, analytics.AttributionSplit, ops.Attribution)

	data, err = svc.Compute(ctx, "overview", analytics.Filter{})
	require.NoError(t, err)
	var overview analytics.Overview
	require.NoError(t, json.Unmarshal(data, &overview))
	assert.Equal(t, analytics.TrendSynthetic, overview.RevenueTrend.Mode)
}

func TestServiceConcurrentComputeAndReload(t *testing.T) {
	svc := NewService(fixtureSource(), analytics.Options{}, NewMemoryCache(time.Minute, 16), nil, nil)
	ctx := context.Background()
	_, err := svc.Reload(ctx)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			view := analytics.Views[i%len(analytics.Views)]
			for j := 0; j < 20; j++ {
				if _, err := svc.Compute(ctx, string(view), analytics.Filter{Location: "1"}); err != nil {
					t.Errorf("compute %s: %v", view, err)
					return
				}
			}
		}(i)
	}
	for i := 0; i < 3; i++ {
		if _, err := svc.Reload(ctx); err != nil {
			t.Errorf("reload: %v", err)
		}
	}
	wg.Wait()
}

func TestCacheKey(t *testing.T) {
	a := CacheKey(analytics.ViewOverview, "abc", analytics.Filter{})
	b := CacheKey(analytics.ViewOverview, "abc", analytics.Filter{Location: "all"})
	c := CacheKey(analytics.ViewOverview, "def", analytics.Filter{})
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Contains(t, a, "overview:abc:")
}
