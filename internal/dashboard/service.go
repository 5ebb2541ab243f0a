// Package dashboard serves the analytics views over the currently loaded
// clinic dataset.
package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/wolfman30/clinic-bi/internal/analytics"
	"github.com/wolfman30/clinic-bi/internal/dataset"
	"github.com/wolfman30/clinic-bi/internal/observability/metrics"
	"github.com/wolfman30/clinic-bi/pkg/logging"
)

var (
	// ErrUnknownView is returned by Compute for view names that do not exist.
	ErrUnknownView = analytics.ErrUnknownView
	// ErrNotLoaded is returned before the first successful Reload.
	ErrNotLoaded = errors.New("dashboard: dataset not loaded")
)

// Snapshot is one loaded dataset with everything derived from it. Snapshots
// are immutable and replaced as a whole on reload.
type Snapshot struct {
	Dataset  *dataset.Dataset
	Index    *dataset.Index
	Engine   *analytics.Engine
	Version  string
	Source   string
	LoadedAt time.Time
}

// Service owns the current snapshot and memoizes view results per dataset
// version.
type Service struct {
	source  dataset.Source
	opts    analytics.Options
	cache   Cache
	metrics *metrics.DashboardMetrics
	logger  *logging.Logger
	tracer  trace.Tracer
	now     func() time.Time

	current atomic.Pointer[Snapshot]
}

func NewService(source dataset.Source, opts analytics.Options, cache Cache, m *metrics.DashboardMetrics, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	if cache == nil {
		cache = NoopCache{}
	}
	return &Service{
		source:  source,
		opts:    opts,
		cache:   cache,
		metrics: m,
		logger:  logger,
		tracer:  otel.Tracer("clinicbi.internal.dashboard"),
		now:     time.Now,
	}
}

// Snapshot returns the current snapshot, or nil before the first load.
func (s *Service) Snapshot() *Snapshot {
	return s.current.Load()
}

// Reload loads the dataset from the source and swaps it in. On failure the
// previous snapshot stays in place.
func (s *Service) Reload(ctx context.Context) (*Snapshot, error) {
	if s.source == nil {
		return nil, errors.New("dashboard: dataset source not configured")
	}
	name := s.source.Name()
	ctx, span := s.tracer.Start(ctx, "dashboard.reload", trace.WithAttributes(
		attribute.String("dataset.source", name),
	))
	defer span.End()

	d, err := s.source.Load(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "load")
		s.metrics.ObserveLoad(name, err, nil)
		return nil, fmt.Errorf("dashboard: reload from %s: %w", name, err)
	}
	d = dataset.Normalize(d)

	version, err := dataset.Fingerprint(d)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "fingerprint")
		s.metrics.ObserveLoad(name, err, nil)
		return nil, fmt.Errorf("dashboard: fingerprint dataset: %w", err)
	}

	ix := dataset.NewIndex(d)
	snap := &Snapshot{
		Dataset:  d,
		Index:    ix,
		Engine:   analytics.NewEngine(d, ix, s.opts),
		Version:  version,
		Source:   name,
		LoadedAt: s.now().UTC(),
	}
	prev := s.current.Swap(snap)
	counts := d.Counts()
	s.metrics.ObserveLoad(name, nil, counts)
	span.SetAttributes(attribute.String("dataset.version", version))

	prevVersion := ""
	if prev != nil {
		prevVersion = prev.Version
	}
	s.logger.Info("dataset loaded",
		"source", name,
		"version", version,
		"previous_version", prevVersion,
		"patients", counts["patients"],
		"appointments", counts["appointments"],
		"bills", counts["bills"],
	)
	return snap, nil
}

// Compute returns the JSON encoding of a view for the given filters, served
// from the cache when the same request was computed for the current dataset
// version. Cache failures are logged and the view is computed directly.
func (s *Service) Compute(ctx context.Context, viewName string, f analytics.Filter) (json.RawMessage, error) {
	view, err := analytics.ParseView(viewName)
	if err != nil {
		return nil, err
	}
	snap := s.current.Load()
	if snap == nil {
		return nil, ErrNotLoaded
	}
	f = f.Normalize()
	key := CacheKey(view, snap.Version, f)

	ctx, span := s.tracer.Start(ctx, "dashboard.compute", trace.WithAttributes(
		attribute.String("dashboard.view", string(view)),
		attribute.String("dataset.version", snap.Version),
		attribute.String("dashboard.location", f.Location),
	))
	defer span.End()

	outcome := metrics.CacheMiss
	if _, noop := s.cache.(NoopCache); noop {
		outcome = metrics.CacheBypass
	}
	cached, ok, err := s.cache.Get(ctx, key)
	switch {
	case err != nil:
		span.RecordError(err)
		s.logger.Warn("view cache read failed", "view", view, "error", err)
		outcome = metrics.CacheBypass
	case ok:
		span.SetAttributes(attribute.Bool("dashboard.cache_hit", true))
		s.metrics.ObserveViewRequest(string(view), metrics.CacheHit)
		return cached, nil
	}

	start := time.Now()
	result, err := snap.Engine.Compute(view, f)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "compute")
		return nil, err
	}
	s.metrics.ObserveCompute(string(view), time.Since(start).Seconds())

	data, err := json.Marshal(result)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "encode")
		return nil, fmt.Errorf("dashboard: encode %s: %w", view, err)
	}

	if outcome == metrics.CacheMiss {
		if err := s.cache.Set(ctx, key, data); err != nil {
			s.logger.Warn("view cache write failed", "view", view, "error", err)
			outcome = metrics.CacheBypass
		}
	}
	s.metrics.ObserveViewRequest(string(view), outcome)
	return data, nil
}

// CacheKey identifies a view result: view, dataset version, filter set.
func CacheKey(view analytics.View, version string, f analytics.Filter) string {
	return fmt.Sprintf("%s:%s:%s", view, version, f.Key())
}
