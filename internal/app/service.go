// Package service wires the dataset pipeline behind the HTTP API.
package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/okian/covita/internal/adapters/cache"
	"github.com/okian/covita/internal/adapters/http/ws"
	"github.com/okian/covita/internal/adapters/refresher"
	"github.com/okian/covita/internal/adapters/source"
	"github.com/okian/covita/internal/domain/aggregate"
	"github.com/okian/covita/internal/domain/model"
	"github.com/okian/covita/internal/domain/view"
	"github.com/okian/covita/pkg/logger"
	"github.com/okian/covita/pkg/metrics"
)

const (
	defaultFetchTimeout  = 60 * time.Second
	refresherStopTimeout = 5 * time.Second
	triggerManual        = "manual"
	viewNational         = "national"
	viewRegions          = "regions"
)

// Notifier is told about every new dataset.
type Notifier interface {
	Broadcast(ctx context.Context, ev ws.Event)
}

// Service owns the dataset cache and answers dashboard queries from it.
type Service struct {
	mu sync.RWMutex

	// Core components
	loader    cache.Loader
	store     *cache.DatasetCache
	refresher *refresher.Worker
	notifier  Notifier

	// Configuration
	sourceURL       string
	fetchTimeout    time.Duration
	fetchRetries    int
	cacheTTL        time.Duration
	refreshInterval time.Duration
	defaultRegions  []string
	chartWidth      int
	chartHeight     int
	warmup          bool

	// State
	started   bool
	startedAt time.Time
	cancel    context.CancelFunc

	logger logger.Logger
}

// New constructs a Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		sourceURL:      source.DefaultURL,
		fetchTimeout:   defaultFetchTimeout,
		defaultRegions: []string{"Lombardia", "Veneto", "Emilia Romagna", "Trento"},
		chartWidth:     view.DefaultWidth,
		chartHeight:    view.DefaultHeight,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start builds the pipeline and starts the background refresher if one is
// configured.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Named("service")
	}

	if s.loader == nil {
		s.loader = source.New(s.sourceURL,
			source.WithTimeout(s.fetchTimeout),
			source.WithRetries(s.fetchRetries),
		)
	}
	s.store = cache.New(s.loader, cache.WithTTL(s.cacheTTL))

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel

	if s.refreshInterval > 0 {
		s.refresher = refresher.New(s.store,
			refresher.WithInterval(s.refreshInterval),
			refresher.WithOnRefresh(func(ds *model.Dataset) { s.notify(runCtx, ds) }),
		)
		go s.refresher.Run(runCtx)
	}

	if s.warmup {
		go func() {
			if _, err := s.store.Get(runCtx); err != nil {
				s.logger.Warn(runCtx, "initial dataset load failed; will retry on first request", logger.Error(err))
			}
		}()
	}

	s.started = true
	s.startedAt = time.Now()
	s.logger.Info(ctx, "dashboard service started",
		logger.String("source", s.sourceURL),
		logger.Duration("cache_ttl", s.cacheTTL),
		logger.Duration("refresh_interval", s.refreshInterval),
		logger.Int("fetch_retries", s.fetchRetries),
	)
	return nil
}

// Stop shuts the refresher down.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	ctx := context.Background()
	s.logger.Info(ctx, "stopping dashboard service...")

	if s.refresher != nil {
		stopCtx, done := context.WithTimeout(ctx, refresherStopTimeout)
		if err := s.refresher.Shutdown(stopCtx); err != nil {
			s.logger.Warn(ctx, "refresher did not stop cleanly", logger.Error(err))
		}
		done()
		s.refresher = nil
	}
	s.cancel()

	s.started = false
	s.logger.Info(ctx, "dashboard service stopped")
}

func (s *Service) cached() (*cache.DatasetCache, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, ErrNotStarted
	}
	return s.store, nil
}

// Dataset returns the cached dataset, loading it on first use.
func (s *Service) Dataset(ctx context.Context) (*model.Dataset, error) {
	store, err := s.cached()
	if err != nil {
		return nil, err
	}
	return store.Get(ctx)
}

// Regions lists the regions present in the dataset.
func (s *Service) Regions(ctx context.Context) ([]string, error) {
	ds, err := s.Dataset(ctx)
	if err != nil {
		return nil, err
	}
	return ds.Regions(), nil
}

// DefaultRegions returns the configured region preset.
func (s *Service) DefaultRegions() []string {
	return append([]string(nil), s.defaultRegions...)
}

// View builds the render instructions for req. Zero sizes in opts take the
// configured chart size.
func (s *Service) View(ctx context.Context, req model.Request, opts view.Options) (view.View, error) {
	if err := req.Validate(); err != nil {
		return view.View{}, err
	}
	ds, err := s.Dataset(ctx)
	if err != nil {
		return view.View{}, err
	}
	if opts.Width <= 0 || opts.Height <= 0 {
		opts.Width, opts.Height = s.chartWidth, s.chartHeight
	}

	start := time.Now()
	v, err := view.Build(ds, req, opts)
	if err != nil {
		return view.View{}, err
	}
	metrics.RecordAggregation("view", string(req.Mode), elapsedMs(start))
	return v, nil
}

// National returns the national series and the ID of the dataset it came from.
func (s *Service) National(ctx context.Context, req model.Request) ([]model.Point, string, error) {
	if err := req.Validate(); err != nil {
		return nil, "", err
	}
	ds, err := s.Dataset(ctx)
	if err != nil {
		return nil, "", err
	}

	start := time.Now()
	points, err := aggregate.National(ds, req)
	if err != nil {
		return nil, "", err
	}
	metrics.RecordAggregation(viewNational, string(req.Mode), elapsedMs(start))
	return points, ds.ID, nil
}

// ByRegion returns the per-region series and the ID of the dataset it came from.
func (s *Service) ByRegion(ctx context.Context, req model.Request) ([]model.RegionPoint, string, error) {
	if err := req.Validate(); err != nil {
		return nil, "", err
	}
	ds, err := s.Dataset(ctx)
	if err != nil {
		return nil, "", err
	}

	start := time.Now()
	points, err := aggregate.ByRegion(ds, req)
	if err != nil {
		return nil, "", err
	}
	metrics.RecordAggregation(viewRegions, string(req.Mode), elapsedMs(start))
	return points, ds.ID, nil
}

// Refresh fetches the dataset again. On failure the previous one stays cached.
func (s *Service) Refresh(ctx context.Context) (*model.Dataset, error) {
	store, err := s.cached()
	if err != nil {
		return nil, err
	}

	ds, err := store.Refresh(ctx)
	if err != nil {
		metrics.RecordDatasetRefresh(triggerManual, "error")
		return nil, fmt.Errorf("refresh dataset: %w", err)
	}
	metrics.RecordDatasetRefresh(triggerManual, "ok")
	s.notify(ctx, ds)
	return ds, nil
}

// Invalidate drops the cached dataset so the next query loads it again.
func (s *Service) Invalidate(ctx context.Context) error {
	store, err := s.cached()
	if err != nil {
		return err
	}
	store.Invalidate(ctx)
	return nil
}

func (s *Service) notify(ctx context.Context, ds *model.Dataset) {
	if s.notifier == nil || ds == nil {
		return
	}
	s.notifier.Broadcast(ctx, ws.Event{
		Type:      ws.EventDatasetRefreshed,
		DatasetID: ds.ID,
		FetchedAt: ds.FetchedAt,
		Records:   ds.Len(),
	})
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":         s.started,
		"source":          s.sourceURL,
		"cacheTTL":        s.cacheTTL.String(),
		"refreshInterval": s.refreshInterval.String(),
		"fetchTimeout":    s.fetchTimeout.String(),
		"fetchRetries":    s.fetchRetries,
		"defaultRegions":  s.defaultRegions,
		"cached":          false,
	}
	if !s.started {
		return stats
	}
	stats["uptime"] = time.Since(s.startedAt).Round(time.Second).String()
	stats["cacheTTL"] = s.store.TTL().String()
	if s.refresher != nil {
		stats["refreshInterval"] = s.refresher.Interval().String()
	}

	if ds, loadedAt, ok := s.store.Peek(); ok {
		stats["cached"] = true
		stats["datasetID"] = ds.ID
		stats["records"] = ds.Len()
		stats["regions"] = len(ds.Regions())
		stats["fetchedAt"] = ds.FetchedAt
		stats["cachedAt"] = loadedAt
		if first, last, ok := ds.DateRange(); ok {
			stats["firstDate"] = first.Format(model.DateLayout)
			stats["lastDate"] = last.Format(model.DateLayout)
		}
	}
	return stats
}

func elapsedMs(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000
}
