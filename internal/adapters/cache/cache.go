// Package cache memoizes the dataset for the lifetime of the process.
package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/okian/covita/internal/domain/model"
	"github.com/okian/covita/pkg/logger"
	"github.com/okian/covita/pkg/metrics"
)

// fillKey is the only singleflight key: the loader takes no arguments.
const fillKey = "dataset"

// Loader fetches a new dataset snapshot.
type Loader interface {
	Load(ctx context.Context) (*model.Dataset, error)
}

// Store provides access to the cached dataset.
type Store interface {
	// Get returns the cached dataset, loading it on first use or after the
	// configured TTL has elapsed.
	Get(ctx context.Context) (*model.Dataset, error)
	// Refresh loads a new dataset and replaces the cached one on success.
	Refresh(ctx context.Context) (*model.Dataset, error)
	// Invalidate drops the cached dataset so the next Get loads again.
	Invalidate(ctx context.Context)
}

// DatasetCache implements Store. Concurrent callers that find the cache
// empty share a single load.
type DatasetCache struct {
	loader Loader
	group  singleflight.Group

	mu       sync.RWMutex
	current  *model.Dataset
	loadedAt time.Time

	ttl    time.Duration // zero: refresh only on demand
	now    func() time.Time
	logger logger.Logger
}

var _ Store = (*DatasetCache)(nil)

// New creates a DatasetCache in front of loader.
func New(loader Loader, opts ...Option) *DatasetCache {
	c := &DatasetCache{
		loader: loader,
		now:    time.Now,
		logger: logger.Named("cache"),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Get returns the cached dataset, loading it when absent or expired.
// A failed load leaves the cache untouched and is returned as is.
func (c *DatasetCache) Get(ctx context.Context) (*model.Dataset, error) {
	if ds, ok := c.fresh(); ok {
		metrics.RecordCacheHit()
		return ds, nil
	}
	metrics.RecordCacheMiss()

	return c.fill(ctx, false)
}

// Refresh always loads a new snapshot, sharing an in-flight load if one
// exists. On failure the previous snapshot stays cached.
func (c *DatasetCache) Refresh(ctx context.Context) (*model.Dataset, error) {
	return c.fill(ctx, true)
}

// Invalidate drops the cached snapshot.
func (c *DatasetCache) Invalidate(ctx context.Context) {
	c.mu.Lock()
	c.current = nil
	c.loadedAt = time.Time{}
	c.mu.Unlock()

	metrics.UpdateDatasetRecords(0)
	c.logger.Info(ctx, "dataset cache invalidated")
}

// Peek returns the cached snapshot without loading.
func (c *DatasetCache) Peek() (*model.Dataset, time.Time, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current, c.loadedAt, c.current != nil
}

// TTL returns the configured expiry; zero means manual refresh only.
func (c *DatasetCache) TTL() time.Duration { return c.ttl }

func (c *DatasetCache) fresh() (*model.Dataset, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.current == nil {
		return nil, false
	}
	if c.ttl > 0 && c.now().Sub(c.loadedAt) >= c.ttl {
		return nil, false
	}
	return c.current, true
}

func (c *DatasetCache) fill(ctx context.Context, force bool) (*model.Dataset, error) {
	// The shared load must not die with whichever caller started it.
	loadCtx := context.WithoutCancel(ctx)

	ch := c.group.DoChan(fillKey, func() (interface{}, error) {
		if !force {
			// Another caller may have filled the cache while we waited.
			if ds, ok := c.fresh(); ok {
				return ds, nil
			}
		}

		ds, err := c.loader.Load(loadCtx)
		if err != nil {
			return nil, err
		}
		if ds == nil {
			return nil, fmt.Errorf("%w: loader returned no dataset", model.ErrDataUnavailable)
		}

		c.mu.Lock()
		c.current = ds
		c.loadedAt = c.now()
		c.mu.Unlock()

		metrics.UpdateDatasetRecords(ds.Len())
		metrics.UpdateDatasetRegions(len(ds.Regions()))
		metrics.UpdateDatasetLastRefresh(ds.FetchedAt)
		c.logger.Info(ctx, "dataset cached",
			logger.String("dataset_id", ds.ID),
			logger.Int("records", ds.Len()),
		)
		return ds, nil
	})

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("wait for dataset: %w", ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*model.Dataset), nil
	}
}
