// Package source fetches the regional COVID-19 table over HTTP.
package source

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"github.com/okian/covita/internal/domain/model"
	"github.com/okian/covita/pkg/logger"
	"github.com/okian/covita/pkg/metrics"
)

// DefaultURL is the Protezione Civile regional dataset.
const DefaultURL = "https://raw.githubusercontent.com/pcm-dpc/COVID-19/master/dati-regioni/dpc-covid19-ita-regioni.csv"

// Default fetch configuration constants.
const (
	defaultTimeout         = 60 * time.Second
	defaultInitialInterval = 500 * time.Millisecond
	defaultMaxInterval     = 10 * time.Second
)

// Loader produces a fresh dataset snapshot on every call.
type Loader interface {
	Load(ctx context.Context) (*model.Dataset, error)
}

// HTTPSource implements Loader with a single GET of a CSV document.
type HTTPSource struct {
	url             string
	client          *http.Client
	timeout         *time.Duration
	retries         uint64
	initialInterval time.Duration
	maxInterval     time.Duration
	now             func() time.Time
	logger          logger.Logger
}

var _ Loader = (*HTTPSource)(nil)

// New creates an HTTPSource for url with configuration options.
func New(url string, opts ...Option) *HTTPSource {
	s := &HTTPSource{
		url:             url,
		client:          &http.Client{Timeout: defaultTimeout},
		initialInterval: defaultInitialInterval,
		maxInterval:     defaultMaxInterval,
		now:             time.Now,
		logger:          logger.Named("source"),
	}
	if s.url == "" {
		s.url = DefaultURL
	}

	for _, opt := range opts {
		opt(s)
	}

	// Copy the client so a timeout never leaks into a caller's client.
	if s.timeout != nil {
		c := *s.client
		c.Timeout = *s.timeout
		s.client = &c
	}

	return s
}

// Load fetches and parses the dataset. Any failure is reported as
// model.ErrDataUnavailable; nothing is returned on partial success.
func (s *HTTPSource) Load(ctx context.Context) (*model.Dataset, error) {
	start := s.now()

	var records []model.Record
	attempt := 0
	op := func() error {
		attempt++
		recs, err := s.fetch(ctx)
		if err != nil {
			return err
		}
		records = recs
		return nil
	}

	notify := func(err error, wait time.Duration) {
		s.logger.Warn(ctx, "dataset fetch failed; retrying",
			logger.Int("attempt", attempt),
			logger.String("wait", wait.String()),
			logger.Error(err),
		)
	}

	err := backoff.RetryNotify(op, s.policy(ctx), notify)
	elapsedMs := float64(s.now().Sub(start).Milliseconds())
	if err != nil {
		metrics.RecordDatasetFetch("error", elapsedMs)
		s.logger.Error(ctx, "dataset fetch failed",
			logger.String("url", s.url),
			logger.Int("attempts", attempt),
			logger.Error(err),
		)
		return nil, fmt.Errorf("%w: %w", model.ErrDataUnavailable, err)
	}
	metrics.RecordDatasetFetch("ok", elapsedMs)

	ds := &model.Dataset{
		ID:        uuid.NewString(),
		Source:    s.url,
		FetchedAt: s.now(),
		Records:   records,
	}
	s.logger.Info(ctx, "dataset fetched",
		logger.String("url", s.url),
		logger.String("dataset_id", ds.ID),
		logger.Int("records", len(records)),
		logger.Float64("elapsed_ms", elapsedMs),
	)
	return ds, nil
}

// policy returns the retry schedule. With zero retries the operation runs
// exactly once.
func (s *HTTPSource) policy(ctx context.Context) backoff.BackOff {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = s.initialInterval
	eb.MaxInterval = s.maxInterval
	eb.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(eb, s.retries), ctx)
}

// fetch performs one GET. Transport errors and 5xx responses may be
// retried; anything else is permanent.
func (s *HTTPSource) fetch(ctx context.Context) ([]model.Record, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Accept", "text/csv")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", s.url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("status code error: %d %s", resp.StatusCode, resp.Status)
		if resp.StatusCode >= http.StatusInternalServerError {
			return nil, err
		}
		return nil, backoff.Permanent(err)
	}

	records, err := Parse(resp.Body)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("parse: %w", err))
	}
	return records, nil
}
