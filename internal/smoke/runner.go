package smoke

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/okian/covita/internal/domain/model"
	"github.com/okian/covita/pkg/logger"
	"golang.org/x/sync/errgroup"
)

const (
	modeCumulative = string(model.Cumulative)
	modeDaily      = string(model.DailyChange)
)

// Run checks every configured metric against a live service. It returns
// ErrViolations together with the report when any property fails.
func Run(ctx context.Context, cfg *Config) (*Report, error) {
	log := logger.Named("smoke")
	report := &Report{StartTime: time.Now()}

	log.Info(ctx, "starting covita smoke check",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("workers", cfg.Workers),
		logger.Duration("timeout", cfg.Timeout),
		logger.Bool("verbose", cfg.Verbose))

	client := newHTTPClient(cfg.BaseURL, cfg.Timeout)

	// Step 1: Check service health
	if err := client.checkHealth(ctx); err != nil {
		return nil, err
	}

	// Step 2: Resolve metrics and regions
	var opts optionsResponse
	if err := client.getJSON(ctx, "/api/options", nil, &opts); err != nil {
		return nil, err
	}
	metrics := cfg.Metrics
	if len(metrics) == 0 {
		for _, m := range opts.Metrics {
			metrics = append(metrics, m.Name)
		}
	}
	regions := cfg.Regions
	if len(regions) == 0 {
		regions = opts.Regions
	}

	// Step 3: Check metrics concurrently
	var (
		mu       sync.Mutex
		datasets = map[string]bool{}
	)
	g, gctx := errgroup.WithContext(ctx)
	if cfg.Workers > 0 {
		g.SetLimit(cfg.Workers)
	}
	for _, metric := range metrics {
		metric := metric
		g.Go(func() error {
			res, err := checkMetric(gctx, client, metric, regions)
			if err != nil {
				return fmt.Errorf("metric %s: %w", metric, err)
			}

			mu.Lock()
			defer mu.Unlock()
			report.MetricsChecked++
			report.NationalPoints += res.nationalPoints
			report.RegionalPoints += res.regionalPoints
			report.Violations = append(report.Violations, res.violations...)
			for _, id := range res.datasetIDs {
				datasets[id] = true
				report.DatasetID = id
			}
			if cfg.Verbose {
				log.Info(gctx, "metric checked",
					logger.String("metric", metric),
					logger.Int("nationalPoints", res.nationalPoints),
					logger.Int("regionalPoints", res.regionalPoints),
					logger.Int("violations", len(res.violations)))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if len(datasets) > 1 {
		log.Warn(ctx, "dataset changed during the run; results mix snapshots", logger.Int("datasets", len(datasets)))
	}

	// Final statistics
	report.EndTime = time.Now()
	report.Duration = report.EndTime.Sub(report.StartTime)
	displayReport(ctx, log, report)

	if report.Failed() {
		return report, fmt.Errorf("%w: %d", ErrViolations, len(report.Violations))
	}
	return report, nil
}

type metricResult struct {
	nationalPoints int
	regionalPoints int
	violations     []Violation
	datasetIDs     []string
}

func checkMetric(ctx context.Context, client *httpClient, metric string, regions []string) (metricResult, error) {
	var res metricResult

	natCum, err := client.national(ctx, metric, modeCumulative)
	if err != nil {
		return res, err
	}
	natDaily, err := client.national(ctx, metric, modeDaily)
	if err != nil {
		return res, err
	}
	regCum, err := client.regional(ctx, metric, modeCumulative, regions)
	if err != nil {
		return res, err
	}
	regDaily, err := client.regional(ctx, metric, modeDaily, regions)
	if err != nil {
		return res, err
	}

	res.nationalPoints = len(natCum.Points)
	res.regionalPoints = len(regCum.Points)
	res.violations = append(res.violations, CheckNational(metric, natCum.Points, natDaily.Points)...)
	res.violations = append(res.violations, CheckRegional(metric, regCum.Points, regDaily.Points)...)
	res.datasetIDs = []string{natCum.DatasetID, natDaily.DatasetID, regCum.DatasetID, regDaily.DatasetID}
	return res, nil
}

func displayReport(ctx context.Context, log logger.Logger, report *Report) {
	for _, v := range report.Violations {
		log.Error(ctx, "property violated",
			logger.String("metric", v.Metric),
			logger.String("series", v.Series),
			logger.String("property", v.Property),
			logger.String("detail", v.Detail))
	}
	log.Info(ctx, "final statistics",
		logger.String("datasetID", report.DatasetID),
		logger.Int("metricsChecked", report.MetricsChecked),
		logger.Int("nationalPoints", report.NationalPoints),
		logger.Int("regionalPoints", report.RegionalPoints),
		logger.Int("violations", len(report.Violations)),
		logger.Duration("duration", report.Duration))
}
