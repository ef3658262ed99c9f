package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/covid-dashboard/internal/cache"
	"github.com/couchcryptid/covid-dashboard/internal/domain"
	"github.com/couchcryptid/covid-dashboard/internal/observability"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/singleflight"
)

// DataLoader fetches the raw daily table.
type DataLoader interface {
	Load(ctx context.Context) ([]domain.DailyRecord, error)
}

// SnapshotLoader writes country snapshots to a downstream sink.
type SnapshotLoader interface {
	LoadBatch(ctx context.Context, snapshots []domain.CountrySnapshot) error
}

// Options tunes a Pipeline. Zero values fall back to defaults.
type Options struct {
	NewsConcurrency int
	CacheTTL        time.Duration
	// BuildTimeout bounds a shared build independently of the callers waiting on it.
	BuildTimeout time.Duration
	Clock        clockwork.Clock
}

// DefaultBuildTimeout applies when Options.BuildTimeout is zero.
const DefaultBuildTimeout = 5 * time.Minute

// Dataset is one refresh: the derived views plus the news fetched per region.
type Dataset struct {
	RunID     string
	FetchedAt time.Time
	Rows      int
	Views     domain.Views
	News      map[string]domain.NewsResult
}

// Pipeline orchestrates the load-aggregate-enrich refresh and serves renders
// from the memoized result.
type Pipeline struct {
	loader  DataLoader
	news    domain.NewsSource
	sink    SnapshotLoader
	codes   *domain.CountryCodes
	logger  *slog.Logger
	metrics *observability.Metrics
	clock   clockwork.Clock

	datasets        *cache.Memo[*Dataset]
	builds          singleflight.Group
	ready           atomic.Bool
	newsConcurrency int
	buildTimeout    time.Duration
}

// New creates a Pipeline. Pass a nil news source to disable headlines and a
// nil sink to skip snapshot publishing.
func New(loader DataLoader, news domain.NewsSource, sink SnapshotLoader, codes *domain.CountryCodes, logger *slog.Logger, metrics *observability.Metrics, opts Options) *Pipeline {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.NewsConcurrency <= 0 {
		opts.NewsConcurrency = 1
	}
	if opts.BuildTimeout <= 0 {
		opts.BuildTimeout = DefaultBuildTimeout
	}
	if codes == nil {
		codes = domain.DefaultCountryCodes()
	}
	return &Pipeline{
		loader:          loader,
		news:            news,
		sink:            sink,
		codes:           codes,
		logger:          logger,
		metrics:         metrics,
		clock:           opts.Clock,
		datasets:        cache.NewMemo[*Dataset](4, opts.CacheTTL, opts.Clock),
		newsConcurrency: opts.NewsConcurrency,
		buildTimeout:    opts.BuildTimeout,
	}
}

// CheckReadiness returns nil once a dataset has been built, or an error
// describing why the service is not yet ready.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("dataset has not been loaded yet")
	}
	return nil
}

// Dataset returns the memoized dataset for today, building it on a miss.
// Concurrent callers share one build, which keeps running if the caller that
// started it goes away. Each caller stops waiting when its own ctx is done.
func (p *Pipeline) Dataset(ctx context.Context) (*Dataset, error) {
	key := datasetKey(p.clock.Now())
	if ds, ok := p.datasets.Get(key); ok {
		p.metrics.DatasetCache.WithLabelValues("hit").Inc()
		return ds, nil
	}
	p.metrics.DatasetCache.WithLabelValues("miss").Inc()

	ch := p.builds.DoChan(key, func() (any, error) {
		if ds, ok := p.datasets.Get(key); ok {
			return ds, nil
		}
		buildCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.buildTimeout)
		defer cancel()

		ds, err := p.build(buildCtx)
		if err != nil {
			return nil, err
		}
		p.datasets.Put(key, ds)
		return ds, nil
	})

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("wait for dataset: %w", ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Dataset), nil
	}
}

// Refresh drops the memoized dataset and rebuilds it.
func (p *Pipeline) Refresh(ctx context.Context) (*Dataset, error) {
	p.datasets.Purge()
	return p.Dataset(ctx)
}

// datasetKey changes daily so a long-running process refetches at least once a day.
func datasetKey(now time.Time) string {
	return "owid:" + now.UTC().Format(time.DateOnly)
}

func (p *Pipeline) build(ctx context.Context) (*Dataset, error) {
	start := p.clock.Now()
	runID := uuid.NewString()
	logger := p.logger.With("run_id", runID)
	logger.Info("refresh started")

	records, err := p.loader.Load(ctx)
	if err != nil {
		p.metrics.Refreshes.WithLabelValues("error").Inc()
		logger.Error("load dataset failed", "error", err)
		return nil, fmt.Errorf("load dataset: %w", err)
	}

	views := domain.BuildViews(records, p.codes)
	ds := &Dataset{
		RunID:     runID,
		FetchedAt: start,
		Rows:      len(records),
		Views:     views,
		News:      p.fetchNews(ctx, views, start, logger),
	}

	p.publish(ctx, ds, logger)

	p.metrics.RowsLoaded.Set(float64(len(records)))
	p.metrics.RefreshDuration.Observe(p.clock.Since(start).Seconds())
	p.metrics.Refreshes.WithLabelValues("success").Inc()
	p.metrics.DataReady.Set(1)
	p.ready.Store(true)

	logger.Info("refresh complete",
		"rows", len(records),
		"series_points", len(views.Series),
		"countries", len(views.Snapshots),
		"duration", p.clock.Since(start),
	)
	return ds, nil
}

// publish writes the snapshots to the sink. Failures are logged; the dataset
// still serves renders.
func (p *Pipeline) publish(ctx context.Context, ds *Dataset, logger *slog.Logger) {
	if p.sink == nil || len(ds.Views.Snapshots) == 0 {
		return
	}
	if err := p.sink.LoadBatch(ctx, ds.Views.Snapshots); err != nil {
		logger.Warn("publish snapshots failed", "error", err, "count", len(ds.Views.Snapshots))
		return
	}
	p.metrics.SnapshotsPublished.Add(float64(len(ds.Views.Snapshots)))
}
