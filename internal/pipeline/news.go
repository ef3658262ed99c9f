package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/couchcryptid/covid-dashboard/internal/domain"
	"golang.org/x/sync/errgroup"
)

// fetchNews runs one search per region, World unscoped and each continent
// scoped to its countries. A failed region degrades to an empty result.
func (p *Pipeline) fetchNews(ctx context.Context, views domain.Views, now time.Time, logger *slog.Logger) map[string]domain.NewsResult {
	regions := domain.Regions()
	results := make([]domain.NewsResult, len(regions))
	countries := domain.CountriesByContinent(views.Snapshots)
	from := now.Add(-domain.NewsLookback)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.newsConcurrency)
	for i, region := range regions {
		g.Go(func() error {
			var locations []string
			if region.Name != domain.WorldRegion {
				locations = domain.NewsLocations(region.Name, countries[region.Name])
			}
			results[i] = domain.FetchRelevantNews(gctx, p.news, domain.SearchKeywords, locations, from, logger.With("region", region.Name))
			return nil
		})
	}
	_ = g.Wait()

	out := make(map[string]domain.NewsResult, len(regions))
	for i, region := range regions {
		res := results[i]
		if !res.OK() {
			p.metrics.NewsFailures.WithLabelValues(string(res.Failure)).Inc()
		}
		p.metrics.NewsArticles.WithLabelValues(region.Name).Set(float64(len(domain.DedupeTitles(res.Articles, domain.MaxDisplayedArticles))))
		out[region.Name] = res
	}
	return out
}
