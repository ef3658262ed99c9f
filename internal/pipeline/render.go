package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/couchcryptid/covid-dashboard/internal/domain"
)

// RenderResult is everything the dashboard needs to draw one region.
type RenderResult struct {
	RunID         string                    `json:"run_id"`
	Region        domain.Region             `json:"region"`
	Metric        domain.Metric             `json:"metric"`
	MetricLabel   string                    `json:"metric_label"`
	Series        []domain.ContinentDayStat `json:"series"`
	Map           []domain.CountrySnapshot  `json:"map"`
	Heat          []domain.HeatCell         `json:"heat"`
	Domain        domain.ChartDomain        `json:"domain"`
	News          domain.NewsResult         `json:"news"`
	Headlines     []Headline                `json:"headlines"`
	DataFetchedAt time.Time                 `json:"data_fetched_at"`
	GeneratedAt   time.Time                 `json:"generated_at"`
}

// Headline is one article as the news panel shows it.
type Headline struct {
	Title    string `json:"title"`
	URL      string `json:"url"`
	Byline   string `json:"byline"`
	ImageURL string `json:"image_url,omitempty"`
}

func headlines(articles []domain.NewsArticle) []Headline {
	out := make([]Headline, 0, len(articles))
	for _, a := range articles {
		out = append(out, Headline{Title: a.Title, URL: a.URL, Byline: a.Byline(), ImageURL: a.ImageURL})
	}
	return out
}

// Render scopes the current dataset to a region and computes the chart
// domain and heatmap cells for the metric.
func (p *Pipeline) Render(ctx context.Context, region string, metric domain.Metric) (RenderResult, error) {
	if _, ok := domain.LookupRegion(region); !ok {
		p.metrics.Renders.WithLabelValues("unknown", "error").Inc()
		return RenderResult{}, fmt.Errorf("%w: %q", domain.ErrUnknownRegion, region)
	}

	ds, err := p.Dataset(ctx)
	if err != nil {
		p.metrics.Renders.WithLabelValues(region, "error").Inc()
		return RenderResult{}, err
	}

	views, err := domain.FilterByLocation(ds.Views, region)
	if err != nil {
		p.metrics.Renders.WithLabelValues(region, "error").Inc()
		return RenderResult{}, err
	}

	news := ds.News[region]
	news.Articles = domain.DedupeTitles(news.Articles, domain.MaxDisplayedArticles)

	now := p.clock.Now()
	p.metrics.Renders.WithLabelValues(region, "success").Inc()
	return RenderResult{
		RunID:         ds.RunID,
		Region:        views.Region,
		Metric:        metric,
		MetricLabel:   metric.Label(),
		Series:        views.Series,
		Map:           views.Snapshots,
		Heat:          domain.HeatCells(views.Snapshots, metric),
		Domain:        domain.ComputeChartDomain(views.Series, now),
		News:          news,
		Headlines:     headlines(news.Articles),
		DataFetchedAt: ds.FetchedAt,
		GeneratedAt:   now,
	}, nil
}
