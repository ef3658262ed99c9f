package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the dashboard.
type Metrics struct {
	// Refresh metrics.
	Refreshes       *prometheus.CounterVec // labels: outcome={success,error}
	RefreshDuration prometheus.Histogram
	RowsLoaded      prometheus.Gauge
	DatasetCache    *prometheus.CounterVec // labels: result={hit,miss}
	DataReady       prometheus.Gauge

	// Render metrics.
	Renders *prometheus.CounterVec // labels: region, outcome={success,error}

	// News metrics.
	NewsRequests    *prometheus.CounterVec // labels: outcome={success,error}
	NewsCache       *prometheus.CounterVec // labels: result={hit,miss}
	NewsAPIDuration prometheus.Histogram
	NewsArticles    *prometheus.GaugeVec   // labels: region
	NewsFailures    *prometheus.CounterVec // labels: failure

	SnapshotsPublished prometheus.Counter
}

// NewMetrics creates and registers all dashboard metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.Refreshes,
		m.RefreshDuration,
		m.RowsLoaded,
		m.DatasetCache,
		m.DataReady,
		m.Renders,
		m.NewsRequests,
		m.NewsCache,
		m.NewsAPIDuration,
		m.NewsArticles,
		m.NewsFailures,
		m.SnapshotsPublished,
	)
	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		Refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "covid_dashboard",
			Name:      "refreshes_total",
			Help:      "Dataset refreshes by outcome.",
		}, []string{"outcome"}),
		RefreshDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "covid_dashboard",
			Name:      "refresh_duration_seconds",
			Help:      "Duration of a full download-aggregate-news refresh.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 30, 60, 120},
		}),
		RowsLoaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "covid_dashboard",
			Name:      "rows_loaded",
			Help:      "Daily records in the current dataset.",
		}),
		DatasetCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "covid_dashboard",
			Name:      "dataset_cache_total",
			Help:      "Dataset memo lookups by result.",
		}, []string{"result"}),
		DataReady: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "covid_dashboard",
			Name:      "data_ready",
			Help:      "1 once a dataset has been built, 0 before.",
		}),
		Renders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "covid_dashboard",
			Name:      "renders_total",
			Help:      "Dashboard renders by region and outcome.",
		}, []string{"region", "outcome"}),
		NewsRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "covid_dashboard",
			Name:      "news_requests_total",
			Help:      "News API requests by outcome.",
		}, []string{"outcome"}),
		NewsCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "covid_dashboard",
			Name:      "news_cache_total",
			Help:      "News query cache lookups by result.",
		}, []string{"result"}),
		NewsAPIDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "covid_dashboard",
			Name:      "news_api_duration_seconds",
			Help:      "News API request duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		NewsArticles: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "covid_dashboard",
			Name:      "news_articles",
			Help:      "Relevant articles kept per region after filtering.",
		}, []string{"region"}),
		NewsFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "covid_dashboard",
			Name:      "news_failures_total",
			Help:      "Region news fetches that degraded to empty, by failure class.",
		}, []string{"failure"}),
		SnapshotsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "covid_dashboard",
			Name:      "snapshots_published_total",
			Help:      "Country snapshots written to the sink topic.",
		}),
	}
}
