package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpadapter "github.com/couchcryptid/covid-dashboard/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/covid-dashboard/internal/adapter/kafka"
	"github.com/couchcryptid/covid-dashboard/internal/adapter/newsapi"
	"github.com/couchcryptid/covid-dashboard/internal/adapter/owid"
	"github.com/couchcryptid/covid-dashboard/internal/cache"
	"github.com/couchcryptid/covid-dashboard/internal/config"
	"github.com/couchcryptid/covid-dashboard/internal/domain"
	"github.com/couchcryptid/covid-dashboard/internal/observability"
	"github.com/couchcryptid/covid-dashboard/internal/pipeline"
	"github.com/couchcryptid/covid-dashboard/internal/scheduler"
	"github.com/goccy/go-json"
	"github.com/spf13/pflag"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if errors.Is(err, pflag.ErrHelp) {
		os.Exit(0)
	}
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger, metrics); err != nil {
		logger.Error("dashboard failed", "error", err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) error {
	// News is feature-flagged on NEWS_API_KEY / --news-api-key.
	var news domain.NewsSource
	if cfg.NewsEnabled() {
		store, closeStore, err := newStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer closeStore()

		client := newsapi.NewClient(newsapi.Options{
			APIKey:        cfg.NewsAPIKey,
			BaseURL:       cfg.NewsBaseURL,
			Timeout:       cfg.NewsTimeout,
			RatePerMinute: cfg.NewsRatePerMinute,
		}, metrics, logger)
		news = newsapi.NewCachedSource(client, store, cfg.CacheTTL, metrics, logger)
		logger.Info("news enabled", "cache_backend", cfg.CacheBackend, "cache_ttl", cfg.CacheTTL)
	} else {
		logger.Info("news disabled: no API key")
	}

	var sink pipeline.SnapshotLoader
	if len(cfg.KafkaBrokers) > 0 {
		writer := kafkaadapter.NewWriter(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
		defer func() {
			if err := writer.Close(); err != nil {
				logger.Error("kafka writer close error", "error", err)
			}
		}()
		sink = writer
		logger.Info("snapshot publishing enabled", "topic", cfg.KafkaTopic)
	}

	loader := owid.NewLoader(cfg.DataURL, cfg.DataTimeout, logger)
	p := pipeline.New(loader, news, sink, domain.DefaultCountryCodes(), logger, metrics, pipeline.Options{
		NewsConcurrency: cfg.NewsConcurrency,
		CacheTTL:        cfg.CacheTTL,
		BuildTimeout:    cfg.DataTimeout + cfg.NewsTimeout*time.Duration(len(domain.Regions())),
	})

	if cfg.Render != "" {
		return renderOnce(ctx, p, cfg.Render, os.Stdout)
	}
	return serve(ctx, cfg, p, logger)
}

func newStore(ctx context.Context, cfg *config.Config) (cache.Store, func(), error) {
	if cfg.CacheBackend == config.CacheBackendRedis {
		store, err := cache.NewRedisStore(ctx, cfg.RedisAddr, "covid-dashboard:")
		if err != nil {
			return nil, nil, err
		}
		return store, func() { _ = store.Close() }, nil
	}
	return cache.NewMemoryStore(cfg.CacheSize, nil), func() {}, nil
}

// renderOnce writes one region's render as indented JSON.
func renderOnce(ctx context.Context, p *pipeline.Pipeline, region string, w io.Writer) error {
	result, err := p.Render(ctx, region, domain.MetricCases)
	if err != nil {
		return fmt.Errorf("render %s: %w", region, err)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func serve(ctx context.Context, cfg *config.Config, p *pipeline.Pipeline, logger *slog.Logger) error {
	srv := httpadapter.NewServer(cfg.HTTPAddr, p, logger)

	var sched *scheduler.Scheduler
	if cfg.RefreshSchedule != "" {
		s, err := scheduler.New(cfg.RefreshSchedule, p, cfg.DataTimeout, logger)
		if err != nil {
			return err
		}
		sched = s
	}

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Warm the dataset so /readyz turns green without waiting for a request.
	go func() {
		if _, err := p.Dataset(ctx); err != nil && ctx.Err() == nil {
			logger.Error("initial refresh failed", "error", err)
		}
	}()

	if sched != nil {
		sched.Start(ctx)
	}

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if sched != nil {
		sched.Stop(shutdownCtx)
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}

	logger.Info("shutdown complete")
	return nil
}
