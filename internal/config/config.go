package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Cache backends.
const (
	CacheBackendMemory = "memory"
	CacheBackendRedis  = "redis"
)

// Config holds all service settings, populated from flags and environment variables.
type Config struct {
	// Render, when set, renders one region to stdout and exits instead of serving.
	Render string

	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	DataURL     string
	DataTimeout time.Duration

	// News source configuration. An empty key disables news.
	NewsAPIKey        string
	NewsBaseURL       string
	NewsTimeout       time.Duration
	NewsRatePerMinute float64
	NewsConcurrency   int

	CacheTTL     time.Duration
	CacheSize    int
	CacheBackend string
	RedisAddr    string

	// RefreshSchedule is a cron expression; empty disables scheduled refreshes.
	RefreshSchedule string

	// Snapshot publishing is enabled when KafkaBrokers is non-empty.
	KafkaBrokers []string
	KafkaTopic   string
}

// NewsEnabled reports whether a news API key was supplied.
func (c *Config) NewsEnabled() bool {
	return c.NewsAPIKey != ""
}

var defaults = map[string]string{
	"HTTP_ADDR":            ":8080",
	"LOG_LEVEL":            "info",
	"LOG_FORMAT":           "json",
	"DATA_URL":             "https://covid.ourworldindata.org/data/owid-covid-data.csv",
	"DATA_TIMEOUT":         "2m",
	"NEWS_API_KEY":         "",
	"NEWS_BASE_URL":        "https://newsapi.org",
	"NEWS_TIMEOUT":         "10s",
	"NEWS_RATE_PER_MINUTE": "30",
	"NEWS_CONCURRENCY":     "4",
	"CACHE_TTL":            "6h",
	"CACHE_SIZE":           "256",
	"CACHE_BACKEND":        CacheBackendMemory,
	"REDIS_ADDR":           "",
	"REFRESH_SCHEDULE":     "@daily",
	"KAFKA_BROKERS":        "",
	"KAFKA_TOPIC":          "covid-country-snapshots",
}

// Load reads configuration from args and the environment, applying defaults
// where unset. Flags win over environment variables. A help request returns
// an error wrapping pflag.ErrHelp.
func Load(args []string) (*Config, error) {
	fs := pflag.NewFlagSet("dashboard", pflag.ContinueOnError)
	fs.String("news-api-key", "", "NewsAPI key (env NEWS_API_KEY)")
	fs.String("render", "", "render one region as JSON to stdout and exit")
	fs.String("http-addr", "", "listen address (env HTTP_ADDR)")
	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	v := viper.New()
	for key, def := range defaults {
		v.SetDefault(key, def)
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("bind %s: %w", key, err)
		}
	}
	if err := v.BindPFlag("NEWS_API_KEY", fs.Lookup("news-api-key")); err != nil {
		return nil, fmt.Errorf("bind news-api-key: %w", err)
	}
	if err := v.BindPFlag("HTTP_ADDR", fs.Lookup("http-addr")); err != nil {
		return nil, fmt.Errorf("bind http-addr: %w", err)
	}
	render, _ := fs.GetString("render")

	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	p := parser{v: v}
	cfg := &Config{
		Render:            strings.TrimSpace(render),
		HTTPAddr:          v.GetString("HTTP_ADDR"),
		LogLevel:          strings.ToLower(v.GetString("LOG_LEVEL")),
		LogFormat:         strings.ToLower(v.GetString("LOG_FORMAT")),
		ShutdownTimeout:   shutdownTimeout,
		DataURL:           v.GetString("DATA_URL"),
		DataTimeout:       p.duration("DATA_TIMEOUT"),
		NewsAPIKey:        strings.TrimSpace(v.GetString("NEWS_API_KEY")),
		NewsBaseURL:       v.GetString("NEWS_BASE_URL"),
		NewsTimeout:       p.duration("NEWS_TIMEOUT"),
		NewsRatePerMinute: p.float("NEWS_RATE_PER_MINUTE"),
		NewsConcurrency:   p.positiveInt("NEWS_CONCURRENCY"),
		CacheTTL:          p.duration("CACHE_TTL"),
		CacheSize:         p.positiveInt("CACHE_SIZE"),
		CacheBackend:      strings.ToLower(v.GetString("CACHE_BACKEND")),
		RedisAddr:         v.GetString("REDIS_ADDR"),
		RefreshSchedule:   strings.TrimSpace(v.GetString("REFRESH_SCHEDULE")),
		KafkaBrokers:      parseBrokers(v.GetString("KAFKA_BROKERS")),
		KafkaTopic:        v.GetString("KAFKA_TOPIC"),
	}
	if p.err != nil {
		return nil, p.err
	}

	if cfg.DataURL == "" {
		return nil, errors.New("DATA_URL is required")
	}
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("invalid LOG_FORMAT %q: want json or text", cfg.LogFormat)
	}
	switch cfg.CacheBackend {
	case CacheBackendMemory:
	case CacheBackendRedis:
		if cfg.RedisAddr == "" {
			return nil, errors.New("CACHE_BACKEND is redis but REDIS_ADDR is not set")
		}
	default:
		return nil, fmt.Errorf("invalid CACHE_BACKEND %q: want memory or redis", cfg.CacheBackend)
	}
	if len(cfg.KafkaBrokers) > 0 && cfg.KafkaTopic == "" {
		return nil, errors.New("KAFKA_TOPIC is required when KAFKA_BROKERS is set")
	}

	return cfg, nil
}

// parser records the first invalid value so Load can report a single error.
type parser struct {
	v   *viper.Viper
	err error
}

func (p *parser) duration(key string) time.Duration {
	s := p.v.GetString(key)
	d, err := time.ParseDuration(s)
	if err == nil && d <= 0 {
		err = errors.New("must be positive")
	}
	if err != nil {
		p.fail(fmt.Errorf("invalid %s %q: %w", key, s, err))
	}
	return d
}

func (p *parser) positiveInt(key string) int {
	s := p.v.GetString(key)
	n, err := strconv.Atoi(s)
	if err == nil && n <= 0 {
		err = errors.New("must be positive")
	}
	if err != nil {
		p.fail(fmt.Errorf("invalid %s %q: %w", key, s, err))
	}
	return n
}

func (p *parser) float(key string) float64 {
	s := p.v.GetString(key)
	f, err := strconv.ParseFloat(s, 64)
	if err == nil && f < 0 {
		err = errors.New("must not be negative")
	}
	if err != nil {
		p.fail(fmt.Errorf("invalid %s %q: %w", key, s, err))
	}
	return f
}

func (p *parser) fail(err error) {
	if p.err == nil {
		p.err = err
	}
}

// parseBrokers splits a comma-separated broker list. Blank means publishing is off.
func parseBrokers(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return sharedcfg.ParseBrokers(s)
}
