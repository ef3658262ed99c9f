package owid

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/couchcryptid/covid-dashboard/internal/domain"
	"github.com/go-resty/resty/v2"
)

// DefaultURL is the public OWID daily dataset.
const DefaultURL = "https://covid.ourworldindata.org/data/owid-covid-data.csv"

// Loader fetches and parses the OWID dataset.
type Loader struct {
	source string
	http   *resty.Client
	logger *slog.Logger
}

// NewLoader creates a loader for source, an http(s) URL or a local file path.
func NewLoader(source string, timeout time.Duration, logger *slog.Logger) *Loader {
	return &Loader{
		source: source,
		http:   resty.New().SetTimeout(timeout),
		logger: logger,
	}
}

// Load downloads the full table. Any transport, status, or parse failure is returned.
func (l *Loader) Load(ctx context.Context) ([]domain.DailyRecord, error) {
	start := time.Now()
	body, err := l.open(ctx)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	records, err := ParseCSV(body)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", l.source, err)
	}
	l.logger.Info("dataset loaded",
		"source", l.source,
		"rows", len(records),
		"duration", time.Since(start),
	)
	return records, nil
}

func (l *Loader) open(ctx context.Context) (io.ReadCloser, error) {
	if !strings.HasPrefix(l.source, "http://") && !strings.HasPrefix(l.source, "https://") {
		f, err := os.Open(strings.TrimPrefix(l.source, "file://"))
		if err != nil {
			return nil, fmt.Errorf("open dataset: %w", err)
		}
		return f, nil
	}

	resp, err := l.http.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(l.source)
	if err != nil {
		return nil, fmt.Errorf("fetch dataset: %w", err)
	}
	body := resp.RawBody()
	if resp.StatusCode() != 200 {
		snippet, _ := io.ReadAll(io.LimitReader(body, 512))
		_ = body.Close()
		return nil, fmt.Errorf("fetch dataset: status %d: %s", resp.StatusCode(), snippet)
	}
	return body, nil
}
