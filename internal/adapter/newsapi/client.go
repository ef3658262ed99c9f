package newsapi

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/couchcryptid/covid-dashboard/internal/domain"
	"github.com/couchcryptid/covid-dashboard/internal/observability"
	"github.com/go-resty/resty/v2"
	"github.com/goccy/go-json"
	"golang.org/x/time/rate"
)

// DefaultBaseURL is the public NewsAPI endpoint.
const DefaultBaseURL = "https://newsapi.org"

const everythingPath = "/v2/everything"

// Options configures a Client.
type Options struct {
	APIKey        string
	BaseURL       string
	Timeout       time.Duration
	RatePerMinute float64
}

// Client implements domain.NewsSource against the NewsAPI "everything" search.
type Client struct {
	apiKey  string
	http    *resty.Client
	limiter *rate.Limiter
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewClient creates a NewsAPI client. A non-positive RatePerMinute disables pacing.
func NewClient(opts Options, metrics *observability.Metrics, logger *slog.Logger) *Client {
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	limit := rate.Inf
	if opts.RatePerMinute > 0 {
		limit = rate.Limit(opts.RatePerMinute / 60)
	}
	return &Client{
		apiKey: opts.APIKey,
		http: resty.New().
			SetBaseURL(strings.TrimRight(baseURL, "/")).
			SetTimeout(opts.Timeout).
			SetHeader("Accept", "application/json"),
		limiter: rate.NewLimiter(limit, 1),
		metrics: metrics,
		logger:  logger,
	}
}

// Search runs q and returns the decoded response envelope. Every error wraps
// one of the domain news failure sentinels.
func (c *Client) Search(ctx context.Context, q domain.NewsQuery) (domain.NewsResponse, error) {
	if c.apiKey == "" {
		return domain.NewsResponse{}, domain.ErrNewsUnconfigured
	}
	if err := c.limiter.Wait(ctx); err != nil {
		c.metrics.NewsRequests.WithLabelValues("error").Inc()
		return domain.NewsResponse{}, fmt.Errorf("%w: wait for rate limit: %w", domain.ErrNewsTransport, err)
	}

	start := time.Now()
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("X-Api-Key", c.apiKey).
		SetQueryParams(map[string]string{
			"q":        q.Query,
			"from":     q.From.UTC().Format(time.DateOnly),
			"sortBy":   q.SortBy,
			"language": q.Language,
		}).
		Get(everythingPath)
	c.metrics.NewsAPIDuration.Observe(time.Since(start).Seconds())

	result, err := c.decode(resp, err)
	if err != nil {
		c.metrics.NewsRequests.WithLabelValues("error").Inc()
		return domain.NewsResponse{}, err
	}
	c.metrics.NewsRequests.WithLabelValues("success").Inc()
	c.logger.Debug("news search complete", "total_results", result.TotalResults, "articles", len(result.Articles))
	return result, nil
}

func (c *Client) decode(resp *resty.Response, err error) (domain.NewsResponse, error) {
	if err != nil {
		return domain.NewsResponse{}, fmt.Errorf("%w: %w", domain.ErrNewsTransport, err)
	}

	var body response
	decodeErr := json.Unmarshal(resp.Body(), &body)

	switch status := resp.StatusCode(); {
	case status == http.StatusUnauthorized:
		return domain.NewsResponse{}, fmt.Errorf("%w: %s", domain.ErrNewsUnauthorized, body.describe())
	case status < 200 || status > 299:
		return domain.NewsResponse{}, fmt.Errorf("%w: status %d: %s", domain.ErrNewsStatus, status, body.describe())
	}
	if decodeErr != nil {
		return domain.NewsResponse{}, fmt.Errorf("%w: %w", domain.ErrNewsDecode, decodeErr)
	}
	if body.Status != "ok" {
		return domain.NewsResponse{}, fmt.Errorf("%w: %s", domain.ErrNewsStatus, body.describe())
	}
	return body.toDomain(), nil
}

// NewsAPI response types.

type response struct {
	Status       string    `json:"status"`
	TotalResults int       `json:"totalResults"`
	Articles     []article `json:"articles"`
	Code         string    `json:"code"`
	Message      string    `json:"message"`
}

type article struct {
	Source struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"source"`
	Author      string    `json:"author"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	URL         string    `json:"url"`
	URLToImage  string    `json:"urlToImage"`
	PublishedAt time.Time `json:"publishedAt"`
	Content     string    `json:"content"`
}

func (r response) describe() string {
	switch {
	case r.Code != "" && r.Message != "":
		return r.Code + ": " + r.Message
	case r.Message != "":
		return r.Message
	case r.Status != "":
		return "status " + r.Status
	default:
		return "no error detail"
	}
}

func (r response) toDomain() domain.NewsResponse {
	articles := make([]domain.NewsArticle, 0, len(r.Articles))
	for _, a := range r.Articles {
		articles = append(articles, domain.NewsArticle{
			Title:       a.Title,
			Description: a.Description,
			Content:     a.Content,
			URL:         a.URL,
			Author:      a.Author,
			SourceName:  a.Source.Name,
			ImageURL:    a.URLToImage,
			PublishedAt: a.PublishedAt,
		})
	}
	return domain.NewsResponse{
		Status:       r.Status,
		TotalResults: r.TotalResults,
		Articles:     articles,
	}
}
