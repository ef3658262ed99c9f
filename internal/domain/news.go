package domain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// SearchKeywords are the pandemic terms every kept article must mention.
var SearchKeywords = []string{"corona", "covid", "pandemic", "coronavirus", "covid19", "covid-19"}

const (
	// NewsLookback bounds how old searched articles may be.
	NewsLookback = 7 * 24 * time.Hour

	NewsSortBy   = "relevancy"
	NewsLanguage = "en"

	// MaxDisplayedArticles caps the headlines shown per region.
	MaxDisplayedArticles = 5
)

// Failure classes for a news fetch. Each source error wraps one of these.
var (
	ErrNewsUnconfigured = errors.New("news source not configured")
	ErrNewsTransport    = errors.New("news transport error")
	ErrNewsUnauthorized = errors.New("news credentials rejected")
	ErrNewsStatus       = errors.New("news source returned an error status")
	ErrNewsDecode       = errors.New("news response malformed")
)

// NewsArticle is a headline returned by the news source.
type NewsArticle struct {
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Content     string    `json:"content,omitempty"`
	URL         string    `json:"url"`
	Author      string    `json:"author,omitempty"`
	SourceName  string    `json:"source_name"`
	ImageURL    string    `json:"image_url,omitempty"`
	PublishedAt time.Time `json:"published_at,omitzero"`
}

// Byline renders "by <author> in <source>", or "by <source>" without an author.
func (a NewsArticle) Byline() string {
	if a.Author != "" {
		return fmt.Sprintf("by %s in %s", a.Author, a.SourceName)
	}
	return "by " + a.SourceName
}

// NewsQuery is one keyword search against the news source.
type NewsQuery struct {
	Query    string
	From     time.Time
	SortBy   string
	Language string
}

// CacheKey is a pure function of the query, stable across processes.
func (q NewsQuery) CacheKey() string {
	return strings.Join([]string{q.Query, q.From.UTC().Format(time.DateOnly), q.SortBy, q.Language}, "|")
}

// NewsResponse mirrors the search response envelope.
type NewsResponse struct {
	Status       string        `json:"status"`
	TotalResults int           `json:"total_results"`
	Articles     []NewsArticle `json:"articles"`
}

// NewsSource runs keyword searches.
type NewsSource interface {
	Search(ctx context.Context, q NewsQuery) (NewsResponse, error)
}

// NewsFailure classifies why a region has no news.
type NewsFailure string

const (
	NewsFailureNone         NewsFailure = ""
	NewsFailureUnconfigured NewsFailure = "unconfigured"
	NewsFailureTransport    NewsFailure = "transport"
	NewsFailureUnauthorized NewsFailure = "unauthorized"
	NewsFailureStatus       NewsFailure = "status"
	NewsFailureDecode       NewsFailure = "decode"
	NewsFailureUnknown      NewsFailure = "unknown"
)

// NewsResult carries either the relevant articles or a failure class.
// Callers render nothing when Failure is set.
type NewsResult struct {
	Articles []NewsArticle `json:"articles"`
	Failure  NewsFailure   `json:"failure,omitempty"`
}

// OK reports whether the fetch succeeded, even with zero articles.
func (r NewsResult) OK() bool {
	return r.Failure == NewsFailureNone
}

// ClassifyNewsError maps a source error onto a failure class.
func ClassifyNewsError(err error) NewsFailure {
	switch {
	case err == nil:
		return NewsFailureNone
	case errors.Is(err, ErrNewsUnconfigured):
		return NewsFailureUnconfigured
	case errors.Is(err, ErrNewsUnauthorized):
		return NewsFailureUnauthorized
	case errors.Is(err, ErrNewsStatus):
		return NewsFailureStatus
	case errors.Is(err, ErrNewsDecode):
		return NewsFailureDecode
	case errors.Is(err, ErrNewsTransport), errors.Is(err, context.DeadlineExceeded):
		return NewsFailureTransport
	default:
		return NewsFailureUnknown
	}
}

// NewsLocations is the location set for a continent: its countries plus the
// continent name, lower-cased.
func NewsLocations(continent string, countries []string) []string {
	out := make([]string, 0, len(countries)+1)
	for _, c := range countries {
		out = append(out, strings.ToLower(c))
	}
	if continent != "" {
		out = append(out, strings.ToLower(continent))
	}
	return out
}

// BuildNewsQuery ORs the quoted keywords and, when locations are given, ANDs
// them with the ORed quoted locations.
func BuildNewsQuery(keywords, locations []string) string {
	query := orGroup(keywords)
	if len(locations) > 0 {
		query += " AND " + orGroup(locations)
	}
	return query
}

func orGroup(terms []string) string {
	quoted := make([]string, len(terms))
	for i, t := range terms {
		quoted[i] = `"` + t + `"`
	}
	return "(" + strings.Join(quoted, " OR ") + ")"
}

// FetchRelevantNews searches the source and keeps the articles that mention
// a keyword and, when locations are given, a location. Source failures are
// logged and returned as a classified empty result.
func FetchRelevantNews(ctx context.Context, src NewsSource, keywords, locations []string, from time.Time, logger *slog.Logger) NewsResult {
	if src == nil {
		return NewsResult{Articles: []NewsArticle{}, Failure: NewsFailureUnconfigured}
	}

	q := NewsQuery{
		Query:    BuildNewsQuery(keywords, locations),
		From:     from,
		SortBy:   NewsSortBy,
		Language: NewsLanguage,
	}
	resp, err := src.Search(ctx, q)
	if err != nil {
		failure := ClassifyNewsError(err)
		logger.Warn("news search failed",
			"failure", string(failure),
			"locations", len(locations),
			"error", err,
		)
		return NewsResult{Articles: []NewsArticle{}, Failure: failure}
	}

	if resp.Status != "ok" || resp.TotalResults == 0 {
		return NewsResult{Articles: []NewsArticle{}}
	}
	return NewsResult{Articles: FilterRelevant(resp.Articles, keywords, locations)}
}

// FilterRelevant keeps articles whose lower-cased title, description and
// content contain a keyword and, when locations is non-empty, a location.
func FilterRelevant(articles []NewsArticle, keywords, locations []string) []NewsArticle {
	keywords = lowerAll(keywords)
	locations = lowerAll(locations)

	out := make([]NewsArticle, 0, len(articles))
	for _, a := range articles {
		text := strings.ToLower(a.Title + a.Description + a.Content)
		if !containsAny(text, keywords) {
			continue
		}
		if len(locations) > 0 && !containsAny(text, locations) {
			continue
		}
		out = append(out, a)
	}
	return out
}

// DedupeTitles keeps the first limit articles and then drops any whose title
// was already seen (case-sensitive, first wins), so fewer than limit may
// remain. A limit of 0 or less keeps all.
func DedupeTitles(articles []NewsArticle, limit int) []NewsArticle {
	if limit > 0 && len(articles) > limit {
		articles = articles[:limit]
	}
	seen := make(map[string]struct{}, len(articles))
	out := make([]NewsArticle, 0, len(articles))
	for _, a := range articles {
		if _, dup := seen[a.Title]; dup {
			continue
		}
		seen[a.Title] = struct{}{}
		out = append(out, a)
	}
	return out
}

func lowerAll(terms []string) []string {
	out := make([]string, len(terms))
	for i, t := range terms {
		out[i] = strings.ToLower(t)
	}
	return out
}

func containsAny(text string, terms []string) bool {
	for _, t := range terms {
		if strings.Contains(text, t) {
			return true
		}
	}
	return false
}
