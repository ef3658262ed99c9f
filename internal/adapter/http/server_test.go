package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	httpadapter "github.com/couchcryptid/covid-dashboard/internal/adapter/http"
	"github.com/couchcryptid/covid-dashboard/internal/domain"
	"github.com/couchcryptid/covid-dashboard/internal/observability"
	"github.com/couchcryptid/covid-dashboard/internal/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockDashboard struct {
	readyErr   error
	renderErr  error
	refreshErr error

	lastRegion string
	lastMetric domain.Metric
	refreshes  int
}

func (m *mockDashboard) CheckReadiness(context.Context) error { return m.readyErr }

func (m *mockDashboard) Render(_ context.Context, region string, metric domain.Metric) (pipeline.RenderResult, error) {
	m.lastRegion, m.lastMetric = region, metric
	if m.renderErr != nil {
		return pipeline.RenderResult{}, m.renderErr
	}
	r, ok := domain.LookupRegion(region)
	if !ok {
		return pipeline.RenderResult{}, fmt.Errorf("%w: %q", domain.ErrUnknownRegion, region)
	}
	return pipeline.RenderResult{
		RunID:       "run-1",
		Region:      r,
		Metric:      metric,
		MetricLabel: metric.Label(),
		Heat:        []domain.HeatCell{{ID: 250, Location: "France", Value: 12.5}},
		News:        domain.NewsResult{Articles: []domain.NewsArticle{}, Failure: domain.NewsFailureUnconfigured},
	}, nil
}

func (m *mockDashboard) Refresh(context.Context) (*pipeline.Dataset, error) {
	m.refreshes++
	if m.refreshErr != nil {
		return nil, m.refreshErr
	}
	return &pipeline.Dataset{RunID: "run-2", Rows: 42, FetchedAt: time.Date(2026, time.October, 15, 6, 0, 0, 0, time.UTC)}, nil
}

func newTestServer(d *mockDashboard) *httpadapter.Server {
	return httpadapter.NewServer(":0", d, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func serve(t *testing.T, srv *httpadapter.Server, method, target string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(method, target, nil))

	var body map[string]any
	if rec.Header().Get("Content-Type") != "" && rec.Body.Len() > 0 && rec.Body.Bytes()[0] == '{' {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	}
	return rec, body
}

func TestHealthzReturns200(t *testing.T) {
	rec, _ := serve(t, newTestServer(&mockDashboard{readyErr: errors.New("not loaded yet")}), http.MethodGet, "/healthz")

	assert.Equal(t, http.StatusOK, rec.Code, "liveness does not depend on readiness")
}

func TestReadyzReturns200WhenReady(t *testing.T) {
	rec, _ := serve(t, newTestServer(&mockDashboard{}), http.MethodGet, "/readyz")

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadyzReturns503WhenNotReady(t *testing.T) {
	rec, _ := serve(t, newTestServer(&mockDashboard{readyErr: errors.New("not loaded yet")}), http.MethodGet, "/readyz")

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestReadyzFollowsPipeline(t *testing.T) {
	loader := loaderFunc(func(context.Context) ([]domain.DailyRecord, error) {
		return []domain.DailyRecord{{ISOCode: "FRA", Continent: "Europe", Location: "France", Date: time.Date(2021, time.June, 1, 0, 0, 0, 0, time.UTC), Population: 1_000_000}}, nil
	})
	p := pipeline.New(loader, nil, nil, nil, slog.New(slog.NewTextHandler(io.Discard, nil)), observability.NewMetricsForTesting(), pipeline.Options{})
	srv := httpadapter.NewServer(":0", p, slog.New(slog.NewTextHandler(io.Discard, nil)))

	rec, _ := serve(t, srv, http.MethodGet, "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	_, err := p.Refresh(context.Background())
	require.NoError(t, err)

	rec, _ = serve(t, srv, http.MethodGet, "/readyz")
	assert.Equal(t, http.StatusOK, rec.Code)
}

type loaderFunc func(context.Context) ([]domain.DailyRecord, error)

func (f loaderFunc) Load(ctx context.Context) ([]domain.DailyRecord, error) { return f(ctx) }

func TestMetricsEndpoint(t *testing.T) {
	rec, _ := serve(t, newTestServer(&mockDashboard{}), http.MethodGet, "/metrics")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestRegions(t *testing.T) {
	rec, body := serve(t, newTestServer(&mockDashboard{}), http.MethodGet, "/api/v1/regions")
	require.Equal(t, http.StatusOK, rec.Code)

	regions, ok := body["regions"].([]any)
	require.True(t, ok)
	require.Len(t, regions, 7)

	world := regions[0].(map[string]any)
	assert.Equal(t, "World", world["name"])
	assert.Equal(t, "World 🗺️", world["label"])

	europe := regions[5].(map[string]any)
	assert.Equal(t, "Europe", europe["name"])
	projection := europe["projection"].(map[string]any)
	assert.InDelta(t, 275, projection["scale"], 1e-9)
	assert.Equal(t, []any{20.0, 60.0}, projection["center"])
}

func TestDashboard(t *testing.T) {
	tests := []struct {
		name       string
		target     string
		renderErr  error
		wantStatus int
		wantRegion string
		wantMetric domain.Metric
	}{
		{"default metric", "/api/v1/dashboard/Europe", nil, http.StatusOK, "Europe", domain.MetricCases},
		{"deaths metric", "/api/v1/dashboard/Asia?metric=deaths", nil, http.StatusOK, "Asia", domain.MetricDeaths},
		{"escaped region", "/api/v1/dashboard/North%20America?metric=cases", nil, http.StatusOK, "North America", domain.MetricCases},
		{"unknown region", "/api/v1/dashboard/Atlantis", nil, http.StatusNotFound, "Atlantis", domain.MetricCases},
		{"bad metric", "/api/v1/dashboard/Europe?metric=recoveries", nil, http.StatusBadRequest, "", domain.MetricCases},
		{"loader failure", "/api/v1/dashboard/World", errors.New("load dataset: timeout"), http.StatusBadGateway, "World", domain.MetricCases},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := &mockDashboard{renderErr: tt.renderErr}
			rec, body := serve(t, newTestServer(d), http.MethodGet, tt.target)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantRegion, d.lastRegion)
			if tt.wantStatus != http.StatusOK {
				assert.NotEmpty(t, body["error"])
				return
			}
			assert.Equal(t, tt.wantMetric, d.lastMetric)
			assert.Equal(t, "run-1", body["run_id"])
			assert.Equal(t, tt.wantMetric.String(), body["metric"])
			assert.Equal(t, tt.wantMetric.Label(), body["metric_label"])
		})
	}
}

func TestRefresh(t *testing.T) {
	d := &mockDashboard{}
	rec, body := serve(t, newTestServer(d), http.MethodPost, "/api/v1/refresh")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, d.refreshes)
	assert.Equal(t, "run-2", body["run_id"])
	assert.EqualValues(t, 42, body["rows"])
}

func TestRefreshFailure(t *testing.T) {
	d := &mockDashboard{refreshErr: errors.New("load dataset: status 503")}
	rec, body := serve(t, newTestServer(d), http.MethodPost, "/api/v1/refresh")

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, body["error"], "status 503")
}

func TestRefreshRequiresPost(t *testing.T) {
	rec, _ := serve(t, newTestServer(&mockDashboard{}), http.MethodGet, "/api/v1/refresh")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
