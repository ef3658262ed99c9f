package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/couchcryptid/covid-dashboard/internal/adapter/owid"
	"github.com/couchcryptid/covid-dashboard/internal/config"
	"github.com/couchcryptid/covid-dashboard/internal/domain"
	"github.com/couchcryptid/covid-dashboard/internal/observability"
	"github.com/couchcryptid/covid-dashboard/internal/pipeline"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCSV = `iso_code,continent,location,date,new_cases,new_cases_smoothed,new_deaths,new_deaths_smoothed,new_cases_smoothed_per_million,new_deaths_smoothed_per_million,positive_rate,population
ITA,Europe,Italy,2021-06-01,10,10,1,1,5,0.5,0.1,60000000
ITA,Europe,Italy,2021-06-02,20,15,1,1,6,0.5,0.1,60000000
`

func writeSample(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "owid.csv")
	require.NoError(t, os.WriteFile(path, []byte(sampleCSV), 0o600))
	return path
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRenderOnce(t *testing.T) {
	loader := owid.NewLoader(writeSample(t), time.Second, discardLogger())
	p := pipeline.New(loader, nil, nil, nil, discardLogger(), observability.NewMetricsForTesting(), pipeline.Options{})

	var buf bytes.Buffer
	require.NoError(t, renderOnce(context.Background(), p, "Europe", &buf))

	var got struct {
		Region struct {
			Name string `json:"name"`
		} `json:"region"`
		Series []map[string]any `json:"series"`
		Heat   []domain.HeatCell `json:"heat"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "Europe", got.Region.Name)
	assert.Len(t, got.Series, 2)
	require.Len(t, got.Heat, 1)
	assert.Equal(t, 380, got.Heat[0].ID)
	assert.InDelta(t, 11, got.Heat[0].Value, 1e-9)
}

func TestRenderOnce_UnknownRegion(t *testing.T) {
	loader := owid.NewLoader(writeSample(t), time.Second, discardLogger())
	p := pipeline.New(loader, nil, nil, nil, discardLogger(), observability.NewMetricsForTesting(), pipeline.Options{})

	err := renderOnce(context.Background(), p, "Atlantis", io.Discard)
	require.ErrorIs(t, err, domain.ErrUnknownRegion)
}

func TestRun_RenderMode(t *testing.T) {
	cfg, err := config.Load([]string{"--render", "Europe"})
	require.NoError(t, err)
	cfg.DataURL = writeSample(t)

	assert.NoError(t, run(context.Background(), cfg, discardLogger(), observability.NewMetricsForTesting()))
}

func TestNewStore_Memory(t *testing.T) {
	cfg, err := config.Load(nil)
	require.NoError(t, err)

	store, closeStore, err := newStore(context.Background(), cfg)
	require.NoError(t, err)
	defer closeStore()
	require.NoError(t, store.Set(context.Background(), "k", []byte("v"), time.Minute))
}
