package pipeline_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/couchcryptid/covid-dashboard/internal/adapter/owid"
	"github.com/couchcryptid/covid-dashboard/internal/domain"
	"github.com/couchcryptid/covid-dashboard/internal/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestPipeline_SampleCSV runs the real CSV loader through the pipeline.
func TestPipeline_SampleCSV(t *testing.T) {
	loader := owid.NewLoader(filepath.Join("testdata", "owid_sample.csv"), time.Second, discardLogger())
	p := pipeline.New(loader, nil, nil, nil, discardLogger(), newTestMetrics(), pipeline.Options{Clock: fixedClock()})

	europe, err := p.Render(context.Background(), "Europe", domain.MetricCases)
	require.NoError(t, err)

	require.Len(t, europe.Series, 2)
	day2 := europe.Series[1]
	assert.Equal(t, int64(4000000000+2000000000+1000), day2.Population)
	assert.InDelta(t, 265, day2.NewCases, 1e-9)
	assert.InDelta(t, (20*4e9+6*2e9+1*1000)/(4e9+2e9+1000), day2.NewCasesSmoothedPerMillion.Float, 1e-6)

	ids := make(map[string]string)
	for _, s := range europe.Map {
		ids[s.Location] = s.MapID
	}
	assert.Equal(t, "250", ids["France"])
	assert.Equal(t, "276", ids["Germany"])
	assert.Equal(t, "OWID_KOS", ids["Kosovo"], "unknown codes pass through")
	assert.Len(t, europe.Heat, 2, "pass-through ids never reach the heatmap")

	world, err := p.Render(context.Background(), "World", domain.MetricDeaths)
	require.NoError(t, err)
	require.Len(t, world.Series, 2, "8e9 population clears the threshold on both days")
	assert.Equal(t, domain.WorldRegion, world.Series[0].Continent)
	assert.Len(t, world.Map, 4)
	assert.Equal(t, "Total Deaths Per Million", world.MetricLabel)
	assert.Equal(t, domain.NewsFailureUnconfigured, world.News.Failure)
	assert.Empty(t, world.News.Articles)
}
