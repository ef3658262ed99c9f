package main

import (
	"bytes"
	"encoding/csv"
	"testing"

	"github.com/couchcryptid/covid-dashboard/internal/adapter/owid"
	"github.com/couchcryptid/covid-dashboard/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate_RoundTripsThroughLoader(t *testing.T) {
	const days = 30
	rows := generate(days)

	var buf bytes.Buffer
	require.NoError(t, csv.NewWriter(&buf).WriteAll(rows))

	records, err := owid.ParseCSV(&buf)
	require.NoError(t, err)
	// World rows are dropped by the loader; continent aggregates stay.
	assert.Len(t, records, (len(countries)+1)*days)

	views := domain.BuildViews(records, domain.DefaultCountryCodes())
	assert.Len(t, views.Snapshots, len(countries))

	world := domain.WorldSeries(views.Series)
	assert.Empty(t, world, "synthetic populations stay below the world threshold")
}

func TestGenerate_Deterministic(t *testing.T) {
	assert.Equal(t, generate(10), generate(10))
}

func TestTrailingMean(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5, 6, 7, 8}
	assert.InDelta(t, 1.0, trailingMean(values, 0, 7), 1e-9)
	assert.InDelta(t, 2.0, trailingMean(values, 2, 7), 1e-9)
	assert.InDelta(t, 5.0, trailingMean(values, 7, 7), 1e-9)
}
