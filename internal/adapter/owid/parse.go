package owid

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/covid-dashboard/internal/domain"
)

// ErrSchema reports a CSV header that lacks a required column.
var ErrSchema = errors.New("owid csv schema")

// excludedLocation is OWID's own world aggregate; continent sums already cover it.
const excludedLocation = "World"

const (
	colISOCode                     = "iso_code"
	colContinent                   = "continent"
	colLocation                    = "location"
	colDate                        = "date"
	colPopulation                  = "population"
	colNewCases                    = "new_cases"
	colNewCasesSmoothed            = "new_cases_smoothed"
	colNewDeaths                   = "new_deaths"
	colNewDeathsSmoothed           = "new_deaths_smoothed"
	colNewCasesSmoothedPerMillion  = "new_cases_smoothed_per_million"
	colNewDeathsSmoothedPerMillion = "new_deaths_smoothed_per_million"
	colPositiveRate                = "positive_rate"
)

var requiredColumns = []string{colISOCode, colContinent, colLocation, colDate}

// Metric columns may be absent from trimmed extracts; every cell then reads as undefined.
var metricColumns = []string{
	colPopulation,
	colNewCases,
	colNewCasesSmoothed,
	colNewDeaths,
	colNewDeathsSmoothed,
	colNewCasesSmoothedPerMillion,
	colNewDeathsSmoothedPerMillion,
	colPositiveRate,
}

type header map[string]int

func (h header) cell(row []string, col string) string {
	i, ok := h[col]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// ParseCSV reads an OWID daily table. Rows for the "World" location are
// dropped; empty cells become undefined values.
func ParseCSV(r io.Reader) ([]domain.DailyRecord, error) {
	cr := csv.NewReader(r)
	cr.ReuseRecord = true
	cr.FieldsPerRecord = -1

	first, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	h := make(header, len(first))
	for i, name := range first {
		h[strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))] = i
	}
	for _, col := range requiredColumns {
		if _, ok := h[col]; !ok {
			return nil, fmt.Errorf("%w: missing column %q", ErrSchema, col)
		}
	}

	var records []domain.DailyRecord
	for line := 2; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read line %d: %w", line, err)
		}
		if h.cell(row, colLocation) == excludedLocation {
			continue
		}
		rec, err := parseRow(h, row)
		if err != nil {
			return nil, fmt.Errorf("parse line %d: %w", line, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

func parseRow(h header, row []string) (domain.DailyRecord, error) {
	date, err := time.Parse(time.DateOnly, h.cell(row, colDate))
	if err != nil {
		return domain.DailyRecord{}, fmt.Errorf("date: %w", err)
	}

	values := make(map[string]domain.Value, len(metricColumns))
	for _, col := range metricColumns {
		v, err := parseValue(h.cell(row, col))
		if err != nil {
			return domain.DailyRecord{}, fmt.Errorf("%s: %w", col, err)
		}
		values[col] = v
	}

	return domain.DailyRecord{
		ISOCode:                     h.cell(row, colISOCode),
		Continent:                   h.cell(row, colContinent),
		Location:                    h.cell(row, colLocation),
		Date:                        date,
		Population:                  int64(math.Round(values[colPopulation].Or(0))),
		NewCases:                    values[colNewCases],
		NewCasesSmoothed:            values[colNewCasesSmoothed],
		NewDeaths:                   values[colNewDeaths],
		NewDeathsSmoothed:           values[colNewDeathsSmoothed],
		NewCasesSmoothedPerMillion:  values[colNewCasesSmoothedPerMillion],
		NewDeathsSmoothedPerMillion: values[colNewDeathsSmoothedPerMillion],
		PositiveRate:                values[colPositiveRate],
	}, nil
}

func parseValue(s string) (domain.Value, error) {
	if s == "" {
		return domain.Value{}, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return domain.Value{}, err
	}
	return domain.Some(f), nil
}
