package domain

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Value is a nullable float. The zero Value is undefined and encodes as JSON null.
type Value struct {
	Float float64
	Valid bool
}

// Some returns a defined Value. NaN and infinities are treated as undefined.
func Some(f float64) Value {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Value{}
	}
	return Value{Float: f, Valid: true}
}

// Or returns the float when defined, def otherwise.
func (v Value) Or(def float64) float64 {
	if !v.Valid {
		return def
	}
	return v.Float
}

func (v Value) MarshalJSON() ([]byte, error) {
	if !v.Valid {
		return []byte("null"), nil
	}
	return strconv.AppendFloat(nil, v.Float, 'g', -1, 64), nil
}

func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*v = Value{}
		return nil
	}
	f, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return fmt.Errorf("decode value: %w", err)
	}
	*v = Some(f)
	return nil
}

// DailyRecord is one OWID row: a single location on a single day.
type DailyRecord struct {
	ISOCode    string
	Continent  string // empty for OWID aggregate rows
	Location   string
	Date       time.Time
	Population int64 // 0 when missing

	NewCases                    Value
	NewCasesSmoothed            Value
	NewDeaths                   Value
	NewDeathsSmoothed           Value
	NewCasesSmoothedPerMillion  Value
	NewDeathsSmoothedPerMillion Value
	PositiveRate                Value
}

// ContinentDayStat is the roll-up of all countries of one continent on one day.
// The world roll-up reuses this type with Continent set to [WorldRegion].
type ContinentDayStat struct {
	Continent         string    `json:"continent"`
	Date              time.Time `json:"date"`
	Population        int64     `json:"population"`
	NewCases          float64   `json:"new_cases"`
	NewCasesSmoothed  float64   `json:"new_cases_smoothed"`
	NewDeaths         float64   `json:"new_deaths"`
	NewDeathsSmoothed float64   `json:"new_deaths_smoothed"`

	// Population-weighted averages.
	NewCasesSmoothedPerMillion  Value `json:"new_cases_smoothed_per_million"`
	NewDeathsSmoothedPerMillion Value `json:"new_deaths_smoothed_per_million"`
	PositiveRate                Value `json:"positive_rate"`
}

// CountrySnapshot holds per-country totals to date, used for the heatmap.
type CountrySnapshot struct {
	ISOCode   string `json:"iso_code"`
	Continent string `json:"continent"`
	Location  string `json:"location"`

	// MapID is the ISO 3166 numeric code in decimal, or ISOCode when no
	// numeric code exists.
	MapID string `json:"id"`

	TotalCasesSmoothed            int64   `json:"total_cases_smoothed"`
	TotalDeathsSmoothed           int64   `json:"total_deaths_smoothed"`
	TotalCasesSmoothedPerMillion  float64 `json:"total_cases_smoothed_per_million"`
	TotalDeathsSmoothedPerMillion float64 `json:"total_deaths_smoothed_per_million"`
}

// Total returns the rounded absolute total for the metric.
func (s CountrySnapshot) Total(m Metric) int64 {
	if m == MetricDeaths {
		return s.TotalDeathsSmoothed
	}
	return s.TotalCasesSmoothed
}

// PerMillion returns the per-million total for the metric.
func (s CountrySnapshot) PerMillion(m Metric) float64 {
	if m == MetricDeaths {
		return s.TotalDeathsSmoothedPerMillion
	}
	return s.TotalCasesSmoothedPerMillion
}

// Metric selects which totals color the heatmap.
type Metric int

const (
	MetricCases Metric = iota
	MetricDeaths
)

// ParseMetric accepts "cases" or "deaths", case-insensitively. Empty means cases.
func ParseMetric(s string) (Metric, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "cases":
		return MetricCases, nil
	case "deaths":
		return MetricDeaths, nil
	default:
		return MetricCases, fmt.Errorf("unknown metric %q", s)
	}
}

func (m Metric) String() string {
	if m == MetricDeaths {
		return "deaths"
	}
	return "cases"
}

// Label is the heatmap legend title.
func (m Metric) Label() string {
	if m == MetricDeaths {
		return "Total Deaths Per Million"
	}
	return "Total Cases Per Million"
}

func (m Metric) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *Metric) UnmarshalText(text []byte) error {
	parsed, err := ParseMetric(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
