package domain

import (
	"math"
	"sort"
	"time"
)

const (
	// DateLeadIn pads the date axis past the last data point.
	DateLeadIn = 14 * 24 * time.Hour

	// OutlierPercentile caps the value axis so a few extreme days do not
	// flatten the trend. Points above it are still plotted.
	OutlierPercentile = 99.0

	// RangeMargin is the headroom added above the percentile.
	RangeMargin = 0.10

	// DefaultValueMax is the value axis upper bound when there is no data.
	DefaultValueMax = 1.0
)

// ChartAnchorDate is the fixed start of the date axis.
var ChartAnchorDate = time.Date(2020, time.March, 1, 0, 0, 0, 0, time.UTC)

// ChartDomain holds the axis ranges of the trend chart.
type ChartDomain struct {
	DateStart time.Time `json:"date_start"`
	DateEnd   time.Time `json:"date_end"`
	ValueMin  float64   `json:"value_min"`
	ValueMax  float64   `json:"value_max"`

	// Defaulted is set when the series was empty and the ranges are fallbacks.
	Defaulted bool `json:"defaulted,omitempty"`
}

// ComputeChartDomain derives axis ranges from a filtered series. An empty
// series gets a fallback domain ending two weeks after now.
func ComputeChartDomain(series []ContinentDayStat, now time.Time) ChartDomain {
	latest, ok := LatestDate(series)
	if !ok {
		return ChartDomain{
			DateStart: ChartAnchorDate,
			DateEnd:   now.UTC().Truncate(24 * time.Hour).Add(DateLeadIn),
			ValueMin:  0,
			ValueMax:  DefaultValueMax,
			Defaulted: true,
		}
	}

	cases := make([]float64, len(series))
	for i, s := range series {
		cases[i] = s.NewCases
	}
	p, _ := Percentile(cases, OutlierPercentile)

	return ChartDomain{
		DateStart: ChartAnchorDate,
		DateEnd:   latest.Add(DateLeadIn),
		ValueMin:  0,
		ValueMax:  p * (1 + RangeMargin),
	}
}

// Percentile returns the p-th percentile (0-100) using linear interpolation
// between closest ranks, rank = p/100 * (n-1). This matches the default of
// numpy.percentile. It reports false for an empty input.
func Percentile(values []float64, p float64) (float64, bool) {
	if len(values) == 0 {
		return 0, false
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	p = math.Max(0, math.Min(100, p))
	rank := p / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo], true
	}
	frac := rank - float64(lo)
	return sorted[lo] + frac*(sorted[hi]-sorted[lo]), true
}
