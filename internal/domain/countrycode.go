package domain

import (
	"strconv"
	"sync"

	"github.com/biter777/countries"
)

// CountryCodes translates ISO 3166 alpha-3 codes to numeric codes.
type CountryCodes struct {
	numeric map[string]int
}

var defaultCountryCodes = sync.OnceValue(func() *CountryCodes {
	table := make(map[string]int)
	for _, c := range countries.All() {
		alpha3 := c.Alpha3()
		code := int(c)
		if len(alpha3) != 3 || code <= 0 || code > 999 {
			continue
		}
		table[alpha3] = code
	}
	return NewCountryCodes(table)
})

// DefaultCountryCodes returns the ISO 3166 table, built once.
func DefaultCountryCodes() *CountryCodes {
	return defaultCountryCodes()
}

// NewCountryCodes wraps an explicit alpha-3 to numeric table.
func NewCountryCodes(table map[string]int) *CountryCodes {
	numeric := make(map[string]int, len(table))
	for k, v := range table {
		numeric[k] = v
	}
	return &CountryCodes{numeric: numeric}
}

// Numeric returns the numeric code for an alpha-3 code.
func (c *CountryCodes) Numeric(alpha3 string) (int, bool) {
	if c == nil {
		return 0, false
	}
	code, ok := c.numeric[alpha3]
	return code, ok
}

// MapID returns the numeric code in decimal, or alpha3 unchanged when unknown.
func (c *CountryCodes) MapID(alpha3 string) string {
	if code, ok := c.Numeric(alpha3); ok {
		return strconv.Itoa(code)
	}
	return alpha3
}

// HeatmapJoin indexes snapshots by numeric map id. Snapshots whose id is
// still an alpha code are left out, as the topology join would drop them.
func HeatmapJoin(snapshots []CountrySnapshot) map[int]CountrySnapshot {
	out := make(map[int]CountrySnapshot, len(snapshots))
	for _, s := range snapshots {
		id, err := strconv.Atoi(s.MapID)
		if err != nil {
			continue
		}
		out[id] = s
	}
	return out
}

// HeatCell is one shaded country on the heatmap.
type HeatCell struct {
	ID       int     `json:"id"`
	Location string  `json:"location"`
	Value    float64 `json:"value"`
}

// HeatCells joins snapshots on numeric id and picks the per-million total for
// the metric. Cells are returned in snapshot order.
func HeatCells(snapshots []CountrySnapshot, m Metric) []HeatCell {
	joined := HeatmapJoin(snapshots)
	out := make([]HeatCell, 0, len(joined))
	for _, s := range snapshots {
		id, err := strconv.Atoi(s.MapID)
		if err != nil {
			continue
		}
		if joined[id].ISOCode != s.ISOCode {
			continue
		}
		out = append(out, HeatCell{ID: id, Location: s.Location, Value: s.PerMillion(m)})
	}
	return out
}
