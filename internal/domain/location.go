package domain

import (
	"errors"
	"fmt"
	"sort"
)

// WorldPopulationThreshold drops early world rows where not every country
// reported yet. Rows at exactly the threshold are kept.
const WorldPopulationThreshold = 7.5e9

// ErrUnknownRegion is returned for region names outside [Regions].
var ErrUnknownRegion = errors.New("unknown region")

// Views are the two derived tables computed from one raw table.
type Views struct {
	Series    []ContinentDayStat
	Snapshots []CountrySnapshot
}

// BuildViews runs both aggregations over the raw table.
func BuildViews(records []DailyRecord, codes *CountryCodes) Views {
	return Views{
		Series:    ContinentTimeSeries(records),
		Snapshots: CountrySnapshots(records, codes),
	}
}

// FilteredViews are the views scoped to one region, series sorted by date.
type FilteredViews struct {
	Region    Region
	Series    []ContinentDayStat
	Snapshots []CountrySnapshot
}

// FilterByLocation scopes the views to a region. A continent filters both
// views by exact continent name. World rolls the continents up per date,
// drops incomplete dates and keeps every snapshot.
func FilterByLocation(views Views, name string) (FilteredViews, error) {
	region, ok := LookupRegion(name)
	if !ok {
		return FilteredViews{}, fmt.Errorf("%w: %q", ErrUnknownRegion, name)
	}

	if region.Name == WorldRegion {
		return FilteredViews{
			Region:    region,
			Series:    WorldSeries(views.Series),
			Snapshots: views.Snapshots,
		}, nil
	}

	series := make([]ContinentDayStat, 0)
	for _, s := range views.Series {
		if s.Continent == region.Name {
			series = append(series, s)
		}
	}
	sort.SliceStable(series, func(i, j int) bool { return series[i].Date.Before(series[j].Date) })

	snapshots := make([]CountrySnapshot, 0)
	for _, s := range views.Snapshots {
		if s.Continent == region.Name {
			snapshots = append(snapshots, s)
		}
	}

	return FilteredViews{Region: region, Series: series, Snapshots: snapshots}, nil
}

// WorldSeries rolls continent rows up per date and keeps only dates whose
// population reaches [WorldPopulationThreshold].
func WorldSeries(series []ContinentDayStat) []ContinentDayStat {
	rolled := RollupByDate(series, WorldRegion)
	out := rolled[:0]
	for _, s := range rolled {
		if float64(s.Population) >= WorldPopulationThreshold {
			out = append(out, s)
		}
	}
	return out
}

// CountriesByContinent lists distinct country names per continent, sorted.
func CountriesByContinent(snapshots []CountrySnapshot) map[string][]string {
	seen := make(map[string]map[string]struct{})
	for _, s := range snapshots {
		if s.Continent == "" {
			continue
		}
		names, ok := seen[s.Continent]
		if !ok {
			names = make(map[string]struct{})
			seen[s.Continent] = names
		}
		names[s.Location] = struct{}{}
	}

	out := make(map[string][]string, len(seen))
	for continent, names := range seen {
		list := make([]string, 0, len(names))
		for name := range names {
			list = append(list, name)
		}
		sort.Strings(list)
		out[continent] = list
	}
	return out
}
