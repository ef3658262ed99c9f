package domain

import (
	"math"
	"sort"
	"time"
)

// weightedMean accumulates sum(rate*population) / sum(population).
type weightedMean struct {
	num      float64
	den      float64
	hasValue bool
}

// add counts population in the denominator even when rate is undefined.
func (w *weightedMean) add(rate Value, population float64) {
	w.den += population
	if rate.Valid {
		w.num += rate.Float * population
		w.hasValue = true
	}
}

// value is undefined when no row in the group carried a rate or the population
// sum is zero. An all-missing group reads as undefined, not as a 0.0 rate.
func (w weightedMean) value() Value {
	if w.den == 0 || !w.hasValue {
		return Value{}
	}
	return Some(w.num / w.den)
}

// dayAccumulator folds rows of one group into a ContinentDayStat.
type dayAccumulator struct {
	stat         ContinentDayStat
	casesPerM    weightedMean
	deathsPerM   weightedMean
	positiveRate weightedMean
}

func (a *dayAccumulator) addRecord(r DailyRecord) {
	pop := float64(r.Population)
	a.stat.Population += r.Population
	a.stat.NewCases += r.NewCases.Or(0)
	a.stat.NewCasesSmoothed += r.NewCasesSmoothed.Or(0)
	a.stat.NewDeaths += r.NewDeaths.Or(0)
	a.stat.NewDeathsSmoothed += r.NewDeathsSmoothed.Or(0)
	a.casesPerM.add(r.NewCasesSmoothedPerMillion, pop)
	a.deathsPerM.add(r.NewDeathsSmoothedPerMillion, pop)
	a.positiveRate.add(r.PositiveRate, pop)
}

func (a *dayAccumulator) addStat(s ContinentDayStat) {
	pop := float64(s.Population)
	a.stat.Population += s.Population
	a.stat.NewCases += s.NewCases
	a.stat.NewCasesSmoothed += s.NewCasesSmoothed
	a.stat.NewDeaths += s.NewDeaths
	a.stat.NewDeathsSmoothed += s.NewDeathsSmoothed
	a.casesPerM.add(s.NewCasesSmoothedPerMillion, pop)
	a.deathsPerM.add(s.NewDeathsSmoothedPerMillion, pop)
	a.positiveRate.add(s.PositiveRate, pop)
}

func (a *dayAccumulator) result() ContinentDayStat {
	out := a.stat
	out.NewCasesSmoothedPerMillion = a.casesPerM.value()
	out.NewDeathsSmoothedPerMillion = a.deathsPerM.value()
	out.PositiveRate = a.positiveRate.value()
	return out
}

type continentDayKey struct {
	continent string
	day       int64
}

// ContinentTimeSeries groups records by (continent, date). Rows without a
// continent are OWID aggregates and are skipped. The result is ordered by
// continent, then date.
func ContinentTimeSeries(records []DailyRecord) []ContinentDayStat {
	groups := make(map[continentDayKey]*dayAccumulator)
	for _, r := range records {
		if r.Continent == "" {
			continue
		}
		key := continentDayKey{continent: r.Continent, day: r.Date.Unix()}
		acc, ok := groups[key]
		if !ok {
			acc = &dayAccumulator{stat: ContinentDayStat{Continent: r.Continent, Date: r.Date}}
			groups[key] = acc
		}
		acc.addRecord(r)
	}

	out := make([]ContinentDayStat, 0, len(groups))
	for _, acc := range groups {
		out = append(out, acc.result())
	}
	sortSeries(out)
	return out
}

// RollupByDate re-aggregates per-continent rows into one row per date using
// the same population weighting. The rows carry the given label as continent.
func RollupByDate(series []ContinentDayStat, label string) []ContinentDayStat {
	groups := make(map[int64]*dayAccumulator)
	for _, s := range series {
		day := s.Date.Unix()
		acc, ok := groups[day]
		if !ok {
			acc = &dayAccumulator{stat: ContinentDayStat{Continent: label, Date: s.Date}}
			groups[day] = acc
		}
		acc.addStat(s)
	}

	out := make([]ContinentDayStat, 0, len(groups))
	for _, acc := range groups {
		out = append(out, acc.result())
	}
	sortSeries(out)
	return out
}

func sortSeries(series []ContinentDayStat) {
	sort.Slice(series, func(i, j int) bool {
		if series[i].Continent != series[j].Continent {
			return series[i].Continent < series[j].Continent
		}
		return series[i].Date.Before(series[j].Date)
	})
}

type countryKey struct {
	isoCode   string
	continent string
	location  string
}

type countryAccumulator struct {
	cases, deaths         float64
	casesPerM, deathsPerM float64
}

// CountrySnapshots sums each country's smoothed daily deltas over its whole
// history and attaches the heatmap id. Rows without a continent are skipped.
// The result is ordered by iso code, then location.
func CountrySnapshots(records []DailyRecord, codes *CountryCodes) []CountrySnapshot {
	groups := make(map[countryKey]*countryAccumulator)
	for _, r := range records {
		if r.Continent == "" {
			continue
		}
		key := countryKey{isoCode: r.ISOCode, continent: r.Continent, location: r.Location}
		acc, ok := groups[key]
		if !ok {
			acc = &countryAccumulator{}
			groups[key] = acc
		}
		acc.cases += r.NewCasesSmoothed.Or(0)
		acc.deaths += r.NewDeathsSmoothed.Or(0)
		acc.casesPerM += r.NewCasesSmoothedPerMillion.Or(0)
		acc.deathsPerM += r.NewDeathsSmoothedPerMillion.Or(0)
	}

	out := make([]CountrySnapshot, 0, len(groups))
	for key, acc := range groups {
		out = append(out, CountrySnapshot{
			ISOCode:                       key.isoCode,
			Continent:                     key.continent,
			Location:                      key.location,
			MapID:                         codes.MapID(key.isoCode),
			TotalCasesSmoothed:            int64(math.RoundToEven(acc.cases)),
			TotalDeathsSmoothed:           int64(math.RoundToEven(acc.deaths)),
			TotalCasesSmoothedPerMillion:  acc.casesPerM,
			TotalDeathsSmoothedPerMillion: acc.deathsPerM,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ISOCode != out[j].ISOCode {
			return out[i].ISOCode < out[j].ISOCode
		}
		return out[i].Location < out[j].Location
	})
	return out
}

// LatestDate returns the most recent date in the series.
func LatestDate(series []ContinentDayStat) (time.Time, bool) {
	var latest time.Time
	for _, s := range series {
		if s.Date.After(latest) {
			latest = s.Date
		}
	}
	return latest, len(series) > 0
}
