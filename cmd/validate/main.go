// Command validate checks an OWID dataset before it is pointed at the
// dashboard. It parses the CSV with the production loader, then verifies
// country code coverage and the consistency of the continent, world, and
// country aggregations.
//
// Usage:
//
//	go run ./cmd/validate --data testdata/owid.csv
//	go run ./cmd/validate --data https://covid.ourworldindata.org/data/owid-covid-data.csv
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/couchcryptid/covid-dashboard/internal/adapter/owid"
	"github.com/couchcryptid/covid-dashboard/internal/domain"
	"github.com/spf13/pflag"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	data := pflag.String("data", owid.DefaultURL, "OWID CSV path or URL")
	timeout := pflag.Duration("timeout", 2*time.Minute, "download timeout")
	pflag.Parse()

	os.Exit(run(*data, *timeout, os.Stdout))
}

func run(source string, timeout time.Duration, out io.Writer) int {
	fmt.Fprintln(out, "=== OWID Dataset Validation ===")
	fmt.Fprintln(out)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	records, err := owid.NewLoader(source, timeout, logger).Load(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load dataset: %v\n", err)
		return 1
	}

	codes := domain.DefaultCountryCodes()
	views := domain.BuildViews(records, codes)

	phases := []*phase{
		validateRecords(records),
		validateCountryCodes(views.Snapshots),
		validateContinentTotals(views),
		validateWorldRollup(views.Series),
	}

	fmt.Fprintln(out)
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Fprintf(out, "  %-42s %s\n", p.name, status)
	}

	world := domain.WorldSeries(views.Series)
	fmt.Fprintln(out)
	fmt.Fprintf(out, "Rows: %d, series points: %d, countries: %d, world dates kept: %d\n",
		len(records), len(views.Series), len(views.Snapshots), len(world))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Fprintf(out, "\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			if i >= 20 {
				fmt.Fprintf(out, "  ... and %d more\n", len(p.errors)-20)
				break
			}
			fmt.Fprintf(out, "  %s\n", e)
		}
	}

	if !allPassed {
		return 1
	}
	return 0
}

// validateRecords checks per-row invariants the aggregations rely on.
func validateRecords(records []domain.DailyRecord) *phase {
	p := &phase{name: "Row invariants"}
	type key struct {
		location string
		date     time.Time
	}
	seen := make(map[key]struct{}, len(records))
	for _, r := range records {
		k := key{r.Location, r.Date}
		if _, dup := seen[k]; dup {
			p.errorf("%s %s: duplicate row", r.Location, r.Date.Format(time.DateOnly))
		}
		seen[k] = struct{}{}

		if r.Continent != "" && r.Population < 0 {
			p.errorf("%s: negative population %d", r.Location, r.Population)
		}
		if r.PositiveRate.Valid && (r.PositiveRate.Float < 0 || r.PositiveRate.Float > 1) {
			p.errorf("%s %s: positive_rate %.4f outside [0, 1]", r.Location, r.Date.Format(time.DateOnly), r.PositiveRate.Float)
		}
	}
	return p
}

// validateCountryCodes reports real ISO codes with no numeric map id. OWID's
// own OWID_* codes are expected to pass through.
func validateCountryCodes(snapshots []domain.CountrySnapshot) *phase {
	p := &phase{name: "Country code coverage"}
	for _, s := range snapshots {
		if strings.HasPrefix(s.ISOCode, "OWID_") {
			continue
		}
		if s.MapID == s.ISOCode {
			p.errorf("%s (%s): no ISO 3166 numeric code", s.ISOCode, s.Location)
		}
	}
	return p
}

// validateContinentTotals checks that summing a continent's series matches
// the sum of its country snapshots, within rounding.
func validateContinentTotals(views domain.Views) *phase {
	p := &phase{name: "Continent vs country totals"}

	seriesTotal := make(map[string]float64)
	for _, s := range views.Series {
		seriesTotal[s.Continent] += s.NewCasesSmoothed
	}
	snapshotTotal := make(map[string]float64)
	countries := make(map[string]int)
	for _, s := range views.Snapshots {
		snapshotTotal[s.Continent] += float64(s.TotalCasesSmoothed)
		countries[s.Continent]++
	}

	continents := make([]string, 0, len(seriesTotal))
	for c := range seriesTotal {
		continents = append(continents, c)
	}
	sort.Strings(continents)
	for _, c := range continents {
		tolerance := 0.5*float64(countries[c]) + 1e-6*math.Abs(seriesTotal[c])
		if diff := math.Abs(seriesTotal[c] - snapshotTotal[c]); diff > tolerance {
			p.errorf("%s: series total %.1f vs snapshot total %.1f", c, seriesTotal[c], snapshotTotal[c])
		}
	}
	return p
}

// validateWorldRollup checks that every world row sums its continents and
// that the weighted rates stay within the continent range.
func validateWorldRollup(series []domain.ContinentDayStat) *phase {
	p := &phase{name: "World rollup consistency"}

	byDate := make(map[time.Time][]domain.ContinentDayStat)
	for _, s := range series {
		byDate[s.Date] = append(byDate[s.Date], s)
	}

	for _, w := range domain.RollupByDate(series, domain.WorldRegion) {
		var pop int64
		lo, hi := math.Inf(1), math.Inf(-1)
		for _, s := range byDate[w.Date] {
			pop += s.Population
			if s.NewCasesSmoothedPerMillion.Valid {
				lo = math.Min(lo, s.NewCasesSmoothedPerMillion.Float)
				hi = math.Max(hi, s.NewCasesSmoothedPerMillion.Float)
			}
		}
		date := w.Date.Format(time.DateOnly)
		if pop != w.Population {
			p.errorf("%s: world population %d, continents sum to %d", date, w.Population, pop)
		}
		if v := w.NewCasesSmoothedPerMillion; v.Valid && lo <= hi && (v.Float < lo-1e-9 || v.Float > hi+1e-9) {
			p.errorf("%s: weighted cases per million %.4f outside [%.4f, %.4f]", date, v.Float, lo, hi)
		}
	}
	return p
}
