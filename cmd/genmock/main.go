// Command genmock writes a synthetic OWID-format CSV so the dashboard can run
// offline (DATA_URL=file://...). Every value is derived from a fixed curve per
// country, so reruns produce identical files. After writing, it runs the
// production aggregations over the file and prints the figures tests assert on.
// The synthetic countries cover far less than the world threshold, so the
// World region renders its fallback chart domain.
//
// Usage:
//
//	go run ./cmd/genmock --out data/mock/owid-sample.csv --days 120
package main

import (
	"encoding/csv"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/couchcryptid/covid-dashboard/internal/adapter/owid"
	"github.com/couchcryptid/covid-dashboard/internal/domain"
	"github.com/spf13/pflag"
)

var baseDate = time.Date(2020, time.March, 1, 0, 0, 0, 0, time.UTC)

// countryDef describes one synthetic epidemic wave.
type countryDef struct {
	iso        string
	continent  string
	location   string
	population int64
	peak       float64 // daily cases at the top of the wave
	peakDay    int
	width      float64 // days
}

var countries = []countryDef{
	{"FRA", "Europe", "France", 67_422_000, 40_000, 40, 12},
	{"DEU", "Europe", "Germany", 83_900_471, 30_000, 45, 15},
	{"ITA", "Europe", "Italy", 60_360_000, 25_000, 30, 10},
	{"USA", "North America", "United States", 331_000_000, 200_000, 70, 20},
	{"MEX", "North America", "Mexico", 128_900_000, 15_000, 80, 18},
	{"BRA", "South America", "Brazil", 212_600_000, 60_000, 90, 25},
	{"IND", "Asia", "India", 1_380_004_385, 90_000, 100, 22},
	{"JPN", "Asia", "Japan", 126_476_461, 5_000, 50, 14},
	{"ZAF", "Africa", "South Africa", 59_308_690, 12_000, 85, 16},
	{"AUS", "Oceania", "Australia", 25_499_884, 1_500, 60, 9},
	{"OWID_KOS", "Europe", "Kosovo", 1_932_774, 600, 55, 10},
}

var columns = []string{
	"iso_code", "continent", "location", "date",
	"new_cases", "new_cases_smoothed", "new_deaths", "new_deaths_smoothed",
	"new_cases_smoothed_per_million", "new_deaths_smoothed_per_million",
	"positive_rate", "population",
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	out := pflag.String("out", "", "output path for the synthetic OWID CSV")
	days := pflag.Int("days", 120, "number of days to generate")
	pflag.Parse()

	if *out == "" || *days <= 0 {
		pflag.Usage()
		return fmt.Errorf("missing required flags: --out, --days")
	}

	if err := writeCSV(*out, generate(*days)); err != nil {
		return fmt.Errorf("writing %s: %w", *out, err)
	}
	log.Printf("wrote %s", *out)

	f, err := os.Open(*out)
	if err != nil {
		return err
	}
	defer f.Close()
	records, err := owid.ParseCSV(f)
	if err != nil {
		return fmt.Errorf("re-reading %s: %w", *out, err)
	}
	printStats(records)
	return nil
}

// generate returns CSV rows for every country and day, plus OWID's own world
// and continent aggregate rows that the loader and aggregation drop.
func generate(days int) [][]string {
	rows := [][]string{columns}
	for _, c := range countries {
		cases := make([]float64, days)
		for d := range cases {
			z := (float64(d) - float64(c.peakDay)) / c.width
			cases[d] = math.Round(c.peak * math.Exp(-z*z))
		}
		for d := range days {
			date := baseDate.AddDate(0, 0, d)
			smoothed := trailingMean(cases, d, 7)
			deaths := math.Round(0.015 * lagged(cases, d, 10))
			deathsSmoothed := 0.015 * trailingMean(cases, max(d-10, 0), 7)
			perMillion := 1e6 / float64(c.population)

			var positiveRate string
			if d >= 7 {
				positiveRate = format(0.02 + 0.2*smoothed/c.peak)
			}
			rows = append(rows, []string{
				c.iso, c.continent, c.location, date.Format(time.DateOnly),
				format(cases[d]), format(smoothed), format(deaths), format(deathsSmoothed),
				format(smoothed * perMillion), format(deathsSmoothed * perMillion),
				positiveRate, strconv.FormatInt(c.population, 10),
			})
		}
	}
	for d := range days {
		date := baseDate.AddDate(0, 0, d).Format(time.DateOnly)
		rows = append(rows,
			[]string{"OWID_WRL", "", "World", date, "0", "0", "0", "0", "0", "0", "", "7794798729"},
			[]string{"OWID_EUR", "", "Europe", date, "0", "0", "0", "0", "0", "0", "", "748000000"},
		)
	}
	return rows
}

func trailingMean(values []float64, end, window int) float64 {
	start := max(end-window+1, 0)
	var sum float64
	for _, v := range values[start : end+1] {
		sum += v
	}
	return sum / float64(end-start+1)
}

func lagged(values []float64, d, lag int) float64 {
	if d < lag {
		return 0
	}
	return values[d-lag]
}

func format(f float64) string {
	return strconv.FormatFloat(f, 'f', 3, 64)
}

func writeCSV(path string, rows [][]string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := csv.NewWriter(f)
	if err := w.WriteAll(rows); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func printStats(records []domain.DailyRecord) {
	views := domain.BuildViews(records, domain.DefaultCountryCodes())
	world := domain.WorldSeries(views.Series)

	fmt.Println("\n=== Stats for updating test assertions ===")
	fmt.Printf("Rows: %d\n", len(records))
	fmt.Printf("Series points: %d, countries: %d, world dates kept: %d\n",
		len(views.Series), len(views.Snapshots), len(world))

	byContinent := domain.CountriesByContinent(views.Snapshots)
	continents := make([]string, 0, len(byContinent))
	for c := range byContinent {
		continents = append(continents, c)
	}
	sort.Strings(continents)
	for _, c := range continents {
		fv, err := domain.FilterByLocation(views, c)
		if err != nil {
			continue
		}
		dom := domain.ComputeChartDomain(fv.Series, baseDate)
		fmt.Printf("  %-14s countries=%d value_max=%.1f date_end=%s\n",
			c, len(byContinent[c]), dom.ValueMax, dom.DateEnd.Format(time.DateOnly))
	}
}
