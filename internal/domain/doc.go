// Package domain models Our World in Data (OWID) COVID-19 country records and
// the derived views rendered by the dashboard.
//
// # Data Source
//
// Daily records come from the OWID compact CSV, one row per (location, date).
// Besides real countries the file carries synthetic aggregate rows such as
// "World", "Europe", "High income" or "European Union". The aggregates have an
// OWID_ prefixed iso_code and an empty continent column.
//
// # OWID Data Conventions
//
// Dates are ISO calendar dates ("2021-03-14") with no time component and are
// parsed as UTC midnight.
//
// Missing cells are empty strings. A missing count contributes nothing to a
// sum; it is not the same as an explicit zero for the weighted averages, see
// below. Population is a per-country constant repeated on every row.
//
// Smoothed metrics are 7-day rolling averages of the raw daily counts.
// Per-million metrics divide by population and multiply by 1e6.
// positive_rate is a fraction in [0, 1] and is frequently missing.
//
// # Aggregation Rules
//
// Continent and world roll-ups sum populations and counts, and average the
// rate metrics weighted by population:
//
//	rate = sum(rate_i * population_i) / sum(population_i)
//
// A country with a missing rate still contributes its population to the
// denominator. A group with zero total population yields an undefined
// [Value] instead of NaN.
//
// Per-country totals are the sum of the smoothed daily deltas over the
// whole history, rounded half to even. This approximates the cumulative
// columns and is kept as is so displayed totals stay stable.
//
// # Heatmap Ids
//
// The world topology joins on ISO 3166 numeric codes. OWID ships alpha-3
// codes, translated by [CountryCodes]. Codes without a numeric counterpart
// (OWID_KOS and the like) pass through unchanged and never join.
package domain
