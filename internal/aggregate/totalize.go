package aggregate

import (
	"sort"
)

// Totalize collapses each station's daily counts into one period total.
// No date filtering happens here: the period is whatever the input files
// covered. Totals are ordered by traffic, busiest first, ties by name.
func Totalize(in Grouped[string]) []StationTotal {
	totals := make([]StationTotal, 0, len(in))
	for station, daily := range in {
		totals = append(totals, StationTotal{Station: station, Total: daily.Total()})
	}
	SortTotals(totals)
	return totals
}

// SortTotals orders totals by traffic descending, then by station name.
func SortTotals(totals []StationTotal) {
	sort.Slice(totals, func(i, j int) bool {
		if totals[i].Total != totals[j].Total {
			return totals[i].Total > totals[j].Total
		}
		return totals[i].Station < totals[j].Station
	})
}

// TotalsMap converts totals into a station lookup.
func TotalsMap(totals []StationTotal) map[string]int64 {
	m := make(map[string]int64, len(totals))
	for _, t := range totals {
		m[t.Station] = t.Total
	}
	return m
}

// FromMap converts a station lookup into ordered totals.
func FromMap(m map[string]int64) []StationTotal {
	totals := make([]StationTotal, 0, len(m))
	for station, total := range m {
		totals = append(totals, StationTotal{Station: station, Total: total})
	}
	SortTotals(totals)
	return totals
}
