package ranking

import (
	"sort"

	"github.com/rs/zerolog"

	"github.com/turnstat/turnstat/internal/aggregate"
)

// RankerConfig holds configuration for ranking stations.
type RankerConfig struct {
	// Exclude lists stations dropped before the join.
	Exclude []string

	// TrafficTopN keeps only the busiest stations before excluding and
	// joining. 0 keeps all.
	TrafficTopN int

	// TopK limits the ranked output. 0 keeps all.
	TopK int

	// Normalize matches names after trimming, collapsing whitespace and
	// upper-casing. The default is exact matching.
	Normalize bool

	Logger zerolog.Logger
}

// Ranker orders stations by potential contribution.
type Ranker struct {
	config  RankerConfig
	exclude map[string]struct{}
	logger  zerolog.Logger
}

// NewRanker creates a new ranker.
func NewRanker(cfg RankerConfig) *Ranker {
	r := &Ranker{
		config:  cfg,
		exclude: make(map[string]struct{}, len(cfg.Exclude)),
		logger:  cfg.Logger,
	}
	for _, name := range cfg.Exclude {
		r.exclude[r.key(name)] = struct{}{}
	}
	return r
}

func (r *Ranker) key(name string) string {
	if r.config.Normalize {
		return NormalizeName(name)
	}
	return name
}

// TopByTraffic returns the n busiest stations, ties broken by name. n <= 0
// keeps all. The input is not modified.
func TopByTraffic(totals []aggregate.StationTotal, n int) []aggregate.StationTotal {
	sorted := append([]aggregate.StationTotal(nil), totals...)
	aggregate.SortTotals(sorted)
	if n > 0 && n < len(sorted) {
		sorted = sorted[:n]
	}
	return sorted
}

// Rank returns the ranked stations.
func (r *Ranker) Rank(totals []aggregate.StationTotal, contributions map[string]Contribution) []RankedStation {
	return r.RankDetailed(totals, contributions).Stations
}

// RankDetailed restricts totals to the busiest TrafficTopN, drops excluded
// stations, inner-joins the rest with contributions by name and orders the
// result by potential contribution.
func (r *Ranker) RankDetailed(totals []aggregate.StationTotal, contributions map[string]Contribution) RankResult {
	index := r.index(contributions)

	var result RankResult
	for _, t := range TopByTraffic(totals, r.config.TrafficTopN) {
		k := r.key(t.Station)
		if _, ok := r.exclude[k]; ok {
			result.Excluded = append(result.Excluded, t.Station)
			continue
		}

		c, ok := index[k]
		if !ok {
			result.Misses = append(result.Misses, t.Station)
			r.logger.Debug().
				Str("station", t.Station).
				Int64("traffic", t.Total).
				Msg("no contribution record for station")
			continue
		}

		result.Stations = append(result.Stations, RankedStation{
			Station:               t.Station,
			Zip:                   c.Zip,
			Traffic:               t.Total,
			MedianContribution:    c.MedianContribution,
			PotentialContribution: float64(t.Total) * c.MedianContribution,
		})
	}

	sort.SliceStable(result.Stations, func(i, j int) bool {
		a, b := result.Stations[i], result.Stations[j]
		if a.PotentialContribution != b.PotentialContribution {
			return a.PotentialContribution > b.PotentialContribution
		}
		return a.Station < b.Station
	})
	if k := r.config.TopK; k > 0 && k < len(result.Stations) {
		result.Stations = result.Stations[:k]
	}

	return result
}

// index keys contributions for lookup. When normalized names collide, the
// record with the lowest raw name wins.
func (r *Ranker) index(contributions map[string]Contribution) map[string]Contribution {
	if !r.config.Normalize {
		return contributions
	}

	out := make(map[string]Contribution, len(contributions))
	for name, c := range contributions {
		k := NormalizeName(name)
		if prev, ok := out[k]; ok && prev.Station < c.Station {
			continue
		}
		out[k] = c
	}
	return out
}
