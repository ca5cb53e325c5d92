// Package aggregate reduces per-turnstile readings into per-station traffic.
//
// Every stage produces the same shape, a Grouped map of key to date to count,
// so each level of the hierarchy (turnstile, control unit, station) is folded
// with the one GroupSum operation.
package aggregate

import (
	"cloud.google.com/go/civil"
)

// Default plausible range for a single turnstile's daily delta. Deltas outside
// it come from counter resets, rollovers or multi-day backfills.
const (
	DefaultMinDelta int64 = 0
	DefaultMaxDelta int64 = 5000
)

// Daily maps a calendar date to a traffic count.
type Daily map[civil.Date]int64

// Total sums every date bucket.
func (d Daily) Total() int64 {
	var total int64
	for _, n := range d {
		total += n
	}
	return total
}

// Grouped maps a key to its daily counts.
type Grouped[K comparable] map[K]Daily

// StationTotal is the traffic attributed to one station over the whole
// observed period.
type StationTotal struct {
	Station string
	Total   int64
}
