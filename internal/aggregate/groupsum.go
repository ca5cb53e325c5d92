package aggregate

import (
	"github.com/turnstat/turnstat/internal/turnstile"
)

// GroupSum re-keys in through project and adds counts that land on the same
// (key, date). The sum is associative and commutative, so the result does not
// depend on map iteration order. Keys with no dates are never emitted.
func GroupSum[K, P comparable](in Grouped[K], project func(K) P) Grouped[P] {
	out := make(Grouped[P])
	for key, daily := range in {
		if len(daily) == 0 {
			continue
		}
		target := project(key)
		bucket, ok := out[target]
		if !ok {
			bucket = make(Daily, len(daily))
			out[target] = bucket
		}
		for date, n := range daily {
			bucket[date] += n
		}
	}
	return out
}

// Merge adds every count in src into dst.
func Merge[K comparable](dst, src Grouped[K]) {
	for key, daily := range src {
		if len(daily) == 0 {
			continue
		}
		bucket, ok := dst[key]
		if !ok {
			bucket = make(Daily, len(daily))
			dst[key] = bucket
		}
		for date, n := range daily {
			bucket[date] += n
		}
	}
}

// ByControlUnit folds turnstiles into the control unit that houses them.
func ByControlUnit(in Grouped[turnstile.Key]) Grouped[turnstile.ControlUnitKey] {
	return GroupSum(in, turnstile.Key.ControlUnit)
}

// ByStation folds control units into their station.
func ByStation(in Grouped[turnstile.ControlUnitKey]) Grouped[string] {
	return GroupSum(in, turnstile.ControlUnitKey.StationName)
}
