// Package ranking joins station traffic with per-station donation data and
// orders stations by potential contribution.
package ranking

import "errors"

var (
	// ErrMissingColumn is returned when the contribution table lacks a
	// required column.
	ErrMissingColumn = errors.New("missing column")

	// ErrBadContribution is returned for a row whose median contribution is
	// not a number.
	ErrBadContribution = errors.New("bad contribution value")

	// ErrDuplicateStation is returned when the contribution table lists a
	// station twice.
	ErrDuplicateStation = errors.New("duplicate station")
)

// Contribution column names.
const (
	ColStation = "station"
	ColZip     = "zip"
	ColMedian  = "med_contribution_2012"
)

// Contribution is one row of the contribution table.
type Contribution struct {
	Station            string
	Zip                string
	MedianContribution float64
}

// RankedStation is a station that survived the join, with its estimated
// potential contribution.
type RankedStation struct {
	Station               string
	Zip                   string
	Traffic               int64
	MedianContribution    float64
	PotentialContribution float64
}

// RankResult is the full outcome of a ranking pass.
type RankResult struct {
	Stations []RankedStation

	// Excluded lists stations dropped by the exclusion list, in traffic order.
	Excluded []string

	// Misses lists stations with no contribution record, in traffic order.
	Misses []string
}
