// Package turnstile parses raw turnstile counter files into per-turnstile readings.
package turnstile

import (
	"errors"
	"fmt"
	"time"
)

// Input errors.
var (
	ErrNoInputFiles        = errors.New("no input files found")
	ErrErrorBudgetExceeded = errors.New("row error budget exceeded")
	ErrShortRow            = errors.New("row has too few columns")
	ErrBadTimestamp        = errors.New("unparseable timestamp")
	ErrBadCount            = errors.New("unparseable counter value")
)

// Column positions in a raw turnstile file. Header names vary between
// publications, so columns are always addressed by index.
const (
	ColControlArea = iota
	ColUnit
	ColSubunitChannel
	ColStation
	ColLineName
	ColDivision
	ColDate
	ColTime
	ColDescription
	ColEntries
	ColExits

	// NumColumns is the minimum number of columns a row must carry.
	NumColumns
)

// Key identifies one physical turnstile.
type Key struct {
	ControlArea    string
	Unit           string
	SubunitChannel string
	Station        string
}

// ControlUnit projects the turnstile onto the control unit housing it.
func (k Key) ControlUnit() ControlUnitKey {
	return ControlUnitKey{
		ControlArea: k.ControlArea,
		Unit:        k.Unit,
		Station:     k.Station,
	}
}

func (k Key) String() string {
	return k.ControlArea + "/" + k.Unit + "/" + k.SubunitChannel + "@" + k.Station
}

// ControlUnitKey identifies a control unit, a group of turnstiles sharing
// a control area and unit at one station.
type ControlUnitKey struct {
	ControlArea string
	Unit        string
	Station     string
}

// StationName projects the control unit onto its station.
func (k ControlUnitKey) StationName() string {
	return k.Station
}

// Reading is one cumulative counter observation for a turnstile.
// Count is entries plus exits.
type Reading struct {
	Time  time.Time
	Count int64
}

// Readings maps each turnstile to its observations in file order.
type Readings map[Key][]Reading

// Merge appends every reading in src to r.
func (r Readings) Merge(src Readings) {
	for key, rs := range src {
		r[key] = append(r[key], rs...)
	}
}

// Len returns the total number of readings across all turnstiles.
func (r Readings) Len() int {
	n := 0
	for _, rs := range r {
		n += len(rs)
	}
	return n
}

// ParseResult is the outcome of parsing a single input file.
type ParseResult struct {
	File        string
	Readings    Readings
	Rows        int
	SkippedRows int
}

// RowError describes a single malformed record. Rows that fail are skipped.
type RowError struct {
	File   string
	Line   int
	Column int
	Err    error
}

func (e *RowError) Error() string {
	if e.Column >= 0 {
		return fmt.Sprintf("%s:%d: column %d: %v", e.File, e.Line, e.Column, e.Err)
	}
	return fmt.Sprintf("%s:%d: %v", e.File, e.Line, e.Err)
}

func (e *RowError) Unwrap() error {
	return e.Err
}

// FatalInputError aborts a run: missing inputs, unreadable files, or a file
// whose malformed rows exceeded the error budget.
type FatalInputError struct {
	Path string
	Err  error
}

func (e *FatalInputError) Error() string {
	if e.Path == "" {
		return "fatal input error: " + e.Err.Error()
	}
	return "fatal input error: " + e.Path + ": " + e.Err.Error()
}

func (e *FatalInputError) Unwrap() error {
	return e.Err
}
