package turnstile

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// DefaultTimeLayouts are the date+time formats tried, in order, for each row.
var DefaultTimeLayouts = []string{
	"01/02/2006 15:04:05",
	"01/02/2006 15:04",
	"2006-01-02 15:04:05",
	"01/02/06 15:04:05",
}

// maxLoggedRowErrors caps per-row debug logging for a single file.
const maxLoggedRowErrors = 10

// ParserConfig holds configuration for the record parser.
type ParserConfig struct {
	// TimeLayouts are tried in order against "<date> <time>".
	// If empty, uses DefaultTimeLayouts.
	TimeLayouts []string

	// Location is the time zone the timestamps are recorded in.
	// Default: UTC
	Location *time.Location

	// ErrorBudget decides when malformed rows reject a whole file.
	// If zero, uses DefaultErrorBudgetConfig.
	ErrorBudget ErrorBudgetConfig

	// Logger for parse diagnostics.
	Logger zerolog.Logger
}

// Parser reads raw turnstile files into per-turnstile readings.
// A Parser holds no mutable state and is safe for concurrent use.
type Parser struct {
	layouts  []string
	location *time.Location
	budget   ErrorBudgetConfig
	logger   zerolog.Logger
}

// NewParser creates a new record parser.
func NewParser(cfg ParserConfig) *Parser {
	layouts := cfg.TimeLayouts
	if len(layouts) == 0 {
		layouts = DefaultTimeLayouts
	}

	location := cfg.Location
	if location == nil {
		location = time.UTC
	}

	budget := cfg.ErrorBudget
	if budget == (ErrorBudgetConfig{}) {
		budget = DefaultErrorBudgetConfig()
	}

	return &Parser{
		layouts:  layouts,
		location: location,
		budget:   budget,
		logger:   cfg.Logger,
	}
}

// ParseFile opens path and parses it. Failure to open or read the file is
// returned as a *FatalInputError.
func (p *Parser) ParseFile(ctx context.Context, path string) (*ParseResult, error) {
	f, err := os.Open(path) //nolint:gosec // path comes from input discovery
	if err != nil {
		return nil, &FatalInputError{Path: path, Err: err}
	}
	defer f.Close()

	return p.Parse(ctx, path, f)
}

// Parse reads every record after the header row. Malformed rows are skipped
// and counted; the file is rejected only when the error budget is exhausted
// or the underlying reader fails.
func (p *Parser) Parse(ctx context.Context, name string, r io.Reader) (*ParseResult, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = true

	result := &ParseResult{
		File:     name,
		Readings: make(Readings),
	}

	logger := p.logger.With().Str("file", filepath.Base(name)).Logger()
	budget := NewErrorBudget(name, p.budget)

	// Header names vary between publications; only its presence matters.
	if _, err := cr.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return result, nil
		}
		var perr *csv.ParseError
		if !errors.As(err, &perr) {
			return nil, &FatalInputError{Path: name, Err: fmt.Errorf("read header: %w", err)}
		}
	}

	for {
		if result.Rows%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		record, readErr := cr.Read()
		if errors.Is(readErr, io.EOF) {
			break
		}

		var perr *csv.ParseError
		if readErr != nil && !errors.As(readErr, &perr) {
			return nil, &FatalInputError{Path: name, Err: readErr}
		}

		result.Rows++

		var key Key
		reading, exhausted, err := budget.Do(func() (Reading, error) {
			if readErr != nil {
				return Reading{}, &RowError{File: name, Line: perr.Line, Column: -1, Err: perr.Err}
			}
			k, rd, rowErr := p.parseRecord(record)
			if rowErr != nil {
				rowErr.File = name
				rowErr.Line, _ = cr.FieldPos(0)
				return Reading{}, rowErr
			}
			key = k
			return rd, nil
		})
		if err != nil {
			result.SkippedRows++
			if result.SkippedRows <= maxLoggedRowErrors {
				logger.Debug().Err(err).Msg("skipping malformed row")
			}
		} else {
			result.Readings[key] = append(result.Readings[key], reading)
		}

		if exhausted {
			return nil, budgetExceeded(logger, result)
		}
	}

	if budget.Exhausted() {
		return nil, budgetExceeded(logger, result)
	}

	logger.Debug().
		Int("rows", result.Rows).
		Int("skipped_rows", result.SkippedRows).
		Int("turnstiles", len(result.Readings)).
		Msg("file parsed")

	return result, nil
}

func budgetExceeded(logger zerolog.Logger, result *ParseResult) error {
	logger.Error().
		Int("rows", result.Rows).
		Int("skipped_rows", result.SkippedRows).
		Msg("row error budget exceeded, rejecting file")
	return &FatalInputError{
		Path: result.File,
		Err:  fmt.Errorf("%w: %d of %d rows malformed", ErrErrorBudgetExceeded, result.SkippedRows, result.Rows),
	}
}

func keyOf(record []string) Key {
	return Key{
		ControlArea:    strings.TrimSpace(record[ColControlArea]),
		Unit:           strings.TrimSpace(record[ColUnit]),
		SubunitChannel: strings.TrimSpace(record[ColSubunitChannel]),
		Station:        strings.TrimSpace(record[ColStation]),
	}
}

// parseRecord extracts the key and reading from one record. The returned
// RowError has File and Line unset.
func (p *Parser) parseRecord(record []string) (Key, Reading, *RowError) {
	if len(record) < NumColumns {
		return Key{}, Reading{}, &RowError{
			Column: -1,
			Err:    fmt.Errorf("%w: got %d, want %d", ErrShortRow, len(record), NumColumns),
		}
	}

	ts, err := p.parseTime(strings.TrimSpace(record[ColDate]), strings.TrimSpace(record[ColTime]))
	if err != nil {
		return Key{}, Reading{}, &RowError{Column: ColDate, Err: err}
	}

	entries, err := parseCount(record[ColEntries])
	if err != nil {
		return Key{}, Reading{}, &RowError{Column: ColEntries, Err: err}
	}

	exits, err := parseCount(record[ColExits])
	if err != nil {
		return Key{}, Reading{}, &RowError{Column: ColExits, Err: err}
	}

	return keyOf(record), Reading{Time: ts, Count: entries + exits}, nil
}

func (p *Parser) parseTime(date, clock string) (time.Time, error) {
	value := date + " " + clock
	for _, layout := range p.layouts {
		if ts, err := time.ParseInLocation(layout, value, p.location); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrBadTimestamp, value)
}

func parseCount(field string) (int64, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(field), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrBadCount, strings.TrimSpace(field))
	}
	return n, nil
}
