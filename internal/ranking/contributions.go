package ranking

import (
	"fmt"
	"io"
	"math"
	"os"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// LoadContributionsFile reads the contribution table at path.
func LoadContributionsFile(path string) (map[string]Contribution, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open contributions: %w", err)
	}
	defer f.Close()

	return LoadContributions(f)
}

// LoadContributions reads a contribution table keyed by station name.
// Columns are matched by header name and extra columns are ignored. Zip codes
// are kept as text.
func LoadContributions(r io.Reader) (map[string]Contribution, error) {
	df := dataframe.ReadCSV(r,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.WithTypes(map[string]series.Type{
			ColStation: series.String,
			ColZip:     series.String,
			ColMedian:  series.Float,
		}),
	)
	if df.Err != nil {
		return nil, fmt.Errorf("read contributions: %w", df.Err)
	}

	present := make(map[string]bool, df.Ncol())
	for _, name := range df.Names() {
		present[name] = true
	}
	for _, name := range []string{ColStation, ColZip, ColMedian} {
		if !present[name] {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, name)
		}
	}

	stations := df.Col(ColStation).Records()
	zips := df.Col(ColZip).Records()
	medians := df.Col(ColMedian).Float()

	out := make(map[string]Contribution, len(stations))
	for i, station := range stations {
		// Row numbers count the header as row 1.
		if math.IsNaN(medians[i]) {
			return nil, fmt.Errorf("%w: row %d (%s)", ErrBadContribution, i+2, station)
		}
		if _, dup := out[station]; dup {
			return nil, fmt.Errorf("%w: row %d (%s)", ErrDuplicateStation, i+2, station)
		}
		out[station] = Contribution{
			Station:            station,
			Zip:                zips[i],
			MedianContribution: medians[i],
		}
	}

	return out, nil
}
