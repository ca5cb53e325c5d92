package ranking

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// NormalizeName trims a station name, collapses inner whitespace to single
// spaces and upper-cases it.
func NormalizeName(name string) string {
	// A Caser holds state, so each call gets its own.
	return cases.Upper(language.Und).String(strings.Join(strings.Fields(name), " "))
}
