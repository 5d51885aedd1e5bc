// Package scan runs the pipeline/configuration cross product against a
// cropped pixel buffer and reconciles the resulting candidate readings
// into one consensus value. Attempt and Reading records are immutable
// value objects constructed fresh each tick and discarded afterwards.
package scan

import (
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Attempt is the outcome of applying one preprocessing pipeline and one
// recognition configuration to one pixel buffer.
type Attempt struct {
	Pipeline   string  `json:"pipeline"`
	Config     string  `json:"config"`
	RawText    string  `json:"raw_text"`
	Value      float64 `json:"value"`
	Confidence float64 `json:"confidence"`
	Valid      bool    `json:"valid"`
}

// ValueRange bounds plausible readings for one value kind.
type ValueRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Contains reports whether v lies in the closed range.
func (r ValueRange) Contains(v float64) bool { return v >= r.Min && v <= r.Max }

// numericPattern accepts plain decimal readings like "23", ".5", "23.5".
var numericPattern = regexp.MustCompile(`^\d*\.?\d+$`)

// CleanText folds the engine output to its compatibility form and
// strips every character that is not a digit or a decimal point.
func CleanText(raw string) string {
	folded := norm.NFKC.String(raw)
	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		if (r >= '0' && r <= '9') || r == '.' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ParseReading validates the cleaned text against the numeric pattern
// and the plausibility range. Returns the parsed value and whether the
// attempt counts as valid.
func ParseReading(cleaned string, rng ValueRange) (float64, bool) {
	if !numericPattern.MatchString(cleaned) {
		return 0, false
	}
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, false
	}
	return v, rng.Contains(v)
}
