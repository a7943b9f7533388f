// Package cli provides the command-line interface for the discipline core.
package cli

import (
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// For any duration, FormatDuration should:
// 1. Match the compact pattern (hours+minutes, minutes+seconds, or seconds)
// 2. Carry a minus prefix exactly when the duration is negative
// 3. Never emit a minutes or seconds component of 60 or more
func TestProperty_DurationFormatting(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	pattern := regexp.MustCompile(`^-?(\d+h[0-5]?\dm|\d+m[0-5]?\ds|\d+s)$`)

	properties.Property("FormatDuration produces compact form", prop.ForAll(
		func(seconds int64) bool {
			d := time.Duration(seconds) * time.Second
			formatted := FormatDuration(d)

			if !pattern.MatchString(formatted) {
				t.Logf("Invalid format for %v: %s", d, formatted)
				return false
			}

			if (seconds < 0) != strings.HasPrefix(formatted, "-") {
				t.Logf("Sign mismatch for %v: %s", d, formatted)
				return false
			}

			return true
		},
		gen.Int64Range(-1000000, 1000000),
	))

	properties.TestingRun(t)
}

// For any score in [0, 100], FormatScore embeds the band label and the
// band boundaries are exhaustive and ordered.
func TestProperty_ScoreFormatting(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("FormatScore embeds the band label", prop.ForAll(
		func(score float64) bool {
			formatted := FormatScore(score)
			band := ScoreBand(score)

			if !strings.Contains(formatted, band) {
				t.Logf("Expected band %q in %q", band, formatted)
				return false
			}

			switch band {
			case "excellent":
				return score >= 90
			case "good":
				return score >= 70 && score < 90
			case "at risk":
				return score >= 40 && score < 70
			case "critical":
				return score < 40
			}
			return false
		},
		gen.Float64Range(0, 100),
	))

	properties.TestingRun(t)
}
