// Package cli provides the command-line interface for the discipline core.
package cli

import (
	"fmt"
	"strings"
	"time"

	"tradegate/internal/models"
)

// FormatDuration formats a duration in a compact human form, e.g. "1h20m",
// "3m45s", "12s". Negative durations are prefixed with a minus sign.
func FormatDuration(d time.Duration) string {
	negative := d < 0
	if negative {
		d = -d
	}
	d = d.Round(time.Second)

	var b strings.Builder
	if negative {
		b.WriteString("-")
	}

	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	switch {
	case h > 0:
		fmt.Fprintf(&b, "%dh%dm", h, m)
	case m > 0:
		fmt.Fprintf(&b, "%dm%ds", m, s)
	default:
		fmt.Fprintf(&b, "%ds", s)
	}
	return b.String()
}

// FormatScore formats a discipline score with one decimal place and its
// band label.
func FormatScore(score float64) string {
	return fmt.Sprintf("%.1f (%s)", score, ScoreBand(score))
}

// ScoreBand returns a coarse label for a score value.
func ScoreBand(score float64) string {
	switch {
	case score >= 90:
		return "excellent"
	case score >= 70:
		return "good"
	case score >= 40:
		return "at risk"
	default:
		return "critical"
	}
}

// FormatDelta formats a score delta with an explicit sign.
func FormatDelta(delta float64) string {
	return fmt.Sprintf("%+.1f", delta)
}

// FormatSessionState returns the display form of a session state.
func FormatSessionState(state models.SessionState) string {
	return strings.ToLower(strings.ReplaceAll(string(state), "_", " "))
}

// FormatExerciseList joins exercise IDs into a readable list.
func FormatExerciseList(ids []models.ExerciseID) string {
	if len(ids) == 0 {
		return "none"
	}
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, string(id))
	}
	return strings.Join(parts, ", ")
}
