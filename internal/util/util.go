package util

import (
	"fmt"
	"strings"
	"time"
)

// durationUnits lists the units FormatDuration breaks a duration into, largest first.
var durationUnits = []struct {
	size     time.Duration
	singular string
	plural   string
}{
	{24 * time.Hour, "day", "days"},
	{time.Hour, "hour", "hours"},
	{time.Minute, "minute", "minutes"},
	{time.Second, "second", "seconds"},
}

// FormatDuration renders a duration as "1 day, 2 hours, 3 seconds", skipping zero units.
// Sub-second remainders are dropped and anything below one second yields "0 seconds".
//
// Parameters:
//   - duration: Duration to render, negative values count as zero.
//
// Returns:
//   - string: Human-readable duration.
func FormatDuration(duration time.Duration) string {
	if duration < time.Second {
		return "0 seconds"
	}

	parts := make([]string, 0, len(durationUnits))
	remaining := duration

	for _, unit := range durationUnits {
		value := int64(remaining / unit.size)
		remaining %= unit.size

		if part := FormatTimeUnit(value, unit.singular, unit.plural); part != "" {
			parts = append(parts, part)
		}
	}

	return strings.Join(parts, ", ")
}

// FormatTimeUnit formats one unit with singular or plural grammar, or returns "" for zero.
func FormatTimeUnit(value int64, singular, plural string) string {
	switch {
	case value == 1:
		return "1 " + singular
	case value > 1:
		return fmt.Sprintf("%d %s", value, plural)
	default:
		return ""
	}
}

// ShortHash truncates a commit hash to the length git shows by default.
func ShortHash(hash string) string {
	const shortHashLength = 7

	if len(hash) <= shortHashLength {
		return hash
	}

	return hash[:shortHashLength]
}
