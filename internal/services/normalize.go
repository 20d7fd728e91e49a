package services

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// dateLayout is the canonical calendar-date form used for cache keys and
// persistence.
const dateLayout = "2006-01-02"

// RoundCoordinate rounds a latitude or longitude to two decimal places
// (~1.1 km), the cache-key granularity. Near-duplicate requests collapse to
// the same durable row instead of each minting an upstream call.
func RoundCoordinate(v float64) float64 {
	return math.Round(v*100) / 100
}

// CanonicalDate normalises a date input to YYYY-MM-DD in UTC. An already
// canonical string passes through unchanged, a timestamp is truncated in UTC,
// and an empty input means today.
func CanonicalDate(input string) (string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return time.Now().UTC().Format(dateLayout), nil
	}

	if _, err := time.Parse(dateLayout, input); err == nil {
		return input, nil
	}

	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05"} {
		if ts, err := time.Parse(layout, input); err == nil {
			return ts.UTC().Format(dateLayout), nil
		}
	}

	return "", fmt.Errorf("unrecognised date %q", input)
}

// CombineDateTime merges an upstream clock time ("HH:MM" or "HH:MM:SS") with a
// canonical date into a full UTC timestamp. Malformed or missing input yields
// nil, never an error; rise/set times are best-effort data.
func CombineDateTime(date, clock string) *time.Time {
	clock = strings.TrimSpace(clock)
	if clock == "" {
		return nil
	}

	day, err := time.Parse(dateLayout, date)
	if err != nil {
		return nil
	}

	for _, layout := range []string{"15:04", "15:04:05", "3:04 PM", "03:04 PM"} {
		if t, err := time.Parse(layout, clock); err == nil {
			combined := time.Date(day.Year(), day.Month(), day.Day(), t.Hour(), t.Minute(), t.Second(), 0, time.UTC)
			return &combined
		}
	}

	return nil
}
