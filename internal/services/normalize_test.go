package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRoundCoordinateCollapsesNearDuplicates(t *testing.T) {
	require.Equal(t, 43.61, RoundCoordinate(43.6123))
	require.Equal(t, 43.61, RoundCoordinate(43.6119))
	require.Equal(t, 43.62, RoundCoordinate(43.615))
	require.Equal(t, -116.2, RoundCoordinate(-116.202))
	require.Equal(t, 0.0, RoundCoordinate(0.001))
	require.Equal(t, -90.0, RoundCoordinate(-90))
}

func TestCanonicalDatePassesFormattedDatesThrough(t *testing.T) {
	got, err := CanonicalDate("2025-08-23")
	require.NoError(t, err)
	require.Equal(t, "2025-08-23", got)
}

func TestCanonicalDateTruncatesTimestampsInUTC(t *testing.T) {
	// 23:30 in a -07:00 offset is already the next day in UTC.
	got, err := CanonicalDate("2025-08-23T23:30:00-07:00")
	require.NoError(t, err)
	require.Equal(t, "2025-08-24", got)
}

func TestCanonicalDateDefaultsToToday(t *testing.T) {
	got, err := CanonicalDate("")
	require.NoError(t, err)
	require.Equal(t, time.Now().UTC().Format("2006-01-02"), got)
}

func TestCanonicalDateRejectsGarbage(t *testing.T) {
	_, err := CanonicalDate("not a date")
	require.Error(t, err)
}

func TestCombineDateTime(t *testing.T) {
	got := CombineDateTime("2025-08-23", "17:23")
	require.NotNil(t, got)
	require.Equal(t, time.Date(2025, 8, 23, 17, 23, 0, 0, time.UTC), *got)

	require.Nil(t, CombineDateTime("2025-08-23", ""))
	require.Nil(t, CombineDateTime("2025-08-23", "25:99"))
	require.Nil(t, CombineDateTime("garbage", "17:23"))
}
