package maintenance

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/astraljournal/lunarlog/internal/cache"
	"github.com/astraljournal/lunarlog/internal/database/testutil"
	"github.com/astraljournal/lunarlog/internal/models"
)

func TestRunCleanupPurgesExpiredCacheEntries(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	store := cache.NewDatabaseStore(db)

	require.NoError(t, store.Set(context.Background(), "live", []byte("1"), time.Hour))
	require.NoError(t, store.Set(context.Background(), "dead", []byte("1"), time.Nanosecond))
	time.Sleep(2 * time.Millisecond)

	cleaner := NewCleaner(db, store)
	require.NoError(t, cleaner.RunCleanup(context.Background()))

	var count int64
	require.NoError(t, db.Model(&models.CacheEntry{}).Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestRunCleanupPurgesStaleMoonRows(t *testing.T) {
	db := testutil.MustOpenTestDB(t)

	now := time.Date(2025, 8, 23, 12, 0, 0, 0, time.UTC)

	fresh := models.MoonCache{Date: "2025-08-23", Lat: 43.62, Lon: -116.2, CreatedAt: now.Add(-time.Hour)}
	stale := models.MoonCache{Date: "2025-08-01", Lat: 43.62, Lon: -116.2, CreatedAt: now.Add(-30 * 24 * time.Hour)}
	require.NoError(t, db.Create(&fresh).Error)
	require.NoError(t, db.Create(&stale).Error)

	cleaner := NewCleaner(db, nil,
		WithNow(func() time.Time { return now }),
		WithMoonRetention(7*24*time.Hour),
	)
	require.NoError(t, cleaner.RunCleanup(context.Background()))

	var rows []models.MoonCache
	require.NoError(t, db.Find(&rows).Error)
	require.Len(t, rows, 1)
	require.Equal(t, "2025-08-23", rows[0].Date)
}

func TestCleanerStartAndStop(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	cleaner := NewCleaner(db, cache.NewDatabaseStore(db), WithSchedule("@every 1h"))

	require.NoError(t, cleaner.Start())
	cleaner.Stop()
}
