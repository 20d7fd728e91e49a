package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/astraljournal/lunarlog/internal/database/testutil"
)

func newTestStore(t *testing.T) (*DatabaseStore, *fakeClock) {
	t.Helper()

	db := testutil.MustOpenTestDB(t)
	store := NewDatabaseStore(db)
	require.NotNil(t, store)

	clock := &fakeClock{now: time.Date(2025, 8, 23, 12, 0, 0, 0, time.UTC)}
	store.now = clock.Now
	return store, clock
}

func TestDatabaseStoreIncrementWithTTL(t *testing.T) {
	store, clock := newTestStore(t)
	ctx := context.Background()

	count, _, err := store.IncrementWithTTL(ctx, "rate:1.2.3.4", time.Minute)
	require.NoError(t, err)
	require.EqualValues(t, 1, count)

	count, _, err = store.IncrementWithTTL(ctx, "rate:1.2.3.4", time.Minute)
	require.NoError(t, err)
	require.EqualValues(t, 2, count)

	clock.Advance(2 * time.Minute)
	count, _, err = store.IncrementWithTTL(ctx, "rate:1.2.3.4", time.Minute)
	require.NoError(t, err)
	require.EqualValues(t, 1, count, "a lapsed window must restart the counter")
}

func TestDatabaseStoreSetGetRespectsExpiry(t *testing.T) {
	store, clock := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k", []byte("v"), time.Minute))

	value, ok, err := store.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("v"), value)

	clock.Advance(2 * time.Minute)
	_, ok, err = store.Get(ctx, "k")
	require.NoError(t, err)
	require.False(t, ok, "expired entry must read as absent")

	// The lazy delete on read removed the row entirely.
	_, ok, err = store.Get(ctx, "k")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestDatabaseStoreSetOverwrites(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k", []byte("first"), time.Minute))
	require.NoError(t, store.Set(ctx, "k", []byte("second"), time.Minute))

	value, ok, err := store.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("second"), value)
}

func TestDatabaseStorePurgeExpired(t *testing.T) {
	store, clock := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "stale", []byte("x"), time.Minute))
	require.NoError(t, store.Set(ctx, "live", []byte("y"), time.Hour))

	clock.Advance(10 * time.Minute)
	purged, err := store.PurgeExpired(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, purged)

	_, ok, err := store.Get(ctx, "live")
	require.NoError(t, err)
	require.True(t, ok)
}
