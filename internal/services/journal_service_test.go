package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/astraljournal/lunarlog/internal/cache"
	"github.com/astraljournal/lunarlog/internal/database/testutil"
	"github.com/astraljournal/lunarlog/internal/upstream"
	apperrors "github.com/astraljournal/lunarlog/pkg/errors"
)

func newJournalFixture(t *testing.T, db *gorm.DB) (*JournalService, *atomic.Int64, *atomic.Int64) {
	t.Helper()

	var moonCalls, tarotCalls atomic.Int64

	moonSrv := boiseAstronomyServer(t, &moonCalls)
	tarotSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tarotCalls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"date": "2025-08-23",
			"card": map[string]any{"id": 18, "name": "The Moon", "arcana": "Major"},
		})
	}))
	t.Cleanup(tarotSrv.Close)

	store, err := NewMoonStore(db)
	require.NoError(t, err)
	moon, err := NewMoonService(newTestClient(t, moonSrv.URL), store)
	require.NoError(t, err)

	tarotClient, err := upstream.NewClient(upstream.Config{
		Name: "tarot", BaseURL: tarotSrv.URL, Timeout: 2 * time.Second,
	})
	require.NoError(t, err)
	tarot, err := NewTarotService(tarotClient, cache.NewMemory())
	require.NoError(t, err)

	svc, err := NewJournalService(db, moon, tarot)
	require.NoError(t, err)
	return svc, &moonCalls, &tarotCalls
}

func TestJournalCreateFreezesEnrichment(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	svc, moonCalls, tarotCalls := newJournalFixture(t, db)

	users, err := NewUserService(db)
	require.NoError(t, err)
	userID := registerTestUser(t, users, "selene")

	entry, err := svc.Create(context.Background(), userID, CreateEntryInput{
		EntryDate: "2025-08-23",
		Title:     "Full moon over the foothills",
		Body:      "Could not sleep.",
		Mood:      "restless",
		Tags:      []string{"moon", "insomnia"},
		Lat:       floatPtr(43.615),
		Lon:       floatPtr(-116.202),
	})
	require.NoError(t, err)

	require.EqualValues(t, 1, moonCalls.Load())
	require.EqualValues(t, 1, tarotCalls.Load())

	var enrichment entryEnrichment
	require.NoError(t, json.Unmarshal(entry.Enrichment, &enrichment))
	require.NotNil(t, enrichment.Moon)
	require.NotNil(t, enrichment.Moon.Phase)
	require.Equal(t, "Full Moon", *enrichment.Moon.Phase)
	require.Equal(t, 43.62, enrichment.Moon.Lat)
	require.NotNil(t, enrichment.DailyCard)
	require.Equal(t, "The Moon", enrichment.DailyCard.Card.Name)

	var tags []string
	require.NoError(t, json.Unmarshal(entry.Tags, &tags))
	require.Equal(t, []string{"moon", "insomnia"}, tags)
}

func TestJournalCreateWithoutLocationSkipsMoon(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	svc, moonCalls, tarotCalls := newJournalFixture(t, db)

	users, err := NewUserService(db)
	require.NoError(t, err)
	userID := registerTestUser(t, users, "selene")

	entry, err := svc.Create(context.Background(), userID, CreateEntryInput{
		EntryDate: "2025-08-23",
		Title:     "Indoor day",
	})
	require.NoError(t, err)

	require.EqualValues(t, 0, moonCalls.Load())
	require.EqualValues(t, 1, tarotCalls.Load())

	var enrichment entryEnrichment
	require.NoError(t, json.Unmarshal(entry.Enrichment, &enrichment))
	require.Nil(t, enrichment.Moon)
	require.NotNil(t, enrichment.DailyCard)
}

func TestJournalCreateSurvivesEnrichmentFailure(t *testing.T) {
	db := testutil.MustOpenTestDB(t)

	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(down.Close)

	store, err := NewMoonStore(db)
	require.NoError(t, err)
	moon, err := NewMoonService(newTestClient(t, down.URL), store)
	require.NoError(t, err)

	tarotClient, err := upstream.NewClient(upstream.Config{
		Name: "tarot", BaseURL: down.URL, Timeout: 2 * time.Second,
	})
	require.NoError(t, err)
	tarot, err := NewTarotService(tarotClient, cache.NewMemory())
	require.NoError(t, err)

	svc, err := NewJournalService(db, moon, tarot)
	require.NoError(t, err)

	users, err := NewUserService(db)
	require.NoError(t, err)
	userID := registerTestUser(t, users, "selene")

	entry, err := svc.Create(context.Background(), userID, CreateEntryInput{
		EntryDate: "2025-08-23",
		Title:     "The upstreams are down",
		Lat:       floatPtr(43.615),
		Lon:       floatPtr(-116.202),
	})
	require.NoError(t, err)
	require.Empty(t, entry.Enrichment)
}

func TestJournalCreateValidation(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	svc, err := NewJournalService(db, nil, nil)
	require.NoError(t, err)

	users, err := NewUserService(db)
	require.NoError(t, err)
	userID := registerTestUser(t, users, "selene")

	_, err = svc.Create(context.Background(), userID, CreateEntryInput{Title: "   "})
	require.Equal(t, apperrors.ErrInvalidRequest.Code, apperrors.FromError(err).Code)

	_, err = svc.Create(context.Background(), userID, CreateEntryInput{
		Title: "ok", EntryDate: "not a date",
	})
	require.Equal(t, apperrors.ErrInvalidRequest.Code, apperrors.FromError(err).Code)

	_, err = svc.Create(context.Background(), "", CreateEntryInput{Title: "ok"})
	require.ErrorIs(t, err, apperrors.ErrUnauthorized)
}

func TestJournalListFiltersAndScopesByOwner(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	svc, err := NewJournalService(db, nil, nil)
	require.NoError(t, err)

	users, err := NewUserService(db)
	require.NoError(t, err)
	selene := registerTestUser(t, users, "selene")
	rival := registerTestUser(t, users, "rival")

	for _, fixture := range []struct{ date, title string }{
		{"2025-08-21", "Waning thoughts"},
		{"2025-08-22", "Almost full"},
		{"2025-08-23", "Full moon over the foothills"},
	} {
		_, err := svc.Create(context.Background(), selene, CreateEntryInput{
			EntryDate: fixture.date, Title: fixture.title,
		})
		require.NoError(t, err)
	}
	_, err = svc.Create(context.Background(), rival, CreateEntryInput{
		EntryDate: "2025-08-23", Title: "Someone else's moon",
	})
	require.NoError(t, err)

	entries, total, err := svc.List(context.Background(), selene, ListEntriesOptions{})
	require.NoError(t, err)
	require.EqualValues(t, 3, total)
	require.Len(t, entries, 3)
	require.Equal(t, "2025-08-23", entries[0].EntryDate) // newest first

	entries, total, err = svc.List(context.Background(), selene, ListEntriesOptions{
		From: "2025-08-22", To: "2025-08-22",
	})
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	require.Equal(t, "Almost full", entries[0].Title)

	entries, total, err = svc.List(context.Background(), selene, ListEntriesOptions{Query: "foothills"})
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	require.Equal(t, "Full moon over the foothills", entries[0].Title)
}

func TestJournalUpdateAndDeleteEnforceOwnership(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	svc, err := NewJournalService(db, nil, nil)
	require.NoError(t, err)

	users, err := NewUserService(db)
	require.NoError(t, err)
	selene := registerTestUser(t, users, "selene")
	rival := registerTestUser(t, users, "rival")

	entry, err := svc.Create(context.Background(), selene, CreateEntryInput{
		EntryDate: "2025-08-23", Title: "Original title",
	})
	require.NoError(t, err)

	title := "Edited title"
	_, err = svc.Update(context.Background(), rival, entry.ID, UpdateEntryInput{Title: &title})
	require.ErrorIs(t, err, ErrEntryNotFound)

	updated, err := svc.Update(context.Background(), selene, entry.ID, UpdateEntryInput{Title: &title})
	require.NoError(t, err)
	require.Equal(t, "Edited title", updated.Title)

	require.ErrorIs(t, svc.Delete(context.Background(), rival, entry.ID), ErrEntryNotFound)
	require.NoError(t, svc.Delete(context.Background(), selene, entry.ID))

	_, err = svc.Get(context.Background(), selene, entry.ID)
	require.ErrorIs(t, err, ErrEntryNotFound)
}
