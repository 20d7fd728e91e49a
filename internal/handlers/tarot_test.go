package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/astraljournal/lunarlog/internal/cache"
	"github.com/astraljournal/lunarlog/internal/services"
	"github.com/astraljournal/lunarlog/internal/upstream"
)

func newTarotRouter(t *testing.T, calls *atomic.Int64) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")

		switch {
		case strings.HasPrefix(r.URL.Path, "/yesno"):
			_ = json.NewEncoder(w).Encode(map[string]any{"answer": "yes"})
		case strings.HasPrefix(r.URL.Path, "/cards/daily"):
			_ = json.NewEncoder(w).Encode(map[string]any{
				"date": "2025-08-23",
				"card": map[string]any{"id": 2, "name": "The High Priestess", "arcana": "Major"},
			})
		case r.URL.Path == "/cards":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"total": 78,
				"cards": []any{map[string]any{"id": 1, "name": "The Magician", "arcana": "Major"}},
			})
		default:
			_ = json.NewEncoder(w).Encode(map[string]any{"id": 16, "name": "The Tower", "arcana": "Major"})
		}
	}))
	t.Cleanup(srv.Close)

	client, err := upstream.NewClient(upstream.Config{
		Name: "tarot", BaseURL: srv.URL, Timeout: 2 * time.Second,
	})
	require.NoError(t, err)

	tarot, err := services.NewTarotService(client, cache.NewMemory())
	require.NoError(t, err)

	h := NewTarotHandler(tarot)
	r := gin.New()
	r.GET("/api/tarot/daily", h.CardOfDay)
	r.POST("/api/tarot/draw", h.Draw)
	r.GET("/api/tarot/cards", h.ListCards)
	r.GET("/api/tarot/cards/:id", h.GetCard)
	return r
}

func TestCardOfDayEndpoint(t *testing.T) {
	var calls atomic.Int64
	r := newTarotRouter(t, &calls)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/tarot/daily?date=2025-08-23", nil))

	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "The High Priestess")
}

func TestDrawEndpointWithAndWithoutBody(t *testing.T) {
	var calls atomic.Int64
	r := newTarotRouter(t, &calls)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/tarot/draw", strings.NewReader(`{"question":"ship it?"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "Yes")

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/tarot/draw", nil))
	require.Equal(t, http.StatusOK, w.Code)
}

func TestListCardsEndpointReportsMeta(t *testing.T) {
	var calls atomic.Int64
	r := newTarotRouter(t, &calls)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/tarot/cards?limit=5000", nil))

	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Meta struct {
			Total  int64 `json:"total"`
			Limit  int   `json:"limit"`
			Offset int   `json:"offset"`
		} `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.EqualValues(t, 78, body.Meta.Total)
	require.Equal(t, 200, body.Meta.Limit) // clamped
	require.Equal(t, 0, body.Meta.Offset)
}

func TestGetCardEndpointRejectsBadIDsWithoutUpstreamTraffic(t *testing.T) {
	var calls atomic.Int64
	r := newTarotRouter(t, &calls)

	for _, id := range []string{"0", "-4", "abc"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/tarot/cards/"+id, nil))
		require.Equal(t, http.StatusBadRequest, w.Code, "id %q", id)
	}
	require.EqualValues(t, 0, calls.Load())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/tarot/cards/16", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "The Tower")
}
