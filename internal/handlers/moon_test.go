package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/astraljournal/lunarlog/internal/database/testutil"
	"github.com/astraljournal/lunarlog/internal/services"
	"github.com/astraljournal/lunarlog/internal/upstream"
)

func newMoonRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"moon_phase": "Waning Crescent",
			"moonrise":   "03:12",
			"moonset":    "18:45",
			"location":   map[string]any{"lat": 43.615, "lon": -116.202, "city": "Boise"},
		})
	}))
	t.Cleanup(srv.Close)

	client, err := upstream.NewClient(upstream.Config{
		Name: "astronomy", BaseURL: srv.URL, Timeout: 2 * time.Second,
	})
	require.NoError(t, err)

	store, err := services.NewMoonStore(testutil.MustOpenTestDB(t))
	require.NoError(t, err)
	moon, err := services.NewMoonService(client, store)
	require.NoError(t, err)

	r := gin.New()
	r.GET("/api/moon", NewMoonHandler(moon).GetMoon)
	return r
}

func TestGetMoonWithCoordinates(t *testing.T) {
	r := newMoonRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/moon?date=2025-08-23&lat=43.615&lon=-116.202", nil))

	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Data struct {
			Date  string  `json:"date"`
			Lat   float64 `json:"lat"`
			Lon   float64 `json:"lon"`
			Phase *string `json:"phase"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, "2025-08-23", body.Data.Date)
	require.Equal(t, 43.62, body.Data.Lat)
	require.Equal(t, -116.2, body.Data.Lon)
	require.NotNil(t, body.Data.Phase)
	require.Equal(t, "Waning Crescent", *body.Data.Phase)
}

func TestGetMoonRejectsConflictingLocationForms(t *testing.T) {
	r := newMoonRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/moon?lat=43.6&lon=-116.2&place=Boise", nil))

	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Contains(t, w.Body.String(), "INVALID_REQUEST")
}

func TestGetMoonRejectsHalfCoordinatePairs(t *testing.T) {
	r := newMoonRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/moon?lat=43.6", nil))
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetMoonRejectsOutOfRangeCoordinates(t *testing.T) {
	r := newMoonRouter(t)

	for _, query := range []string{
		"lat=91&lon=0",
		"lat=-91&lon=0",
		"lat=0&lon=181",
		"lat=0&lon=-181",
		"lat=abc&lon=0",
	} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/moon?"+query, nil))
		require.Equal(t, http.StatusBadRequest, w.Code, "query %q", query)
	}
}

func TestGetMoonFallsBackToClientAddress(t *testing.T) {
	r := newMoonRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/moon", nil))

	// No explicit location resolves via the caller's address upstream.
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "Boise")
}
