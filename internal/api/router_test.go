package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/astraljournal/lunarlog/internal/app"
	iauth "github.com/astraljournal/lunarlog/internal/auth"
	"github.com/astraljournal/lunarlog/internal/cache"
	"github.com/astraljournal/lunarlog/internal/database/testutil"
	"github.com/astraljournal/lunarlog/internal/services"
	"github.com/astraljournal/lunarlog/internal/upstream"
)

func stubUpstream(t *testing.T) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"moon_phase": "New Moon",
			"answer":     "yes",
			"card":       map[string]any{"id": 0, "name": "The Fool", "arcana": "Major"},
			"location":   map[string]any{"lat": 43.615, "lon": -116.202},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.MustOpenTestDB(t)
	srv := stubUpstream(t)

	cfg := &app.Config{}
	cfg.Auth.JWT.Secret = "test-secret"
	cfg.Monitoring.Health.Enabled = true
	cfg.Monitoring.Prometheus.Enabled = true
	cfg.RateLimit = app.RateLimitConfig{Enabled: true, Requests: 1000, Window: time.Minute, Store: "memory"}

	jwt, err := iauth.NewJWTService(iauth.JWTConfig{Secret: cfg.Auth.JWT.Secret})
	require.NoError(t, err)

	astroClient, err := upstream.NewClient(upstream.Config{Name: "astronomy", BaseURL: srv.URL})
	require.NoError(t, err)
	tarotClient, err := upstream.NewClient(upstream.Config{Name: "tarot", BaseURL: srv.URL})
	require.NoError(t, err)

	store, err := services.NewMoonStore(db)
	require.NoError(t, err)
	moon, err := services.NewMoonService(astroClient, store)
	require.NoError(t, err)
	tarot, err := services.NewTarotService(tarotClient, cache.NewMemory())
	require.NoError(t, err)
	users, err := services.NewUserService(db)
	require.NoError(t, err)
	journal, err := services.NewJournalService(db, moon, tarot)
	require.NoError(t, err)

	r, err := NewRouter(Deps{
		DB:      db,
		Config:  cfg,
		JWT:     jwt,
		Users:   users,
		Journal: journal,
		Moon:    moon,
		Tarot:   tarot,
	})
	require.NoError(t, err)
	return r
}

func TestRouterWiresPublicAndProtectedRoutes(t *testing.T) {
	r := newTestRouter(t)

	// Public surfaces
	for _, path := range []string{"/health", "/metrics", "/api/moon?lat=43.6&lon=-116.2", "/api/tarot/daily"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		require.Equal(t, http.StatusOK, w.Code, "path %s", path)
	}

	// Protected surfaces demand a token
	for _, path := range []string{"/api/auth/me", "/api/journal/entries"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		require.Equal(t, http.StatusUnauthorized, w.Code, "path %s", path)
	}

	// Unknown routes get the JSON 404
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/nope", nil))
	require.Equal(t, http.StatusNotFound, w.Code)
	require.Contains(t, w.Body.String(), "NOT_FOUND")
}

func TestRouterRejectsMissingDependencies(t *testing.T) {
	_, err := NewRouter(Deps{})
	require.Error(t, err)
}
