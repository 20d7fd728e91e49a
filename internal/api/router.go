package api

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/astraljournal/lunarlog/internal/app"
	iauth "github.com/astraljournal/lunarlog/internal/auth"
	"github.com/astraljournal/lunarlog/internal/cache"
	"github.com/astraljournal/lunarlog/internal/handlers"
	"github.com/astraljournal/lunarlog/internal/middleware"
	"github.com/astraljournal/lunarlog/internal/services"
)

// Deps bundles everything the router needs. Handlers receive fully
// constructed services; the router owns only wiring and middleware order.
type Deps struct {
	DB      *gorm.DB
	Config  *app.Config
	JWT     *iauth.JWTService
	Users   *services.UserService
	Journal *services.JournalService
	Moon    *services.MoonService
	Tarot   *services.TarotService
}

// NewRouter builds the Gin engine, wires middleware and registers routes.
func NewRouter(deps Deps) (*gin.Engine, error) {
	if deps.DB == nil {
		return nil, fmt.Errorf("database handle must be provided")
	}
	if deps.Config == nil {
		return nil, fmt.Errorf("config must be provided")
	}
	if deps.JWT == nil {
		return nil, fmt.Errorf("jwt service must be provided")
	}
	if deps.Users == nil || deps.Journal == nil || deps.Moon == nil || deps.Tarot == nil {
		return nil, fmt.Errorf("all services must be provided")
	}

	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS())

	if rl := deps.Config.RateLimit; rl.Enabled {
		var store middleware.RateStore
		if rl.Store == "database" {
			store = middleware.NewDatabaseRateStore(cache.NewDatabaseStore(deps.DB))
		} else {
			store = middleware.NewMemoryRateStore()
		}
		r.Use(middleware.RateLimit(store, rl.Requests, rl.Window))
	}

	r.NoRoute(middleware.NotFoundHandler)

	if deps.Config.Monitoring.Health.Enabled {
		r.GET("/health", handlers.Health())
	}
	if prom := deps.Config.Monitoring.Prometheus; prom.Enabled {
		endpoint := prom.Endpoint
		if endpoint == "" {
			endpoint = "/metrics"
		}
		r.GET(endpoint, gin.WrapH(promhttp.Handler()))
	}

	requireAuth := middleware.Auth(deps.JWT)

	api := r.Group("/api")

	registerAuthRoutes(api, requireAuth, handlers.NewAuthHandler(deps.Users, deps.JWT))
	registerMoonRoutes(api, handlers.NewMoonHandler(deps.Moon))
	registerTarotRoutes(api, handlers.NewTarotHandler(deps.Tarot))
	registerJournalRoutes(api, requireAuth, handlers.NewJournalHandler(deps.Journal))

	return r, nil
}
