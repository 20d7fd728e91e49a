package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/astraljournal/lunarlog/internal/api"
	"github.com/astraljournal/lunarlog/internal/app"
	"github.com/astraljournal/lunarlog/internal/app/maintenance"
	iauth "github.com/astraljournal/lunarlog/internal/auth"
	"github.com/astraljournal/lunarlog/internal/cache"
	"github.com/astraljournal/lunarlog/internal/database"
	"github.com/astraljournal/lunarlog/internal/services"
	"github.com/astraljournal/lunarlog/internal/upstream"
	"github.com/astraljournal/lunarlog/pkg/logger"
)

const shutdownTimeout = 15 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	if err := run(ctx, os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("lunarlog-server", flag.ContinueOnError)
	fs.SetOutput(os.Stdout)

	var configPath string
	fs.StringVar(&configPath, "config", "", "Path to configuration directory or file")

	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadApplicationConfig(configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	if err := app.ConfigureLogging(cfg.Server.LogLevel); err != nil {
		return fmt.Errorf("configure logging: %w", err)
	}
	defer logger.Sync() // best effort

	log := logger.WithModule("bootstrap")

	if debug, _ := os.LookupEnv("GIN_DEBUG"); debug != "true" {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := initialiseDatabase(cfg)
	if err != nil {
		return err
	}
	defer closeDatabase(db, log)

	jwtService, err := iauth.NewJWTService(iauth.JWTConfig{
		Secret:         cfg.Auth.JWT.Secret,
		Issuer:         cfg.Auth.JWT.Issuer,
		AccessTokenTTL: cfg.Auth.JWT.TTL,
	})
	if err != nil {
		return fmt.Errorf("initialise jwt service: %w", err)
	}

	astronomyClient, err := upstream.NewClient(upstream.Config{
		Name:         "astronomy",
		BaseURL:      cfg.Upstream.Astronomy.BaseURL,
		APIKeyHeader: cfg.Upstream.Astronomy.APIKeyHeader,
		APIKey:       cfg.Upstream.Astronomy.APIKey,
		Timeout:      cfg.Upstream.Astronomy.Timeout,
		Quirks:       cfg.Upstream.Astronomy.Quirks,
	})
	if err != nil {
		return fmt.Errorf("initialise astronomy client: %w", err)
	}

	tarotClient, err := upstream.NewClient(upstream.Config{
		Name:         "tarot",
		BaseURL:      cfg.Upstream.Tarot.BaseURL,
		APIKeyHeader: cfg.Upstream.Tarot.APIKeyHeader,
		APIKey:       cfg.Upstream.Tarot.APIKey,
		Timeout:      cfg.Upstream.Tarot.Timeout,
		Quirks:       cfg.Upstream.Tarot.Quirks,
	})
	if err != nil {
		return fmt.Errorf("initialise tarot client: %w", err)
	}

	moonStore, err := services.NewMoonStore(db)
	if err != nil {
		return fmt.Errorf("initialise moon store: %w", err)
	}
	moonSvc, err := services.NewMoonService(astronomyClient, moonStore)
	if err != nil {
		return fmt.Errorf("initialise moon service: %w", err)
	}
	tarotSvc, err := services.NewTarotService(tarotClient, cache.NewMemory())
	if err != nil {
		return fmt.Errorf("initialise tarot service: %w", err)
	}
	userSvc, err := services.NewUserService(db)
	if err != nil {
		return fmt.Errorf("initialise user service: %w", err)
	}
	journalSvc, err := services.NewJournalService(db, moonSvc, tarotSvc)
	if err != nil {
		return fmt.Errorf("initialise journal service: %w", err)
	}

	if cfg.Maintenance.Enabled {
		cleaner := maintenance.NewCleaner(db, cache.NewDatabaseStore(db),
			maintenance.WithSchedule(cfg.Maintenance.Schedule),
			maintenance.WithMoonRetention(time.Duration(cfg.Maintenance.MoonRetentionDays)*24*time.Hour),
		)
		if err := cleaner.Start(); err != nil {
			return fmt.Errorf("start maintenance jobs: %w", err)
		}
		defer cleaner.Stop()
	}

	router, err := api.NewRouter(api.Deps{
		DB:      db,
		Config:  cfg,
		JWT:     jwtService,
		Users:   userSvc,
		Journal: journalSvc,
		Moon:    moonSvc,
		Tarot:   tarotSvc,
	})
	if err != nil {
		return fmt.Errorf("build api router: %w", err)
	}

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("graceful shutdown: %w", err)
	}

	if err, ok := <-serverErr; ok && err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	log.Info("server stopped gracefully")
	return nil
}

func loadApplicationConfig(path string) (*app.Config, error) {
	switch {
	case strings.TrimSpace(path) == "":
		return app.LoadConfig()
	default:
		info, err := os.Stat(path)
		if err == nil {
			if info.IsDir() {
				return app.LoadConfig(path)
			}
			return app.LoadConfig(filepath.Dir(path))
		}
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("config path %q does not exist", path)
		}
		return nil, fmt.Errorf("stat config path: %w", err)
	}
}

func initialiseDatabase(cfg *app.Config) (*gorm.DB, error) {
	db, err := database.Open(cfg.DatabaseOptions())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := database.AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return db, nil
}

func closeDatabase(db *gorm.DB, log *zap.Logger) {
	if db == nil {
		return
	}
	sqlDB, err := db.DB()
	if err != nil {
		log.Warn("database handle unavailable on shutdown", zap.Error(err))
		return
	}
	if err := sqlDB.Close(); err != nil {
		log.Warn("database close failed", zap.Error(err))
	}
}
