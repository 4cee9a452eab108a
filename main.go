package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/securecookie"
	"github.com/isdelr/credgate/internal/api"
	"github.com/isdelr/credgate/internal/auth"
	"github.com/isdelr/credgate/internal/config"
	"github.com/isdelr/credgate/internal/database"
	"github.com/isdelr/credgate/internal/logger"
	"github.com/isdelr/credgate/internal/monitoring"
	"github.com/isdelr/credgate/internal/services"
	"github.com/isdelr/credgate/internal/session"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logger.Init(cfg.LogLevel, !cfg.IsProduction())

	// Set up database
	db, err := database.New(cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.DatabaseDriver).Msg("Failed to initialize database")
	}
	defer db.Close()

	if err := database.Migrate(context.Background(), db); err != nil {
		log.Fatal().Err(err).Msg("Failed to apply database migrations")
	}

	// Set up session storage
	secret := []byte(cfg.SessionSecret)
	if len(secret) == 0 {
		log.Warn().Msg("SESSION_SECRET not set, sessions will not survive a restart")
		secret = securecookie.GenerateRandomKey(32)
	}

	var (
		backend   session.Backend
		scheduler *monitoring.Scheduler
	)
	switch cfg.SessionBackend {
	case "redis":
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatal().Err(err).Msg("Invalid REDIS_URL")
		}
		client := redis.NewClient(opts)
		defer client.Close()
		if err := client.Ping(context.Background()).Err(); err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to Redis")
		}
		backend = session.NewRedisBackend(client, "")
	default:
		sqlBackend := session.NewSQLBackend(db)
		backend = sqlBackend

		// Redis expires keys itself; SQL rows need sweeping.
		scheduler, err = monitoring.NewScheduler(sqlBackend, cfg.SessionSweepSchedule)
		if err != nil {
			log.Fatal().Err(err).Msg("Invalid SESSION_SWEEP_SCHEDULE")
		}
		scheduler.Run()
	}

	store := session.NewStore(backend, secret)
	store.MaxAge(cfg.SessionMaxAge)
	store.Options.Secure = cfg.IsProduction()

	// Set up services
	userService := services.NewUserService(db)
	sessions := session.NewManager(store, cfg.SessionName)
	hasher := auth.NewBcryptHasher(cfg.BcryptCost)

	// Set up router
	router := api.NewRouter(api.Deps{
		Users:          userService,
		Sessions:       sessions,
		Hasher:         hasher,
		DB:             db,
		AllowedOrigins: cfg.CORSAllowedOrigins,
	})

	// Set up server
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.Info().Int("port", cfg.ServerPort).Msg("Server starting")
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("ListenAndServe failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	if scheduler != nil {
		scheduler.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exiting")
}
