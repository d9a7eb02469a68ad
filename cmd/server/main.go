// Command server runs the group chat backend: REST API, realtime WebSocket
// fanout, SQLite persistence, and a Redis-backed verification code store.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/convoy-chat/go-backend/internal/chat"
	"github.com/convoy-chat/go-backend/internal/config"
	httpapi "github.com/convoy-chat/go-backend/internal/http"
	"github.com/convoy-chat/go-backend/internal/observability"
	"github.com/convoy-chat/go-backend/internal/repo"
	"github.com/convoy-chat/go-backend/internal/services"
	"github.com/convoy-chat/go-backend/internal/sysutil"
)

// version is set at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	// .env is optional; real deployments configure via the environment.
	_ = godotenv.Load()

	cfg := config.MustLoad()

	sysutil.SetLogLevel(cfg.LogLevel)
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	logger := log.With().Str("service", cfg.OTEL.ServiceName).Logger()

	gin.SetMode(cfg.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Tracing
	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		logger.Fatal().Err(err).Msg("otel setup failed")
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownOTel(sctx); err != nil {
			logger.Warn().Err(err).Msg("otel shutdown")
		}
	}()

	// Storage
	db, err := repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		logger.Fatal().Err(err).Str("path", cfg.DBPath).Msg("open sqlite failed")
	}
	if err := repo.AutoMigrate(db); err != nil {
		logger.Fatal().Err(err).Msg("migrate failed")
	}

	// Verification code store
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("redis unreachable at startup")
	}
	codes := &services.RedisCodeStore{Client: rdb}

	// Realtime chat core. The identity cache sweeper runs until shutdown.
	userSvc := &services.UserService{DB: db}
	cache := chat.NewIdentityCache()
	go cache.RunSweeper(ctx)
	dispatcher := chat.NewDispatcher(
		chat.NewRegistry(),
		cache,
		userSvc,
		logger,
		cfg.Chat.LookupTimeout,
		cfg.Chat.SendBuffer,
	)

	// HTTP transport
	r := gin.New()
	httpapi.RegisterRoutes(r, httpapi.Deps{
		DB:         db,
		Codes:      codes,
		Dispatcher: dispatcher,
		Log:        logger,
	}, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	go func() {
		logger.Info().Str("addr", srv.Addr).Str("version", version).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("listen failed")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutting down")

	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}
	logger.Info().Msg("server stopped")
}
