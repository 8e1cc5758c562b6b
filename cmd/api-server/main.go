package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/carelink/telehealth-scheduling/internal/api"
	"github.com/carelink/telehealth-scheduling/internal/availability"
	"github.com/carelink/telehealth-scheduling/internal/config"
	"github.com/carelink/telehealth-scheduling/internal/db"
	"github.com/carelink/telehealth-scheduling/internal/directory"
	redisclient "github.com/carelink/telehealth-scheduling/internal/redis"
	"github.com/carelink/telehealth-scheduling/internal/scheduling"
)

const version = "0.3.0"

func main() {
	log := zerolog.New(os.Stdout).With().Timestamp().Str("service", "api-server").Logger()
	log.Info().Msg("api-server starting up")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load error")
	}
	if cfg.Env == "dev" {
		log = log.Output(zerolog.ConsoleWriter{Out: os.Stdout})
	}

	log.Info().Str("env", cfg.Env).Str("http_port", cfg.HTTPPort).Msg("configured")

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		log.Fatal().Err(err).Msg("postgres connection error")
	}
	defer pgPool.Close()
	log.Info().Msg("connected to Postgres")

	rdb, err := redisclient.NewRedisClient(cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
	if err != nil {
		log.Fatal().Err(err).Msg("redis connection error")
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			log.Warn().Err(err).Msg("error closing redis")
		}
	}()
	log.Info().Msg("connected to Redis")

	dir := directory.NewCachedRepository(
		directory.NewPgRepository(pgPool),
		cfg.DirectoryCacheSize,
		cfg.DirectoryCacheTTL,
	)
	availSvc := availability.NewService(availability.NewPgRepository(pgPool), log)
	apptRepo := scheduling.NewPgRepository(pgPool)

	slots := scheduling.NewSlotGenerator(availSvc, apptRepo)
	validator := scheduling.NewValidator(slots, dir, dir)
	locker := redisclient.NewRedisScheduleLocker(rdb, cfg.LockTTL, cfg.LockWaitTimeout)
	coordinator := scheduling.NewCoordinator(apptRepo, validator, locker, log)

	router := api.NewRouter(api.RouterConfig{
		Coordinator:  coordinator,
		Slots:        slots,
		Availability: availSvc,
		Services:     dir,
		PgPool:       pgPool,
		Redis:        rdb,
		Log:          log,
		Env:          cfg.Env,
		Version:      version,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server error")
		}
	}()

	<-rootCtx.Done()
	log.Info().Msg("shutting down api-server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}
