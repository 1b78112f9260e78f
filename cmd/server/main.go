package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"papeleria/internal/config"
	"papeleria/internal/events"
	"papeleria/internal/infra"
	"papeleria/internal/router"
	"papeleria/internal/service"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	setupLogger(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	backend := infra.NewBackendClient(cfg.APIURL, nil)
	if cfg.BackendCBFailures > 0 {
		backend.WithCircuitBreaker(infra.NewCircuitBreaker(infra.CircuitBreakerConfig{
			FailureThreshold: cfg.BackendCBFailures,
			OpenTimeout:      time.Duration(cfg.BackendCBOpenSeconds) * time.Second,
		}))
	}

	// Mutation events: always delivered in-process; fanned out through Redis
	// when configured so sessions on other instances revalidate too.
	bus := events.NewBus()
	var pub events.Publisher = bus
	var rdb *redis.Client
	if cfg.RedisURL != "" {
		rdb, err = infra.NewRedis(cfg.RedisURL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer rdb.Close()

		redisBus := events.NewRedisBus(bus, rdb, cfg.EventsChannel)
		pub = redisBus
		go func() {
			if err := redisBus.Listen(ctx); err != nil {
				log.Error().Err(err).Msg("events listener stopped")
			}
		}()
	}

	sesiones := service.NewSesionService(backend, bus, pub, cfg.SessionTTL())
	defer sesiones.Stop()

	r := router.New(cfg, router.Deps{
		Backend:   backend,
		Redis:     rdb,
		Sesiones:  sesiones,
		Productos: service.NewProductoService(backend, pub),
		Ventas:    service.NewVentaService(backend),
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown on SIGINT / SIGTERM
	go func() {
		log.Info().Str("api_url", backend.BaseURL()).Msgf("papeleria BFF listening on :%d", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server…")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("forced shutdown")
	}
	log.Info().Msg("server exited")
}

// setupLogger: dev gets pretty console output, production gets JSON.
func setupLogger(cfg *config.Config) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || cfg.LogLevel == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Env == "production" {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
		return
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
}
