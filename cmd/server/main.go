package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"wingman/internal/config"
	"wingman/internal/credits"
	"wingman/internal/httpapi"
	"wingman/internal/kvstore"
	"wingman/internal/metrics"
	"wingman/internal/prompt"
	"wingman/internal/providers/registry"
	"wingman/internal/runtimeconfig"
	"wingman/internal/storage"
	"wingman/internal/versions"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	setupLogger(cfg.Log.Level)
	log.Info().
		Str("listen_addr", cfg.ListenAddr).
		Dur("provider_timeout", cfg.Providers.Timeout).
		Dur("cache_ttl", cfg.Cache.TTL).
		Msg("starting wingman")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatal().Err(err).Msg("failed to connect redis")
	}
	defer rdb.Close()

	store := kvstore.NewRedis(rdb)
	m := metrics.Global()

	var audit *storage.Store
	if cfg.DB.DSN != "" {
		audit, err = storage.Open(ctx, cfg.DB.Driver, cfg.DB.DSN, cfg.DB.AutoMigrate, cfg.DB.MigrationsDir)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize audit storage")
		}
		defer audit.Close()
		log.Info().Str("driver", cfg.DB.Driver).Msg("audit storage enabled")
	}

	reg := registry.New(registry.Credentials{
		OpenAIKey:        cfg.Providers.OpenAIKey,
		AnthropicKey:     cfg.Providers.AnthropicKey,
		AnthropicBaseURL: cfg.Providers.AnthropicBaseURL,
		XAIKey:           cfg.Providers.XAIKey,
		XAIBaseURL:       cfg.Providers.XAIBaseURL,
	}, cfg.Providers.Timeout, log.Logger, m)

	api := httpapi.NewServer(httpapi.Deps{
		Store:      store,
		Cache:      runtimeconfig.New(store, cfg.Cache.TTL, log.Logger),
		Engine:     prompt.NewEngine(store, log.Logger),
		Dispatcher: reg,
		Ledger: credits.NewLedger(store, cfg.Credits.AdminUsers, cfg.Credits.PremiumUsers,
			cfg.Credits.FreeLimit, cfg.Credits.PremiumLimit, log.Logger),
		Versions:            versions.NewService(store),
		Audit:               audit,
		LimitReachedMessage: cfg.Credits.LimitReachedMessage,
		Log:                 log.Logger,
		Metrics:             m,
	})

	mux := api.Routes()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.Handler())

	httpServer := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           httpapi.CORS(mux),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.ListenAddr).Msg("http server started")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-errCh:
		log.Error().Err(err).Msg("runtime error")
		cancel()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("failed to stop http server")
	}

	log.Info().Msg("stopped")
}

func setupLogger(level string) {
	zerolog.TimeFieldFormat = time.RFC3339
	zerolog.SetGlobalLevel(parseLogLevel(level))
	log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
}

func parseLogLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
