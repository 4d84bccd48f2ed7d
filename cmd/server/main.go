package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Shadowdev1174/Inventory-POS-WebApp/internal/cache"
	"github.com/Shadowdev1174/Inventory-POS-WebApp/internal/config"
	"github.com/Shadowdev1174/Inventory-POS-WebApp/internal/httpapi"
	"github.com/Shadowdev1174/Inventory-POS-WebApp/internal/logger"
	"github.com/Shadowdev1174/Inventory-POS-WebApp/internal/service"
	"github.com/Shadowdev1174/Inventory-POS-WebApp/internal/store"
	"github.com/Shadowdev1174/Inventory-POS-WebApp/internal/store/memory"
	pgstore "github.com/Shadowdev1174/Inventory-POS-WebApp/internal/store/postgres"
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg.LogLevel, cfg.LogPretty)

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var repo store.Repository
	closers := make([]func() error, 0, 2)

	if cfg.DatabaseURL != "" {
		pg, err := pgstore.New(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatal().Err(err).Msg("postgres unavailable and DATABASE_URL is set; refusing to start with in-memory fallback")
		}
		if err := pg.Migrate(ctx); err != nil {
			log.Fatal().Err(err).Msg("migrations failed")
		}
		repo = pg
		closers = append(closers, pg.Close)
		log.Info().Msg("repository: postgres")
	} else {
		repo = memory.NewSeeded()
		log.Info().Msg("repository: in-memory")
	}

	catalogCache := cache.CatalogCache(cache.NoopCatalogCache{})
	if cfg.RedisAddr != "" {
		redisCache := cache.NewRedisCatalogCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err := redisCache.Ping(ctx); err != nil {
			log.Warn().Err(err).Msg("redis unavailable, using noop cache")
		} else {
			catalogCache = redisCache
			closers = append(closers, redisCache.Close)
			log.Info().Msg("cache: redis")
		}
	} else {
		log.Info().Msg("cache: noop")
	}

	svc := service.New(repo, catalogCache, log, time.Duration(cfg.CatalogCacheTTLSeconds)*time.Second)
	auth := httpapi.NewAuthManager(cfg.AuthSecret, time.Duration(cfg.AccessTokenTTLMinutes)*time.Minute, repo)
	api := httpapi.New(svc, auth, log, cfg.AllowedOrigin)

	server := &http.Server{
		Addr:              cfg.Address(),
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", cfg.Address()).Msg("POS backend listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown error")
	}

	for _, closeFn := range closers {
		if err := closeFn(); err != nil {
			log.Error().Err(err).Msg("close error")
		}
	}

	log.Info().Msg("server stopped")
}
