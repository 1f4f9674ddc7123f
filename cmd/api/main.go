// Package main is the entry point for the travel spot editor API server.
// Its sole responsibility is wiring dependencies together and starting the server.
// No business logic belongs here.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/pkordes/travelspot-editor/backend/internal/cache"
	"github.com/pkordes/travelspot-editor/backend/internal/config"
	"github.com/pkordes/travelspot-editor/backend/internal/handler"
	"github.com/pkordes/travelspot-editor/backend/internal/images"
	"github.com/pkordes/travelspot-editor/backend/internal/location"
	"github.com/pkordes/travelspot-editor/backend/internal/middleware"
	"github.com/pkordes/travelspot-editor/backend/internal/remote"
	"github.com/pkordes/travelspot-editor/backend/internal/repo"
	"github.com/pkordes/travelspot-editor/backend/internal/service"
	"github.com/pkordes/travelspot-editor/backend/internal/wizard"
	"github.com/pkordes/travelspot-editor/backend/migrations"
)

func main() {
	// --- Config -----------------------------------------------------------
	cfg, err := config.Load()
	if err != nil {
		// Use plain stderr before the logger is configured.
		slog.Error("configuration error", "error", err)
		os.Exit(1)
	}

	// --- Logger -----------------------------------------------------------
	var logLevel slog.Level
	if err := logLevel.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		logLevel = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Database ---------------------------------------------------------
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to create database pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	// Verify the DB is reachable before accepting traffic.
	if err := pool.Ping(ctx); err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	if err := migrate(ctx, pool); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("database connection established")

	// --- Remote API -------------------------------------------------------
	client, err := remote.New(remote.Config{
		BaseURL:           cfg.RemoteAPIURL,
		Token:             cfg.RemoteAPIToken,
		Timeout:           cfg.RemoteAPITimeout,
		RequestsPerSecond: cfg.RemoteAPIRPS,
	}, logger)
	if err != nil {
		slog.Error("invalid remote api configuration", "error", err)
		os.Exit(1)
	}

	// Location options are read through Redis when REDIS_URL is set.
	var locations location.Fetcher = client
	if cfg.RedisURL != "" {
		rdb, err := cache.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			slog.Error("failed to connect to redis", "error", err)
			os.Exit(1)
		}
		defer rdb.Close()
		locations = cache.NewLocationCache(client, rdb, cfg.LocationCacheTTL, logger)
		slog.Info("location cache enabled", "ttl", cfg.LocationCacheTTL.String())
	}

	// --- Services ---------------------------------------------------------
	editors := service.NewEditorService(service.Config{
		Sessions: repo.NewSessionRepo(pool),
		Spots:    client,
		Wizard: wizard.Deps{
			Persister: client,
			Locations: locations,
			Images:    client,
			Policy:    images.Policy{MaxBytes: cfg.ImageMaxBytes},
		},
		Logger: logger,
	})
	go purgeIdle(ctx, editors, cfg.SessionTTL)

	// --- Router -----------------------------------------------------------
	// Middleware is applied in order: RequestID → RealIP → Logger → Recoverer
	// → CORS → body limit.
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewSlogLogger(logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.NewCORSHandler(cfg.CORSOrigins))
	r.Use(middleware.NewMaxBodySizeHandler(cfg.MaxBodyBytes))

	srv := handler.NewServer(editors,
		handler.WithLogger(logger),
		handler.WithUploadMemory(cfg.MaxBodyBytes),
	)
	handler.HandlerFromMux(srv, r)

	// --- HTTP Server ------------------------------------------------------
	// Write timeout covers a full submit: remote create or update plus the
	// image list refresh.
	httpSrv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      3*cfg.RemoteAPITimeout + 10*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "addr", httpSrv.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown: wait for OS signal, then give in-flight requests
	// up to 15 seconds to complete before forcefully closing.
	<-ctx.Done()
	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}

// migrate applies pending goose migrations through a database/sql handle
// borrowed from the pool.
func migrate(ctx context.Context, pool *pgxpool.Pool) error {
	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	provider, err := goose.NewProvider(goose.DialectPostgres, db, migrations.FS)
	if err != nil {
		return fmt.Errorf("create goose provider: %w", err)
	}
	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	for _, res := range results {
		slog.Info("migration applied", "version", res.Source.Version, "duration_ms", res.Duration.Milliseconds())
	}
	return nil
}

// purgeIdle drops sessions untouched for longer than ttl until ctx is done.
func purgeIdle(ctx context.Context, editors *service.EditorService, ttl time.Duration) {
	interval := max(ttl/4, time.Minute)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := editors.PurgeIdle(ctx, ttl)
			if err != nil {
				slog.Warn("purge idle sessions", "error", err)
				continue
			}
			if n > 0 {
				slog.Info("purged idle sessions", "count", n)
			}
		}
	}
}
