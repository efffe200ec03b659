package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/parlor-games/session-service/config"
	"github.com/parlor-games/session-service/internal/narrator"
	"github.com/parlor-games/session-service/internal/postgres"
	"github.com/parlor-games/session-service/internal/ratelimit"
	"github.com/parlor-games/session-service/internal/room"
	"github.com/parlor-games/session-service/internal/storage"
	httpx "github.com/parlor-games/session-service/internal/transport/http"
	"github.com/parlor-games/session-service/internal/transport/ws"
	"github.com/parlor-games/session-service/pkg/logger"
)

func main() {
	// --- config ---
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger.Init(logger.Config{
		Env:       logger.Env(cfg.Logging.Env),
		Service:   cfg.Logging.Service,
		Version:   cfg.Logging.Version,
		Backend:   logger.Backend(cfg.Logging.Backend),
		AddSource: cfg.Logging.AddSource,
		Debug:     cfg.Logging.Debug,
	})
	slog.Info("starting session-service",
		"env", cfg.Logging.Env, "version", cfg.Logging.Version)

	ctx := context.Background()

	// --- storage ---
	var store storage.Store
	if cfg.Postgres.DSN != "" {
		pool, err := postgres.NewPool(ctx, postgres.Config{
			DSN:             cfg.Postgres.DSN,
			ApplicationName: cfg.Logging.Service,
		})
		if err != nil {
			log.Fatalf("postgres: %v", err)
		}
		defer pool.Close()
		store = postgres.NewStore(pool)
	} else {
		slog.Warn("no postgres dsn, using in-memory store")
		store = storage.NewMemory()
	}

	// --- rate limiter ---
	limits := ratelimit.NewService(ratelimit.Options{
		Unit:      config.ParseDurationOr(time.Second, cfg.Limits.Unit),
		Grace:     config.ParseDurationOr(3*time.Second, cfg.Limits.Grace),
		IdleAfter: config.ParseDurationOr(5*time.Minute, cfg.Limits.IdleAfter),
	})

	// --- narrator ---
	narr := narrator.NewHTTPClient(narrator.HTTPConfig{
		BaseURL:    cfg.Narrator.BaseURL,
		Timeout:    config.ParseDurationOr(20*time.Second, cfg.Narrator.Timeout),
		MaxRetries: cfg.Narrator.MaxRetries,
	})

	// --- rooms ---
	rooms := room.NewManager(store, narr, room.Config{
		BacklogSize:     cfg.Game.BacklogSize,
		ConfirmTimeout:  config.ParseDurationOr(30*time.Second, cfg.Game.ConfirmTimeout),
		RevealDelay:     config.ParseDurationOr(1200*time.Millisecond, cfg.Game.RevealDelay),
		SolvedThreshold: cfg.Game.SolvedThreshold,
	})

	// --- HTTP + WS ---
	wsServer := ws.NewServer(rooms, limits)
	handler := httpx.NewHandler(rooms, store)
	router := httpx.NewRouter(handler, wsServer, cfg.HTTP.AllowedOrigins)
	httpSrv := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http listen", "addr", cfg.HTTP.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// --- graceful shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		slog.Info("shutdown signal", "sig", sig)
	case err := <-errCh:
		slog.Error("server error", "err", err)
	}

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = httpSrv.Shutdown(ctxShutdown)
	rooms.Shutdown(ctxShutdown) // every room persists a final snapshot
	slog.Info("stopped")
}
