// Event-HUB web front-end server
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/ashureev/eventdash/internal/action"
	"github.com/ashureev/eventdash/internal/apiclient"
	"github.com/ashureev/eventdash/internal/config"
	"github.com/ashureev/eventdash/internal/guard"
	"github.com/ashureev/eventdash/internal/middleware"
	"github.com/ashureev/eventdash/internal/pages"
	"github.com/ashureev/eventdash/internal/ratelimit"
	"github.com/ashureev/eventdash/internal/session"
	"github.com/ashureev/eventdash/internal/store"
	"github.com/ashureev/eventdash/web"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("Starting server", "port", cfg.Port, "dev", cfg.IsDevelopment(), "backend", cfg.BackendURL)

	// Audit trail.
	repo, err := openAuditStore(cfg)
	if err != nil {
		slog.Error("Failed to initialize audit database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close audit repository", "error", closeErr)
		}
	}()

	if err := repo.Ping(context.Background()); err != nil {
		slog.Error("Audit database health check failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Audit database connected")

	// Backend client and action layer.
	client, err := apiclient.New(cfg.BackendURL, cfg.BackendTimeout, apiclient.WithLogger(logger))
	if err != nil {
		slog.Error("Failed to initialize backend client", "error", err)
		os.Exit(1)
	}
	actions := action.New(client, repo, logger)

	limiter, closeLimiter := newLimiter(cfg)
	defer closeLimiter()

	pageHandler, err := pages.NewHandler(actions, repo, web.Templates(), cfg.BackendAssetURL, logger)
	if err != nil {
		slog.Error("Failed to initialize page handler", "error", err)
		os.Exit(1)
	}

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))
	r.Use(session.Middleware(session.Options{
		MaxAge: cfg.SessionMaxAge,
		Secure: !cfg.IsDevelopment(),
	}))
	r.Use(guard.Middleware(guard.DefaultPaths()))

	r.Handle("/static/*", http.StripPrefix("/static", web.StaticHandler()))
	pageHandler.RegisterRoutes(r, middleware.RateLimit(limiter, "auth", cfg.RateLimit.Window))

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store.StartRetentionWorker(ctx, repo, cfg.Audit.Retention)

	// Start server.
	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal.
	<-ctx.Done()
	stop()

	slog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server stopped successfully")
}

// openAuditStore opens PostgreSQL when AUDIT_DATABASE_URL is set, otherwise SQLite.
func openAuditStore(cfg *config.Config) (store.AuditRepository, error) {
	if cfg.Audit.DatabaseURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		pg, err := store.NewPostgres(ctx, cfg.Audit.DatabaseURL)
		if err != nil {
			return nil, err
		}
		slog.Info("Using PostgreSQL audit store")
		return pg, nil
	}
	lite, err := store.NewSQLite(cfg.Audit.DBPath)
	if err != nil {
		return nil, err
	}
	slog.Info("Using SQLite audit store", "path", cfg.Audit.DBPath)
	return lite, nil
}

// newLimiter returns the shared Redis limiter when REDIS_URL is set and
// reachable, otherwise an in-process one.
func newLimiter(cfg *config.Config) (ratelimit.Limiter, func()) {
	rl := cfg.RateLimit
	if rl.RedisURL != "" {
		opts, err := redis.ParseURL(rl.RedisURL)
		if err != nil {
			slog.Warn("Invalid REDIS_URL, using in-memory rate limiter", "error", err)
		} else {
			client := redis.NewClient(opts)
			pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			if err := client.Ping(pingCtx).Err(); err != nil {
				slog.Warn("Redis unreachable, using in-memory rate limiter", "error", err)
				_ = client.Close()
			} else {
				slog.Info("Rate limiter using Redis", "attempts", rl.Attempts, "window", rl.Window)
				return ratelimit.NewRedis(client, "eventdash:ratelimit", rl.Attempts, rl.Window), func() {
					if err := client.Close(); err != nil {
						slog.Error("Failed to close Redis client", "error", err)
					}
				}
			}
		}
	}

	mem := ratelimit.NewMemory(rl.Attempts, rl.Window)
	slog.Info("Rate limiter using memory", "attempts", rl.Attempts, "window", rl.Window)
	return mem, mem.Close
}
