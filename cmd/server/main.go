// Package main runs the FlowState backend: REST API, websocket hub,
// and the weekly habit scheduler.
package main

import (
	"context"
	"database/sql"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"github.com/flowstate/backend/internal/app"
	"github.com/flowstate/backend/internal/app/httpapi"
	"github.com/flowstate/backend/internal/app/storage/postgres"
	"github.com/flowstate/backend/internal/config"
	"github.com/flowstate/backend/internal/middleware"
	"github.com/flowstate/backend/pkg/logger"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to the YAML configuration file")
	migratePasswords := flag.Bool("migrate-passwords", false, "Hash any stored plaintext passwords and exit")
	flag.Parse()

	// Local development drops overrides in a .env file; absence is fine.
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.NewDefault("server").Fatalf("load config: %v", err)
	}
	log := logger.New(cfg.Logging).WithField("component", "server")

	opts := app.Options{
		JWTSecret:     cfg.Auth.JWTSecret,
		TokenTTL:      cfg.Auth.TokenTTL.Std(),
		HabitCadence:  cfg.Scheduler.HabitCadence,
		BroadcastChat: cfg.Chat.Broadcast,
	}

	if cfg.Database.URL != "" {
		db, err := openDatabase(cfg.Database)
		if err != nil {
			log.Fatalf("open database: %v", err)
		}
		defer db.Close()

		store := postgres.New(db)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := store.EnsureSchema(ctx); err != nil {
			cancel()
			log.Fatalf("ensure schema: %v", err)
		}
		cancel()

		opts.Store = store
		opts.Maintainer = store
		log.Info("using postgres store")
	} else {
		log.Warn("DATABASE_URL not set; using in-memory store")
	}

	application, err := app.New(opts, log)
	if err != nil {
		log.Fatalf("initialise application: %v", err)
	}

	if *migratePasswords {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		migrated, err := application.Accounts.MigratePlaintextPasswords(ctx)
		if err != nil {
			log.Fatalf("migrate passwords: %v", err)
		}
		log.WithField("migrated", migrated).Info("password migration complete")
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := application.Start(ctx); err != nil {
		log.Fatalf("start application: %v", err)
	}

	handler := buildHandler(application, cfg, log)
	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.WithField("addr", cfg.Server.Addr).Info("server listening")
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("server shutdown error")
	}
	if err := application.Stop(shutdownCtx); err != nil {
		log.WithError(err).Warn("application stop error")
	}
	log.Info("server stopped")
}

// buildHandler assembles the middleware chain around the API mux:
// metrics outermost, then CORS, authentication, and rate limiting. The
// limiter sits inside auth so it can key buckets by the authenticated
// identity instead of the remote address.
func buildHandler(application *app.Application, cfg config.Config, log *logger.Logger) http.Handler {
	mux := httpapi.NewHandler(application)

	authMW := middleware.NewAuthMiddleware(application.Tokens, log, httpapi.SkipAuthPaths)
	limiter := middleware.NewRateLimiter(cfg.Server.RequestsPerSecond, cfg.Server.RateBurst, log)
	limiter.StartCleanup(10 * time.Minute)
	cors := middleware.NewCORSMiddleware(cfg.Server.AllowedOrigins)

	var handler http.Handler = mux
	handler = limiter.Handler(handler)
	handler = authMW.Handler(handler)
	handler = cors.Handler(handler)
	handler = middleware.MetricsMiddleware(handler)
	return handler
}

func openDatabase(cfg config.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.URL)
	if err != nil {
		return nil, err
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}
