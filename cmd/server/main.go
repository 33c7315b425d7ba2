package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/iudanet/whiteboard/internal/server/auth"
	"github.com/iudanet/whiteboard/internal/server/handlers"
	"github.com/iudanet/whiteboard/internal/server/middleware"
	"github.com/iudanet/whiteboard/internal/server/storage"
	"github.com/iudanet/whiteboard/internal/server/storage/boltdb"
	"github.com/iudanet/whiteboard/internal/server/storage/sqlite"
	"github.com/iudanet/whiteboard/internal/server/ws"
)

var (
	// Version information set via ldflags during build
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

const (
	shutdownTimeout = 10 * time.Second

	// Лимиты rate limiter для REST API и websocket handshake
	rateLimit       = 300
	rateLimitWindow = time.Minute
)

type config struct {
	addr           string
	dbDriver       string
	dbPath         string
	logLevel       string
	jwtSecret      string
	allowedOrigins []string
}

func main() {
	showVersion := flag.Bool("version", false, "Show version information")
	addr := flag.String("addr", envOr("ADDR", ":8080"), "HTTP listen address")
	dbDriver := flag.String("db-driver", envOr("DB_DRIVER", "sqlite"), "Storage driver: sqlite or bolt")
	dbPath := flag.String("db", envOr("DB_PATH", "whiteboard.db"), "Path to database file")
	logLevel := flag.String("log-level", envOr("LOG_LEVEL", "info"), "Log level: debug, info, warn, error")
	origins := flag.String("allowed-origins", envOr("ALLOWED_ORIGINS", ""), "Comma-separated list of allowed websocket origins, empty allows all")
	flag.Parse()

	if *showVersion {
		printVersion()
		os.Exit(0)
	}

	cfg := config{
		addr:      *addr,
		dbDriver:  *dbDriver,
		dbPath:    *dbPath,
		logLevel:  *logLevel,
		jwtSecret: os.Getenv("JWT_SECRET"),
	}
	if *origins != "" {
		cfg.allowedOrigins = strings.Split(*origins, ",")
	}

	if err := run(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg config) error {
	logger := setupLogger(cfg.logLevel)

	if cfg.jwtSecret == "" {
		return errors.New("JWT_SECRET environment variable is required")
	}
	authConfig := auth.Config{Secret: []byte(cfg.jwtSecret)}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStorage(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	defer closeStore()

	hub := ws.NewHub(logger, store)
	defer hub.Close()

	rateLimiter := middleware.RateLimitMiddleware(rateLimit, rateLimitWindow, logger)
	authRequired := middleware.AuthMiddleware(logger, authConfig)

	documentsHandler := handlers.NewDocumentsHandler(logger, store)
	healthHandler := handlers.NewHealthHandler(logger, Version)
	wsHandler := ws.NewHandler(logger, hub, authConfig, cfg.allowedOrigins)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", healthHandler.Health)
	mux.Handle("GET /ws", wsHandler)
	mux.Handle("POST /api/v1/documents", authRequired(http.HandlerFunc(documentsHandler.Create)))
	mux.Handle("GET /api/v1/documents", authRequired(http.HandlerFunc(documentsHandler.List)))
	mux.Handle("GET /api/v1/documents/{id}", authRequired(http.HandlerFunc(documentsHandler.Get)))
	mux.Handle("PUT /api/v1/documents/{id}", authRequired(http.HandlerFunc(documentsHandler.Update)))
	mux.Handle("DELETE /api/v1/documents/{id}", authRequired(http.HandlerFunc(documentsHandler.Delete)))
	mux.Handle("POST /api/v1/documents/{id}/collaborators", authRequired(http.HandlerFunc(documentsHandler.AddCollaborator)))

	var handler http.Handler = mux
	handler = rateLimiter(handler)
	handler = middleware.LoggingWithSkip(logger, []string{"/healthz"})(handler)
	handler = middleware.RecoveryMiddleware(logger)(handler)

	server := &http.Server{
		Addr:              cfg.addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Server starting",
			"addr", cfg.addr,
			"db_driver", cfg.dbDriver,
			"version", Version,
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}

	logger.Info("Server stopped")
	return nil
}

// openStorage открывает хранилище документов по выбранному драйверу
func openStorage(ctx context.Context, cfg config, logger *slog.Logger) (storage.DocumentStorage, func(), error) {
	switch cfg.dbDriver {
	case "sqlite":
		store, err := sqlite.New(ctx, cfg.dbPath)
		if err != nil {
			return nil, nil, err
		}
		return store, func() {
			if err := store.Close(); err != nil {
				logger.Error("Failed to close sqlite storage", "error", err)
			}
		}, nil
	case "bolt":
		store, err := boltdb.New(ctx, cfg.dbPath)
		if err != nil {
			return nil, nil, err
		}
		return store, func() {
			if err := store.Close(); err != nil {
				logger.Error("Failed to close bolt storage", "error", err)
			}
		}, nil
	default:
		return nil, nil, fmt.Errorf("unknown db driver: %s", cfg.dbDriver)
	}
}

func setupLogger(level string) *slog.Logger {
	var slogLevel slog.Level
	switch level {
	case "debug":
		slogLevel = slog.LevelDebug
	case "warn":
		slogLevel = slog.LevelWarn
	case "error":
		slogLevel = slog.LevelError
	default:
		slogLevel = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slogLevel})
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// envOr возвращает значение переменной окружения или значение по умолчанию
func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func printVersion() {
	fmt.Printf("Whiteboard Server\n")
	fmt.Printf("Version:    %s\n", Version)
	fmt.Printf("Build Date: %s\n", BuildDate)
	fmt.Printf("Git Commit: %s\n", GitCommit)
}
