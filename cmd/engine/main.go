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

	"blogging-web/internal/config"
	"blogging-web/internal/database"
	"blogging-web/internal/engine"
	"blogging-web/internal/handlers"
	"blogging-web/internal/middleware"
	"blogging-web/internal/storage"
	"blogging-web/internal/utils"
	"blogging-web/internal/websocket"

	"github.com/asynkron/protoactor-go/actor"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	logger := utils.NewLogger(os.Stdout, cfg.IsProduction(), cfg.Debug)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := newStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := store.Close(closeCtx); err != nil {
			logger.Warn("failed to close store", "error", err)
		}
	}()

	images, err := storage.NewImageStore(cfg.Uploads.Dir, int64(cfg.Uploads.MaxSizeMB)<<20)
	if err != nil {
		return err
	}

	metrics := utils.NewMetricsCollector()
	hub := websocket.NewHub(logger)
	go hub.Run(ctx)

	system := actor.NewActorSystem()
	blogEngine := engine.NewEngine(system, store, hub, metrics, logger, cfg.Server.RequestTimeout)
	defer blogEngine.Stop()

	tokens := middleware.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, cfg.Auth.Issuer)
	server := handlers.NewServer(system, blogEngine, hub, images, tokens, metrics, logger, cfg)

	httpServer := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           server.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server",
			"addr", httpServer.Addr,
			"env", cfg.Environment,
			"database", cfg.Database.Type,
			"uploads", images.Dir())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed to start: %w", err)
		}
	case <-ctx.Done():
		logger.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

// newStore picks the persistence backend named by the configuration.
func newStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (database.Store, error) {
	switch cfg.Database.Type {
	case config.DBTypeMemory:
		logger.Warn("using in-memory store, data will not survive a restart")
		return database.NewMemoryStore(), nil
	case config.DBTypeMongo:
		mongoDB, err := database.NewMongoDB(ctx, cfg.Database.URI, cfg.Database.Name, logger)
		if err != nil {
			return nil, err
		}
		if err := mongoDB.EnsureIndexes(ctx); err != nil {
			_ = mongoDB.Close(context.Background())
			return nil, err
		}
		return mongoDB, nil
	default:
		return nil, fmt.Errorf("unsupported database type %q", cfg.Database.Type)
	}
}
