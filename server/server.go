// Package server wires configuration, storage, and handlers into a running HTTP server.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"go-shortlink/config"
	"go-shortlink/handlers"
	"go-shortlink/services"
	"go-shortlink/storage"
	"go-shortlink/urlgen"
)

const shutdownTimeout = 10 * time.Second

// Run starts the server and blocks until an interrupt signal stops it.
func Run(logger *zap.Logger, cfg *config.Config) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, closeStore, err := newStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeStore(); err != nil {
			logger.Warn("Failed to close link store", zap.Error(err))
		}
	}()

	linkHandler, err := setupLinkHandler(ctx, cfg, store, logger)
	if err != nil {
		return err
	}

	router := setupRouter(linkHandler, cfg, logger)
	server := setupServer(cfg, router)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	defer signal.Stop(quit)

	go startServer(server, logger)

	return waitForShutdown(ctx, server, quit, logger)
}

// newStore builds the configured link store and a function that releases it.
func newStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (storage.Storage, func() error, error) {
	noop := func() error { return nil }
	log := logger.With(zap.String("store", cfg.Store))

	switch cfg.Store {
	case config.StoreMemory:
		return storage.NewInMemoryStorage(cfg.StoreCapacity, log), noop, nil
	case config.StoreSQLite:
		s, err := storage.NewSQLStorage(ctx, cfg.DatabaseURL, cfg.TableName, cfg.VisitsMode, log)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	case config.StorePostgres:
		s, err := storage.NewPostgresStorage(ctx, cfg.DatabaseURL, cfg.TableName, cfg.VisitsMode, log)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	case config.StoreRedis:
		client, err := storage.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, nil, err
		}
		return storage.NewRedisStorage(client, cfg.RedisKeyPrefix, cfg.VisitsMode, log), client.Close, nil
	case config.StoreDynamoDB:
		client, err := storage.NewDynamoDBClient(ctx, storage.DynamoDBOptions{
			Region:          cfg.AWSRegion,
			Endpoint:        cfg.DynamoDBEndpoint,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
		})
		if err != nil {
			return nil, nil, err
		}
		return storage.NewDynamoDBStorage(client, cfg.TableName, cfg.VisitsMode, log), noop, nil
	default:
		return nil, nil, fmt.Errorf("unknown store %q", cfg.Store)
	}
}

func setupLinkHandler(ctx context.Context, cfg *config.Config, store storage.Storage, logger *zap.Logger) (handlers.LinkHandlerInterface, error) {
	handlerCtx, cancel := context.WithTimeout(ctx, cfg.RequestTimeout)
	defer cancel()

	linkService, err := services.NewLinkService(store, urlgen.New(), cfg, logger)
	if err != nil {
		logger.Error("Failed to create link service", zap.Error(err))
		return nil, err
	}

	handler, err := handlers.NewLinkHandler(handlerCtx, linkService, cfg, logger)
	if err != nil {
		logger.Error("Failed to create link handler", zap.Error(err))
		return nil, err
	}

	logger.Debug("Link handler created successfully")
	return handler, nil
}

func setupRouter(linkHandler handlers.LinkHandlerInterface, cfg *config.Config, logger *zap.Logger) *gin.Engine {
	router := gin.New()
	router.Use(handlers.RequestLoggerMiddleware(logger), gin.Recovery())
	handlers.RegisterRoutes(router, linkHandler, cfg)
	return router
}

func setupServer(cfg *config.Config, router *gin.Engine) *http.Server {
	return &http.Server{
		Addr:    cfg.ServerPort,
		Handler: router,
	}
}

func startServer(srv *http.Server, logger *zap.Logger) {
	logger.Debug("Starting server", zap.String("address", srv.Addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", zap.Error(err))
	}
	logger.Debug("Server stopped")
}

func waitForShutdown(ctx context.Context, srv *http.Server, quit <-chan os.Signal, logger *zap.Logger) error {
	select {
	case <-quit:
		logger.Info("Received interrupt signal. Initiating server shutdown...")
	case <-ctx.Done():
		logger.Info("Context cancelled. Initiating server shutdown...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
		return err
	}

	logger.Info("Server gracefully stopped")
	return nil
}
