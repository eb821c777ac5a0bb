package main

import (
	"flag"

	"go.uber.org/zap"

	"go-shortlink/config"
	"go-shortlink/server"
)

var logger *zap.Logger

func init() {
	var err error
	logger, err = zap.NewProduction()
	if err != nil {
		panic("Failed to initialize zap logger: " + err.Error())
	}
}

func main() {
	defer logger.Sync()

	disableRateLimit := flag.Bool("disable-rate-limit", false, "Disable rate limiting for performance testing")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Invalid configuration", zap.Error(err))
	}
	if *disableRateLimit {
		cfg.DisableRateLimit = true
	}

	logger.Info("Starting short link service...",
		zap.String("store", cfg.Store),
		zap.String("address", cfg.ServerPort))
	if err := server.Run(logger, cfg); err != nil {
		logger.Fatal("Application error", zap.Error(err))
	}
	logger.Info("Short link service stopped.")
}
