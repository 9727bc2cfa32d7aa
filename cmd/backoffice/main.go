package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/you/backoffice/internal/app"
	"github.com/you/backoffice/internal/config"
	"github.com/you/backoffice/internal/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if err := logger.InitLogger(cfg.LogLevel); err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx, cfg); err != nil {
		logger.Log.Fatal("app", zap.Error(err))
	}
}
