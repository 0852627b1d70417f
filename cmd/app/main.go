package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/NastyaGoryachaya/crypto-tracker/internal/app"
	"github.com/NastyaGoryachaya/crypto-tracker/internal/config"
	"github.com/NastyaGoryachaya/crypto-tracker/pkg/logger"
	"github.com/labstack/gommon/log"
)

func main() {
	// context + signals
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Errorf("config load failed: %v", err)
		os.Exit(1)
	}

	lg, err := logger.New(cfg.Logger)
	if err != nil {
		log.Errorf("logger init failed: %v", err)
		os.Exit(1)
	}

	// build application
	application, err := app.NewApp(ctx, *cfg, lg)
	if err != nil {
		log.Errorf("app init failed: %v", err)
		os.Exit(1)
	}

	// run application
	if err := application.Run(ctx); err != nil {
		log.Errorf("application stopped with error: %v", err)
		os.Exit(1)
	}

	log.Info("crypto-tracker stopped")
}
