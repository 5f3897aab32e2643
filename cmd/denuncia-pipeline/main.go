package main

import (
	"context"
	"os/signal"
	"syscall"

	"denuncia_pipeline/internal/app"
	"denuncia_pipeline/internal/config"
	"denuncia_pipeline/internal/logger"
)

func main() {
	cfg := config.Load()
	log := logger.New()
	log.WithField("service", "denuncia-pipeline").Info("starting service")

	application, err := app.New(cfg, log)
	if err != nil {
		log.WithError(err).Fatal("init")
	}
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()
	if err := application.Run(ctx); err != nil {
		log.WithError(err).Fatal("run")
	}
}
