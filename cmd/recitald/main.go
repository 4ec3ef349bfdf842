package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"recital/internal/catalog"
	"recital/internal/config"
	"recital/internal/daemon"
	"recital/internal/logging"
	"recital/internal/store"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, _, _, err := config.Load("")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		log.Fatalf("prepare directories: %v", err)
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	st, err := store.Open(cfg.Paths.StorageDir, logger)
	if err != nil {
		logger.Error("open recording store", logging.Error(err))
		os.Exit(1)
	}

	cat, err := catalog.Open(cfg)
	if err != nil {
		logger.Error("open catalog", logging.Error(err))
		os.Exit(1)
	}

	d, err := daemon.New(cfg, st, cat, logger)
	if err != nil {
		logger.Error("create daemon", logging.Error(err))
		os.Exit(1)
	}
	defer d.Close()

	if err := d.Start(ctx); err != nil {
		logger.Error("start daemon", logging.Error(err))
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("recitald shutting down")
}
