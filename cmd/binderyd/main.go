// Command binderyd runs the bindery download daemon: the bundler service,
// the cache reaper, and the HTTP API.
package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"

	"bindery/internal/bundler"
	"bindery/internal/catalog"
	"bindery/internal/config"
	"bindery/internal/daemon"
	"bindery/internal/jobs"
	"bindery/internal/logging"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, _, _, err := config.Load(*configPath)
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

	store, err := jobs.Open(cfg)
	if err != nil {
		logger.Error("open job store", logging.Error(err))
		return
	}

	cat, err := catalog.OpenSQLite(cfg.Paths.LibraryDB)
	if err != nil {
		logger.Error("open library catalog", logging.Error(err))
		_ = store.Close()
		return
	}
	defer cat.Close()

	svc := bundler.NewService(cfg, store, cat, logger)

	d, err := daemon.New(cfg, store, svc, logger)
	if err != nil {
		logger.Error("create daemon", logging.Error(err))
		_ = store.Close()
		return
	}
	defer d.Close()

	if err := d.Start(ctx); err != nil {
		logger.Error("daemon start", logging.Error(err))
		return
	}

	<-ctx.Done()
	logger.Info("binderyd shutting down")
}
