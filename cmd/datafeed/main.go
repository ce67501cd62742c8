package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"datafeed/internal/api"
	"datafeed/internal/config"
	"datafeed/internal/failover"
	"datafeed/internal/logger"
	"datafeed/internal/monitoring"
	"datafeed/internal/provider"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to configuration file")
	flag.Parse()

	// Provider API keys typically live in .env during development.
	if err := godotenv.Load(); err == nil {
		logger.Debug("loaded .env file")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal("failed to load configuration", "error", err.Error())
	}

	logger.Init(cfg.Logging)
	log := logger.Global()
	log.Info("starting datafeed", "env", cfg.App.Env, "providers", len(cfg.Providers))

	registry := provider.NewRegistry()
	for _, desc := range cfg.Providers {
		impl, err := provider.Build(desc)
		if err != nil {
			log.Fatal("failed to build provider", "provider", desc.Name, "error", err.Error())
		}
		if err := registry.Register(desc, impl); err != nil {
			log.Fatal("failed to register provider", "provider", desc.Name, "error", err.Error())
		}
	}

	metrics := monitoring.NewMetrics()
	engine := failover.NewEngine(cfg.Failover, registry, metrics, log)
	engine.Start()

	server := api.NewServer(cfg, engine, metrics, log)
	go func() {
		if err := server.Start(); err != nil {
			log.Fatal("api server failed", "error", err.Error())
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	log.Info("shutting down", "signal", sig.String())

	engine.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("api server shutdown failed", "error", err.Error())
	}
}
