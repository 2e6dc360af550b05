package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/vas-solutus/tapbridge/internal/api"
	"github.com/vas-solutus/tapbridge/internal/exporter"
	"github.com/vas-solutus/tapbridge/internal/manager"
	"github.com/vas-solutus/tapbridge/pkg/component"
	"github.com/vas-solutus/tapbridge/pkg/config"
	"github.com/vas-solutus/tapbridge/pkg/logger"
	"github.com/vas-solutus/tapbridge/pkg/version"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to configuration file")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.Full())
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger.Configure(cfg.Logging.Format, cfg.Logging.Level, cfg.Logging.Components)

	mainLog := logger.Component(logger.ComponentMain)
	mainLog.Info("Starting tapbridged", "version", version.Full(), "bridges", len(cfg.Bridges))

	mgr := manager.New(cfg.Bridges, nil)

	orch := component.NewOrchestrator()
	orch.Register(mgr)
	if cfg.Metrics.Enabled {
		orch.Register(exporter.New(cfg.Metrics.ListenAddress, mgr))
	}
	if cfg.API.Enabled {
		orch.Register(api.New(cfg.API.ListenAddress, mgr))
	}

	ctx := context.Background()
	if err := orch.Start(ctx); err != nil {
		log.Fatalf("Failed to start components: %v", err)
	}

	mainLog.Info("tapbridged started successfully")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	mainLog.Info("Shutting down tapbridged...")

	if err := orch.Stop(ctx); err != nil {
		mainLog.Error("Error stopping components", "error", err)
	}

	mainLog.Info("tapbridged stopped")
}
