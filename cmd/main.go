// Command paperfloor runs the paper-trading app: a simulated spot wallet
// over live or demo prices, with an optional shared chat backed by a
// remote log store.
//
// Usage:
//
//	paperfloor --setup
//	paperfloor --config config.yaml
package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/cbotrade/paperfloor/config"
	"github.com/cbotrade/paperfloor/internal"
	"github.com/cbotrade/paperfloor/internal/setup"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to yaml config")
	runSetup := flag.Bool("setup", false, "run the configuration wizard and exit")
	flag.Parse()

	if *runSetup {
		if err := setup.RunTUI(*configPath); err != nil {
			log.Fatal(err)
		}
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v (run with --setup to create one)", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	app, err := internal.NewApp(cfg, logger)
	if err != nil {
		logger.Fatal("app init failed", zap.Error(err))
	}
	defer app.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("starting",
		zap.String("pair", cfg.Pair.String()),
		zap.String("price_source", cfg.PriceSource),
		zap.String("web_addr", cfg.WebAddr),
		zap.Bool("chat", cfg.ChatEnabled()))

	if err := app.Run(ctx); err != nil {
		logger.Fatal("app exited", zap.Error(err))
	}
}
