package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"zara/scraper/internal/config"
	"zara/scraper/internal/container"
	"zara/scraper/internal/logging"

	log "github.com/sirupsen/logrus"
)

func main() {
	// Load configuration using viper
	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if err := logging.Setup(cfg.Log); err != nil {
		log.Fatalf("Failed to configure logging: %v", err)
	}
	log.Info("Starting Zara category scraper...")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize container with all dependencies
	app, err := container.New(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize container: %v", err)
	}
	defer app.Close()

	// Run the application
	if err := app.Run(ctx); err != nil {
		log.Errorf("Application exited with error: %v", err)
		return
	}

	log.Info("Application finished successfully")
}
