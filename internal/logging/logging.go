// Package logging configures the process-wide logrus logger.
package logging

import (
	"fmt"
	"os"

	"zara/scraper/internal/config"

	log "github.com/sirupsen/logrus"
)

// Setup applies level and format from cfg to the standard logrus logger.
func Setup(cfg config.LogConfig) error {
	level, err := log.ParseLevel(cfg.Level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}

	log.SetLevel(level)
	log.SetOutput(os.Stdout)
	log.SetFormatter(Formatter(cfg.Format))

	return nil
}

func Formatter(format string) log.Formatter {
	if format == "json" {
		return &log.JSONFormatter{TimestampFormat: "2006-01-02T15:04:05.000Z07:00"}
	}
	return &log.TextFormatter{FullTimestamp: true}
}
