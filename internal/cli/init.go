// Package cli provides common initialization for cmd/expentrax and
// cmd/recurring-worker.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"expentrax/internal/config"
	"expentrax/internal/log"

	"github.com/joho/godotenv"
)

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadConfig loads and validates configuration from the environment.
func LoadConfig() (*config.Config, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SetupLogger builds the component logger from cfg and installs it as the
// slog default.
func SetupLogger(cfg *config.Config, component string, out io.Writer) (*log.Logger, error) {
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = os.Stdout
	}
	logger := log.New(log.Config{
		Level:     level,
		Format:    cfg.LogFormat,
		Component: component,
		Output:    out,
	})
	log.SetDefault(logger)
	return logger, nil
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
func SignalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}

// Bootstrap runs LoadEnvFile, LoadConfig and SetupLogger in order.
func Bootstrap(component string) (*config.Config, *log.Logger, error) {
	LoadEnvFile()
	cfg, err := LoadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("load configuration: %w", err)
	}
	logger, err := SetupLogger(cfg, component, nil)
	if err != nil {
		return nil, nil, err
	}
	slog.Debug("Configuration loaded", "component", component, "backend", cfg.DataBackend)
	return cfg, logger, nil
}
