package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/jpalmerr/paperless"
	"github.com/jpalmerr/paperless/config"
	"github.com/spf13/cobra"
)

const (
	shutdownTimeout = 10 * time.Second
)

// serveCmd starts the sensor host.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Poll every configured instance and serve the states",
	Long: `Start the sensor host.

The host will:
  - Load configuration from the specified YAML file
  - Refresh every configured Paperless-NG instance at the poll interval
  - Serve the published states on the configured port

Endpoints:
  GET /api/states          all sensor states
  GET /api/states/{name}   one sensor state
  GET /api/sse             live updates (Server-Sent Events)
  GET /metrics             Prometheus metrics

The host runs until interrupted (Ctrl+C) or receives SIGTERM.

Example:
  paperless-sensor serve -c paperless.yaml
  paperless-sensor serve -c paperless.yaml --env-file .env`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringP("config", "c", "", "path to config file (required)")
	_ = serveCmd.MarkFlagRequired("config")
}

func runServe(cmd *cobra.Command, args []string) error {
	logger, err := newLogger(cmd)
	if err != nil {
		return err
	}

	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger.Info("config loaded", "entries", len(cfg.Entries))
	logger.Info("starting server",
		"port", cfg.Port,
		"poll_interval", cfg.PollInterval.Duration().String(),
	)

	opts, err := config.HubOptions(cfg)
	if err != nil {
		return fmt.Errorf("failed to build sensors: %w", err)
	}
	opts = append(opts, paperless.WithLogger(logger))

	hub, err := paperless.New(opts...)
	if err != nil {
		return fmt.Errorf("failed to create hub: %w", err)
	}

	// cancel on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return runHub(ctx, hub, logger)
}

// hubRunner is the part of *paperless.Hub that runHub needs.
type hubRunner interface {
	Start(ctx context.Context) error
}

// runHub starts the hub and waits for it, giving it shutdownTimeout to stop
// once ctx is cancelled.
func runHub(ctx context.Context, hub hubRunner, logger *slog.Logger) error {
	errChan := make(chan error, 1)
	go func() {
		errChan <- hub.Start(ctx)
	}()

	select {
	case err := <-errChan:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		logger.Info("shutdown complete")
		return nil

	case <-ctx.Done():
		select {
		case err := <-errChan:
			if err != nil {
				return fmt.Errorf("server error: %w", err)
			}
			logger.Info("shutdown complete")
			return nil
		case <-time.After(shutdownTimeout):
			logger.Warn("shutdown timed out",
				"timeout", shutdownTimeout.String(),
				"action", "forcing exit",
			)
			return nil
		}
	}
}
