// Package main is the entry point for the paperless-sensor CLI.
//
// Usage:
//
//	paperless-sensor setup -c config.yaml --host docs --username me   # Add an instance
//	paperless-sensor serve -c config.yaml                             # Poll and serve states
//	paperless-sensor refresh -c config.yaml                           # Refresh once, print JSON
//	paperless-sensor validate -c config.yaml                          # Validate configuration
//	paperless-sensor version                                          # Show version info
package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// Version information - set at build time via ldflags.
// Example: go build -ldflags "-X main.version=1.0.0"
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// rootCmd is the base command when called without subcommands.
// It just displays help - actual functionality is in subcommands.
var rootCmd = &cobra.Command{
	Use:   "paperless-sensor",
	Short: "Document counts from Paperless-NG as sensor state",
	Long: `paperless-sensor polls Paperless-NG document-management servers and
publishes document, tag and to-do counts as sensor state over HTTP.

Quick start:
  1. Run: paperless-sensor setup -c paperless.yaml --host docs.local --username me
  2. Run: paperless-sensor serve -c paperless.yaml
  3. Open http://localhost:8080/api/states

Values such as ${PAPERLESS_TOKEN} in the config file are read from the
environment; --env-file loads them from a .env file first.`,
	SilenceUsage:      true,
	PersistentPreRunE: loadEnvFile,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		// Cobra already prints the error, just exit with code 1
		os.Exit(1)
	}
}

func main() {
	Execute()
}

// versionCmd prints version information.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Print the version, commit hash, and build date of this paperless-sensor binary.`,
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "paperless-sensor %s\n", version)
		fmt.Fprintf(out, "  commit: %s\n", commit)
		fmt.Fprintf(out, "  built:  %s\n", date)
	},
}

func init() {
	rootCmd.PersistentFlags().String("env-file", "", "load environment variables from this .env file")
	rootCmd.PersistentFlags().String("log-level", "info", "log level: debug, info, warn or error")

	rootCmd.AddCommand(versionCmd)
}

// loadEnvFile loads --env-file, if given, without overriding variables
// already set in the environment.
func loadEnvFile(cmd *cobra.Command, args []string) error {
	path, _ := cmd.Flags().GetString("env-file")
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load env file: %w", err)
	}
	return nil
}

// newLogger creates a JSON logger for CLI use at the --log-level level.
func newLogger(cmd *cobra.Command) (*slog.Logger, error) {
	name, _ := cmd.Flags().GetString("log-level")

	var level slog.Level
	switch strings.ToLower(name) {
	case "debug":
		level = slog.LevelDebug
	case "", "info":
		level = slog.LevelInfo
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return nil, fmt.Errorf("unknown log level %q", name)
	}

	return slog.New(slog.NewJSONHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
		Level: level,
	})), nil
}
