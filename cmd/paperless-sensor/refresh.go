package main

import (
	"encoding/json"
	"fmt"

	"github.com/jpalmerr/paperless"
	"github.com/jpalmerr/paperless/config"
	"github.com/spf13/cobra"
)

// refreshCmd performs a single refresh of every entry.
var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Refresh every instance once and print the states as JSON",
	Long: `Refresh every configured instance once and print the published states,
keyed by sensor name, as JSON on stdout.

A refresh never fails: an unreachable instance is reported as "offline"
and a rejected token as "authentication_failure".

Example:
  paperless-sensor refresh -c paperless.yaml`,
	RunE: runRefresh,
}

func init() {
	rootCmd.AddCommand(refreshCmd)

	refreshCmd.Flags().StringP("config", "c", "", "path to config file (required)")
	_ = refreshCmd.MarkFlagRequired("config")
}

func runRefresh(cmd *cobra.Command, args []string) error {
	logger, err := newLogger(cmd)
	if err != nil {
		return err
	}

	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	sensors, err := config.BuildSensors(cfg)
	if err != nil {
		return fmt.Errorf("failed to build sensors: %w", err)
	}

	refresher := paperless.NewRefresher(
		paperless.WithClientLogger(logger),
		paperless.WithClientTimeout(cfg.RequestTimeout.Duration()),
	)
	defer refresher.Close()

	states := make(map[string]paperless.State, len(sensors))
	for _, s := range sensors {
		states[s.Name()] = refresher.RefreshSensor(cmd.Context(), s)
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(states)
}
