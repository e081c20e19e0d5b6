// Package main is the pluginhost entry point: it wires the Governor and
// Lifecycle together, parses the CLI surface (config root, plugin
// directory, and repeatable --plugin overlays), and runs the park/wake
// loop until shutdown.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/haasonsaas/pluginhost/internal/abi"
	"github.com/haasonsaas/pluginhost/internal/config"
	"github.com/haasonsaas/pluginhost/internal/governor"
	"github.com/haasonsaas/pluginhost/internal/lifecycle"
)

func main() {
	if err := buildRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func buildRootCmd() *cobra.Command {
	var (
		configRoot string
		pluginDir  string
		overlays   []string
	)

	cmd := &cobra.Command{
		Use:   "pluginhost",
		Short: "Run the plugin host",
		Long: `Run the plugin host: scan --plugin-dir for shared-library plugins, mount
each one, fire core:init, then serve event triggers and endpoint requests
until SIGINT/SIGTERM or a core:power shutdown.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), configRoot, pluginDir, overlays)
		},
	}

	cmd.Flags().StringVar(&configRoot, "config-root", "./config-root", "Root directory for per-plugin configuration")
	cmd.Flags().StringVar(&pluginDir, "plugin-dir", "./plugins", "Directory to scan for mountable plugin shared libraries")
	cmd.Flags().StringArrayVar(&overlays, "plugin", nil, "Config overlay, repeatable: <plugin-name>:<key>=<toml-value>")

	return cmd
}

func run(ctx context.Context, configRoot, pluginDir string, overlays []string) error {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	buildConfig := func(root string) governor.Config {
		store, err := config.NewStore(root, overlays)
		if err != nil {
			// buildConfig has no error return; a malformed --plugin overlay
			// is a start-time configuration bug, loud and immediate.
			logger.Error("invalid configuration overlay", "error", err)
			os.Exit(2)
		}
		return governor.Config{
			ConfigRoot:      root,
			ConfigStore:     store,
			MetricsRegistry: prometheus.NewRegistry(),
			Logger:          logger,
		}
	}

	lc := lifecycle.New(pluginDir, abi.HostApiVersion, buildConfig, logger)
	if err := lc.Start(configRoot); err != nil {
		return fmt.Errorf("start: %w", err)
	}
	return lc.Run(ctx)
}
