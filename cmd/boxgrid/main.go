// Package main provides the CLI entry point for boxgrid, a personal
// drag-and-drop dashboard of styled boxes on a responsive grid.
//
// # Basic Usage
//
// Start the server:
//
//	boxgrid serve --config boxgrid.yaml
//
// Work with a board offline, against the configured stores:
//
//	boxgrid boxes list
//	boxgrid boxes add markdown
//	boxgrid export --output board.json
//
// # Environment Variables
//
//   - BOXGRID_CONFIG: Path to configuration file (default: boxgrid.yaml)
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

// Build information - populated by ldflags during build.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const defaultConfigName = "boxgrid.yaml"

// globalOptions are the root persistent flags.
type globalOptions struct {
	configPath string
	debug      bool
	namespace  string
}

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	if err := buildRootCmd().Execute(); err != nil {
		slog.Error("command execution failed", "error", err)
		os.Exit(1)
	}
}

// buildRootCmd creates the root command with all subcommands attached.
func buildRootCmd() *cobra.Command {
	opts := &globalOptions{}
	rootCmd := &cobra.Command{
		Use:   "boxgrid",
		Short: "boxgrid - a personal dashboard of boxes on a responsive grid",
		Long: `boxgrid keeps a board of headings, text, markdown, images, links and
embedded frames laid out per viewport breakpoint, persisted to a local cache
and optionally mirrored to a per-user remote store.`,
		Version:      fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "",
		"Path to configuration file (or set BOXGRID_CONFIG)")
	rootCmd.PersistentFlags().BoolVarP(&opts.debug, "debug", "d", false,
		"Enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&opts.namespace, "namespace", "n", "",
		"Board namespace for offline commands (default: storage.namespace_default)")

	rootCmd.AddCommand(
		buildServeCmd(opts),
		buildBoxesCmd(opts),
		buildLayoutCmd(opts),
		buildExportCmd(opts),
		buildImportCmd(opts),
		buildConfigCmd(opts),
	)
	return rootCmd
}
