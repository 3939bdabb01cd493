package main

import (
	"strconv"

	"github.com/spf13/cobra"
)

// buildServeCmd creates the "serve" command that runs the HTTP server.
func buildServeCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the boxgrid HTTP server",
		Long: `Start the boxgrid HTTP server.

The server will:
1. Load configuration from the specified file (or boxgrid.yaml)
2. Open the local cache and the configured remote store
3. Start the tombstone compaction schedule
4. Serve the board API, box fragments and the snapshot stream

Graceful shutdown is handled on SIGINT/SIGTERM signals.`,
		Example: `  # Start with default config
  boxgrid serve

  # Start with debug logging
  boxgrid serve --config /etc/boxgrid/boxgrid.yaml --debug`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), opts)
		},
	}
}

// buildBoxesCmd creates the "boxes" command group.
func buildBoxesCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "boxes",
		Short: "List and edit boxes",
	}

	var asJSON bool
	list := &cobra.Command{
		Use:   "list",
		Short: "List boxes with a one-line summary",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBoxesList(cmd, opts, asJSON)
		},
	}
	list.Flags().BoolVar(&asJSON, "json", false, "Print boxes as JSON")

	add := &cobra.Command{
		Use:       "add <kind>",
		Short:     "Add a box of the given kind",
		ValidArgs: []string{"heading", "text", "markdown", "image", "link", "iframe"},
		Args:      cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBoxesAdd(cmd, opts, args[0])
		},
	}

	remove := &cobra.Command{
		Use:     "remove <id>",
		Aliases: []string{"rm"},
		Short:   "Remove a box and its layout records",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBoxesRemove(cmd, opts, args[0])
		},
	}

	setText := &cobra.Command{
		Use:   "set-text <id> <content>",
		Short: "Replace a box's text content",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBoxesSetText(cmd, opts, args[0], args[1])
		},
	}

	cmd.AddCommand(list, add, remove, setText)
	return cmd
}

// buildLayoutCmd creates the "layout" command group.
func buildLayoutCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "layout",
		Short: "Inspect layouts and breakpoints",
	}

	var breakpoint string
	show := &cobra.Command{
		Use:   "show",
		Short: "Print layout records per breakpoint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLayoutShow(cmd, opts, breakpoint)
		},
	}
	show.Flags().StringVarP(&breakpoint, "breakpoint", "b", "", "Only show this breakpoint")

	resolve := &cobra.Command{
		Use:   "resolve <width>",
		Short: "Print the breakpoint that applies at a viewport width",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			width, err := strconv.Atoi(args[0])
			if err != nil {
				return err
			}
			return runLayoutResolve(cmd, width)
		},
	}

	cmd.AddCommand(show, resolve)
	return cmd
}

// buildExportCmd creates the "export" command.
func buildExportCmd(opts *globalOptions) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the board as a JSON document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd, opts, output)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default: stdout)")
	return cmd
}

// buildImportCmd creates the "import" command.
func buildImportCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Replace the board with a JSON document",
		Long: `Replace the board with a JSON document of the form {"boxes": ..., "layouts": ...}.

Boxes may be a mapping keyed by id or a sequence. The document is validated
and normalized before it is written to the local cache and the remote store.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd, opts, args[0])
		},
	}
}

// buildConfigCmd creates the "config" command group.
func buildConfigCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Validate and describe configuration",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "validate",
			Short: "Load and validate the configuration file",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runConfigValidate(cmd, opts)
			},
		},
		&cobra.Command{
			Use:   "schema",
			Short: "Print the configuration JSON Schema",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runConfigSchema(cmd)
			},
		},
	)
	return cmd
}
