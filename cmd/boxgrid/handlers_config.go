package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/haasonsaas/boxgrid/internal/config"
)

func runConfigValidate(cmd *cobra.Command, opts *globalOptions) error {
	_, path, err := loadConfig(opts)
	if err != nil {
		return err
	}
	if path == "" {
		fmt.Fprintln(cmd.OutOrStdout(), "No config file found; built-in defaults are valid")
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Configuration %s is valid\n", path)
	return nil
}

func runConfigSchema(cmd *cobra.Command) error {
	schema, err := config.JSONSchema()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(schema))
	return err
}
