package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/haasonsaas/boxgrid/internal/board"
	"github.com/haasonsaas/boxgrid/internal/grid"
	"github.com/haasonsaas/boxgrid/internal/persist"
	"github.com/haasonsaas/boxgrid/internal/render"
	"github.com/haasonsaas/boxgrid/pkg/models"
)

// withOffline opens the selected namespace, runs fn and flushes writes.
func withOffline(cmd *cobra.Command, opts *globalOptions, fn func(*offlineSession) error) (err error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	session, err := openOffline(ctx, opts)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := session.Close(ctx); closeErr != nil && err == nil {
			err = closeErr
		}
	}()
	return fn(session)
}

func runBoxesList(cmd *cobra.Command, opts *globalOptions, asJSON bool) error {
	return withOffline(cmd, opts, func(s *offlineSession) error {
		boxes := s.engine.Boxes()
		out := cmd.OutOrStdout()
		if asJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(boxes)
		}
		if len(boxes) == 0 {
			fmt.Fprintln(out, "No boxes.")
			return nil
		}
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tTYPE\tSUMMARY")
		for _, box := range boxes {
			fmt.Fprintf(w, "%s\t%s\t%s\n", box.ID, box.Kind, render.Summary(box))
		}
		return w.Flush()
	})
}

func runBoxesAdd(cmd *cobra.Command, opts *globalOptions, kind string) error {
	parsed, err := models.ParseBoxKind(kind)
	if err != nil {
		return err
	}
	return withOffline(cmd, opts, func(s *offlineSession) error {
		id, err := s.engine.AddBox(parsed)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Added %s box %s\n", parsed, id)
		return nil
	})
}

func runBoxesRemove(cmd *cobra.Command, opts *globalOptions, id string) error {
	return withOffline(cmd, opts, func(s *offlineSession) error {
		if err := s.engine.RemoveBox(id); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Removed box %s\n", id)
		return nil
	})
}

func runBoxesSetText(cmd *cobra.Command, opts *globalOptions, id, content string) error {
	return withOffline(cmd, opts, func(s *offlineSession) error {
		if err := s.engine.UpdateBox(id, board.SetTextContent(content)); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Updated box %s\n", id)
		return nil
	})
}

func runLayoutShow(cmd *cobra.Command, opts *globalOptions, breakpoint string) error {
	breakpoints := models.Breakpoints
	if strings.TrimSpace(breakpoint) != "" {
		bp, err := models.ParseBreakpoint(breakpoint)
		if err != nil {
			return err
		}
		breakpoints = []models.Breakpoint{bp}
	}
	return withOffline(cmd, opts, func(s *offlineSession) error {
		layouts := s.engine.Layouts()
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "BREAKPOINT\tCOLS\tBOX\tX\tY\tW\tH")
		for _, bp := range breakpoints {
			for _, item := range layouts[bp] {
				fmt.Fprintf(w, "%s\t%d\t%s\t%d\t%d\t%d\t%d\n",
					bp, grid.Columns(bp), item.BoxID, item.X, item.Y, item.W, item.H)
			}
		}
		return w.Flush()
	})
}

func runLayoutResolve(cmd *cobra.Command, width int) error {
	if width < 0 {
		return fmt.Errorf("width must be non-negative, got %d", width)
	}
	bp := grid.Resolve(width)
	fmt.Fprintf(cmd.OutOrStdout(), "%s (%d columns)\n", bp, grid.Columns(bp))
	return nil
}

func runExport(cmd *cobra.Command, opts *globalOptions, output string) error {
	return withOffline(cmd, opts, func(s *offlineSession) error {
		data, err := persist.EncodeDocument(s.engine.Board())
		if err != nil {
			return err
		}
		if output == "" || output == "-" {
			_, err = cmd.OutOrStdout().Write(data)
			return err
		}
		if err := os.WriteFile(output, data, 0o600); err != nil {
			return fmt.Errorf("write export: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Exported %d boxes to %s\n", len(s.engine.Boxes()), output)
		return nil
	})
}

// runImport writes the document straight to the stores; no engine is opened
// so the stored board is replaced rather than merged.
func runImport(cmd *cobra.Command, opts *globalOptions, file string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	data, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("read import: %w", err)
	}
	doc, err := persist.DecodeDocument(data)
	if err != nil {
		return err
	}

	cfg, _, err := loadConfig(opts)
	if err != nil {
		return err
	}
	newLogger(cfg, opts.debug)
	st, err := openStores(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	defer st.Close()

	namespace := offlineNamespace(cfg, opts)
	if err := persist.Replace(ctx, st.local, namespace, doc); err != nil {
		return fmt.Errorf("import into local cache: %w", err)
	}
	if st.remote != nil {
		if err := persist.Replace(ctx, st.remote, namespace, doc); err != nil {
			return fmt.Errorf("import into remote store: %w", err)
		}
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Imported %d boxes into %s\n", len(doc.Boxes), namespace)
	return nil
}
