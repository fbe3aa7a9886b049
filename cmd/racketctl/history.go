// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/relabs-tech/racket_tracker/internal/export"
	"github.com/relabs-tech/racket_tracker/internal/store"
)

const defaultHistoryLimit = 20

var (
	historySport string
	historyLimit int
	historyYes   bool
	showFormat   string

	exportFormat string
	exportDir    string
)

func newHistoryCmd() *cobra.Command {
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Browse saved sessions",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List saved sessions, newest first",
		Args:  cobra.NoArgs,
		RunE:  runHistoryListCmd,
	}
	listCmd.Flags().StringVar(&historySport, "sport", "", "only sessions of this sport")
	listCmd.Flags().IntVar(&historyLimit, "limit", defaultHistoryLimit, "max sessions to list (0 = all)")

	showCmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Print one session with its impacts and timeline",
		Args:  cobra.ExactArgs(1),
		RunE:  runHistoryShowCmd,
	}
	showCmd.Flags().StringVar(&showFormat, "format", string(export.YAML), "output format: json or yaml")

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every saved session",
		Args:  cobra.NoArgs,
		RunE:  runHistoryClearCmd,
	}
	clearCmd.Flags().BoolVar(&historyYes, "yes", false, "confirm deletion")

	historyCmd.AddCommand(listCmd, showCmd, clearCmd)
	return historyCmd
}

func newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export <id>",
		Short: "Write one session to a JSON or YAML file",
		Args:  cobra.ExactArgs(1),
		RunE:  runExportCmd,
	}
	cmd.Flags().StringVar(&exportFormat, "format", string(export.JSON), "output format: json or yaml")
	cmd.Flags().StringVar(&exportDir, "dir", "", "output directory (default: EXPORT_DIR from config)")
	return cmd
}

// withStore opens the configured database for the duration of fn.
func withStore(cmd *cobra.Command, fn func(*store.Store) error) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			fmt.Fprintf(os.Stderr, "failed to close db: %v\n", cerr)
		}
	}()
	return fn(st)
}

func runHistoryListCmd(cmd *cobra.Command, _ []string) error {
	return withStore(cmd, func(st *store.Store) error {
		recs, err := st.List(cmd.Context(), historySport, historyLimit)
		if err != nil {
			return err
		}
		if len(recs) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "no sessions saved yet")
			return nil
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tSAVED\tSPORT\tDURATION\tSWINGS\tMAX RALLY\tAVG m/s\tMAX m/s\tSTRAP")
		for _, r := range recs {
			s := r.Summary
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\t%.2f\t%.2f\t%s\n",
				r.ID, r.SavedAt.Local().Format("2006-01-02 15:04"), s.Sport,
				(time.Duration(s.DurationMs) * time.Millisecond).Round(time.Second),
				s.Swings, s.MaxRally, s.AvgSpeed, s.MaxSpeed, r.Meta.StrapTag)
		}
		return tw.Flush()
	})
}

func loadDocument(cmd *cobra.Command, st *store.Store, id string) (export.SessionDocument, error) {
	rec, err := st.Get(cmd.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return export.SessionDocument{}, fmt.Errorf("no session with id %q", id)
		}
		return export.SessionDocument{}, err
	}
	events, err := st.Events(cmd.Context(), id)
	if err != nil {
		return export.SessionDocument{}, err
	}
	return export.NewSessionDocument(rec, events), nil
}

func runHistoryShowCmd(cmd *cobra.Command, args []string) error {
	format, err := export.FormatFromString(showFormat)
	if err != nil {
		return err
	}
	return withStore(cmd, func(st *store.Store) error {
		doc, err := loadDocument(cmd, st, args[0])
		if err != nil {
			return err
		}
		data, err := export.Encode(format, doc)
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	})
}

func runHistoryClearCmd(cmd *cobra.Command, _ []string) error {
	if !historyYes {
		return errors.New("refusing to delete every session without --yes")
	}
	return withStore(cmd, func(st *store.Store) error {
		if err := st.Clear(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "session history cleared")
		return nil
	})
}

func runExportCmd(cmd *cobra.Command, args []string) error {
	format, err := export.FormatFromString(exportFormat)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	dir := exportDir
	if dir == "" {
		dir = cfg.ExportDir
	}
	return withStore(cmd, func(st *store.Store) error {
		doc, err := loadDocument(cmd, st, args[0])
		if err != nil {
			return err
		}
		path, err := export.Write(dir, doc.Record.ID, format, doc)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "exported %s\n", path)
		return nil
	})
}
