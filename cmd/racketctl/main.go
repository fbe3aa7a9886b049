// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Command racketctl replays captures, records local sessions and manages
// the saved session history.
package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/relabs-tech/racket_tracker/internal/config"
	"github.com/relabs-tech/racket_tracker/internal/profile"
)

const defaultConfigPath = "./racket_config.txt"

var (
	configPath string
	dbPath     string
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "racketctl",
		Short:         "Racket swing tracker tools",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", defaultConfigPath, "path to configuration file")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "session database (default: DB_PATH from config)")

	rootCmd.AddCommand(newReplayCmd())
	rootCmd.AddCommand(newRecordCmd())
	rootCmd.AddCommand(newWatchCmd())
	rootCmd.AddCommand(newProfilesCmd())
	rootCmd.AddCommand(newHistoryCmd())
	rootCmd.AddCommand(newExportCmd())

	return rootCmd
}

// loadConfig reads --config. A missing default file falls back to defaults so
// the offline commands work without any setup.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		if _, statErr := os.Stat(configPath); os.IsNotExist(statErr) && !cmd.Flags().Changed("config") {
			cfg = config.Defaults()
		} else {
			return nil, err
		}
	}
	if dbPath != "" {
		cfg.DBPath = dbPath
	}
	return cfg, nil
}

func newProfilesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "profiles",
		Short: "List sport profiles",
		Args:  cobra.NoArgs,
		RunE:  runProfilesCmd,
	}
}

func runProfilesCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	catalog, err := profile.Load(cfg.ProfilesPath)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SPORT\tRALLY GAP s\tHP Hz\tIMPACT g\tGYRO °/s\tRADIUS m\tREFRACTORY ms")
	for _, k := range catalog.Keys() {
		p, err := catalog.Lookup(k)
		if err != nil {
			fmt.Fprintf(tw, "%s\tinvalid: %v\n", k, err)
			continue
		}
		fmt.Fprintf(tw, "%s\t%.2f\t%.1f\t%.2f\t%.0f\t%.2f\t%.0f\n",
			k, p.RallyGapSec, p.AccelHpHz, p.ImpactG, p.GyroPeakDps, p.RadiusM, p.RefractoryMs)
	}
	return tw.Flush()
}
