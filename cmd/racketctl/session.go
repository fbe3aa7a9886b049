// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/relabs-tech/racket_tracker/internal/app"
	"github.com/relabs-tech/racket_tracker/internal/config"
	"github.com/relabs-tech/racket_tracker/internal/imu"
	"github.com/relabs-tech/racket_tracker/internal/link"
	"github.com/relabs-tech/racket_tracker/internal/liveview"
	"github.com/relabs-tech/racket_tracker/internal/replay"
	"github.com/relabs-tech/racket_tracker/internal/session"
	"github.com/relabs-tech/racket_tracker/internal/store"
)

const statusInterval = 500 * time.Millisecond

var (
	sessionSport string

	replaySave bool
	recordSave bool

	replayFile  string
	replayBatch int

	recordPort string
	recordBaud int

	metaStrap    string
	metaRacket   string
	metaGrip     string
	metaOvergrip bool
	metaNotes    string
)

func newReplayCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Run a captured JSONL sample file through a session",
		Args:  cobra.NoArgs,
		RunE:  runReplayCmd,
	}
	cmd.Flags().StringVar(&replayFile, "file", "", "JSONL file with one sample per line (- for stdin)")
	cmd.Flags().StringVar(&sessionSport, "sport", "", "sport profile (default: SPORT from config)")
	cmd.Flags().IntVar(&replayBatch, "batch", replay.DefaultBatchSize, "samples per ingested batch")
	cmd.Flags().BoolVar(&replaySave, "save", false, "store the result in the session history")
	addMetaFlags(cmd)
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func newRecordCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record a live session in the terminal",
		Args:  cobra.NoArgs,
		RunE:  runRecordCmd,
	}
	cmd.Flags().StringVar(&sessionSport, "sport", "", "sport profile (default: SPORT from config)")
	cmd.Flags().StringVar(&recordPort, "port", "", "serial dongle port (default: MQTT raw topic)")
	cmd.Flags().IntVar(&recordBaud, "baud", 0, "serial baud rate (default: SERIAL_BAUD_RATE from config)")
	cmd.Flags().BoolVar(&recordSave, "save", true, "store the result in the session history")
	addMetaFlags(cmd)
	return cmd
}

func newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Follow the recorder's session over MQTT",
		Args:  cobra.NoArgs,
		RunE:  runWatchCmd,
	}
}

func addMetaFlags(cmd *cobra.Command) {
	def := store.DefaultQAMeta()
	cmd.Flags().StringVar(&metaStrap, "strap", def.StrapTag, "strap tag")
	cmd.Flags().StringVar(&metaRacket, "racket", def.Racket, "racket name")
	cmd.Flags().StringVar(&metaGrip, "grip", def.GripSize, "grip size")
	cmd.Flags().BoolVar(&metaOvergrip, "overgrip", def.Overgrip, "racket has an overgrip")
	cmd.Flags().StringVar(&metaNotes, "notes", "", "free-form notes")
}

func qaMeta() store.QAMeta {
	return store.QAMeta{
		StrapTag: metaStrap,
		Racket:   metaRacket,
		GripSize: metaGrip,
		Overgrip: metaOvergrip,
		Notes:    metaNotes,
	}
}

// sessionConfig loads the config and applies --sport.
func sessionConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	if sessionSport != "" {
		cfg.Sport = sessionSport
	}
	return cfg, nil
}

// recorderSink lets replay feed a Recorder, which keeps the event list.
type recorderSink struct {
	rec *app.Recorder
}

func (s recorderSink) Ingest(batch []imu.Sample) error {
	s.rec.HandleBatch(batch)
	return nil
}

func runReplayCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := sessionConfig(cmd)
	if err != nil {
		return err
	}
	p, err := app.LoadProfile(cfg)
	if err != nil {
		return err
	}

	var in io.Reader
	if replayFile == "-" {
		in = cmd.InOrStdin()
	} else {
		f, err := os.Open(replayFile)
		if err != nil {
			return fmt.Errorf("failed to open replay file: %w", err)
		}
		defer f.Close()
		in = f
	}

	rec, err := app.NewRecorder(session.NewAccumulator(float64(cfg.SampleRateHz)), p, cfg.Sport, nil, nil)
	if err != nil {
		return err
	}
	res, err := replay.Run(in, recorderSink{rec: rec}, replayBatch)
	if err != nil {
		return err
	}
	sum, events, err := rec.Finish()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if res.Skipped > 0 {
		fmt.Fprintf(cmd.ErrOrStderr(), "[replay] skipped %d of %d lines\n", res.Skipped, res.Lines)
	}
	fmt.Fprintf(out, "[replay] %s duration=%ds swings=%d maxRally=%d avgSpeed=%.3f maxSpeed=%.3f\n",
		sum.Sport, sum.DurationMs/1000, sum.Swings, sum.MaxRally, sum.AvgSpeed, sum.MaxSpeed)
	data, err := json.MarshalIndent(sum, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode summary: %w", err)
	}
	fmt.Fprintln(out, string(data))

	if replaySave {
		return saveSession(cmd, cfg, sum, events)
	}
	return nil
}

func saveSession(cmd *cobra.Command, cfg *config.Config, sum session.Summary, events []session.Event) error {
	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			fmt.Fprintf(os.Stderr, "failed to close db: %v\n", cerr)
		}
	}()

	id, err := app.SaveSession(cmd.Context(), st, sum, events, qaMeta(), nil)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "saved session %s\n", id)
	return nil
}

func runRecordCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := sessionConfig(cmd)
	if err != nil {
		return err
	}
	p, err := app.LoadProfile(cfg)
	if err != nil {
		return err
	}
	scale, err := imu.ScaleForCodes(cfg.IMUAccelRange, cfg.IMUGyroRange)
	if err != nil {
		return err
	}

	program := tea.NewProgram(liveview.New(cfg.Sport), tea.WithAltScreen())
	rec, err := app.NewRecorder(session.NewAccumulator(float64(cfg.SampleRateHz)), p, cfg.Sport, liveview.NewSink(program), nil)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	stats := link.NewStats(float64(cfg.SampleRateHz))
	stopSource := func() {}
	port := recordPort
	if port == "" {
		port = cfg.SerialPort
	}
	if port != "" {
		baud := recordBaud
		if baud <= 0 {
			baud = cfg.SerialBaudRate
		}
		src := link.NewSerialSource(port, baud, scale, cfg.SamplesPerBatch, stats)
		go func() {
			if err := src.Run(ctx, rec.HandleBatch); err != nil {
				program.Send(liveview.ErrMsg{Err: err})
			}
		}()
	} else {
		client, err := link.Connect(cfg.MQTTBroker, cfg.MQTTClientIDConsole)
		if err != nil {
			return err
		}
		defer client.Disconnect(250)
		if err := link.NewMQTTSource(client, cfg.TopicIMURaw, scale, stats).Subscribe(rec.HandleBatch); err != nil {
			return err
		}
		stopSource = func() { client.Unsubscribe(cfg.TopicIMURaw).Wait() }
	}

	go func() {
		ticker := time.NewTicker(statusInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				state, elapsed, _ := rec.Status()
				program.Send(liveview.StatusMsg{State: state, ElapsedMs: elapsed})
				program.Send(liveview.StatsMsg(stats.Snapshot()))
			}
		}
	}()

	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	cancel()
	stopSource()

	sum, events, err := rec.Finish()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s: %d swings, max rally %d, avg %.2f m/s, max %.2f m/s over %ds\n",
		sum.Sport, sum.Swings, sum.MaxRally, sum.AvgSpeed, sum.MaxSpeed, sum.DurationMs/1000)
	if late := rec.LateBatches(); late > 0 {
		fmt.Fprintf(cmd.ErrOrStderr(), "dropped %d batches that arrived after the session ended\n", late)
	}
	if recordSave {
		return saveSession(cmd, cfg, sum, events)
	}
	return nil
}

func runWatchCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	client, err := link.Connect(cfg.MQTTBroker, cfg.MQTTClientIDConsole)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	program := tea.NewProgram(liveview.New(cfg.Sport), tea.WithAltScreen())
	if err := app.SubscribeSession(client, app.Topics(cfg), liveview.NewSink(program)); err != nil {
		return err
	}
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	return nil
}
