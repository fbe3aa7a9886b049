// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/relabs-tech/racket_tracker/internal/config"
	"github.com/relabs-tech/racket_tracker/internal/link"
	"github.com/relabs-tech/racket_tracker/internal/session"
)

// ConsolePrinter writes session output as plain lines.
type ConsolePrinter struct {
	w io.Writer
}

// NewConsolePrinter prints to w.
func NewConsolePrinter(w io.Writer) *ConsolePrinter {
	return &ConsolePrinter{w: w}
}

func (c *ConsolePrinter) PublishLive(u session.LiveUpdate) error {
	_, err := fmt.Fprintf(c.w, "[LIVE]  swings=%4d  rally=%3d  peak=%6.2f m/s\n", u.Swings, u.Rally, u.PeakSpeed)
	return err
}

func (c *ConsolePrinter) PublishEvent(e session.Event) error {
	_, err := fmt.Fprintf(c.w, "[HIT ]  t=%8dms  speed=%6.2f m/s\n", e.TMs, e.Speed)
	return err
}

func (c *ConsolePrinter) PublishSummary(s session.Summary) error {
	_, err := fmt.Fprintf(c.w, "[DONE]  %s  duration=%ds  swings=%d  maxRally=%d  avgSpeed=%.3f  maxSpeed=%.3f\n",
		s.Sport, s.DurationMs/1000, s.Swings, s.MaxRally, s.AvgSpeed, s.MaxSpeed)
	return err
}

// RunMockConsole runs a local session on the mock strap and prints it. No broker is needed.
func RunMockConsole() error {
	cfg := config.Get()

	p, err := LoadProfile(cfg)
	if err != nil {
		return err
	}

	src := link.NewMockSource(cfg.SampleRateHz, cfg.SamplesPerBatch, 0, uint64(time.Now().UnixNano()))
	rec, err := NewRecorder(session.NewAccumulator(float64(cfg.SampleRateHz)), p, cfg.Sport, NewConsolePrinter(os.Stdout), nil)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ticker := time.NewTicker(src.BatchInterval())
	defer ticker.Stop()

	log.Printf("mock console: %s session, ctrl+c to finish", cfg.Sport)
	for {
		select {
		case <-ctx.Done():
			_, _, err := rec.Finish()
			return err
		case <-ticker.C:
			rec.HandleBatch(src.Scale().DecodeRaw(src.NextBatch()))
		}
	}
}
