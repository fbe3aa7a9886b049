// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package liveview is the terminal view of a running session.
package liveview

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/relabs-tech/racket_tracker/internal/link"
	"github.com/relabs-tech/racket_tracker/internal/session"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F0F0F0")).
			Bold(true).
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#C89A3A"))
	cardStyle = lipgloss.NewStyle().
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#4A4A4A"))
	cardTitleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	cardValueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	mutedStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
)

// LiveMsg carries the tallies after an impact.
type LiveMsg session.LiveUpdate

// StatusMsg carries the session state and elapsed time.
type StatusMsg struct {
	State     session.State
	ElapsedMs int64
}

// StatsMsg carries link health.
type StatsMsg link.StatsSnapshot

// SummaryMsg ends the view with the final summary.
type SummaryMsg session.Summary

// ErrMsg reports a source failure.
type ErrMsg struct{ Err error }

// Model implements tea.Model for one session.
type Model struct {
	sport   string
	live    session.LiveUpdate
	state   session.State
	elapsed time.Duration
	stats   link.StatsSnapshot
	summary *session.Summary
	err     error

	quitting bool
	width    int
}

// New returns a view for sport.
func New(sport string) Model {
	return Model{sport: sport, state: session.StateCalibrating}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.String() == "q" {
			m.quitting = true
			return m, tea.Quit
		}
	case LiveMsg:
		m.live = session.LiveUpdate(msg)
	case StatusMsg:
		m.state = msg.State
		m.elapsed = time.Duration(msg.ElapsedMs) * time.Millisecond
	case StatsMsg:
		m.stats = link.StatsSnapshot(msg)
	case SummaryMsg:
		sum := session.Summary(msg)
		m.summary = &sum
		m.state = session.StateEnded
		m.elapsed = time.Duration(sum.DurationMs) * time.Millisecond
		return m, tea.Quit
	case ErrMsg:
		m.err = msg.Err
		return m, tea.Quit
	}
	return m, nil
}

// Quitting reports whether the user asked to stop.
func (m Model) Quitting() bool { return m.quitting }

// View implements tea.Model.
func (m Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("%s  %s", strings.ToUpper(m.sport), m.state)))
	b.WriteString("\n")

	if m.summary != nil {
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
			card("Swings", fmt.Sprintf("%d", m.summary.Swings)),
			card("Max rally", fmt.Sprintf("%d", m.summary.MaxRally)),
			card("Avg speed", fmt.Sprintf("%.2f m/s", m.summary.AvgSpeed)),
			card("Max speed", fmt.Sprintf("%.2f m/s", m.summary.MaxSpeed)),
			card("Duration", formatElapsed(m.elapsed)),
		))
		b.WriteString("\n")
		return b.String()
	}

	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		card("Swings", fmt.Sprintf("%d", m.live.Swings)),
		card("Rally", fmt.Sprintf("%d", m.live.Rally)),
		card("Peak speed", fmt.Sprintf("%.2f m/s", m.live.PeakSpeed)),
		card("Elapsed", formatElapsed(m.elapsed)),
	))
	b.WriteString("\n")

	if m.stats.Batches > 0 {
		b.WriteString(mutedStyle.Render(fmt.Sprintf("link: %d samples, %.1f%% dropped, %.1f batches/s",
			m.stats.Samples, m.stats.DropPct, m.stats.BatchHz)))
		b.WriteString("\n")
	}
	if m.err != nil {
		b.WriteString(errorStyle.Render("error: " + m.err.Error()))
		b.WriteString("\n")
	}
	b.WriteString(mutedStyle.Render("q to end the session"))
	b.WriteString("\n")
	return b.String()
}

func card(title, value string) string {
	return cardStyle.Render(cardTitleStyle.Render(title) + "\n" + cardValueStyle.Render(value))
}

func formatElapsed(d time.Duration) string {
	d = d.Round(time.Second)
	m := int(d / time.Minute)
	s := int((d % time.Minute) / time.Second)
	return fmt.Sprintf("%02d:%02d", m, s)
}

// Sender delivers messages to a running view. *tea.Program satisfies it.
type Sender interface {
	Send(msg tea.Msg)
}

// Sink forwards session output to a view, so a view can stand wherever a
// session publisher is expected.
type Sink struct {
	s Sender
}

// NewSink returns a sink that sends to s.
func NewSink(s Sender) *Sink {
	return &Sink{s: s}
}

func (k *Sink) PublishLive(u session.LiveUpdate) error {
	k.s.Send(LiveMsg(u))
	return nil
}

// PublishEvent is a no-op; the view shows tallies, not single impacts.
func (k *Sink) PublishEvent(session.Event) error {
	return nil
}

func (k *Sink) PublishSummary(s session.Summary) error {
	k.s.Send(SummaryMsg(s))
	return nil
}
