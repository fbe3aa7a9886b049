// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package liveview

import (
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/racket_tracker/internal/link"
	"github.com/relabs-tech/racket_tracker/internal/session"
)

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	out, ok := next.(Model)
	require.True(t, ok)
	return out, cmd
}

func TestLiveAndStatusUpdates(t *testing.T) {
	m := New("padel")

	m, cmd := update(t, m, LiveMsg{Swings: 7, Rally: 3, PeakSpeed: 5.5})
	assert.Nil(t, cmd)
	m, _ = update(t, m, StatusMsg{State: session.StateActive, ElapsedMs: 65000})
	m, _ = update(t, m, StatsMsg(link.StatsSnapshot{Batches: 4, Samples: 40, DropPct: 2.5, BatchHz: 20}))

	assert.Equal(t, 7, m.live.Swings)
	assert.Equal(t, session.StateActive, m.state)
	assert.Equal(t, 65*time.Second, m.elapsed)

	view := m.View()
	assert.Contains(t, view, "PADEL")
	assert.Contains(t, view, "active")
	assert.Contains(t, view, "5.50 m/s")
	assert.Contains(t, view, "01:05")
	assert.Contains(t, view, "2.5% dropped")
}

func TestQuitKeys(t *testing.T) {
	for _, key := range []tea.KeyMsg{
		{Type: tea.KeyRunes, Runes: []rune("q")},
		{Type: tea.KeyCtrlC},
	} {
		m, cmd := update(t, New("tennis"), key)
		assert.True(t, m.Quitting())
		require.NotNil(t, cmd)
		assert.IsType(t, tea.QuitMsg{}, cmd())
	}

	m, cmd := update(t, New("tennis"), tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("x")})
	assert.False(t, m.Quitting())
	assert.Nil(t, cmd)
}

func TestSummaryEndsView(t *testing.T) {
	m, cmd := update(t, New("tennis"), SummaryMsg{Sport: "tennis", Swings: 12, MaxRally: 4, MaxSpeed: 9.1, DurationMs: 90000})
	require.NotNil(t, cmd)
	assert.Equal(t, session.StateEnded, m.state)

	view := m.View()
	assert.Contains(t, view, "Max rally")
	assert.Contains(t, view, "9.10 m/s")
	assert.Contains(t, view, "01:30")
}

func TestErrMsgShown(t *testing.T) {
	m, cmd := update(t, New("tennis"), ErrMsg{Err: errors.New("port closed")})
	require.NotNil(t, cmd)
	assert.Contains(t, m.View(), "port closed")
}

type captureSender struct{ msgs []tea.Msg }

func (c *captureSender) Send(msg tea.Msg) { c.msgs = append(c.msgs, msg) }

func TestSinkForwards(t *testing.T) {
	cs := &captureSender{}
	k := NewSink(cs)
	require.NoError(t, k.PublishEvent(session.Event{TMs: 1}))
	require.NoError(t, k.PublishLive(session.LiveUpdate{Swings: 2}))
	require.NoError(t, k.PublishSummary(session.Summary{Swings: 2}))

	require.Len(t, cs.msgs, 2)
	assert.Equal(t, LiveMsg{Swings: 2}, cs.msgs[0])
	assert.Equal(t, SummaryMsg{Swings: 2}, cs.msgs[1])
}
