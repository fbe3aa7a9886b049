// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/racket_tracker/internal/session"
)

func TestDisplayLines(t *testing.T) {
	d := &DisplayData{}
	assert.Equal(t, []string{"TENNIS", "Waiting...", "", ""}, d.Lines("tennis"))

	require.NoError(t, d.PublishEvent(session.Event{TMs: 10, Speed: 6.3}))
	require.NoError(t, d.PublishLive(session.LiveUpdate{Swings: 4, Rally: 2, PeakSpeed: 7}))
	assert.Equal(t, []string{"TENNIS", "Swings: 4", "Rally:  2", "Hit: 6.3 m/s"}, d.Lines("tennis"))

	require.NoError(t, d.PublishSummary(session.Summary{Sport: "padel", Swings: 30, MaxRally: 6, AvgSpeed: 4.44, MaxSpeed: 8.05}))
	lines := d.Lines("tennis")
	assert.Equal(t, "PADEL done", lines[0])
	assert.Equal(t, "Rally:  6 max", lines[2])
}

func TestRenderLinesDrawsPixels(t *testing.T) {
	blank := renderLines(nil)
	for _, b := range blank.Pix {
		require.Zero(t, b)
	}

	img := renderLines([]string{"Swings: 12", "Rally: 3"})
	lit := 0
	for _, b := range img.Pix {
		if b != 0 {
			lit++
		}
	}
	assert.Greater(t, lit, 0)
	assert.Equal(t, 128, img.Bounds().Dx())
	assert.Equal(t, 64, img.Bounds().Dy())
}
