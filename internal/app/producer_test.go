// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/racket_tracker/internal/imu"
	"github.com/relabs-tech/racket_tracker/internal/link"
	"github.com/relabs-tech/racket_tracker/internal/session"
)

type rawSink struct {
	batches [][]imu.IMURaw
}

func (r *rawSink) PublishRaw(recs []imu.IMURaw) error {
	r.batches = append(r.batches, recs)
	return nil
}

type brokenIMU struct{}

func (brokenIMU) ReadRaw() (imu.IMURaw, error) { return imu.IMURaw{}, errors.New("spi timeout") }

func TestSamplerBatches(t *testing.T) {
	sink := &rawSink{}
	src := link.NewMockSource(200, 5, 0, 3)
	s := NewSampler(src, sink, 200, 4)

	for i := 0; i < 10; i++ {
		require.NoError(t, s.Tick())
	}
	require.Len(t, sink.batches, 2)
	for _, b := range sink.batches {
		assert.Len(t, b, 4)
	}
	assert.Equal(t, uint32(0), sink.batches[0][0].TMs)
	assert.Equal(t, uint32(35), sink.batches[1][3].TMs)
	assert.Equal(t, 2, s.published)
}

func TestSamplerReadError(t *testing.T) {
	s := NewSampler(brokenIMU{}, &rawSink{}, 100, 2)
	assert.ErrorContains(t, s.Tick(), "spi timeout")
	assert.Equal(t, 1, s.readErrs)
}

func TestConsolePrinter(t *testing.T) {
	var buf bytes.Buffer
	p := NewConsolePrinter(&buf)
	require.NoError(t, p.PublishEvent(session.Event{TMs: 2300, Speed: 4.5}))
	require.NoError(t, p.PublishLive(session.LiveUpdate{Swings: 1, Rally: 1, PeakSpeed: 4.5}))
	require.NoError(t, p.PublishSummary(session.Summary{Sport: "tennis", DurationMs: 4800, Swings: 2, MaxRally: 1, AvgSpeed: 4, MaxSpeed: 4.5}))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "[HIT ]"))
	assert.Contains(t, lines[1], "swings=   1")
	assert.Contains(t, lines[2], "tennis  duration=4s  swings=2  maxRally=1  avgSpeed=4.000  maxSpeed=4.500")
}
