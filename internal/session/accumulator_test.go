// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package session

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/racket_tracker/internal/imu"
	"github.com/relabs-tech/racket_tracker/internal/profile"
)

const stillGyroBias = 0.02 // rad/s on x while the strap rests

func tennis(t *testing.T) profile.Profile {
	t.Helper()
	p, err := profile.Default().Lookup("tennis")
	require.NoError(t, err)
	return p
}

// still returns resting samples at 200 Hz covering [fromMs, toMs).
func still(fromMs, toMs int64) []imu.Sample {
	var out []imu.Sample
	for ts := fromMs; ts < toMs; ts += 5 {
		out = append(out, imu.Sample{TMs: ts, Az: imu.StandardGravity, Gx: stillGyroBias})
	}
	return out
}

// burst returns three impact samples starting at tMs.
func burst(p profile.Profile, tMs int64, accelX, gyroRadS float64) []imu.Sample {
	out := make([]imu.Sample, 3)
	for i := range out {
		out[i] = imu.Sample{
			TMs: tMs + int64(i)*5,
			Ax:  accelX,
			Az:  imu.StandardGravity,
			Gx:  stillGyroBias + gyroRadS,
		}
	}
	return out
}

func TestEndToEndTwoIsolatedSwings(t *testing.T) {
	p := tennis(t)
	acc := NewAccumulator(200)

	var events []Event
	var updates []LiveUpdate
	require.NoError(t, acc.Start(p, Callbacks{
		OnEvent:      func(e Event) { events = append(events, e) },
		OnLiveUpdate: func(u LiveUpdate) { updates = append(updates, u) },
	}, "tennis"))
	assert.Equal(t, StateCalibrating, acc.State())

	accel := 10 * p.ImpactThreshold()
	gyro := 1.5 * p.GyroPeakDps * math.Pi / 180

	require.NoError(t, acc.Ingest(still(0, 2000)))
	assert.Equal(t, StateCalibrating, acc.State())
	require.NoError(t, acc.Ingest(burst(p, 2300, accel, gyro)))
	assert.Equal(t, StateActive, acc.State())
	require.NoError(t, acc.Ingest(burst(p, 4800, accel, gyro)))

	sum, err := acc.End()
	require.NoError(t, err)
	assert.Equal(t, "tennis", sum.Sport)
	assert.Equal(t, 2, sum.Swings)
	assert.Equal(t, 1, sum.MaxRally)
	assert.InDelta(t, 4800, sum.DurationMs, 20)
	assert.Equal(t, int64(0), sum.StartedAtMs)
	assert.Greater(t, sum.MaxSpeed, 0.0)
	assert.InDelta(t, gyro*p.RadiusM, sum.MaxSpeed, 1e-3)
	assert.InDelta(t, sum.MaxSpeed, sum.AvgSpeed, 1e-3)

	require.Len(t, events, 2)
	assert.Equal(t, int64(2300), events[0].TMs)
	assert.Equal(t, int64(4800), events[1].TMs)
	require.Len(t, updates, 2)
	assert.Equal(t, LiveUpdate{Swings: 2, Rally: 1, PeakSpeed: sum.MaxSpeed}, updates[1])

	b := acc.Bias()
	assert.InDelta(t, stillGyroBias, b[0], 1e-9)
	assert.Equal(t, []int64{2300, 4800}, acc.ImpactTimes())
}

func TestEventFiresBeforeLiveUpdate(t *testing.T) {
	p := tennis(t)
	acc := NewAccumulator(200)
	var order []string
	require.NoError(t, acc.Start(p, Callbacks{
		OnEvent:      func(Event) { order = append(order, "event") },
		OnLiveUpdate: func(LiveUpdate) { order = append(order, "live") },
	}, ""))
	assert.Equal(t, profile.DefaultSport, acc.Sport())

	require.NoError(t, acc.Ingest(still(0, 2100)))
	require.NoError(t, acc.Ingest(burst(p, 2100, 100, 12)))
	assert.Equal(t, []string{"event", "live"}, order)
}

func TestRefractorySuppressesSecondBurst(t *testing.T) {
	p := tennis(t)
	acc := NewAccumulator(200)
	require.NoError(t, acc.Start(p, Callbacks{}, "tennis"))

	require.NoError(t, acc.Ingest(still(0, 2100)))
	require.NoError(t, acc.Ingest(burst(p, 2100, 100, 12)))
	require.NoError(t, acc.Ingest(still(2115, 2200)))
	// second burst 100 ms after the first, inside the 250 ms window
	require.NoError(t, acc.Ingest(burst(p, 2200, 100, 12)))

	sum, err := acc.End()
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Swings)
}

func TestRallyAcrossSession(t *testing.T) {
	p := tennis(t)
	acc := NewAccumulator(200)
	var rallies []int
	require.NoError(t, acc.Start(p, Callbacks{
		OnLiveUpdate: func(u LiveUpdate) { rallies = append(rallies, u.Rally) },
	}, "tennis"))

	require.NoError(t, acc.Ingest(still(0, 2100)))
	ts := int64(2100)
	for _, gap := range []int64{0, 1000, 1000, 1000, 3000, 1000} {
		ts += gap
		require.NoError(t, acc.Ingest(still(ts-gap+15, ts)))
		require.NoError(t, acc.Ingest(burst(p, ts, 100, 12)))
	}

	sum, err := acc.End()
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3, 4, 1, 2}, rallies)
	assert.Equal(t, 4, sum.MaxRally)
	assert.Equal(t, 6, sum.Swings)
}

func TestSpeedTracksGyroMagnitude(t *testing.T) {
	p := tennis(t)
	acc := NewAccumulator(200)
	require.NoError(t, acc.Start(p, Callbacks{}, "tennis"))

	require.NoError(t, acc.Ingest(still(0, 2100)))
	w := 10.0
	require.NoError(t, acc.Ingest(burst(p, 2100, 80, w)))

	sum, err := acc.End()
	require.NoError(t, err)
	require.Equal(t, 1, sum.Swings)
	assert.InDelta(t, w*p.RadiusM, sum.MaxSpeed, 0.05)
}

func TestEmptyCalibrationWindow(t *testing.T) {
	p := tennis(t)
	acc := NewAccumulator(200)
	require.NoError(t, acc.Start(p, Callbacks{}, "tennis"))

	// one resting sample, then nothing until well after the window
	require.NoError(t, acc.Ingest([]imu.Sample{{TMs: 0, Az: imu.StandardGravity}}))
	require.NoError(t, acc.Ingest(burst(p, 5000, 100, 12)))

	b := acc.Bias()
	for _, v := range b {
		assert.False(t, math.IsNaN(v))
		assert.Equal(t, 0.0, v)
	}
	assert.False(t, math.IsNaN(acc.Envelope()))

	sum, err := acc.End()
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Swings)
	assert.False(t, math.IsNaN(sum.AvgSpeed))
}

func TestIngestLifecycle(t *testing.T) {
	p := tennis(t)

	t.Run("before start is a no-op", func(t *testing.T) {
		acc := NewAccumulator(200)
		require.NoError(t, acc.Ingest(still(0, 100)))
		assert.Equal(t, StateUninitialized, acc.State())
		_, err := acc.End()
		assert.ErrorIs(t, err, ErrNotStarted)
	})

	t.Run("empty batch is a no-op", func(t *testing.T) {
		acc := NewAccumulator(200)
		require.NoError(t, acc.Start(p, Callbacks{}, "tennis"))
		require.NoError(t, acc.Ingest(nil))
		require.NoError(t, acc.Ingest([]imu.Sample{}))
		sum, err := acc.End()
		require.NoError(t, err)
		assert.Equal(t, Summary{Sport: "tennis"}, sum)
	})

	t.Run("after end is an error", func(t *testing.T) {
		acc := NewAccumulator(200)
		require.NoError(t, acc.Start(p, Callbacks{}, "tennis"))
		require.NoError(t, acc.Ingest(still(0, 3000)))
		first, err := acc.End()
		require.NoError(t, err)
		assert.Equal(t, StateEnded, acc.State())

		err = acc.Ingest(burst(p, 3000, 100, 12))
		assert.ErrorIs(t, err, ErrSessionEnded)

		again, err := acc.End()
		require.NoError(t, err)
		assert.Equal(t, first, again)
		assert.Equal(t, 0, again.Swings)
	})

	t.Run("invalid profile leaves state alone", func(t *testing.T) {
		acc := NewAccumulator(200)
		bad := p
		bad.RadiusM = 0
		err := acc.Start(bad, Callbacks{}, "tennis")
		assert.ErrorIs(t, err, profile.ErrInvalidProfile)
		assert.Equal(t, StateUninitialized, acc.State())
	})

	t.Run("start resets a previous session", func(t *testing.T) {
		acc := NewAccumulator(200)
		require.NoError(t, acc.Start(p, Callbacks{}, "tennis"))
		require.NoError(t, acc.Ingest(still(0, 2100)))
		require.NoError(t, acc.Ingest(burst(p, 2100, 100, 12)))
		_, err := acc.End()
		require.NoError(t, err)

		require.NoError(t, acc.Start(p, Callbacks{}, "padel"))
		assert.Equal(t, LiveUpdate{}, acc.Live())
		assert.Empty(t, acc.ImpactTimes())
		assert.Equal(t, int64(0), acc.ElapsedMs())
	})
}

func TestIndependentAccumulators(t *testing.T) {
	p := tennis(t)
	a := NewAccumulator(200)
	b := NewAccumulator(200)
	require.NoError(t, a.Start(p, Callbacks{}, "tennis"))
	require.NoError(t, b.Start(p, Callbacks{}, "tennis"))

	require.NoError(t, a.Ingest(still(0, 2100)))
	require.NoError(t, a.Ingest(burst(p, 2100, 100, 12)))
	require.NoError(t, b.Ingest(still(0, 2100)))

	assert.Equal(t, 1, a.Live().Swings)
	assert.Equal(t, 0, b.Live().Swings)
}

func TestOutOfOrderTimestampsAreAbsorbed(t *testing.T) {
	p := tennis(t)
	acc := NewAccumulator(200)
	require.NoError(t, acc.Start(p, Callbacks{}, "tennis"))

	batch := still(0, 500)
	batch[10].TMs = batch[9].TMs // duplicate
	batch[20].TMs = batch[19].TMs - 50
	require.NoError(t, acc.Ingest(batch))
	assert.False(t, math.IsNaN(acc.Envelope()))
	assert.Equal(t, 0, acc.Live().Swings)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "calibrating", StateCalibrating.String())
	assert.Equal(t, "State(9)", State(9).String())
}
