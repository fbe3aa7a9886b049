// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package link

import (
	"math"
	"math/rand/v2"
	"time"

	"github.com/relabs-tech/racket_tracker/internal/imu"
)

const (
	mockPulseAccel = 80.0 // m/s², about 8 g
	mockGyroMin    = 12.0 // rad/s, well above 450 °/s
	mockGyroSpan   = 6.0
)

// MockSource generates a resting strap with an occasional impact, as raw wire
// records. It stands in for the hardware on a desk or in tests.
type MockSource struct {
	hz       int
	perBatch int
	scale    imu.Scale
	rng      *rand.Rand
	tMs      float64

	// ImpactChance is the probability that a batch carries one impact.
	ImpactChance float64

	queue []imu.IMURaw
}

// NewMockSource returns a generator at hz with perBatch samples per batch.
// The same seed always yields the same stream.
func NewMockSource(hz, perBatch int, startMs uint32, seed uint64) *MockSource {
	if hz <= 0 {
		hz = 200
	}
	if perBatch <= 0 {
		perBatch = 10
	}
	return &MockSource{
		hz:           hz,
		perBatch:     perBatch,
		scale:        imu.DefaultScale,
		rng:          rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		tMs:          float64(startMs),
		ImpactChance: 0.25,
	}
}

// BatchInterval is the wall time one batch covers.
func (m *MockSource) BatchInterval() time.Duration {
	return time.Duration(m.perBatch) * time.Second / time.Duration(m.hz)
}

// Scale is the conversion the records are encoded with.
func (m *MockSource) Scale() imu.Scale { return m.scale }

// NextBatch returns the next perBatch records.
func (m *MockSource) NextBatch() []imu.IMURaw {
	type phys struct{ ax, ay, az, gx, gy, gz float64 }
	ps := make([]phys, m.perBatch)
	for i := range ps {
		ps[i] = phys{
			ax: m.noise(0.05),
			ay: m.noise(0.05),
			az: imu.StandardGravity + m.noise(0.05),
			gx: m.noise(0.02),
			gy: m.noise(0.02),
			gz: m.noise(0.02),
		}
	}

	if m.rng.Float64() < m.ImpactChance {
		mid := max(1, m.perBatch/2)
		if mid >= m.perBatch {
			mid = m.perBatch - 1
		}
		gyro := mockGyroMin + m.rng.Float64()*mockGyroSpan
		switch m.rng.IntN(3) {
		case 0:
			ps[mid].ax += mockPulseAccel
			ps[mid].gx += gyro
		case 1:
			ps[mid].ay += mockPulseAccel
			ps[mid].gy += gyro
		default:
			ps[mid].az += mockPulseAccel
			ps[mid].gz += gyro
		}
	}

	step := 1000 / float64(m.hz)
	out := make([]imu.IMURaw, len(ps))
	for i, p := range ps {
		out[i] = imu.IMURaw{
			TMs: uint32(math.Round(m.tMs)),
			Ax:  counts(p.ax, m.scale.AccelPerLSB),
			Ay:  counts(p.ay, m.scale.AccelPerLSB),
			Az:  counts(p.az, m.scale.AccelPerLSB),
			Gx:  counts(p.gx, m.scale.GyroPerLSB),
			Gy:  counts(p.gy, m.scale.GyroPerLSB),
			Gz:  counts(p.gz, m.scale.GyroPerLSB),
		}
		m.tMs += step
	}
	return out
}

// ReadRaw hands out the stream one record at a time.
func (m *MockSource) ReadRaw() (imu.IMURaw, error) {
	if len(m.queue) == 0 {
		m.queue = m.NextBatch()
	}
	r := m.queue[0]
	m.queue = m.queue[1:]
	return r, nil
}

func (m *MockSource) noise(scale float64) float64 {
	return (m.rng.Float64() - 0.5) * scale
}

func counts(v, perLSB float64) int16 {
	c := math.Round(v / perLSB)
	return int16(math.Max(math.MinInt16, math.Min(math.MaxInt16, c)))
}
