// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package filter holds the single-pole filters and timing helpers used on
// every IMU sample.
package filter

import (
	"math"
)

// HighPass is a first-order RC high-pass filter.
// The zero value starts from rest (previous input and output both 0).
type HighPass struct {
	prevIn  float64
	prevOut float64
}

// Step filters x with sample interval dt (seconds) and cutoff fc (Hz).
func (h *HighPass) Step(x, dt, fc float64) float64 {
	rc := 1 / (2 * math.Pi * fc)
	alpha := rc / (rc + dt)
	y := alpha * (h.prevOut + x - h.prevIn)
	h.prevIn = x
	h.prevOut = y
	return y
}

// Reset returns the filter to rest.
func (h *HighPass) Reset() { *h = HighPass{} }

// LowPass is a first-order RC low-pass (exponential smoothing) filter.
type LowPass struct {
	prevOut float64
}

// Step filters x with sample interval dt (seconds) and cutoff fc (Hz).
func (l *LowPass) Step(x, dt, fc float64) float64 {
	rc := 1 / (2 * math.Pi * fc)
	alpha := dt / (rc + dt)
	l.prevOut += alpha * (x - l.prevOut)
	return l.prevOut
}

// Value is the last output.
func (l *LowPass) Value() float64 { return l.prevOut }

// Reset returns the filter to rest.
func (l *LowPass) Reset() { *l = LowPass{} }

// RollingRMS returns the root mean square of the last min(window, len(history))
// values. It is 0 for empty input or a non-positive window.
func RollingRMS(history []float64, window int) float64 {
	if len(history) == 0 || window <= 0 {
		return 0
	}
	if window > len(history) {
		window = len(history)
	}
	var sum float64
	for _, v := range history[len(history)-window:] {
		sum += v * v
	}
	return math.Sqrt(sum / float64(window))
}

// DefaultSampleHz is the strap's nominal output rate.
const DefaultSampleHz = 200

// DtClamp turns consecutive timestamps into a usable sample interval.
type DtClamp struct {
	Nominal float64 // seconds
	Min     float64
	Max     float64
}

// NewDtClamp allows intervals between a third of and three times the nominal one.
func NewDtClamp(sampleHz float64) DtClamp {
	if !(sampleHz > 0) || math.IsInf(sampleHz, 0) {
		sampleHz = DefaultSampleHz
	}
	nominal := 1 / sampleHz
	return DtClamp{Nominal: nominal, Min: nominal / 3, Max: nominal * 3}
}

// Seconds converts the gap between two millisecond timestamps into a clamped dt.
// Gaps that are not positive (duplicate or reordered samples) use the nominal interval.
func (c DtClamp) Seconds(prevMs, nowMs int64) float64 {
	dt := float64(nowMs-prevMs) / 1000
	if math.IsNaN(dt) || math.IsInf(dt, 0) || dt <= 0 {
		dt = c.Nominal
	}
	return math.Min(math.Max(dt, c.Min), c.Max)
}
