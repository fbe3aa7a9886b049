// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package detect decides when a filtered IMU sample is a ball impact.
package detect

import (
	"math"

	"github.com/relabs-tech/racket_tracker/internal/profile"
)

// Reading is what the detector computed for one sample.
type Reading struct {
	AccelMag float64 // |high-passed a|, m/s²
	GyroRadS float64 // |ω|, rad/s
	GyroDps  float64 // |ω|, °/s
	Speed    float64 // tip speed estimate, m/s
}

// Detector applies the dual threshold with a refractory window.
type Detector struct {
	p                 profile.Profile
	refractoryUntilMs int64
}

// New returns a detector for p.
func New(p profile.Profile) *Detector {
	return &Detector{p: p}
}

// Evaluate reports whether the sample at tMs is an impact. Both thresholds are
// inclusive, and a sample inside the refractory window never fires.
func (d *Detector) Evaluate(tMs int64, accelHP, gyro [3]float64) (Reading, bool) {
	w := norm(gyro)
	r := Reading{
		AccelMag: norm(accelHP),
		GyroRadS: w,
		GyroDps:  w * 180 / math.Pi,
		Speed:    w * d.p.RadiusM,
	}

	if tMs < d.refractoryUntilMs {
		return r, false
	}
	if r.AccelMag < d.p.ImpactThreshold() || r.GyroDps < d.p.GyroPeakDps {
		return r, false
	}

	// Rounded up so integer timestamps suppress exactly as tMs < t+RefractoryMs would.
	d.refractoryUntilMs = tMs + int64(math.Ceil(d.p.RefractoryMs))
	return r, true
}

// RefractoryUntil is the first timestamp that may fire again.
func (d *Detector) RefractoryUntil() int64 { return d.refractoryUntilMs }

// Reset clears the refractory window.
func (d *Detector) Reset() { d.refractoryUntilMs = 0 }

func norm(v [3]float64) float64 {
	return math.Sqrt(v[0]*v[0] + v[1]*v[1] + v[2]*v[2])
}
