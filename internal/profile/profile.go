// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package profile holds the per-sport detection thresholds.
package profile

import (
	"errors"
	"fmt"
	"math"
)

// StandardGravity in m/s².
const StandardGravity = 9.80665

var (
	// ErrUnknownSport is returned when no profile exists for a sport key.
	ErrUnknownSport = errors.New("unknown sport")
	// ErrInvalidProfile is returned for missing, mistyped or out-of-range fields.
	ErrInvalidProfile = errors.New("invalid sport profile")
)

// Profile is the immutable set of thresholds for one sport.
type Profile struct {
	RallyGapSec  float64 `json:"rallyGapSec" yaml:"rallyGapSec"`
	AccelHpHz    float64 `json:"accelHpHz" yaml:"accelHpHz"`
	ImpactG      float64 `json:"impactG" yaml:"impactG"`
	GyroPeakDps  float64 `json:"gyroPeakDps" yaml:"gyroPeakDps"`
	RadiusM      float64 `json:"radiusM" yaml:"radiusM"`
	RefractoryMs float64 `json:"refractoryMs" yaml:"refractoryMs"`
}

// RallyGapMs is the longest pause between impacts that keeps a rally going.
func (p Profile) RallyGapMs() float64 { return p.RallyGapSec * 1000 }

// ImpactThreshold is the high-passed acceleration magnitude (m/s²) an impact must reach.
func (p Profile) ImpactThreshold() float64 { return p.ImpactG * StandardGravity }

// Validate checks every field is finite, the cutoff and radius are positive and
// the rest are not negative.
func (p Profile) Validate() error {
	fields := []struct {
		name     string
		v        float64
		positive bool
	}{
		{"rallyGapSec", p.RallyGapSec, false},
		{"accelHpHz", p.AccelHpHz, true},
		{"impactG", p.ImpactG, false},
		{"gyroPeakDps", p.GyroPeakDps, false},
		{"radiusM", p.RadiusM, true},
		{"refractoryMs", p.RefractoryMs, false},
	}
	for _, f := range fields {
		switch {
		case math.IsNaN(f.v) || math.IsInf(f.v, 0):
			return fmt.Errorf("%w: %s must be finite", ErrInvalidProfile, f.name)
		case f.positive && f.v <= 0:
			return fmt.Errorf("%w: %s must be > 0, got %g", ErrInvalidProfile, f.name, f.v)
		case f.v < 0:
			return fmt.Errorf("%w: %s must be >= 0, got %g", ErrInvalidProfile, f.name, f.v)
		}
	}
	return nil
}
