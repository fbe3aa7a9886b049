// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package rally groups consecutive impacts into rallies by the pause between them.
package rally

// Aggregator tracks the current and longest rally.
type Aggregator struct {
	gapMs        float64
	hasImpact    bool
	lastImpactMs int64
	current      int
	max          int
}

// New returns an aggregator that keeps a rally alive across pauses up to gapMs.
func New(gapMs float64) *Aggregator {
	return &Aggregator{gapMs: gapMs}
}

// Record registers an impact at tMs and returns the current rally length.
// A pause of exactly gapMs continues the rally.
func (a *Aggregator) Record(tMs int64) int {
	if a.hasImpact && float64(tMs-a.lastImpactMs) <= a.gapMs {
		a.current++
	} else {
		a.current = 1
	}
	if a.current > a.max {
		a.max = a.current
	}
	a.hasImpact = true
	a.lastImpactMs = tMs
	return a.current
}

// Current is the length of the rally in progress (0 before any impact).
func (a *Aggregator) Current() int { return a.current }

// Max is the longest rally seen.
func (a *Aggregator) Max() int { return a.max }

// LastImpactMs returns the timestamp of the latest impact, if any.
func (a *Aggregator) LastImpactMs() (int64, bool) { return a.lastImpactMs, a.hasImpact }

// Reset forgets all impacts.
func (a *Aggregator) Reset() {
	*a = Aggregator{gapMs: a.gapMs}
}
