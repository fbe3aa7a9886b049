// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package bias estimates the gyroscope zero-rate offset while the strap is held
// still at the start of a session.
package bias

// CalibrationWindowMs is how long after the first sample the estimate keeps learning.
const CalibrationWindowMs = 2000

// Tracker keeps a running per-axis mean of the gyro over the calibration window,
// then freezes it.
type Tracker struct {
	mean       [3]float64
	n          int
	deadlineMs int64
	armed      bool
	frozen     bool
}

// Arm starts the calibration window at startMs, discarding any previous estimate.
func (t *Tracker) Arm(startMs int64) {
	*t = Tracker{deadlineMs: startMs + CalibrationWindowMs, armed: true}
}

// Observe feeds one gyro reading (rad/s). Samples up to and including the
// deadline contribute; the first sample past it freezes the estimate.
// It reports whether the tracker is still calibrating.
func (t *Tracker) Observe(tMs int64, gx, gy, gz float64) bool {
	if !t.armed || t.frozen {
		return false
	}
	if tMs > t.deadlineMs {
		t.frozen = true
		return false
	}
	t.n++
	k := 1 / float64(t.n)
	t.mean[0] += (gx - t.mean[0]) * k
	t.mean[1] += (gy - t.mean[1]) * k
	t.mean[2] += (gz - t.mean[2]) * k
	return true
}

// Correct subtracts the current estimate. During calibration that is the running
// mean so far; with no samples observed it is zero.
func (t *Tracker) Correct(gx, gy, gz float64) (float64, float64, float64) {
	return gx - t.mean[0], gy - t.mean[1], gz - t.mean[2]
}

// Bias returns the current per-axis estimate.
func (t *Tracker) Bias() [3]float64 { return t.mean }

// Count is the number of samples averaged so far.
func (t *Tracker) Count() int { return t.n }

// Calibrating reports whether the window is armed and still open.
func (t *Tracker) Calibrating() bool { return t.armed && !t.frozen }

// DeadlineMs is the last timestamp that still contributes.
func (t *Tracker) DeadlineMs() int64 { return t.deadlineMs }
