// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package session turns a stream of IMU samples into swing counts, rallies and
// swing speeds for one playing session.
package session

import (
	"errors"
	"fmt"

	"github.com/relabs-tech/racket_tracker/internal/bias"
	"github.com/relabs-tech/racket_tracker/internal/detect"
	"github.com/relabs-tech/racket_tracker/internal/filter"
	"github.com/relabs-tech/racket_tracker/internal/imu"
	"github.com/relabs-tech/racket_tracker/internal/profile"
	"github.com/relabs-tech/racket_tracker/internal/rally"
)

// envelopeCutoffHz smooths |ω| for the diagnostic envelope.
const envelopeCutoffHz = 5

var (
	// ErrSessionEnded is returned by Ingest once End has been called.
	ErrSessionEnded = errors.New("session already ended")
	// ErrNotStarted is returned by End before Start.
	ErrNotStarted = errors.New("session not started")
)

// State is the lifecycle of an Accumulator.
type State int

const (
	StateUninitialized State = iota
	StateCalibrating
	StateActive
	StateEnded
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateCalibrating:
		return "calibrating"
	case StateActive:
		return "active"
	case StateEnded:
		return "ended"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// LiveUpdate is pushed after every detected impact.
type LiveUpdate struct {
	Swings    int     `json:"swings"`
	Rally     int     `json:"rally"`
	PeakSpeed float64 `json:"peakSpeed"`
}

// Event is one detected impact.
type Event struct {
	TMs   int64   `json:"t_ms" yaml:"t_ms"`
	Speed float64 `json:"speed" yaml:"speed"`
}

// Summary is the immutable result of a session.
type Summary struct {
	Sport       string  `json:"sport" yaml:"sport"`
	DurationMs  int64   `json:"durationMs" yaml:"durationMs"`
	Swings      int     `json:"swings" yaml:"swings"`
	MaxRally    int     `json:"maxRally" yaml:"maxRally"`
	AvgSpeed    float64 `json:"avgSpeed" yaml:"avgSpeed"`
	MaxSpeed    float64 `json:"maxSpeed" yaml:"maxSpeed"`
	StartedAtMs int64   `json:"startedAtMs" yaml:"startedAtMs"`
}

// Callbacks are optional hooks invoked synchronously from Ingest.
// They must not block and must not call back into the Accumulator.
type Callbacks struct {
	OnLiveUpdate func(LiveUpdate)
	OnEvent      func(Event)
}

// Accumulator owns all state of one session. It is not safe for concurrent use.
type Accumulator struct {
	clamp filter.DtClamp

	state   State
	sport   string
	profile profile.Profile
	cb      Callbacks

	bias     bias.Tracker
	accelHP  [3]filter.HighPass
	envelope filter.LowPass
	detector *detect.Detector
	rally    *rally.Aggregator

	haveSamples bool
	startedAtMs int64
	prevTs      int64
	lastTs      int64

	swings    int
	sumSpeed  float64
	nSpeed    int
	peakSpeed float64
	impacts   []int64

	summary *Summary
}

// NewAccumulator returns an idle accumulator for a stream at sampleHz.
func NewAccumulator(sampleHz float64) *Accumulator {
	return &Accumulator{clamp: filter.NewDtClamp(sampleHz)}
}

// Start resets everything and begins a session for sport with profile p.
// An empty sport defaults to tennis. An invalid profile leaves the accumulator untouched.
func (a *Accumulator) Start(p profile.Profile, cb Callbacks, sport string) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if sport == "" {
		sport = profile.DefaultSport
	}

	*a = Accumulator{
		clamp:    a.clamp,
		state:    StateCalibrating,
		sport:    sport,
		profile:  p,
		cb:       cb,
		detector: detect.New(p),
		rally:    rally.New(p.RallyGapMs()),
	}
	return nil
}

// Ingest processes a batch in order. It is a no-op before Start and for an
// empty batch, and fails with ErrSessionEnded after End.
func (a *Accumulator) Ingest(batch []imu.Sample) error {
	switch a.state {
	case StateUninitialized:
		return nil
	case StateEnded:
		return ErrSessionEnded
	}
	if len(batch) == 0 {
		return nil
	}

	if !a.haveSamples {
		a.haveSamples = true
		a.startedAtMs = batch[0].TMs
		a.prevTs = batch[0].TMs
		a.bias.Arm(a.startedAtMs)
	}

	for _, s := range batch {
		a.step(s)
	}
	return nil
}

func (a *Accumulator) step(s imu.Sample) {
	a.lastTs = s.TMs
	dt := a.clamp.Seconds(a.prevTs, s.TMs)

	if !a.bias.Observe(s.TMs, s.Gx, s.Gy, s.Gz) && a.state == StateCalibrating {
		a.state = StateActive
	}

	fc := a.profile.AccelHpHz
	accel := [3]float64{
		a.accelHP[0].Step(s.Ax, dt, fc),
		a.accelHP[1].Step(s.Ay, dt, fc),
		a.accelHP[2].Step(s.Az, dt, fc),
	}

	gx, gy, gz := a.bias.Correct(s.Gx, s.Gy, s.Gz)
	gyro := [3]float64{gx, gy, gz}

	r, fired := a.detector.Evaluate(s.TMs, accel, gyro)
	a.envelope.Step(r.GyroRadS, dt, envelopeCutoffHz)

	if fired {
		a.recordImpact(s.TMs, r.Speed)
	}
	a.prevTs = s.TMs
}

func (a *Accumulator) recordImpact(tMs int64, speed float64) {
	current := a.rally.Record(tMs)

	a.swings++
	a.sumSpeed += speed
	a.nSpeed++
	if speed > a.peakSpeed {
		a.peakSpeed = speed
	}
	a.impacts = append(a.impacts, tMs)

	if a.cb.OnEvent != nil {
		a.cb.OnEvent(Event{TMs: tMs, Speed: speed})
	}
	if a.cb.OnLiveUpdate != nil {
		a.cb.OnLiveUpdate(LiveUpdate{Swings: a.swings, Rally: current, PeakSpeed: a.peakSpeed})
	}
}

// End closes the session and returns its summary. Calling it again returns
// the same summary.
func (a *Accumulator) End() (Summary, error) {
	if a.state == StateUninitialized {
		return Summary{}, ErrNotStarted
	}
	if a.summary != nil {
		return *a.summary, nil
	}

	avg := 0.0
	if a.nSpeed > 0 {
		avg = a.sumSpeed / float64(a.nSpeed)
	}
	sum := Summary{
		Sport:       a.sport,
		DurationMs:  max(0, a.lastTs-a.startedAtMs),
		Swings:      a.swings,
		MaxRally:    a.rally.Max(),
		AvgSpeed:    avg,
		MaxSpeed:    a.peakSpeed,
		StartedAtMs: a.startedAtMs,
	}
	a.summary = &sum
	a.state = StateEnded
	return sum, nil
}

// State reports where the session is in its lifecycle.
func (a *Accumulator) State() State { return a.state }

// Sport is the key the session was started with.
func (a *Accumulator) Sport() string { return a.sport }

// Profile is the profile the session was started with.
func (a *Accumulator) Profile() profile.Profile { return a.profile }

// Live returns the tallies as they would appear in the next LiveUpdate.
func (a *Accumulator) Live() LiveUpdate {
	if a.rally == nil {
		return LiveUpdate{}
	}
	return LiveUpdate{Swings: a.swings, Rally: a.rally.Current(), PeakSpeed: a.peakSpeed}
}

// Envelope is the low-passed |ω| (rad/s) of the latest sample.
func (a *Accumulator) Envelope() float64 { return a.envelope.Value() }

// Bias is the current gyro bias estimate (rad/s).
func (a *Accumulator) Bias() [3]float64 { return a.bias.Bias() }

// ImpactTimes returns a copy of every impact timestamp so far.
func (a *Accumulator) ImpactTimes() []int64 {
	out := make([]int64, len(a.impacts))
	copy(out, a.impacts)
	return out
}

// ElapsedMs is the span between the first and latest sample.
func (a *Accumulator) ElapsedMs() int64 {
	if !a.haveSamples {
		return 0
	}
	return max(0, a.lastTs-a.startedAtMs)
}
