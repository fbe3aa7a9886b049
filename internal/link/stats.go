// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package link

import (
	"math"
	"sync"
	"time"

	"github.com/relabs-tech/racket_tracker/internal/imu"
)

// StatsSnapshot is a point-in-time view of link health.
type StatsSnapshot struct {
	Batches          int     `json:"batches"`
	Samples          int     `json:"samples"`
	EstimatedDropped int     `json:"estimatedDropped"`
	DropPct          float64 `json:"dropPct"`
	BatchHz          float64 `json:"batchHz"`
}

// Stats estimates lost samples from gaps in device timestamps.
// It is safe for concurrent use.
type Stats struct {
	mu         sync.Mutex
	nominalMs  float64
	now        func() time.Time
	firstBatch time.Time
	lastBatch  time.Time
	haveTs     bool
	lastTs     int64
	batches    int
	samples    int
	dropped    int
}

// NewStats tracks a stream nominally at sampleHz.
func NewStats(sampleHz float64) *Stats {
	if !(sampleHz > 0) {
		sampleHz = 200
	}
	return &Stats{nominalMs: 1000 / sampleHz, now: time.Now}
}

// Observe accounts for one delivered batch. A gap over 1.5 nominal intervals
// counts round(gap/nominal)-1 samples as lost.
func (s *Stats) Observe(batch []imu.Sample) {
	if len(batch) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.now()
	if s.batches == 0 {
		s.firstBatch = t
	}
	s.lastBatch = t
	s.batches++
	s.samples += len(batch)

	for _, smp := range batch {
		if s.haveTs {
			gap := float64(smp.TMs - s.lastTs)
			if gap > 1.5*s.nominalMs {
				s.dropped += int(math.Round(gap/s.nominalMs)) - 1
			}
		}
		s.haveTs = true
		s.lastTs = smp.TMs
	}
}

// Snapshot returns the counters so far.
func (s *Stats) Snapshot() StatsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := StatsSnapshot{
		Batches:          s.batches,
		Samples:          s.samples,
		EstimatedDropped: s.dropped,
	}
	if total := s.samples + s.dropped; total > 0 {
		snap.DropPct = 100 * float64(s.dropped) / float64(total)
	}
	if span := s.lastBatch.Sub(s.firstBatch).Seconds(); s.batches > 1 && span > 0 {
		snap.BatchHz = float64(s.batches-1) / span
	}
	return snap
}
