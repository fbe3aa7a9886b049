// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package session

import (
	"math"
)

// Timeline is a histogram of impacts over fixed-width bins.
type Timeline struct {
	Bins   []int64 `json:"bins" yaml:"bins"` // bin start, ms
	Counts []int   `json:"counts" yaml:"counts"`
	BinMs  int64   `json:"binMs" yaml:"binMs"`
}

// BucketCounts bins impact timestamps. Bins are at least one second wide.
// start and end default to the earliest and latest timestamp; timestamps outside
// the range land in the first or last bin.
func BucketCounts(timesMs []int64, binSec float64, startMs, endMs *int64) Timeline {
	if len(timesMs) == 0 {
		return Timeline{Bins: []int64{}, Counts: []int{}, BinMs: int64(binSec * 1000)}
	}

	binMs := max(1000, int64(math.Floor(binSec*1000)))

	lo, hi := timesMs[0], timesMs[0]
	for _, t := range timesMs[1:] {
		lo = min(lo, t)
		hi = max(hi, t)
	}
	if startMs != nil {
		lo = *startMs
	}
	if endMs != nil {
		hi = *endMs
	}

	n := max(1, int(math.Ceil(float64(hi-lo)/float64(binMs))))
	counts := make([]int, n)
	for _, t := range timesMs {
		idx := int(math.Floor(float64(t-lo) / float64(binMs)))
		idx = min(n-1, max(0, idx))
		counts[idx]++
	}

	bins := make([]int64, n)
	for i := range bins {
		bins[i] = lo + int64(i)*binMs
	}
	return Timeline{Bins: bins, Counts: counts, BinMs: binMs}
}
