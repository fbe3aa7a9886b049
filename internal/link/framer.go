// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package link

import (
	"github.com/relabs-tech/racket_tracker/internal/imu"
)

// Framer reassembles wire records from a byte stream that may split them
// at any offset.
type Framer struct {
	scale   imu.Scale
	pending []byte
}

// NewFramer returns a framer decoding with scale.
func NewFramer(scale imu.Scale) *Framer {
	return &Framer{scale: scale}
}

// Push appends chunk and returns every record that is now complete.
// Leftover bytes wait for the next chunk.
func (f *Framer) Push(chunk []byte) []imu.Sample {
	f.pending = append(f.pending, chunk...)
	samples, rest := f.scale.DecodeRecords(f.pending)
	consumed := len(f.pending) - rest
	f.pending = append(f.pending[:0], f.pending[consumed:]...)
	return samples
}

// Pending is the number of buffered bytes of an incomplete record.
func (f *Framer) Pending() int { return len(f.pending) }

// Reset drops any partial record.
func (f *Framer) Reset() { f.pending = f.pending[:0] }
