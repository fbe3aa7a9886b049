// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package replay feeds recorded JSONL captures through a session and records
// live streams into the same format.
package replay

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"log"
	"sync"

	"github.com/relabs-tech/racket_tracker/internal/imu"
)

// DefaultBatchSize matches how the strap delivers samples to a live session.
const DefaultBatchSize = 50

const maxLineBytes = 1 << 20

// Sink consumes samples in batches. *session.Accumulator satisfies it.
type Sink interface {
	Ingest(batch []imu.Sample) error
}

// Result counts what a replay read.
type Result struct {
	Lines   int `json:"lines"`
	Samples int `json:"samples"`
	Skipped int `json:"skipped"`
}

// Run reads one sample per line from r and ingests them into sink in order,
// batchSize at a time. Blank lines are ignored; lines that are not a valid
// sample are counted as skipped. A non-positive batchSize uses DefaultBatchSize.
func Run(r io.Reader, sink Sink, batchSize int) (Result, error) {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	var res Result
	batch := make([]imu.Sample, 0, batchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := sink.Ingest(batch); err != nil {
			return fmt.Errorf("replay: ingest at line %d: %w", res.Lines, err)
		}
		res.Samples += len(batch)
		batch = make([]imu.Sample, 0, batchSize)
		return nil
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 4096), maxLineBytes)
	for scanner.Scan() {
		res.Lines++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		s, err := imu.ParseSampleJSON(line)
		if err != nil {
			res.Skipped++
			log.Printf("replay: skipping line %d: %v", res.Lines, err)
			continue
		}
		batch = append(batch, s)
		if len(batch) >= batchSize {
			if err := flush(); err != nil {
				return res, err
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return res, fmt.Errorf("replay: read: %w", err)
	}
	return res, flush()
}

// Capture writes samples as JSONL, one sample per line. It is safe for
// concurrent use so it can sit behind an MQTT callback.
type Capture struct {
	mu sync.Mutex
	w  *bufio.Writer
	n  int
}

// NewCapture writes to w. Call Flush before closing w.
func NewCapture(w io.Writer) *Capture {
	return &Capture{w: bufio.NewWriter(w)}
}

// Write appends a batch.
func (c *Capture) Write(batch []imu.Sample) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, s := range batch {
		line, err := imu.MarshalSampleJSON(s)
		if err != nil {
			return fmt.Errorf("capture: %w", err)
		}
		if _, err := c.w.Write(append(line, '\n')); err != nil {
			return fmt.Errorf("capture: %w", err)
		}
		c.n++
	}
	return nil
}

// Count is the number of samples written so far.
func (c *Capture) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n
}

// Flush pushes buffered lines to the underlying writer.
func (c *Capture) Flush() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.w.Flush()
}
