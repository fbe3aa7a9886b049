// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package link

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"

	serial "github.com/jacobsa/go-serial/serial"

	"github.com/relabs-tech/racket_tracker/internal/imu"
)

// SerialSource reads the raw record stream from a USB/UART dongle paired with the strap.
type SerialSource struct {
	opts      serial.OpenOptions
	scale     imu.Scale
	batchSize int
	stats     *Stats
}

// NewSerialSource returns a source on portName. stats may be nil.
func NewSerialSource(portName string, baudRate int, scale imu.Scale, batchSize int, stats *Stats) *SerialSource {
	if batchSize <= 0 {
		batchSize = 10
	}
	return &SerialSource{
		opts: serial.OpenOptions{
			PortName:              portName,
			BaudRate:              uint(baudRate),
			DataBits:              8,
			StopBits:              1,
			MinimumReadSize:       1,
			ParityMode:            serial.PARITY_NONE,
			InterCharacterTimeout: 0,
		},
		scale:     scale,
		batchSize: batchSize,
		stats:     stats,
	}
}

// Run opens the port and streams batches to handler until ctx is done.
func (s *SerialSource) Run(ctx context.Context, handler BatchHandler) error {
	port, err := serial.Open(s.opts)
	if err != nil {
		return fmt.Errorf("open serial %s: %w", s.opts.PortName, err)
	}
	log.Printf("link: serial port opened on %s at %d baud", s.opts.PortName, s.opts.BaudRate)

	go func() {
		<-ctx.Done()
		port.Close()
	}()

	err = s.ReadFrom(ctx, port, handler)
	if ctx.Err() != nil {
		return nil
	}
	return err
}

// ReadFrom frames records from r and delivers them in batches of batchSize.
// A trailing partial batch is flushed when r ends.
func (s *SerialSource) ReadFrom(ctx context.Context, r io.Reader, handler BatchHandler) error {
	framer := NewFramer(s.scale)
	buf := make([]byte, 64*imu.RecordSize)
	var batch []imu.Sample

	flush := func() {
		if len(batch) == 0 {
			return
		}
		if s.stats != nil {
			s.stats.Observe(batch)
		}
		handler(batch)
		batch = nil
	}

	for {
		if ctx.Err() != nil {
			return nil
		}
		n, err := r.Read(buf)
		if n > 0 {
			batch = append(batch, framer.Push(buf[:n])...)
			for len(batch) >= s.batchSize {
				out := batch[:s.batchSize:s.batchSize]
				batch = batch[s.batchSize:]
				if s.stats != nil {
					s.stats.Observe(out)
				}
				handler(out)
			}
		}
		if err != nil {
			flush()
			if framer.Pending() > 0 {
				log.Printf("link: serial stream ended with %d bytes of a partial record", framer.Pending())
			}
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("serial read: %w", err)
		}
	}
}
