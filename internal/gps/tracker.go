// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gps

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"strings"
	"sync"

	nmea "github.com/adrianmo/go-nmea"
	serial "github.com/jacobsa/go-serial/serial"
)

// ParseLine extracts a fix from one NMEA sentence. Only valid RMC sentences
// produce a fix; everything else (other sentence types, noise, void fixes) is skipped.
func ParseLine(line string) (Fix, bool) {
	line = strings.TrimSpace(line)
	if line == "" || !strings.HasPrefix(line, "$") {
		return Fix{}, false
	}

	sentence, err := nmea.Parse(line)
	if err != nil {
		return Fix{}, false
	}

	switch sentence.DataType() {
	case nmea.TypeRMC:
		m := sentence.(nmea.RMC)
		if m.Validity != nmea.ValidRMC {
			return Fix{}, false
		}
		return Fix{
			Time:       m.Time.String(),
			Date:       m.Date.String(),
			Latitude:   m.Latitude,
			Longitude:  m.Longitude,
			SpeedKnots: m.Speed,
			CourseDeg:  m.Course,
			Validity:   m.Validity,
		}, true
	default:
		return Fix{}, false
	}
}

// Tracker keeps the latest valid fix. It is safe for concurrent use.
type Tracker struct {
	mu     sync.RWMutex
	latest Fix
	have   bool
}

// Update records f as the latest fix.
func (t *Tracker) Update(f Fix) {
	t.mu.Lock()
	t.latest = f
	t.have = true
	t.mu.Unlock()
}

// Latest returns the most recent valid fix, if any.
func (t *Tracker) Latest() (Fix, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.latest, t.have
}

// Run opens the receiver's serial port and tracks fixes until ctx is done.
func (t *Tracker) Run(ctx context.Context, portName string, baudRate int) error {
	serialOpts := serial.OpenOptions{
		PortName:              portName,
		BaudRate:              uint(baudRate),
		DataBits:              8,
		StopBits:              1,
		MinimumReadSize:       1,
		ParityMode:            serial.PARITY_NONE,
		InterCharacterTimeout: 0,
	}

	port, err := serial.Open(serialOpts)
	if err != nil {
		return fmt.Errorf("gps: open %s: %w", portName, err)
	}
	log.Printf("gps: serial port opened on %s at %d baud", portName, baudRate)

	go func() {
		<-ctx.Done()
		port.Close()
	}()

	err = t.Consume(port)
	if ctx.Err() != nil {
		return nil
	}
	return err
}

// Consume reads NMEA lines from r until it ends.
func (t *Tracker) Consume(r io.Reader) error {
	reader := bufio.NewReader(r)
	for {
		line, err := reader.ReadString('\n')
		if f, ok := ParseLine(line); ok {
			t.Update(f)
		}
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return fmt.Errorf("gps: read: %w", err)
		}
	}
}
