// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package imu

import (
	"encoding/binary"
)

// RecordSize is the size in bytes of one wire record:
// uint32 t_ms followed by int16 ax, ay, az, gx, gy, gz, all little-endian.
const RecordSize = 16

// IMURaw represents a single raw accel+gyro sample as it travels on the wire.
type IMURaw struct {
	TMs uint32 `json:"t_ms"` // device timestamp, milliseconds

	Ax int16 `json:"ax"` // accel
	Ay int16 `json:"ay"`
	Az int16 `json:"az"`

	Gx int16 `json:"gx"` // gyro
	Gy int16 `json:"gy"`
	Gz int16 `json:"gz"`
}

// IMURawSource is anything that can hand out one raw sample at a time
// (the MPU9250 over SPI, or a test double).
type IMURawSource interface {
	ReadRaw() (IMURaw, error)
}

// ReadRecord decodes one record from the start of b.
// b must hold at least RecordSize bytes.
func ReadRecord(b []byte) IMURaw {
	le := binary.LittleEndian
	return IMURaw{
		TMs: le.Uint32(b[0:4]),
		Ax:  int16(le.Uint16(b[4:6])),
		Ay:  int16(le.Uint16(b[6:8])),
		Az:  int16(le.Uint16(b[8:10])),
		Gx:  int16(le.Uint16(b[10:12])),
		Gy:  int16(le.Uint16(b[12:14])),
		Gz:  int16(le.Uint16(b[14:16])),
	}
}

// AppendRecord appends the wire encoding of r to dst.
func AppendRecord(dst []byte, r IMURaw) []byte {
	le := binary.LittleEndian
	dst = le.AppendUint32(dst, r.TMs)
	dst = le.AppendUint16(dst, uint16(r.Ax))
	dst = le.AppendUint16(dst, uint16(r.Ay))
	dst = le.AppendUint16(dst, uint16(r.Az))
	dst = le.AppendUint16(dst, uint16(r.Gx))
	dst = le.AppendUint16(dst, uint16(r.Gy))
	dst = le.AppendUint16(dst, uint16(r.Gz))
	return dst
}

// EncodeRecords packs a batch of raw samples into one notify payload.
func EncodeRecords(recs []IMURaw) []byte {
	buf := make([]byte, 0, len(recs)*RecordSize)
	for _, r := range recs {
		buf = AppendRecord(buf, r)
	}
	return buf
}

// Scale converts the raw counts into physical units.
func (r IMURaw) Scale(s Scale) Sample {
	return Sample{
		TMs: int64(r.TMs),
		Ax:  float64(r.Ax) * s.AccelPerLSB,
		Ay:  float64(r.Ay) * s.AccelPerLSB,
		Az:  float64(r.Az) * s.AccelPerLSB,
		Gx:  float64(r.Gx) * s.GyroPerLSB,
		Gy:  float64(r.Gy) * s.GyroPerLSB,
		Gz:  float64(r.Gz) * s.GyroPerLSB,
	}
}
