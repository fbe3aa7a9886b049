// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package imu

import (
	"fmt"
	"log"
	"math"
)

// StandardGravity in m/s².
const StandardGravity = 9.80665

// Sample is one decoded IMU reading.
// Acceleration is in m/s², angular rate in rad/s.
type Sample struct {
	TMs int64   `json:"t_ms"`
	Ax  float64 `json:"ax"`
	Ay  float64 `json:"ay"`
	Az  float64 `json:"az"`
	Gx  float64 `json:"gx"`
	Gy  float64 `json:"gy"`
	Gz  float64 `json:"gz"`
}

// Scale holds the per-LSB conversion factors for one sensor configuration.
type Scale struct {
	AccelPerLSB float64 // m/s² per count
	GyroPerLSB  float64 // rad/s per count
}

// Full-scale ranges selected by the MPU9250 range codes.
// Accelerometer: 0=±2g, 1=±4g, 2=±8g, 3=±16g
// Gyroscope: 0=±250°/s, 1=±500°/s, 2=±1000°/s, 3=±2000°/s
var (
	accelRangesG  = []float64{2, 4, 8, 16}
	gyroRangesDPS = []float64{250, 500, 1000, 2000}
)

// DefaultScale matches the strap firmware: ±16 g and ±2000 °/s.
var DefaultScale = NewScale(16, 2000)

const errRangeFormat = "%s range code must be 0-3, got %d"

// NewScale builds a Scale for the given full-scale ranges.
func NewScale(accFSG, gyroFSDPS float64) Scale {
	return Scale{
		AccelPerLSB: accFSG * StandardGravity / 32768,
		GyroPerLSB:  gyroFSDPS * math.Pi / 180 / 32768,
	}
}

// AccelRangeG returns the accelerometer full scale in g for a range code.
func AccelRangeG(code byte) (float64, error) {
	if int(code) >= len(accelRangesG) {
		return 0, fmt.Errorf(errRangeFormat, "accel", code)
	}
	return accelRangesG[code], nil
}

// GyroRangeDPS returns the gyroscope full scale in °/s for a range code.
func GyroRangeDPS(code byte) (float64, error) {
	if int(code) >= len(gyroRangesDPS) {
		return 0, fmt.Errorf(errRangeFormat, "gyro", code)
	}
	return gyroRangesDPS[code], nil
}

// ScaleForCodes builds the Scale matching the configured range codes.
func ScaleForCodes(accelCode, gyroCode byte) (Scale, error) {
	acc, err := AccelRangeG(accelCode)
	if err != nil {
		return Scale{}, err
	}
	gyro, err := GyroRangeDPS(gyroCode)
	if err != nil {
		return Scale{}, err
	}
	return NewScale(acc, gyro), nil
}

// DecodeRecords decodes every complete record at the start of buf.
// dropped is the number of trailing bytes that did not form a full record.
func (s Scale) DecodeRecords(buf []byte) (samples []Sample, dropped int) {
	n := len(buf) / RecordSize
	samples = make([]Sample, 0, n)
	for i := 0; i < n; i++ {
		samples = append(samples, ReadRecord(buf[i*RecordSize:]).Scale(s))
	}
	return samples, len(buf) % RecordSize
}

// DecodeRaw converts already-parsed records.
func (s Scale) DecodeRaw(recs []IMURaw) []Sample {
	out := make([]Sample, len(recs))
	for i, r := range recs {
		out[i] = r.Scale(s)
	}
	return out
}

// Decode is DecodeRecords that logs a truncated tail instead of returning it.
func (s Scale) Decode(buf []byte) []Sample {
	samples, dropped := s.DecodeRecords(buf)
	if dropped > 0 {
		log.Printf("imu: dropped %d trailing bytes of a partial record (%d bytes in buffer)", dropped, len(buf))
	}
	return samples
}

// Decode converts a notify payload using the default ±16 g / ±2000 dps scale.
func Decode(buf []byte) []Sample {
	return DefaultScale.Decode(buf)
}

// ParsePacket is an alias of Decode kept for callers that frame by packet.
func ParsePacket(buf []byte) []Sample {
	return Decode(buf)
}
