// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package imu

import (
	"encoding/json"
	"fmt"
	"math"
)

// SampleDecodeError reports a capture line that is not a usable sample.
type SampleDecodeError struct {
	Field  string
	Reason string
	Err    error
}

func (e *SampleDecodeError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("imu sample: %s", e.Reason)
	}
	return fmt.Sprintf("imu sample: field %q %s", e.Field, e.Reason)
}

func (e *SampleDecodeError) Unwrap() error { return e.Err }

// wireSample uses pointers so a missing field is distinguishable from zero.
type wireSample struct {
	TMs *float64 `json:"t_ms"`
	Ax  *float64 `json:"ax"`
	Ay  *float64 `json:"ay"`
	Az  *float64 `json:"az"`
	Gx  *float64 `json:"gx"`
	Gy  *float64 `json:"gy"`
	Gz  *float64 `json:"gz"`
}

// ParseSampleJSON parses one JSONL capture line. Every field is required,
// numeric and finite, and t_ms must not be negative.
func ParseSampleJSON(line []byte) (Sample, error) {
	var w wireSample
	if err := json.Unmarshal(line, &w); err != nil {
		return Sample{}, &SampleDecodeError{Reason: "malformed json", Err: err}
	}

	fields := []struct {
		name string
		v    *float64
	}{
		{"t_ms", w.TMs},
		{"ax", w.Ax}, {"ay", w.Ay}, {"az", w.Az},
		{"gx", w.Gx}, {"gy", w.Gy}, {"gz", w.Gz},
	}
	for _, f := range fields {
		if f.v == nil {
			return Sample{}, &SampleDecodeError{Field: f.name, Reason: "is missing"}
		}
		if math.IsNaN(*f.v) || math.IsInf(*f.v, 0) {
			return Sample{}, &SampleDecodeError{Field: f.name, Reason: "is not finite"}
		}
	}
	if *w.TMs < 0 {
		return Sample{}, &SampleDecodeError{Field: "t_ms", Reason: "is negative"}
	}

	return Sample{
		TMs: int64(math.Round(*w.TMs)),
		Ax:  *w.Ax,
		Ay:  *w.Ay,
		Az:  *w.Az,
		Gx:  *w.Gx,
		Gy:  *w.Gy,
		Gz:  *w.Gz,
	}, nil
}

// MarshalSampleJSON renders s as one capture line (no trailing newline).
func MarshalSampleJSON(s Sample) ([]byte, error) {
	return json.Marshal(s)
}
