// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package filter

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHighPassRejectsDC(t *testing.T) {
	var hp HighPass
	var y float64
	for i := 0; i < 2000; i++ {
		y = hp.Step(9.80665, 0.005, 5)
	}
	assert.InDelta(t, 0, y, 1e-6)
}

func TestHighPassFirstStep(t *testing.T) {
	var hp HighPass
	rc := 1 / (2 * math.Pi * 5)
	alpha := rc / (rc + 0.005)
	assert.InDelta(t, alpha*10, hp.Step(10, 0.005, 5), 1e-12)

	hp.Reset()
	assert.InDelta(t, alpha*3, hp.Step(3, 0.005, 5), 1e-12)
}

func TestLowPassConverges(t *testing.T) {
	var lp LowPass
	for i := 0; i < 1000; i++ {
		lp.Step(2, 0.005, 5)
	}
	assert.InDelta(t, 2, lp.Value(), 1e-6)

	rc := 1 / (2 * math.Pi * 5)
	lp.Reset()
	assert.InDelta(t, 0.005/(rc+0.005)*4, lp.Step(4, 0.005, 5), 1e-12)
}

func TestRollingRMS(t *testing.T) {
	assert.Equal(t, 0.0, RollingRMS(nil, 5))
	assert.Equal(t, 0.0, RollingRMS([]float64{1, 2}, 0))
	assert.Equal(t, 0.0, RollingRMS([]float64{1, 2}, -3))

	assert.InDelta(t, 7, RollingRMS([]float64{100, 3, 4, 5, 6, 7}, 1), 1e-12)
	assert.InDelta(t, math.Sqrt((9+16)/2.0), RollingRMS([]float64{100, 3, 4}, 2), 1e-12)
	// window larger than history uses the whole history
	assert.InDelta(t, math.Sqrt((1+4)/2.0), RollingRMS([]float64{1, 2}, 10), 1e-12)
}

func TestDtClamp(t *testing.T) {
	c := NewDtClamp(200)
	assert.InDelta(t, 0.005, c.Nominal, 1e-12)

	tests := []struct {
		name      string
		prev, now int64
		want      float64
	}{
		{"nominal", 1000, 1005, 0.005},
		{"duplicate timestamp", 1000, 1000, 0.005},
		{"backwards", 1000, 990, 0.005},
		{"too short", 1000, 1001, 0.005 / 3},
		{"gap", 1000, 2000, 0.015},
		{"within bounds", 1000, 1010, 0.010},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.InDelta(t, tc.want, c.Seconds(tc.prev, tc.now), 1e-12)
		})
	}
}

func TestDtClampFallsBackOnBadRate(t *testing.T) {
	assert.Equal(t, NewDtClamp(DefaultSampleHz), NewDtClamp(0))
	assert.Equal(t, NewDtClamp(DefaultSampleHz), NewDtClamp(math.NaN()))
}
