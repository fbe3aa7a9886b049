// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gps

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	validRMC = "$GPRMC,220516,A,5133.82,N,00042.24,W,173.8,231.8,130694,004.2,W*70"
	voidRMC  = "$GPRMC,220516,V,5133.82,N,00042.24,W,173.8,231.8,130694,004.2,W*67"
	gga      = "$GPGGA,172814.0,3723.46587704,N,12202.26957864,W,2,6,1.2,18.893,M,-25.669,M,2.0,0031*4F"
)

func TestParseLine(t *testing.T) {
	f, ok := ParseLine(validRMC + "\r\n")
	require.True(t, ok)
	assert.InDelta(t, 51+33.82/60, f.Latitude, 1e-6)
	assert.InDelta(t, -42.24/60, f.Longitude, 1e-6)
	assert.InDelta(t, 173.8, f.SpeedKnots, 1e-9)
	assert.InDelta(t, 231.8, f.CourseDeg, 1e-9)
	assert.Equal(t, "A", f.Validity)
	assert.NotEmpty(t, f.Time)
	assert.NotEmpty(t, f.Date)

	for _, line := range []string{voidRMC, gga, "", "garbage", "$GPRMC,broken*00"} {
		_, ok := ParseLine(line)
		assert.False(t, ok, line)
	}
}

func TestTrackerConsume(t *testing.T) {
	var tr Tracker
	_, ok := tr.Latest()
	assert.False(t, ok)

	stream := strings.Join([]string{gga, voidRMC, "noise", validRMC, gga}, "\r\n")
	require.NoError(t, tr.Consume(strings.NewReader(stream)))

	f, ok := tr.Latest()
	require.True(t, ok)
	assert.InDelta(t, 51+33.82/60, f.Latitude, 1e-6)
}
