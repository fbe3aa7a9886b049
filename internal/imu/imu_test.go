// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package imu

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeRoundTrip(t *testing.T) {
	recs := []IMURaw{
		{TMs: 0, Ax: 0, Ay: 0, Az: 2048},
		{TMs: 5, Ax: -32768, Ay: 32767, Az: 1, Gx: 100, Gy: -100, Gz: 16384},
		{TMs: 4294967295, Gx: -1},
	}
	buf := EncodeRecords(recs)
	require.Len(t, buf, len(recs)*RecordSize)

	got := Decode(buf)
	require.Len(t, got, len(recs))

	for i, r := range recs {
		assert.Equal(t, int64(r.TMs), got[i].TMs)
		assert.InDelta(t, float64(r.Ax)*DefaultScale.AccelPerLSB, got[i].Ax, 1e-12)
		assert.InDelta(t, float64(r.Ay)*DefaultScale.AccelPerLSB, got[i].Ay, 1e-12)
		assert.InDelta(t, float64(r.Az)*DefaultScale.AccelPerLSB, got[i].Az, 1e-12)
		assert.InDelta(t, float64(r.Gx)*DefaultScale.GyroPerLSB, got[i].Gx, 1e-12)
		assert.InDelta(t, float64(r.Gy)*DefaultScale.GyroPerLSB, got[i].Gy, 1e-12)
		assert.InDelta(t, float64(r.Gz)*DefaultScale.GyroPerLSB, got[i].Gz, 1e-12)
	}
}

func TestParsePacketMatchesDecode(t *testing.T) {
	buf := EncodeRecords([]IMURaw{{TMs: 10, Ax: 12, Gz: -7}, {TMs: 15, Ay: 3}})
	assert.Equal(t, Decode(buf), ParsePacket(buf))
}

func TestDecodeRawMatchesWire(t *testing.T) {
	recs := []IMURaw{{TMs: 10, Ax: 12, Gz: -7}, {TMs: 15, Ay: 3}}
	assert.Equal(t, Decode(EncodeRecords(recs)), DefaultScale.DecodeRaw(recs))
}

func TestDecodeTruncation(t *testing.T) {
	full := EncodeRecords([]IMURaw{{TMs: 1}, {TMs: 2}, {TMs: 3}})
	for r := 0; r < RecordSize; r++ {
		buf := append(append([]byte{}, full[:2*RecordSize]...), full[2*RecordSize:2*RecordSize+r]...)
		samples, dropped := DefaultScale.DecodeRecords(buf)
		assert.Len(t, samples, 2, "remainder %d", r)
		assert.Equal(t, r, dropped)
		assert.Equal(t, int64(2), samples[1].TMs)
	}

	assert.Empty(t, Decode(nil))
	assert.Empty(t, Decode(make([]byte, RecordSize-1)))
}

func TestScaleUnits(t *testing.T) {
	// 1 g on the ±16 g range is 2048 counts.
	s := ReadRecord(EncodeRecords([]IMURaw{{Az: 2048}})).Scale(DefaultScale)
	assert.InDelta(t, StandardGravity, s.Az, 1e-9)

	// 2000 °/s full scale at +32768 counts would be 2000 °/s.
	assert.InDelta(t, 2000*math.Pi/180, 32768*DefaultScale.GyroPerLSB, 1e-9)
}

func TestScaleForCodes(t *testing.T) {
	s, err := ScaleForCodes(3, 3)
	require.NoError(t, err)
	assert.Equal(t, DefaultScale, s)

	s, err = ScaleForCodes(0, 0)
	require.NoError(t, err)
	assert.InDelta(t, 2*StandardGravity/32768, s.AccelPerLSB, 1e-12)
	assert.InDelta(t, 250*math.Pi/180/32768, s.GyroPerLSB, 1e-12)

	_, err = ScaleForCodes(4, 0)
	assert.Error(t, err)
	_, err = ScaleForCodes(0, 9)
	assert.Error(t, err)
}

func TestParseSampleJSON(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		s, err := ParseSampleJSON([]byte(`{"t_ms":1200,"ax":0.1,"ay":-0.2,"az":9.8,"gx":0,"gy":0.01,"gz":-3}`))
		require.NoError(t, err)
		assert.Equal(t, Sample{TMs: 1200, Ax: 0.1, Ay: -0.2, Az: 9.8, Gy: 0.01, Gz: -3}, s)
	})

	t.Run("round trip", func(t *testing.T) {
		in := Sample{TMs: 42, Ax: 1, Ay: 2, Az: 3, Gx: 4, Gy: 5, Gz: 6}
		line, err := MarshalSampleJSON(in)
		require.NoError(t, err)
		out, err := ParseSampleJSON(line)
		require.NoError(t, err)
		assert.Equal(t, in, out)
	})

	cases := map[string]struct {
		line  string
		field string
	}{
		"missing field":  {`{"t_ms":1,"ax":0,"ay":0,"az":0,"gx":0,"gy":0}`, "gz"},
		"string value":   {`{"t_ms":1,"ax":"x","ay":0,"az":0,"gx":0,"gy":0,"gz":0}`, ""},
		"negative time":  {`{"t_ms":-5,"ax":0,"ay":0,"az":0,"gx":0,"gy":0,"gz":0}`, "t_ms"},
		"not json":       {`t_ms=1`, ""},
		"null timestamp": {`{"t_ms":null,"ax":0,"ay":0,"az":0,"gx":0,"gy":0,"gz":0}`, "t_ms"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseSampleJSON([]byte(tc.line))
			require.Error(t, err)
			var de *SampleDecodeError
			require.True(t, errors.As(err, &de))
			assert.Equal(t, tc.field, de.Field)
		})
	}
}
