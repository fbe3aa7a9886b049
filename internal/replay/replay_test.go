// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package replay

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/racket_tracker/internal/imu"
	"github.com/relabs-tech/racket_tracker/internal/profile"
	"github.com/relabs-tech/racket_tracker/internal/session"
)

type recordingSink struct {
	batches [][]imu.Sample
	err     error
}

func (r *recordingSink) Ingest(batch []imu.Sample) error {
	if r.err != nil {
		return r.err
	}
	r.batches = append(r.batches, append([]imu.Sample(nil), batch...))
	return nil
}

func captureOf(t *testing.T, samples []imu.Sample) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	c := NewCapture(&buf)
	require.NoError(t, c.Write(samples))
	require.NoError(t, c.Flush())
	assert.Equal(t, len(samples), c.Count())
	return &buf
}

func TestRunBatchesAndSkips(t *testing.T) {
	doc := strings.Join([]string{
		`{"t_ms":0,"ax":0,"ay":0,"az":9.8,"gx":0,"gy":0,"gz":0}`,
		``,
		`not json`,
		`{"t_ms":5,"ax":0,"ay":0,"az":9.8,"gx":0,"gy":0}`,
		`   `,
		`{"t_ms":10,"ax":0,"ay":0,"az":9.8,"gx":0,"gy":0,"gz":0}`,
		`{"t_ms":15,"ax":0,"ay":0,"az":9.8,"gx":0,"gy":0,"gz":0}`,
	}, "\n")

	sink := &recordingSink{}
	res, err := Run(strings.NewReader(doc), sink, 2)
	require.NoError(t, err)

	assert.Equal(t, Result{Lines: 7, Samples: 3, Skipped: 2}, res)
	require.Len(t, sink.batches, 2)
	assert.Len(t, sink.batches[0], 2)
	assert.Len(t, sink.batches[1], 1)
	assert.Equal(t, int64(15), sink.batches[1][0].TMs)
}

func TestRunPropagatesIngestError(t *testing.T) {
	sink := &recordingSink{err: session.ErrSessionEnded}
	buf := captureOf(t, []imu.Sample{{TMs: 1}})
	_, err := Run(buf, sink, 0)
	assert.True(t, errors.Is(err, session.ErrSessionEnded))
}

func TestCaptureReplayThroughSession(t *testing.T) {
	p, err := profile.Default().Lookup("tennis")
	require.NoError(t, err)

	var samples []imu.Sample
	for ts := int64(0); ts < 2500; ts += 5 {
		samples = append(samples, imu.Sample{TMs: ts, Az: imu.StandardGravity})
	}
	hit := imu.Sample{TMs: 2500, Ax: 10 * p.ImpactThreshold(), Az: imu.StandardGravity, Gx: 12}
	samples = append(samples, hit)
	for ts := int64(2505); ts < 3000; ts += 5 {
		samples = append(samples, imu.Sample{TMs: ts, Az: imu.StandardGravity})
	}

	acc := session.NewAccumulator(200)
	require.NoError(t, acc.Start(p, session.Callbacks{}, "tennis"))

	res, err := Run(captureOf(t, samples), acc, DefaultBatchSize)
	require.NoError(t, err)
	assert.Equal(t, len(samples), res.Samples)
	assert.Zero(t, res.Skipped)

	sum, err := acc.End()
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Swings)
	assert.Equal(t, 1, sum.MaxRally)
	assert.InDelta(t, 12*p.RadiusM, sum.MaxSpeed, 1e-9)
	assert.Equal(t, int64(2995), sum.DurationMs)
}
