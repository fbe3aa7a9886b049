// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBucketCounts(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		tl := BucketCounts(nil, 5, nil, nil)
		assert.Empty(t, tl.Bins)
		assert.Empty(t, tl.Counts)
		assert.Equal(t, int64(5000), tl.BinMs)
	})

	t.Run("range from data", func(t *testing.T) {
		tl := BucketCounts([]int64{1000, 2000, 6500, 11000}, 5, nil, nil)
		assert.Equal(t, int64(5000), tl.BinMs)
		assert.Equal(t, []int64{1000, 6000}, tl.Bins)
		// the last timestamp sits on the range end and is clamped into the last bin
		assert.Equal(t, []int{2, 2}, tl.Counts)
	})

	t.Run("explicit range clamps outliers", func(t *testing.T) {
		start, end := int64(0), int64(10000)
		tl := BucketCounts([]int64{-500, 100, 9999, 15000}, 2, &start, &end)
		assert.Len(t, tl.Counts, 5)
		assert.Equal(t, []int{2, 0, 0, 0, 2}, tl.Counts)
	})

	t.Run("minimum bin width", func(t *testing.T) {
		tl := BucketCounts([]int64{0, 400, 900}, 0.2, nil, nil)
		assert.Equal(t, int64(1000), tl.BinMs)
		assert.Equal(t, []int{3}, tl.Counts)
	})

	t.Run("single timestamp", func(t *testing.T) {
		tl := BucketCounts([]int64{42}, 5, nil, nil)
		assert.Equal(t, []int64{42}, tl.Bins)
		assert.Equal(t, []int{1}, tl.Counts)
	})
}
