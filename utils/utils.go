// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

// Package utils provides helpers for generating planar test points and query
// workloads.

package utils

import (
	"math/rand"

	"github.com/golang/geo/r2"
)

// GenerateRandomPoints generates cnt random points uniformly inside rect.
// The seed parameter ensures reproducibility.
func GenerateRandomPoints(cnt int, seed int64, rect r2.Rect) []r2.Point {
	//nolint:gosec
	random := rand.New(rand.NewSource(seed))
	points := make([]r2.Point, cnt)

	for i := range cnt {
		points[i] = r2.Point{
			X: rect.X.Lo + random.Float64()*rect.X.Length(),
			Y: rect.Y.Lo + random.Float64()*rect.Y.Length(),
		}
	}

	return points
}

// GenerateRandomPairs generates cnt random (start, goal) pairs inside rect
// for which keep returns true. Rejected samples are redrawn, up to 100 tries
// per pair.
func GenerateRandomPairs(cnt int, seed int64, rect r2.Rect, keep func(r2.Point) bool) [][2]r2.Point {
	//nolint:gosec
	random := rand.New(rand.NewSource(seed))
	sample := func() (r2.Point, bool) {
		for range 100 {
			p := r2.Point{
				X: rect.X.Lo + random.Float64()*rect.X.Length(),
				Y: rect.Y.Lo + random.Float64()*rect.Y.Length(),
			}
			if keep == nil || keep(p) {
				return p, true
			}
		}
		return r2.Point{}, false
	}

	pairs := make([][2]r2.Point, 0, cnt)
	for range cnt {
		s, ok1 := sample()
		g, ok2 := sample()
		if ok1 && ok2 {
			pairs = append(pairs, [2]r2.Point{s, g})
		}
	}
	return pairs
}
