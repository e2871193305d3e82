// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

// Package subdivide splits mesh regions along chords so that the via labels
// of every resulting region are as uniform as possible.
package subdivide

import (
	"context"
	"fmt"
	"sort"

	"github.com/2dChan/ehl/internal/parallel"
	"github.com/2dChan/ehl/mesh"
)

// DefaultSeed seeds chord selection unless configured otherwise.
const DefaultSeed = 2

// Options configures Subdivide.
type Options struct {
	// MaxExtraRegions bounds the regions created per source region. Negative
	// means unbounded, zero disables subdivision.
	MaxExtraRegions int
	Seed            int64
	Workers         int
	Progress        parallel.Progress
}

// Result summarizes a Subdivide run.
type Result struct {
	// Parents maps every region of the subdivided mesh to its source region.
	Parents        []int
	Created        int
	PrecisionSkips int
}

// Subdivide splits the polygons of m in place by chords. Regions are
// processed in ascending order of crossing chords. The mesh topology is
// finalized and validated before returning.
func Subdivide(ctx context.Context, m *mesh.Mesh, chords []Chord, opts Options) (*Result, error) {
	e := NewEngine(m, opts.Seed)
	initial := len(m.Polygons)
	if opts.MaxExtraRegions != 0 && len(chords) > 0 {
		assigned, err := AssignChords(ctx, m, chords, opts.Workers, opts.Progress)
		if err != nil {
			return nil, err
		}
		order := make([]int, len(assigned))
		for i := range order {
			order[i] = i
		}
		sort.SliceStable(order, func(a, b int) bool {
			return len(assigned[order[a]]) < len(assigned[order[b]])
		})
		for _, p := range order {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if len(assigned[p]) == 0 {
				continue
			}
			cs := make([]Chord, len(assigned[p]))
			for k, j := range assigned[p] {
				cs[k] = chords[j]
			}
			if _, err := e.SplitRegion(p, cs, opts.MaxExtraRegions); err != nil {
				return nil, fmt.Errorf("subdivide: region %d: %w", p, err)
			}
		}
	}
	if err := m.FinalizeTopology(); err != nil {
		return nil, fmt.Errorf("subdivide: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("subdivide: %w", err)
	}
	return &Result{Parents: e.Parents, Created: len(m.Polygons) - initial, PrecisionSkips: e.PrecisionSkips}, nil
}
