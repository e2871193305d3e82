// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

// Package ehl implements Euclidean hub labeling: a compressed distance oracle
// answering shortest path queries between arbitrary points of a polygonal
// navigation mesh.
//
// Build subdivides the mesh into convex regions, attaches pruned hub labels of
// the turning vertices to every region and compresses them into a merge tree.
// An Engine answers queries against the resulting Index.
package ehl

import (
	"errors"
	"sort"

	"github.com/2dChan/ehl/hublabel"
	"github.com/2dChan/ehl/mesh"
	"github.com/2dChan/ehl/visibility"
	"github.com/RoaringBitmap/roaring/v2"
)

var (
	ErrLabelMismatch = errors.New("ehl: raw labels do not match the turning vertices")
	ErrIndexMismatch = errors.New("ehl: index built with different parameters")
	ErrMalformed     = errors.New("ehl: malformed index")
)

// RawLabels is the output of a hub labeling oracle over the turning vertices.
type RawLabels struct {
	Labels hublabel.Labels
	// Order maps every oracle id to its mesh vertex.
	Order []int
}

// Node is a node of the label compression tree. Nodes below the number of
// regions are the regions themselves.
type Node struct {
	Parent int
	// Local holds the label ids stored at this node and not at an ancestor.
	Local *roaring.Bitmap
}

// HubBound is the smallest distance a region point can reach Hub with
// through any of the region's labels.
type HubBound struct {
	Hub   int
	Lower float64
}

// Leaf holds the per-region query data.
type Leaf struct {
	// Fully lists the oracle ids that see the whole region, ascending.
	Fully []int
	// Bounds is sorted by hub.
	Bounds []HubBound
}

// Index is a built Euclidean hub labeling.
type Index struct {
	Mesh *mesh.Mesh
	// Order maps oracle ids to the turning vertices of Mesh.
	Order []int
	// Raw holds the labels as bound; predecessor walks use them.
	Raw hublabel.Labels
	// Labels holds Raw without dead ends. Label ids index these.
	Labels hublabel.Labels
	// Areas[i] is the visible area of oracle id i.
	Areas []visibility.Area
	// Sources maps every region to the mesh polygon it was split from.
	Sources []int
	Nodes   []Node
	Leaves  []Leaf

	// Lambda is the region budget per source polygon plus one, zero when
	// unbounded.
	Lambda int
	// Depth is the requested compression depth and TreeDepth the reached one.
	Depth          int
	TreeDepth      int
	OriginalCost   uint64
	CompressedCost uint64
}

// NumRegions returns the number of regions.
func (x *Index) NumRegions() int {
	return len(x.Leaves)
}

// Region returns a view of region i.
func (x *Index) Region(i int) (Region, error) {
	if i < 0 || i >= len(x.Leaves) {
		return Region{}, indexError("Region", i, len(x.Leaves))
	}
	return Region{idx: i, x: x}, nil
}

// Chain returns node n followed by its ancestors.
func (x *Index) Chain(n int) []int {
	var chain []int
	for ; n >= 0; n = x.Nodes[n].Parent {
		chain = append(chain, n)
	}
	return chain
}

// chainLabels returns the union of the labels stored along the chain of n.
func (x *Index) chainLabels(n int) *roaring.Bitmap {
	out := roaring.New()
	for _, c := range x.Chain(n) {
		out.Or(x.Nodes[c].Local)
	}
	return out
}

// CostRatio returns the compressed label storage relative to the
// uncompressed one.
func (x *Index) CostRatio() float64 {
	if x.OriginalCost == 0 {
		return 1
	}
	return float64(x.CompressedCost) / float64(x.OriginalCost)
}

// Check fails with ErrIndexMismatch unless the index was built with the
// given region budget and compression depth.
func (x *Index) Check(lambda, depth int) error {
	if x.Lambda != lambda || x.Depth != depth {
		return &MismatchError{Lambda: x.Lambda, Depth: x.Depth, WantLambda: lambda, WantDepth: depth}
	}
	return nil
}

// lambdaOf converts a region budget to the persisted lambda.
func lambdaOf(maxExtraRegions int) int {
	if maxExtraRegions < 0 {
		return 0
	}
	return maxExtraRegions + 1
}

func (l *Leaf) isFully(v int) bool {
	i := sort.SearchInts(l.Fully, v)
	return i < len(l.Fully) && l.Fully[i] == v
}

func (l *Leaf) bound(hub int) (float64, bool) {
	i := sort.Search(len(l.Bounds), func(i int) bool { return l.Bounds[i].Hub >= hub })
	if i < len(l.Bounds) && l.Bounds[i].Hub == hub {
		return l.Bounds[i].Lower, true
	}
	return 0, false
}
