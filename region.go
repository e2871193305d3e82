// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

package ehl

import (
	"errors"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/golang/geo/r2"
)

// ErrNoNeighbor is returned for region edges that lie on an obstacle.
var ErrNoNeighbor = errors.New("ehl: region edge borders an obstacle")

// Region is a view structure for accessing a region of an Index. The
// region's index is its polygon id in the index mesh and its leaf id in the
// compression tree.
type Region struct {
	idx int
	x   *Index
}

// Index returns the id of the region.
func (r Region) Index() int {
	return r.idx
}

// Source returns the polygon of the input mesh the region was split from.
func (r Region) Source() int {
	return r.x.Sources[r.idx]
}

// NumVertices returns the number of vertices of the region.
// This equals the number of neighbors.
func (r Region) NumVertices() int {
	return len(r.x.Mesh.Polygons[r.idx].Vertices)
}

// VertexIndices returns the mesh vertices of the region in CCW order.
func (r Region) VertexIndices() []int {
	return r.x.Mesh.Polygons[r.idx].Vertices
}

// Vertex returns the position of vertex i.
// It returns an error if the index is out of range.
func (r Region) Vertex(i int) (r2.Point, error) {
	vs := r.x.Mesh.Polygons[r.idx].Vertices
	if i < 0 || i >= len(vs) {
		return r2.Point{}, indexError("Vertex", i, len(vs))
	}
	return r.x.Mesh.Point(vs[i]), nil
}

// NumNeighbors returns the number of region edges, including obstacle ones.
func (r Region) NumNeighbors() int {
	return len(r.x.Mesh.Polygons[r.idx].Neighbors)
}

// NeighborIndices returns the region across every edge, -1 for obstacles.
// Edge i runs from vertex i to vertex i+1.
func (r Region) NeighborIndices() []int {
	return r.x.Mesh.Polygons[r.idx].Neighbors
}

// Neighbor returns the region across edge i. It returns ErrNoNeighbor for
// obstacle edges and an error if the index is out of range.
func (r Region) Neighbor(i int) (Region, error) {
	ns := r.x.Mesh.Polygons[r.idx].Neighbors
	if i < 0 || i >= len(ns) {
		return Region{}, indexError("Neighbor", i, len(ns))
	}
	if ns[i] < 0 {
		return Region{}, ErrNoNeighbor
	}
	return r.x.Region(ns[i])
}

// Chain returns the compression tree nodes whose labels the region uses,
// starting with the region.
func (r Region) Chain() []int {
	return r.x.Chain(r.idx)
}

// LabelIDs returns every label id of the region.
func (r Region) LabelIDs() *roaring.Bitmap {
	return r.x.chainLabels(r.idx)
}

// FullyVisible lists the oracle ids that see the whole region.
func (r Region) FullyVisible() []int {
	return r.x.Leaves[r.idx].Fully
}

// LowerBound returns the smallest distance from a region point to hub
// through the region's labels. ok is false when the region has no label of
// hub.
func (r Region) LowerBound(hub int) (lower float64, ok bool) {
	return r.x.Leaves[r.idx].bound(hub)
}
