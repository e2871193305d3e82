// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

package mesh

import (
	"fmt"

	"github.com/2dChan/ehl/geom"
	"github.com/golang/geo/r2"
)

type edgeKey struct {
	a, b int
}

// FromPolygons builds a mesh from vertex positions and CCW polygons given as
// vertex id lists. Adjacency is derived from shared reversed edges; every
// unshared edge becomes an obstacle edge.
func FromPolygons(points []r2.Point, polygons [][]int) (*Mesh, error) {
	m := &Mesh{
		Vertices: make([]Vertex, len(points)),
		Polygons: make([]Polygon, len(polygons)),
	}
	for i, p := range points {
		m.Vertices[i] = Vertex{P: p, ObstacleEdge: [2]int{-1, -1}}
	}

	owner := make(map[edgeKey]int)
	for i, vs := range polygons {
		if len(vs) < 3 {
			return nil, fmt.Errorf("%w: polygon %d has %d vertices", ErrMalformed, i, len(vs))
		}
		pts := make([]r2.Point, len(vs))
		for j, v := range vs {
			if v < 0 || v >= len(points) {
				return nil, fmt.Errorf("%w: polygon %d vertex %d out of range [0 %d)", ErrMalformed, i, v, len(points))
			}
			pts[j] = points[v]
		}
		if geom.SignedArea(pts) <= 0 {
			return nil, fmt.Errorf("%w: polygon %d is not counter-clockwise", ErrMalformed, i)
		}
		n := len(vs)
		for j := range n {
			k := edgeKey{vs[j], vs[(j+1)%n]}
			if _, dup := owner[k]; dup {
				return nil, fmt.Errorf("%w: edge (%d, %d) used twice", ErrMalformed, k.a, k.b)
			}
			owner[k] = i
		}
		m.Polygons[i] = Polygon{
			Vertices:  append([]int(nil), vs...),
			Neighbors: make([]int, n),
		}
	}
	for i := range m.Polygons {
		poly := &m.Polygons[i]
		n := len(poly.Vertices)
		for j := range n {
			q, ok := owner[edgeKey{poly.Vertices[(j+1)%n], poly.Vertices[j]}]
			if !ok {
				q = -1
			}
			poly.Neighbors[j] = q
		}
	}
	if err := m.FinalizeTopology(); err != nil {
		return nil, err
	}
	return m, nil
}
