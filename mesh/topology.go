// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

package mesh

import (
	"fmt"
	"math"
	"slices"

	"github.com/2dChan/ehl/geom"
)

type incidence struct {
	poly int
	pos  int
}

// FinalizeTopology rebuilds everything derived from the polygon lists: CCW
// vertex fans, corner and ambiguous flags, polygon bounds and obstacle edges.
// Turning flags are kept. It must run after any split before the mesh is
// queried.
func (m *Mesh) FinalizeTopology() error {
	incident := make([][]incidence, len(m.Vertices))
	for p := range m.Polygons {
		for i, v := range m.Polygons[p].Vertices {
			if v < 0 || v >= len(m.Vertices) {
				return &InvariantError{Polygon: p, Edge: i, Reason: fmt.Sprintf("vertex %d out of range [0 %d)", v, len(m.Vertices))}
			}
			incident[v] = append(incident[v], incidence{poly: p, pos: i})
		}
	}

	for v := range m.Vertices {
		fan, err := m.vertexFan(v, incident[v])
		if err != nil {
			return err
		}
		vert := &m.Vertices[v]
		vert.Polygons = fan
		gaps := 0
		for _, p := range fan {
			if p == -1 {
				gaps++
			}
		}
		vert.IsCorner = gaps > 0
		vert.IsAmbig = gaps > 1
		if !vert.IsCorner {
			vert.IsTurning = false
		}
	}

	m.CalculateBounds()
	m.PrecomputeObstacleEdges()
	return nil
}

// vertexFan walks the polygons around v counter-clockwise. Every chain starts
// right after an obstacle gap when there is one.
func (m *Mesh) vertexFan(v int, inc []incidence) ([]int, error) {
	if len(inc) == 0 {
		return nil, nil
	}
	byPoly := make(map[int]incidence, len(inc))
	for _, in := range inc {
		byPoly[in.poly] = in
	}
	// The polygon after p counter-clockwise around v is across the edge that
	// ends at v.
	ccwNext := func(in incidence) int {
		poly := &m.Polygons[in.poly]
		return poly.Neighbors[poly.Prev(in.pos)]
	}
	startsChain := func(in incidence) bool {
		poly := &m.Polygons[in.poly]
		return poly.Neighbors[in.pos] == -1
	}

	visited := make(map[int]bool, len(inc))
	fan := make([]int, 0, len(inc)+1)
	walk := func(start incidence) error {
		cur := start
		for {
			visited[cur.poly] = true
			fan = append(fan, cur.poly)
			nxt := ccwNext(cur)
			if nxt == -1 {
				fan = append(fan, -1)
				return nil
			}
			if nxt == start.poly {
				return nil
			}
			in, ok := byPoly[nxt]
			if !ok {
				return &InvariantError{Polygon: cur.poly, Edge: m.Polygons[cur.poly].Prev(cur.pos),
					Reason: fmt.Sprintf("neighbor %d does not contain vertex %d", nxt, v)}
			}
			if visited[nxt] {
				return nil
			}
			cur = in
		}
	}

	for _, in := range inc {
		if !visited[in.poly] && startsChain(in) {
			if err := walk(in); err != nil {
				return nil, err
			}
		}
	}
	for _, in := range inc {
		if !visited[in.poly] {
			if err := walk(in); err != nil {
				return nil, err
			}
		}
	}
	return fan, nil
}

// PrecomputeObstacleEdges records, for every corner vertex, the far endpoints
// of its two incident obstacle edges: [0] is the edge leaving the vertex
// counter-clockwise along free space and [1] the edge arriving at it.
func (m *Mesh) PrecomputeObstacleEdges() {
	for v := range m.Vertices {
		vert := &m.Vertices[v]
		vert.ObstacleEdge = [2]int{-1, -1}
		if !vert.IsCorner {
			continue
		}
		for _, p := range vert.Polygons {
			if p == -1 {
				continue
			}
			poly := &m.Polygons[p]
			i := poly.IndexOf(v)
			if vert.ObstacleEdge[0] == -1 && poly.Neighbors[i] == -1 {
				vert.ObstacleEdge[0] = poly.Vertices[poly.Next(i)]
			}
			if vert.ObstacleEdge[1] == -1 && poly.Neighbors[poly.Prev(i)] == -1 {
				vert.ObstacleEdge[1] = poly.Vertices[poly.Prev(i)]
			}
		}
	}
}

// FreeAngle returns the counter-clockwise angle of free space around the
// corner vertex v, measured from ObstacleEdge[0] to ObstacleEdge[1]. It is
// only meaningful for unambiguous corners.
func (m *Mesh) FreeAngle(v int) float64 {
	vert := &m.Vertices[v]
	if vert.ObstacleEdge[0] < 0 || vert.ObstacleEdge[1] < 0 {
		return 0
	}
	a := m.Vertices[vert.ObstacleEdge[0]].P.Sub(vert.P)
	b := m.Vertices[vert.ObstacleEdge[1]].P.Sub(vert.P)
	angle := geom.CCWAngle(a, b)
	if angle == 0 {
		angle = 2 * math.Pi
	}
	return angle
}

// MarkTurningPointsByAngle flags every unambiguous corner whose free-space
// angle exceeds Pi. Those are exactly the convex obstacle corners a shortest
// path can bend around.
func (m *Mesh) MarkTurningPointsByAngle() {
	for v := range m.Vertices {
		vert := &m.Vertices[v]
		vert.IsTurning = vert.IsCorner && !vert.IsAmbig && m.FreeAngle(v) > math.Pi+geom.Eps
	}
}

// TurningVertices returns the ids of unambiguous turning vertices in
// ascending order.
func (m *Mesh) TurningVertices() []int {
	var out []int
	for v := range m.Vertices {
		if m.Vertices[v].IsTurning && !m.Vertices[v].IsAmbig {
			out = append(out, v)
		}
	}
	return out
}

// ConcaveVertices returns the ids of corner vertices that are not turning
// vertices, in ascending order.
func (m *Mesh) ConcaveVertices() []int {
	var out []int
	for v := range m.Vertices {
		if m.Vertices[v].IsCorner && !m.Vertices[v].IsTurning {
			out = append(out, v)
		}
	}
	return out
}

// IncidentPolygons returns the polygons around v without obstacle gaps.
func (m *Mesh) IncidentPolygons(v int) []int {
	return slices.DeleteFunc(slices.Clone(m.Vertices[v].Polygons), func(p int) bool {
		return p == -1
	})
}
