// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

// Package mesh implements the polygonal navigation mesh: vertices and convex
// polygons held in append-only arenas, polygon adjacency by shared edge, and
// the corner, turning and ambiguous vertex flags the labeling pipeline needs.
package mesh

import (
	"errors"
	"fmt"

	"github.com/golang/geo/r2"
)

var (
	ErrMalformed          = errors.New("mesh: malformed input")
	ErrInvariantViolation = errors.New("mesh: invariant violation")
)

// InvariantError describes a broken adjacency or topology invariant.
type InvariantError struct {
	Polygon int
	Edge    int
	Reason  string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("mesh: polygon %d edge %d: %s", e.Polygon, e.Edge, e.Reason)
}

func (e *InvariantError) Unwrap() error {
	return ErrInvariantViolation
}

type Vertex struct {
	P r2.Point
	// NOTE: Sort in CCW around the vertex, -1 marks an obstacle gap.
	Polygons  []int
	IsCorner  bool
	IsAmbig   bool
	IsTurning bool
	// ObstacleEdge holds the far endpoints of the two obstacle edges incident
	// to a corner vertex, or -1 for other vertices.
	ObstacleEdge [2]int
}

type Polygon struct {
	// NOTE: Sort in CCW.
	Vertices []int
	// Neighbors[i] is the polygon across edge (Vertices[i], Vertices[i+1]),
	// or -1 when that edge is an obstacle boundary.
	Neighbors []int
	Bounds    r2.Rect
}

func (p *Polygon) NumVertices() int {
	return len(p.Vertices)
}

// Next returns the position following i in the polygon's vertex cycle.
func (p *Polygon) Next(i int) int {
	return (i + 1) % len(p.Vertices)
}

// Prev returns the position preceding i in the polygon's vertex cycle.
func (p *Polygon) Prev(i int) int {
	return (i + len(p.Vertices) - 1) % len(p.Vertices)
}

// IndexOf returns the position of vertex v in the polygon, or -1.
func (p *Polygon) IndexOf(v int) int {
	for i, u := range p.Vertices {
		if u == v {
			return i
		}
	}
	return -1
}

// Mesh owns vertices and polygons. Both are only ever appended, so ids handed
// out stay valid for the lifetime of the mesh.
type Mesh struct {
	Vertices []Vertex
	Polygons []Polygon
}

func (m *Mesh) NumVertices() int {
	return len(m.Vertices)
}

func (m *Mesh) NumPolygons() int {
	return len(m.Polygons)
}

// Point returns the position of vertex v.
func (m *Mesh) Point(v int) r2.Point {
	return m.Vertices[v].P
}

// PolygonPoints returns the vertex positions of polygon p in CCW order.
func (m *Mesh) PolygonPoints(p int) []r2.Point {
	poly := &m.Polygons[p]
	pts := make([]r2.Point, len(poly.Vertices))
	for i, v := range poly.Vertices {
		pts[i] = m.Vertices[v].P
	}
	return pts
}

// Bounds returns the bounding box of every vertex.
func (m *Mesh) Bounds() r2.Rect {
	r := r2.EmptyRect()
	for i := range m.Vertices {
		r = r.AddPoint(m.Vertices[i].P)
	}
	return r
}

// CalculateBounds recomputes the bounding box of every polygon.
func (m *Mesh) CalculateBounds() {
	for i := range m.Polygons {
		m.CalculatePolygonBounds(i)
	}
}

func (m *Mesh) CalculatePolygonBounds(p int) {
	r := r2.EmptyRect()
	for _, v := range m.Polygons[p].Vertices {
		r = r.AddPoint(m.Vertices[v].P)
	}
	m.Polygons[p].Bounds = r
}

// Clone returns a deep copy of the mesh.
func (m *Mesh) Clone() *Mesh {
	c := &Mesh{
		Vertices: make([]Vertex, len(m.Vertices)),
		Polygons: make([]Polygon, len(m.Polygons)),
	}
	for i, v := range m.Vertices {
		v.Polygons = append([]int(nil), v.Polygons...)
		c.Vertices[i] = v
	}
	for i, p := range m.Polygons {
		p.Vertices = append([]int(nil), p.Vertices...)
		p.Neighbors = append([]int(nil), p.Neighbors...)
		c.Polygons[i] = p
	}
	return c
}

// MatchingEdge returns the position j in polygon q whose edge runs from a to b,
// or -1.
func (m *Mesh) MatchingEdge(q, a, b int) int {
	poly := &m.Polygons[q]
	n := len(poly.Vertices)
	for j := range n {
		if poly.Vertices[j] == a && poly.Vertices[(j+1)%n] == b {
			return j
		}
	}
	return -1
}

// Validate checks that polygon vertex and neighbor lists are parallel, ids are
// in range, and every adjacency is mirrored by the neighbor across the
// reversed edge.
func (m *Mesh) Validate() error {
	numVertices := len(m.Vertices)
	numPolygons := len(m.Polygons)
	for p := range m.Polygons {
		poly := &m.Polygons[p]
		n := len(poly.Vertices)
		if n < 3 {
			return &InvariantError{Polygon: p, Edge: -1, Reason: fmt.Sprintf("%d vertices", n)}
		}
		if len(poly.Neighbors) != n {
			return &InvariantError{Polygon: p, Edge: -1, Reason: "vertex and neighbor lists differ in length"}
		}
		for i := range n {
			v := poly.Vertices[i]
			if v < 0 || v >= numVertices {
				return &InvariantError{Polygon: p, Edge: i, Reason: fmt.Sprintf("vertex %d out of range [0 %d)", v, numVertices)}
			}
			q := poly.Neighbors[i]
			if q == -1 {
				continue
			}
			if q < 0 || q >= numPolygons || q == p {
				return &InvariantError{Polygon: p, Edge: i, Reason: fmt.Sprintf("neighbor %d out of range [0 %d)", q, numPolygons)}
			}
			a, b := poly.Vertices[i], poly.Vertices[(i+1)%n]
			j := m.MatchingEdge(q, b, a)
			if j < 0 {
				return &InvariantError{Polygon: p, Edge: i, Reason: fmt.Sprintf("neighbor %d has no edge (%d, %d)", q, b, a)}
			}
			if m.Polygons[q].Neighbors[j] != p {
				return &InvariantError{Polygon: p, Edge: i, Reason: fmt.Sprintf("neighbor %d points to %d across (%d, %d)", q, m.Polygons[q].Neighbors[j], b, a)}
			}
		}
	}
	return nil
}
