// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

package subdivide

import (
	"fmt"
	"math/rand"

	"github.com/2dChan/ehl/geom"
	"github.com/2dChan/ehl/mesh"
	"github.com/golang/geo/r2"
)

// MinSplitArea is the smallest child area a budgeted split may produce.
const MinSplitArea = 0.01

// Chord is a segment along which regions are split.
type Chord struct {
	From, To r2.Point
}

// Engine splits the regions of a mesh. It is the only code that mutates
// polygon adjacency, and it keeps the adjacency invariant after every split.
// Vertex fans are stale until the mesh is finalized.
type Engine struct {
	m      *mesh.Mesh
	random *rand.Rand

	// Parents maps every region to the region it was split from.
	Parents []int
	// PrecisionSkips counts splits rejected for degenerate geometry.
	PrecisionSkips int
}

// NewEngine returns an engine over m. Chords are picked with a generator
// seeded with seed.
func NewEngine(m *mesh.Mesh, seed int64) *Engine {
	parents := make([]int, len(m.Polygons))
	for i := range parents {
		parents[i] = i
	}
	return &Engine{
		m: m,
		//nolint:gosec
		random:  rand.New(rand.NewSource(seed)),
		Parents: parents,
	}
}

// Mesh returns the mesh being split.
func (e *Engine) Mesh() *mesh.Mesh {
	return e.m
}

type hit struct {
	edge     int
	onVertex bool
	vertex   int
	p        r2.Point
}

// Split cuts region p along the line through chord c. The half that starts
// at the second boundary crossing keeps id p, the other half is appended and
// its id returned.
// Splits whose chord misses the region or whose halves are smaller than
// minArea are rejected without touching the mesh, and only the latter count
// as precision skips.
func (e *Engine) Split(p int, c Chord, minArea float64) (int, bool, error) {
	m := e.m
	if p < 0 || p >= len(m.Polygons) {
		return -1, false, fmt.Errorf("Split: index %d out of range [0 %d)", p, len(m.Polygons))
	}
	poly := &m.Polygons[p]
	if !r2.RectFromPoints(c.From, c.To).Intersects(poly.Bounds) {
		return -1, false, nil
	}
	pts := m.PolygonPoints(p)
	entry, exit, ok := geom.ClipSegmentConvex(c.From, c.To, pts)
	if !ok || entry == exit {
		return -1, false, nil
	}

	n := len(poly.Vertices)
	var hits [2]hit
	cnt := 0
	for i := 0; i < n && cnt < 2; i++ {
		p1, p2 := pts[i], pts[(i+1)%n]
		ip, ok := geom.LineIntersection(p1, p2, c.From, c.To)
		if !ok || ip.Sub(p1).Norm() <= geom.Eps {
			continue
		}
		onVertex := ip.Sub(p2).Norm() <= geom.Eps
		if !onVertex && !geom.OnSegmentApprox(p1, ip, p2) {
			continue
		}
		h := hit{edge: i, onVertex: onVertex, vertex: -1, p: ip}
		if onVertex {
			h.vertex = poly.Vertices[(i+1)%n]
			h.p = p2
		}
		hits[cnt] = h
		cnt++
	}
	if cnt < 2 {
		return -1, false, nil
	}

	// Speculative vertex ids. Nothing is appended before the split is
	// accepted.
	next := len(m.Vertices)
	for k := range hits {
		if !hits[k].onVertex {
			hits[k].vertex = next
			next++
		}
	}
	child := len(m.Polygons)
	aVerts, aNbrs := e.half(p, hits[0], hits[1], p)
	bVerts, bNbrs := e.half(p, hits[1], hits[0], child)
	if len(aVerts) < 3 || len(bVerts) < 3 ||
		e.area(aVerts, hits) < minArea+geom.Eps || e.area(bVerts, hits) < minArea+geom.Eps {
		e.PrecisionSkips++
		return -1, false, nil
	}

	for _, h := range hits {
		if !h.onVertex {
			m.Vertices = append(m.Vertices, mesh.Vertex{P: h.p, ObstacleEdge: [2]int{-1, -1}})
		}
	}
	// Split edges gain the new vertex in the polygon across them.
	for _, h := range hits {
		if h.onVertex {
			continue
		}
		q := poly.Neighbors[h.edge]
		if q < 0 {
			continue
		}
		a, b := poly.Vertices[h.edge], poly.Vertices[(h.edge+1)%n]
		j := m.MatchingEdge(q, b, a)
		if j < 0 {
			return -1, false, &mesh.InvariantError{Polygon: p, Edge: h.edge,
				Reason: fmt.Sprintf("neighbor %d has no edge (%d, %d)", q, b, a)}
		}
		qp := &m.Polygons[q]
		qp.Vertices = insertAt(qp.Vertices, j+1, h.vertex)
		qp.Neighbors = insertAt(qp.Neighbors, j+1, qp.Neighbors[j])
	}

	m.Polygons = append(m.Polygons, mesh.Polygon{Vertices: aVerts, Neighbors: aNbrs})
	poly = &m.Polygons[p]
	poly.Vertices, poly.Neighbors = bVerts, bNbrs
	for _, id := range [2]int{child, p} {
		if err := e.relink(id); err != nil {
			return -1, false, err
		}
		m.CalculatePolygonBounds(id)
	}
	e.Parents = append(e.Parents, e.Parents[p])
	return child, true, nil
}

// half returns the vertices and neighbors of the part of p that runs from
// hit a along the cut to hit b and then along the boundary back to a. The cut
// edge is adjacent to sibling.
func (e *Engine) half(p int, a, b hit, sibling int) ([]int, []int) {
	poly := &e.m.Polygons[p]
	n := len(poly.Vertices)
	verts := []int{a.vertex}
	nbrs := []int{sibling}
	if !b.onVertex {
		verts = append(verts, b.vertex)
		nbrs = append(nbrs, poly.Neighbors[b.edge])
	}
	for i := (b.edge + 1) % n; ; i = (i + 1) % n {
		verts = append(verts, poly.Vertices[i])
		nbrs = append(nbrs, poly.Neighbors[i])
		if i == a.edge || len(verts) > n+2 {
			break
		}
	}
	return verts, nbrs
}

func (e *Engine) area(verts []int, hits [2]hit) float64 {
	pts := make([]r2.Point, len(verts))
	for i, v := range verts {
		pts[i] = e.point(v, hits)
	}
	return geom.Area(pts)
}

// point resolves v, which may be a speculative vertex of hits.
func (e *Engine) point(v int, hits [2]hit) r2.Point {
	if v < len(e.m.Vertices) {
		return e.m.Point(v)
	}
	for _, h := range hits {
		if h.vertex == v {
			return h.p
		}
	}
	return r2.Point{}
}

// relink points every neighbor of polygon id back at it across the reversed
// edge.
func (e *Engine) relink(id int) error {
	m := e.m
	poly := &m.Polygons[id]
	n := len(poly.Vertices)
	for i, q := range poly.Neighbors {
		if q < 0 {
			continue
		}
		a, b := poly.Vertices[i], poly.Vertices[(i+1)%n]
		j := m.MatchingEdge(q, b, a)
		if j < 0 {
			return &mesh.InvariantError{Polygon: id, Edge: i,
				Reason: fmt.Sprintf("neighbor %d has no edge (%d, %d)", q, b, a)}
		}
		m.Polygons[q].Neighbors[j] = id
	}
	return nil
}

func insertAt(s []int, i, v int) []int {
	s = append(s, 0)
	copy(s[i+1:], s[i:])
	s[i] = v
	return s
}

type pending struct {
	region int
	chords []Chord
}

// SplitRegion repeatedly splits region p by its chords. Regions wait in a
// FIFO queue; each step picks one of the region's chords at random, moves it
// to the back and consumes it whether or not the split succeeds. Both halves
// of a successful split inherit the remaining chords. A non-negative
// maxExtra bounds the number of regions created and enables the minimum
// area check. It returns the number of regions created.
func (e *Engine) SplitRegion(p int, chords []Chord, maxExtra int) (int, error) {
	if len(chords) == 0 {
		return 0, nil
	}
	minArea := 0.0
	if maxExtra >= 0 {
		minArea = MinSplitArea
	}
	start := len(e.m.Polygons)
	queue := []pending{{region: p, chords: append([]Chord(nil), chords...)}}
	for len(queue) > 0 {
		if maxExtra >= 0 && len(e.m.Polygons)-start >= maxExtra {
			break
		}
		it := queue[0]
		queue = queue[1:]

		k := e.random.Intn(len(it.chords))
		last := len(it.chords) - 1
		it.chords[k], it.chords[last] = it.chords[last], it.chords[k]
		c := it.chords[last]
		rest := it.chords[:last]

		child, ok, err := e.Split(it.region, c, minArea)
		if err != nil {
			return len(e.m.Polygons) - start, err
		}
		if len(rest) == 0 {
			continue
		}
		if !ok {
			queue = append(queue, pending{region: it.region, chords: rest})
			continue
		}
		queue = append(queue,
			pending{region: child, chords: rest},
			pending{region: it.region, chords: append([]Chord(nil), rest...)})
	}
	return len(e.m.Polygons) - start, nil
}
