// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

// Package visibility answers line-of-sight questions on a navigation mesh:
// raycasts between located points, the set of mesh vertices visible from a
// point, the visibility polygon of a point and the two taut visible areas of
// a turning vertex.
package visibility

import (
	"math"

	"github.com/2dChan/ehl/geom"
	"github.com/2dChan/ehl/mesh"
	"github.com/golang/geo/r2"
)

const (
	// rayEps is the length tolerance of the mesh walk.
	rayEps = 1e-9
	// parallelEps is the sine below which a ray counts as parallel to an edge.
	parallelEps = 1e-12
)

// Searcher runs visibility queries against one mesh. It only reads the mesh,
// so a Searcher is safe for concurrent use as long as nobody mutates the mesh.
type Searcher struct {
	m   *mesh.Mesh
	loc *mesh.Locator
}

// NewSearcher indexes m for point location and returns a searcher over it.
func NewSearcher(m *mesh.Mesh) *Searcher {
	return &Searcher{m: m, loc: mesh.NewLocator(m)}
}

func (s *Searcher) Mesh() *mesh.Mesh {
	return s.m
}

func (s *Searcher) Locator() *mesh.Locator {
	return s.loc
}

// Locate is a shorthand for s.Locator().Locate(p).
func (s *Searcher) Locate(p r2.Point) mesh.Location {
	return s.loc.Locate(p)
}

// span returns the interval of ray lengths [enter, exit] for which
// start + dir*t stays inside the convex polygon p, and the edge through which
// the ray leaves. dir must have unit length. ok is false when the ray never
// touches the polygon.
func (s *Searcher) span(p int, start, dir r2.Point) (enter, exit float64, edge int, ok bool) {
	poly := &s.m.Polygons[p]
	n := len(poly.Vertices)
	enter, exit, edge = math.Inf(-1), math.Inf(1), -1
	for i := range n {
		a := s.m.Vertices[poly.Vertices[i]].P
		b := s.m.Vertices[poly.Vertices[(i+1)%n]].P
		e := b.Sub(a)
		l := e.Norm()
		if l == 0 {
			continue
		}
		e = e.Mul(1 / l)
		c0 := e.Cross(start.Sub(a))
		c1 := e.Cross(dir)
		switch {
		case math.Abs(c1) < parallelEps:
			if c0 < -rayEps {
				return 0, 0, -1, false
			}
		case c1 < 0:
			if t := c0 / -c1; t < exit {
				exit, edge = t, i
			}
		default:
			enter = math.Max(enter, -c0/c1)
		}
	}
	return enter, exit, edge, enter <= exit+rayEps
}

// IsVisible walks the mesh along the segment start-goal. It reports true when
// the segment stays in free space and otherwise returns the first point where
// it leaves the mesh. Passing exactly through an obstacle corner counts as
// visible. startLoc must be the location of start.
func (s *Searcher) IsVisible(start, goal r2.Point, startLoc mesh.Location) (bool, r2.Point) {
	if startLoc.Kind == mesh.NotOnMesh {
		return false, start
	}
	d := goal.Sub(start)
	length := d.Norm()
	if length <= rayEps {
		return true, goal
	}
	dir := d.Mul(1 / length)

	cur, exit, edge := s.enterFrom(s.m.LocationPolygons(startLoc), start, dir, 0)
	if cur < 0 {
		return false, start
	}
	for range 2*len(s.m.Polygons) + 8 {
		if exit >= length-rayEps {
			return true, goal
		}
		hit := start.Add(dir.Mul(exit))
		poly := &s.m.Polygons[cur]
		n := len(poly.Vertices)
		a, b := poly.Vertices[edge], poly.Vertices[(edge+1)%n]

		v := -1
		switch {
		case s.m.Point(a).Sub(hit).Norm() <= geom.Eps:
			v = a
		case s.m.Point(b).Sub(hit).Norm() <= geom.Eps:
			v = b
		}
		if v >= 0 {
			next, nextExit, nextEdge := s.enterFrom(s.m.IncidentPolygons(v), start, dir, exit)
			if next < 0 {
				return false, s.m.Point(v)
			}
			cur, exit, edge = next, nextExit, nextEdge
			continue
		}

		next := poly.Neighbors[edge]
		if next == -1 {
			return false, hit
		}
		_, nextExit, nextEdge, ok := s.span(next, start, dir)
		if !ok || nextExit <= exit+rayEps {
			// The hit is too close to a corner for the edge walk; retry from
			// every polygon around the edge endpoints.
			cands := append(s.m.IncidentPolygons(a), s.m.IncidentPolygons(b)...)
			next, nextExit, nextEdge = s.enterFrom(cands, start, dir, exit)
			if next < 0 {
				return false, hit
			}
		}
		cur, exit, edge = next, nextExit, nextEdge
	}
	return false, start
}

// enterFrom picks among candidates the polygon that the ray occupies right
// after length at, preferring the one it stays in the longest.
func (s *Searcher) enterFrom(candidates []int, start, dir r2.Point, at float64) (poly int, exit float64, edge int) {
	poly, exit, edge = -1, at, -1
	for _, p := range candidates {
		enter, e, ed, ok := s.span(p, start, dir)
		if !ok || enter > at+rayEps || e <= at+rayEps {
			continue
		}
		if poly < 0 || e > exit {
			poly, exit, edge = p, e, ed
		}
	}
	return poly, exit, edge
}

// CastThrough shoots a ray from start through the point through and returns
// the first obstacle point it hits. The ray passes obstacle corners it only
// grazes, so casting through a turning vertex reaches the obstacle behind it.
func (s *Searcher) CastThrough(start, through r2.Point, startLoc mesh.Location) r2.Point {
	d := through.Sub(start)
	l := d.Norm()
	if l == 0 {
		return start
	}
	b := s.m.Bounds()
	far := b.Size().Norm() + start.Sub(b.Center()).Norm() + 1
	goal := start.Add(d.Mul(far / l))
	_, hit := s.IsVisible(start, goal, startLoc)
	return hit
}

// VisibleFromVertex reports whether mesh vertex v sees goal.
func (s *Searcher) VisibleFromVertex(v int, goal r2.Point) bool {
	ok, _ := s.IsVisible(s.m.Point(v), goal, s.m.VertexLocation(v))
	return ok
}
