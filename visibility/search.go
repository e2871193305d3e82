// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

package visibility

import (
	"math"
	"slices"
	"sort"

	"github.com/2dChan/ehl/geom"
	"github.com/2dChan/ehl/mesh"
	"github.com/golang/geo/r2"
)

const (
	// minAngle is the sine of the narrowest window worth expanding. Windows
	// along an edge collinear with the source have no extent and are dropped.
	minAngle = 1e-10
	// paramEps snaps clipped edge parameters onto the edge endpoints.
	paramEps = 1e-9
)

// window is a node of the expanding search: the part of the edge between
// from and poly that the source sees, given as its right and left endpoints.
type window struct {
	poly int
	from int
	r, l r2.Point
}

// segment is a piece of obstacle boundary seen from the source, right
// endpoint first.
type segment struct {
	r, l r2.Point
}

type searchResult struct {
	visible []bool
	blocked []segment
	// reached holds the parameter intervals already recorded per obstacle
	// edge, keyed by its vertex ids.
	reached map[[2]int][][2]float64
}

// block records the piece [lo, hi] of obstacle edge a-b unless an earlier
// window already recorded it.
func (res *searchResult) block(a, b int, lo, hi float64, r, l r2.Point) {
	key := [2]int{a, b}
	for _, iv := range res.reached[key] {
		if lo >= iv[0]-paramEps && hi <= iv[1]+paramEps {
			return
		}
	}
	if res.reached == nil {
		res.reached = make(map[[2]int][][2]float64)
	}
	res.reached[key] = append(res.reached[key], [2]float64{lo, hi})
	res.blocked = append(res.blocked, segment{r: r, l: l})
}

// search expands windows from the polygons around p until every window ends
// on an obstacle edge. A ray leaves a convex polygon once, so windows never
// re-enter the polygons around p and only windows with angular extent are
// followed.
func (s *Searcher) search(p r2.Point, loc mesh.Location, collectBlocked bool) searchResult {
	m := s.m
	res := searchResult{visible: make([]bool, len(m.Vertices))}
	roots := m.LocationPolygons(loc)

	var stack []window
	for _, id := range roots {
		poly := &m.Polygons[id]
		n := len(poly.Vertices)
		for i, v := range poly.Vertices {
			res.visible[v] = true
			next := poly.Vertices[(i+1)%n]
			a, b := m.Vertices[v].P, m.Vertices[next].P
			if !wide(p, a, b) {
				continue
			}
			nb := poly.Neighbors[i]
			if nb == -1 {
				if collectBlocked {
					res.block(v, next, 0, 1, a, b)
				}
				continue
			}
			if slices.Contains(roots, nb) {
				continue
			}
			stack = append(stack, window{poly: nb, from: id, r: a, l: b})
		}
	}

	limit := 64 * (len(m.Polygons) + 1) * (len(m.Polygons) + 1)
	for steps := 0; len(stack) > 0 && steps < limit; steps++ {
		w := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		dr := unit(w.r.Sub(p))
		dl := unit(w.l.Sub(p))
		poly := &m.Polygons[w.poly]
		n := len(poly.Vertices)
		for _, v := range poly.Vertices {
			if res.visible[v] {
				continue
			}
			q := m.Vertices[v].P.Sub(p)
			if dr.Cross(q) >= -geom.Eps && dl.Cross(q) <= geom.Eps {
				res.visible[v] = true
			}
		}
		for i := range n {
			nb := poly.Neighbors[i]
			if nb == w.from || (nb != -1 && slices.Contains(roots, nb)) {
				continue
			}
			a, b := poly.Vertices[i], poly.Vertices[(i+1)%n]
			u, x := m.Vertices[a].P, m.Vertices[b].P
			lo, hi, ok := clipToWedge(p, dr, dl, u, x)
			if !ok {
				continue
			}
			lo, hi = snap(lo), snap(hi)
			e := x.Sub(u)
			r, l := u.Add(e.Mul(lo)), u.Add(e.Mul(hi))
			if !wide(p, r, l) {
				continue
			}
			if nb == -1 {
				if collectBlocked {
					res.block(a, b, lo, hi, r, l)
				}
				continue
			}
			stack = append(stack, window{poly: nb, from: w.poly, r: r, l: l})
		}
	}
	return res
}

// wide reports whether the wedge from p between the right point r and the
// left point l has angular extent.
func wide(p, r, l r2.Point) bool {
	return unit(r.Sub(p)).Cross(unit(l.Sub(p))) > minAngle
}

func snap(t float64) float64 {
	switch {
	case math.Abs(t) < paramEps:
		return 0
	case math.Abs(t-1) < paramEps:
		return 1
	}
	return t
}

// clipToWedge returns the parameter range [lo, hi] of u + s(x-u) that lies
// between the right ray p+dr and the left ray p+dl.
func clipToWedge(p, dr, dl, u, x r2.Point) (lo, hi float64, ok bool) {
	lo, hi = 0, 1
	e := x.Sub(u)
	up := u.Sub(p)
	// Left of the right ray: dr x (u-p) + s * dr x e >= 0.
	// Right of the left ray: dl x (u-p) + s * dl x e <= 0.
	for _, c := range [2]struct{ c0, c1 float64 }{
		{dr.Cross(up), dr.Cross(e)},
		{-dl.Cross(up), -dl.Cross(e)},
	} {
		switch {
		case c.c1 == 0:
			if c.c0 < 0 {
				return 0, 0, false
			}
		case c.c1 > 0:
			lo = math.Max(lo, -c.c0/c.c1)
		default:
			hi = math.Min(hi, -c.c0/c.c1)
		}
	}
	return lo, hi, lo <= hi
}

func unit(v r2.Point) r2.Point {
	l := v.Norm()
	if l == 0 {
		return v
	}
	return v.Mul(1 / l)
}

// VisibleVertices returns the ids of the mesh vertices visible from p in
// ascending order. When p is a mesh vertex it is not part of the result.
func (s *Searcher) VisibleVertices(p r2.Point, loc mesh.Location) []int {
	if loc.Kind == mesh.NotOnMesh {
		return nil
	}
	res := s.search(p, loc, false)
	var out []int
	for v, ok := range res.visible {
		if ok && !(loc.IsVertex() && v == loc.Vertex1) && s.m.Vertices[v].P != p {
			out = append(out, v)
		}
	}
	return out
}

// VisibilityPolygon returns the boundary of the region visible from p in CCW
// order. When p lies on the obstacle boundary the polygon starts at p itself
// and then follows free space counter-clockwise from the obstacle edge.
func (s *Searcher) VisibilityPolygon(p r2.Point, loc mesh.Location) []r2.Point {
	if loc.Kind == mesh.NotOnMesh {
		return nil
	}
	res := s.search(p, loc, true)
	ref, apex := s.reference(p, loc)

	angle := func(seg segment) float64 {
		mid := seg.r.Add(seg.l).Mul(0.5)
		return geom.CCWAngle(ref, mid.Sub(p))
	}
	sort.SliceStable(res.blocked, func(i, j int) bool {
		return angle(res.blocked[i]) < angle(res.blocked[j])
	})

	near := func(a, b r2.Point) bool { return a.Sub(b).Norm() <= geom.Eps }
	var out []r2.Point
	push := func(q r2.Point) {
		if len(out) > 0 && near(out[len(out)-1], q) {
			return
		}
		out = append(out, q)
	}
	if apex {
		push(p)
	}
	for _, seg := range res.blocked {
		push(seg.r)
		push(seg.l)
	}
	if len(out) > 1 && near(out[0], out[len(out)-1]) {
		out = out[:len(out)-1]
	}
	return out
}

// reference returns the direction angles are measured from and whether p
// sits on the obstacle boundary.
func (s *Searcher) reference(p r2.Point, loc mesh.Location) (r2.Point, bool) {
	m := s.m
	switch loc.Kind {
	case mesh.OnMeshBorder:
		return m.Point(loc.Vertex2).Sub(m.Point(loc.Vertex1)), true
	case mesh.OnCornerVertexAmbig, mesh.OnCornerVertexUnambig:
		if e := m.Vertices[loc.Vertex1].ObstacleEdge[0]; e >= 0 {
			return m.Point(e).Sub(p), true
		}
	}
	return r2.Point{X: 1, Y: 0}, false
}
