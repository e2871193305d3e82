// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

package geom

import (
	"math"

	"github.com/golang/geo/r2"
)

// SignedArea returns the signed area of poly, positive for CCW order.
func SignedArea(poly []r2.Point) float64 {
	n := len(poly)
	if n < 3 {
		return 0
	}
	var s float64
	for i := range n {
		s += poly[i].Cross(poly[(i+1)%n])
	}
	return s / 2
}

// Area returns the absolute area of poly.
func Area(poly []r2.Point) float64 {
	return math.Abs(SignedArea(poly))
}

// Perimeter returns the total boundary length of poly.
func Perimeter(poly []r2.Point) float64 {
	var s float64
	n := len(poly)
	for i := range n {
		s += poly[(i+1)%n].Sub(poly[i]).Norm()
	}
	return s
}

// IsConvex reports whether the CCW polygon poly has no reflex vertex.
// Collinear vertices are allowed.
func IsConvex(poly []r2.Point) bool {
	n := len(poly)
	if n < 3 {
		return false
	}
	for i := range n {
		if Orient(poly[i], poly[(i+1)%n], poly[(i+2)%n]) == CW {
			return false
		}
	}
	return true
}

// Centroid returns the vertex average of poly.
func Centroid(poly []r2.Point) r2.Point {
	var c r2.Point
	for _, p := range poly {
		c = c.Add(p)
	}
	if len(poly) == 0 {
		return c
	}
	return c.Mul(1 / float64(len(poly)))
}

// PointInPolygon reports whether p is strictly inside poly, and whether it lies
// on the boundary within Eps.
func PointInPolygon(p r2.Point, poly []r2.Point) (inside, onBoundary bool) {
	n := len(poly)
	for i := range n {
		if OnSegmentApprox(poly[i], p, poly[(i+1)%n]) {
			return false, true
		}
	}
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		a, b := poly[i], poly[j]
		if (a.Y > p.Y) != (b.Y > p.Y) {
			x := (b.X-a.X)*(p.Y-a.Y)/(b.Y-a.Y) + a.X
			if p.X < x {
				inside = !inside
			}
		}
	}
	return inside, false
}

// MinDistance returns the distance from p to poly, zero when p is inside.
func MinDistance(p r2.Point, poly []r2.Point) float64 {
	inside, onBoundary := PointInPolygon(p, poly)
	if inside || onBoundary {
		return 0
	}
	d := math.Inf(1)
	n := len(poly)
	for i := range n {
		d = math.Min(d, SegmentDistance(p, poly[i], poly[(i+1)%n]))
	}
	return d
}

// MaxDistance returns the distance from p to the farthest vertex of poly.
func MaxDistance(p r2.Point, poly []r2.Point) float64 {
	var d2 float64
	for _, v := range poly {
		q := v.Sub(p)
		d2 = math.Max(d2, q.Dot(q))
	}
	return math.Sqrt(d2)
}

// ClipSegmentConvex clips segment a-b against the convex CCW polygon poly and
// returns the surviving sub-segment. The third result is false when nothing
// survives.
func ClipSegmentConvex(a, b r2.Point, poly []r2.Point) (r2.Point, r2.Point, bool) {
	d := b.Sub(a)
	t0, t1 := 0.0, 1.0
	n := len(poly)
	for i := range n {
		p, q := poly[i], poly[(i+1)%n]
		e := q.Sub(p)
		num := e.Cross(a.Sub(p))
		den := e.Cross(d)
		if den == 0 {
			if num < 0 {
				return r2.Point{}, r2.Point{}, false
			}
			continue
		}
		t := -num / den
		if den > 0 {
			t0 = math.Max(t0, t)
		} else {
			t1 = math.Min(t1, t)
		}
		if t0 > t1 {
			return r2.Point{}, r2.Point{}, false
		}
	}
	return a.Add(d.Mul(t0)), a.Add(d.Mul(t1)), true
}

// Erode moves every vertex of poly towards the centroid by d.
func Erode(poly []r2.Point, d float64) []r2.Point {
	c := Centroid(poly)
	out := make([]r2.Point, len(poly))
	for i, p := range poly {
		v := c.Sub(p)
		l := v.Norm()
		if l <= d {
			out[i] = c
			continue
		}
		out[i] = p.Add(v.Mul(d / l))
	}
	return out
}

// CoveredBy reports whether the simple polygon inner lies within outer,
// boundaries included.
func CoveredBy(inner, outer []r2.Point) bool {
	if len(inner) == 0 || len(outer) < 3 {
		return false
	}
	for _, p := range inner {
		in, on := PointInPolygon(p, outer)
		if !in && !on {
			return false
		}
	}
	if edgesCross(inner, outer) {
		return false
	}
	for _, p := range outer {
		if in, _ := PointInPolygon(p, inner); in {
			return false
		}
	}
	return true
}

// Overlaps reports whether the interiors of the simple polygons a and b
// intersect.
func Overlaps(a, b []r2.Point) bool {
	if len(a) < 3 || len(b) < 3 {
		return false
	}
	if !Bounds(a).Intersects(Bounds(b)) {
		return false
	}
	for _, p := range a {
		if in, _ := PointInPolygon(p, b); in {
			return true
		}
	}
	for _, p := range b {
		if in, _ := PointInPolygon(p, a); in {
			return true
		}
	}
	if edgesCross(a, b) {
		return true
	}
	in, _ := PointInPolygon(Centroid(a), b)
	return in
}

func edgesCross(a, b []r2.Point) bool {
	na, nb := len(a), len(b)
	for i := range na {
		p1, p2 := a[i], a[(i+1)%na]
		for j := range nb {
			if ProperlyIntersect(p1, p2, b[j], b[(j+1)%nb]) {
				return true
			}
		}
	}
	return false
}
