// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

// Package geom implements the planar predicates and measures used by the mesh,
// visibility and labeling packages.
//
// Points are compared with exact floating-point equality wherever both sides
// come from the same construction (for example a chord endpoint that was
// snapped to a mesh vertex). That is a known fragility of the algorithms built
// on top, not something this package tries to hide.
package geom

import (
	"math"

	"github.com/golang/geo/r2"
)

const (
	// Eps is the tolerance used by orientation and on-segment tests.
	Eps = 1e-8
)

type Orientation int

const (
	Collinear Orientation = iota
	CCW
	CW
)

func (o Orientation) String() string {
	switch o {
	case CCW:
		return "CCW"
	case CW:
		return "CW"
	}
	return "Collinear"
}

// Orient reports the turn direction of the path a -> b -> c.
func Orient(a, b, c r2.Point) Orientation {
	cross := b.Sub(a).Cross(c.Sub(b))
	switch {
	case math.Abs(cross) < Eps:
		return Collinear
	case cross > 0:
		return CCW
	}
	return CW
}

// OnSegment reports whether q lies inside the bounding box of p-r. It is only
// meaningful for collinear points.
func OnSegment(p, q, r r2.Point) bool {
	return q.X <= math.Max(p.X, r.X) && q.X >= math.Min(p.X, r.X) &&
		q.Y <= math.Max(p.Y, r.Y) && q.Y >= math.Min(p.Y, r.Y)
}

// OnSegmentApprox reports whether p lies on segment p1-p2 within Eps.
func OnSegmentApprox(p1, p, p2 r2.Point) bool {
	if math.Abs(p1.Sub(p).Cross(p2.Sub(p))) > Eps*p2.Sub(p1).Norm() {
		return false
	}
	return p.X <= math.Max(p1.X, p2.X)+Eps && p.X >= math.Min(p1.X, p2.X)-Eps &&
		p.Y <= math.Max(p1.Y, p2.Y)+Eps && p.Y >= math.Min(p1.Y, p2.Y)-Eps
}

// SegmentsIntersect reports whether segments p1-p2 and p3-p4 share a point.
func SegmentsIntersect(p1, p2, p3, p4 r2.Point) bool {
	o1 := Orient(p1, p2, p3)
	o2 := Orient(p1, p2, p4)
	o3 := Orient(p3, p4, p1)
	o4 := Orient(p3, p4, p2)

	if o1 != o2 && o3 != o4 {
		return true
	}
	if o1 == Collinear && OnSegment(p1, p3, p2) {
		return true
	}
	if o2 == Collinear && OnSegment(p1, p4, p2) {
		return true
	}
	if o3 == Collinear && OnSegment(p3, p1, p4) {
		return true
	}
	return o4 == Collinear && OnSegment(p3, p2, p4)
}

// ProperlyIntersect reports whether p1-p2 and p3-p4 cross at a single point
// interior to both segments.
func ProperlyIntersect(p1, p2, p3, p4 r2.Point) bool {
	o1 := Orient(p1, p2, p3)
	o2 := Orient(p1, p2, p4)
	o3 := Orient(p3, p4, p1)
	o4 := Orient(p3, p4, p2)
	return o1 != Collinear && o2 != Collinear && o3 != Collinear && o4 != Collinear &&
		o1 != o2 && o3 != o4
}

// LineIntersection returns the intersection of the infinite lines p1-p2 and
// p3-p4. The second result is false for parallel lines.
func LineIntersection(p1, p2, p3, p4 r2.Point) (r2.Point, bool) {
	a1 := p2.Y - p1.Y
	b1 := p1.X - p2.X
	c1 := a1*p1.X + b1*p1.Y

	a2 := p4.Y - p3.Y
	b2 := p3.X - p4.X
	c2 := a2*p3.X + b2*p3.Y

	det := a1*b2 - a2*b1
	if det == 0 {
		return r2.Point{}, false
	}
	return r2.Point{
		X: (b2*c1 - b1*c2) / det,
		Y: (a1*c2 - a2*c1) / det,
	}, true
}

// CCWAngle returns the counter-clockwise angle in [0, 2*Pi) that rotates
// direction from onto direction to.
func CCWAngle(from, to r2.Point) float64 {
	a := math.Atan2(from.Cross(to), from.Dot(to))
	if a < 0 {
		a += 2 * math.Pi
	}
	return a
}

// Angle returns the direction of v in [0, 2*Pi).
func Angle(v r2.Point) float64 {
	a := math.Atan2(v.Y, v.X)
	if a < 0 {
		a += 2 * math.Pi
	}
	return a
}

// SegmentDistance returns the distance from p to segment a-b.
func SegmentDistance(p, a, b r2.Point) float64 {
	ab := b.Sub(a)
	l2 := ab.Dot(ab)
	if l2 == 0 {
		return p.Sub(a).Norm()
	}
	t := math.Max(0, math.Min(1, p.Sub(a).Dot(ab)/l2))
	return p.Sub(a.Add(ab.Mul(t))).Norm()
}

// Bounds returns the bounding box of pts.
func Bounds(pts []r2.Point) r2.Rect {
	return r2.RectFromPoints(pts...)
}
