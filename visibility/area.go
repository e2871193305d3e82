// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

package visibility

import (
	"errors"
	"fmt"
	"math"

	"github.com/2dChan/ehl/geom"
	"github.com/golang/geo/r2"
)

var (
	ErrNotTurning = errors.New("visibility: vertex is not an unambiguous turning vertex")
)

// erosion shrinks regions before they are classified so that a region
// touching a loop boundary is not reported as crossing it.
const erosion = 1e-8

// angleEps separates boundary points that lie on a loop's bounding ray from
// the ones strictly inside it.
const angleEps = 1e-12

// Area is the free space seen from a turning vertex through which a taut path
// can bend around it. Measuring angles counter-clockwise from the obstacle
// edge that starts free space at the vertex, with phi the free-space angle,
// Loops[0] covers [0, phi-Pi] and Loops[1] covers [Pi, phi]. Both loops are
// star polygons in CCW order whose first point is the vertex.
type Area struct {
	Vertex int
	Loops  [2][]r2.Point
}

// Coverage says how much of a region sees a hub.
type Coverage int

const (
	Hidden Coverage = iota
	Partial
	Full
)

func (c Coverage) String() string {
	switch c {
	case Partial:
		return "Partial"
	case Full:
		return "Full"
	}
	return "Hidden"
}

// Classify reports whether the convex region lies inside one of the loops,
// crosses one, or misses both.
func (a *Area) Classify(region []r2.Point) Coverage {
	eroded := geom.Erode(region, erosion)
	rb := geom.Bounds(eroded)
	cov := Hidden
	for _, loop := range a.Loops {
		if len(loop) < 3 || !geom.Bounds(loop).Intersects(rb) {
			continue
		}
		if geom.CoveredBy(eroded, loop) {
			return Full
		}
		if geom.Overlaps(eroded, loop) {
			cov = Partial
		}
	}
	return cov
}

// VisibleArea computes the two taut loops of turning vertex v.
func (s *Searcher) VisibleArea(v int) (Area, error) {
	m := s.m
	if v < 0 || v >= len(m.Vertices) {
		return Area{}, fmt.Errorf("VisibleArea: index %d out of range [0 %d)", v, len(m.Vertices))
	}
	vert := &m.Vertices[v]
	if !vert.IsTurning || vert.IsAmbig || vert.ObstacleEdge[0] < 0 {
		return Area{}, fmt.Errorf("%w: %d", ErrNotTurning, v)
	}
	apex := vert.P
	loc := m.VertexLocation(v)
	u := m.Point(vert.ObstacleEdge[0]).Sub(apex)
	phi := m.FreeAngle(v)

	chain := s.VisibilityPolygon(apex, loc)
	if len(chain) > 0 && chain[0] == apex {
		chain = chain[1:]
	}
	if len(chain) < 2 {
		return Area{}, fmt.Errorf("VisibleArea: vertex %d sees %d boundary points", v, len(chain))
	}

	rel := func(q r2.Point) float64 {
		a := geom.CCWAngle(u, q.Sub(apex))
		// Points along u come back as a hair under 2*Pi.
		if a > phi+angleEps {
			a -= 2 * math.Pi
		}
		return a
	}
	hit := func(alpha float64) r2.Point {
		switch alpha {
		case 0:
			return chain[0]
		case phi:
			return chain[len(chain)-1]
		}
		sin, cos := math.Sincos(alpha)
		dir := r2.Point{X: u.X*cos - u.Y*sin, Y: u.X*sin + u.Y*cos}
		return s.CastThrough(apex, apex.Add(dir), loc)
	}
	loop := func(a0, a1 float64) []r2.Point {
		out := []r2.Point{apex, hit(a0)}
		for _, q := range chain {
			if a := rel(q); a > a0+angleEps && a < a1-angleEps {
				if out[len(out)-1] != q {
					out = append(out, q)
				}
			}
		}
		if end := hit(a1); out[len(out)-1] != end {
			out = append(out, end)
		}
		return out
	}

	return Area{
		Vertex: v,
		Loops: [2][]r2.Point{
			loop(0, phi-math.Pi),
			loop(math.Pi, phi),
		},
	}, nil
}
