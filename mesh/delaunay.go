// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

package mesh

import (
	"errors"
	"fmt"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/markus-wa/quickhull-go/v2"
)

const (
	defaultEps = 1e-12
)

type DelaunayOptions struct {
	Eps float64
}

type DelaunayOption func(*DelaunayOptions) error

func WithEps(eps float64) DelaunayOption {
	return func(o *DelaunayOptions) error {
		if eps <= 0 {
			return fmt.Errorf("WithEps: eps must be positive, got %v", eps)
		}
		o.Eps = eps
		return nil
	}
}

// NewDelaunayMesh triangulates points and returns the triangles as a mesh
// whose only obstacle is the convex hull boundary. The triangulation is the
// lower hull of the points lifted onto the paraboloid z = x^2 + y^2.
func NewDelaunayMesh(points []r2.Point, setters ...DelaunayOption) (*Mesh, error) {
	opts := DelaunayOptions{
		Eps: defaultEps,
	}
	for _, set := range setters {
		if err := set(&opts); err != nil {
			return nil, err
		}
	}

	numVertices := len(points)
	if numVertices < 4 {
		return nil,
			errors.New("mesh: insufficient vertices for triangulation (minimum 4 required)")
	}

	lifted := make([]r3.Vector, numVertices)
	var centroid r3.Vector
	for i, p := range points {
		lifted[i] = r3.Vector{X: p.X, Y: p.Y, Z: p.X*p.X + p.Y*p.Y}
		centroid = centroid.Add(lifted[i])
	}
	centroid = centroid.Mul(1 / float64(numVertices))

	qh := new(quickhull.QuickHull)
	ch := qh.ConvexHull(lifted, true, true, opts.Eps)
	if len(ch.Indices) == 0 || len(ch.Indices)%3 != 0 {
		return nil, errors.New("mesh: inconsistent number of indices returned from QuickHull")
	}

	var triangles [][]int
	for i := 0; i < len(ch.Indices); i += 3 {
		t := [3]int{ch.Indices[i], ch.Indices[i+1], ch.Indices[i+2]}
		p0, p1, p2 := lifted[t[0]], lifted[t[1]], lifted[t[2]]
		norm := p1.Sub(p0).Cross(p2.Sub(p0))
		if norm.Dot(centroid.Sub(p0)) > 0 {
			norm = norm.Mul(-1)
		}
		// Only faces seen from below belong to the triangulation.
		if norm.Z >= -opts.Eps*norm.Norm() {
			continue
		}
		sortTriangleVerticesCCW(&t, points)
		triangles = append(triangles, t[:])
	}
	if len(triangles) == 0 {
		return nil, errors.New("mesh: degenerate input, no lower hull faces")
	}
	return FromPolygons(points, triangles)
}

func sortTriangleVerticesCCW(t *[3]int, v []r2.Point) {
	p0, p1, p2 := v[t[0]], v[t[1]], v[t[2]]
	if p1.Sub(p0).Cross(p2.Sub(p0)) < 0 {
		t[1], t[2] = t[2], t[1]
	}
}
