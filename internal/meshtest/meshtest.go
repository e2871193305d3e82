// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

// Package meshtest provides small hand-built meshes shared by tests.
package meshtest

import (
	"context"
	"math"
	"testing"

	"github.com/2dChan/ehl/geom"
	"github.com/2dChan/ehl/mesh"
	"github.com/2dChan/ehl/subdivide"
	"github.com/2dChan/ehl/visibility"
	"github.com/golang/geo/r2"
)

// Square is the empty room [0,10]x[0,10] as a single polygon.
func Square(t testing.TB) *mesh.Mesh {
	t.Helper()
	return mustMesh(t,
		[]r2.Point{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10}, {X: 0, Y: 10}},
		[][]int{{0, 1, 2, 3}},
	)
}

// TwoSquares is [0,20]x[0,10] split into two unit rooms sharing the edge
// x = 10.
func TwoSquares(t testing.TB) *mesh.Mesh {
	t.Helper()
	return mustMesh(t,
		[]r2.Point{
			{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10}, {X: 0, Y: 10},
			{X: 20, Y: 0}, {X: 20, Y: 10},
		},
		[][]int{{0, 1, 2, 3}, {1, 4, 5, 2}},
	)
}

// Mountain is the room [0,10]x[0,10] with the triangular obstacle
// (3,0), (5,5), (7,0) rising from the floor. Vertex 2 at (5,5) is its only
// turning vertex.
func Mountain(t testing.TB) *mesh.Mesh {
	t.Helper()
	return mustMesh(t,
		[]r2.Point{
			{X: 0, Y: 0}, {X: 3, Y: 0}, {X: 5, Y: 5}, {X: 7, Y: 0},
			{X: 10, Y: 0}, {X: 10, Y: 10}, {X: 0, Y: 10},
		},
		[][]int{{0, 1, 2, 6}, {2, 3, 4, 5}, {2, 5, 6}},
	)
}

// Box is the room [0,10]x[0,10] with the square obstacle [4,6]x[4,6] in the
// middle, decomposed into four trapezoids. Vertices 4 to 7 are the turning
// vertices.
func Box(t testing.TB) *mesh.Mesh {
	t.Helper()
	return mustMesh(t,
		[]r2.Point{
			{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10}, {X: 0, Y: 10},
			{X: 4, Y: 4}, {X: 6, Y: 4}, {X: 6, Y: 6}, {X: 4, Y: 6},
		},
		[][]int{{0, 1, 5, 4}, {1, 2, 6, 5}, {2, 3, 7, 6}, {3, 0, 4, 7}},
	)
}

// Subdivided splits the polygons of m in place along the chords of its
// turning and concave vertices, at most extra new regions per polygon.
func Subdivided(t testing.TB, m *mesh.Mesh, extra int) *mesh.Mesh {
	t.Helper()
	ctx := context.Background()
	verts := append(m.TurningVertices(), m.ConcaveVertices()...)
	chords, err := subdivide.GenerateChords(ctx, visibility.NewSearcher(m), verts, 1, nil)
	if err != nil {
		t.Fatalf("subdivide.GenerateChords(...) error = %v, want nil", err)
	}
	if _, err := subdivide.Subdivide(ctx, m, chords, subdivide.Options{
		MaxExtraRegions: extra,
		Seed:            subdivide.DefaultSeed,
		Workers:         1,
	}); err != nil {
		t.Fatalf("subdivide.Subdivide(...) error = %v, want nil", err)
	}
	return m
}

// Coverage returns how the visible area of turning vertex v must classify
// a convex region that has v as one of its vertices. It is derived from
// angles alone: measured from the first obstacle edge of v, the region is
// Full inside [0, phi-Pi] or [Pi, phi], Hidden inside [phi-Pi, Pi] and
// Partial otherwise.
func Coverage(m *mesh.Mesh, v int, region []r2.Point) visibility.Coverage {
	const eps = 1e-9
	apex := m.Point(v)
	u := m.Point(m.Vertices[v].ObstacleEdge[0]).Sub(apex)
	phi := m.FreeAngle(v)
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, q := range region {
		if q.Sub(apex).Norm() <= geom.Eps {
			continue
		}
		a := geom.CCWAngle(u, q.Sub(apex))
		if a > phi+eps {
			a -= 2 * math.Pi
		}
		lo, hi = math.Min(lo, a), math.Max(hi, a)
	}
	switch {
	case hi <= phi-math.Pi+eps || lo >= math.Pi-eps:
		return visibility.Full
	case lo >= phi-math.Pi-eps && hi <= math.Pi+eps:
		return visibility.Hidden
	}
	return visibility.Partial
}

func mustMesh(t testing.TB, points []r2.Point, polygons [][]int) *mesh.Mesh {
	t.Helper()
	m, err := mesh.FromPolygons(points, polygons)
	if err != nil {
		t.Fatalf("mesh.FromPolygons(...) error = %v, want nil", err)
	}
	m.MarkTurningPointsByAngle()
	return m
}
