// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

package geom

import (
	"math"
	"testing"

	"github.com/golang/geo/r2"
	"github.com/google/go-cmp/cmp"
)

// Predicates

func TestOrient(t *testing.T) {
	tests := []struct {
		name    string
		a, b, c r2.Point
		want    Orientation
	}{
		{"left turn", r2.Point{X: 0, Y: 0}, r2.Point{X: 1, Y: 0}, r2.Point{X: 1, Y: 1}, CCW},
		{"right turn", r2.Point{X: 0, Y: 0}, r2.Point{X: 1, Y: 0}, r2.Point{X: 1, Y: -1}, CW},
		{"straight", r2.Point{X: 0, Y: 0}, r2.Point{X: 1, Y: 1}, r2.Point{X: 2, Y: 2}, Collinear},
		{"below eps", r2.Point{X: 0, Y: 0}, r2.Point{X: 1, Y: 0}, r2.Point{X: 2, Y: 1e-10}, Collinear},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Orient(tt.a, tt.b, tt.c); got != tt.want {
				t.Errorf("Orient(%v, %v, %v) = %v, want %v", tt.a, tt.b, tt.c, got, tt.want)
			}
		})
	}
}

func TestSegmentsIntersect(t *testing.T) {
	tests := []struct {
		name           string
		p1, p2, p3, p4 r2.Point
		want           bool
	}{
		{"cross", r2.Point{X: 0, Y: 0}, r2.Point{X: 2, Y: 2}, r2.Point{X: 0, Y: 2}, r2.Point{X: 2, Y: 0}, true},
		{"disjoint", r2.Point{X: 0, Y: 0}, r2.Point{X: 1, Y: 0}, r2.Point{X: 0, Y: 1}, r2.Point{X: 1, Y: 1}, false},
		{"touch endpoint", r2.Point{X: 0, Y: 0}, r2.Point{X: 1, Y: 1}, r2.Point{X: 1, Y: 1}, r2.Point{X: 2, Y: 0}, true},
		{"collinear overlap", r2.Point{X: 0, Y: 0}, r2.Point{X: 2, Y: 0}, r2.Point{X: 1, Y: 0}, r2.Point{X: 3, Y: 0}, true},
		{"collinear apart", r2.Point{X: 0, Y: 0}, r2.Point{X: 1, Y: 0}, r2.Point{X: 2, Y: 0}, r2.Point{X: 3, Y: 0}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SegmentsIntersect(tt.p1, tt.p2, tt.p3, tt.p4); got != tt.want {
				t.Errorf("SegmentsIntersect(...) = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLineIntersection(t *testing.T) {
	got, ok := LineIntersection(r2.Point{X: 0, Y: 0}, r2.Point{X: 10, Y: 10}, r2.Point{X: 10, Y: 0}, r2.Point{X: 10, Y: 10})
	if !ok {
		t.Fatalf("LineIntersection(...) ok = false, want true")
	}
	if want := (r2.Point{X: 10, Y: 10}); got != want {
		t.Errorf("LineIntersection(...) = %v, want %v", got, want)
	}

	if _, ok := LineIntersection(r2.Point{X: 0, Y: 0}, r2.Point{X: 1, Y: 0}, r2.Point{X: 0, Y: 1}, r2.Point{X: 1, Y: 1}); ok {
		t.Errorf("LineIntersection(parallel) ok = true, want false")
	}
}

func TestOnSegmentApprox(t *testing.T) {
	a, b := r2.Point{X: 0, Y: 0}, r2.Point{X: 10, Y: 0}
	tests := []struct {
		p    r2.Point
		want bool
	}{
		{r2.Point{X: 5, Y: 0}, true},
		{r2.Point{X: 5, Y: 1e-10}, true},
		{r2.Point{X: 5, Y: 1e-3}, false},
		{r2.Point{X: 11, Y: 0}, false},
		{r2.Point{X: 10, Y: 0}, true},
	}
	for _, tt := range tests {
		if got := OnSegmentApprox(a, tt.p, b); got != tt.want {
			t.Errorf("OnSegmentApprox(%v, %v, %v) = %v, want %v", a, tt.p, b, got, tt.want)
		}
	}
}

func TestCCWAngle(t *testing.T) {
	tests := []struct {
		from, to r2.Point
		want     float64
	}{
		{r2.Point{X: 1, Y: 0}, r2.Point{X: 0, Y: 1}, math.Pi / 2},
		{r2.Point{X: 1, Y: 0}, r2.Point{X: 0, Y: -1}, 3 * math.Pi / 2},
		{r2.Point{X: 0, Y: 1}, r2.Point{X: 0, Y: 1}, 0},
	}
	for _, tt := range tests {
		if got := CCWAngle(tt.from, tt.to); math.Abs(got-tt.want) > 1e-12 {
			t.Errorf("CCWAngle(%v, %v) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

// Polygons

func TestArea(t *testing.T) {
	square := mustSquare(0, 0, 10)
	if got := SignedArea(square); got != 100 {
		t.Errorf("SignedArea(square) = %v, want 100", got)
	}
	rev := []r2.Point{square[3], square[2], square[1], square[0]}
	if got := SignedArea(rev); got != -100 {
		t.Errorf("SignedArea(reversed) = %v, want -100", got)
	}
	if got := Area(rev); got != 100 {
		t.Errorf("Area(reversed) = %v, want 100", got)
	}
	if got := Perimeter(square); got != 40 {
		t.Errorf("Perimeter(square) = %v, want 40", got)
	}
}

func TestIsConvex(t *testing.T) {
	if !IsConvex(mustSquare(0, 0, 1)) {
		t.Errorf("IsConvex(square) = false, want true")
	}
	dart := []r2.Point{{X: 0, Y: 0}, {X: 4, Y: 2}, {X: 0, Y: 4}, {X: 1, Y: 2}}
	if IsConvex(dart) {
		t.Errorf("IsConvex(dart) = true, want false")
	}
}

func TestPointInPolygon(t *testing.T) {
	square := mustSquare(0, 0, 10)
	tests := []struct {
		name       string
		p          r2.Point
		wantInside bool
		wantOn     bool
	}{
		{"center", r2.Point{X: 5, Y: 5}, true, false},
		{"outside", r2.Point{X: 11, Y: 5}, false, false},
		{"edge", r2.Point{X: 10, Y: 5}, false, true},
		{"corner", r2.Point{X: 0, Y: 0}, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in, on := PointInPolygon(tt.p, square)
			if in != tt.wantInside || on != tt.wantOn {
				t.Errorf("PointInPolygon(%v) = (%v, %v), want (%v, %v)", tt.p, in, on, tt.wantInside, tt.wantOn)
			}
		})
	}
}

func TestMinMaxDistance(t *testing.T) {
	square := mustSquare(0, 0, 10)
	tests := []struct {
		name    string
		p       r2.Point
		wantMin float64
		wantMax float64
	}{
		{"inside", r2.Point{X: 5, Y: 5}, 0, math.Sqrt(50)},
		{"right", r2.Point{X: 13, Y: 5}, 3, math.Sqrt(13*13 + 25)},
		{"corner", r2.Point{X: 13, Y: 14}, 5, math.Sqrt(13*13 + 14*14)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MinDistance(tt.p, square); math.Abs(got-tt.wantMin) > 1e-12 {
				t.Errorf("MinDistance(%v) = %v, want %v", tt.p, got, tt.wantMin)
			}
			if got := MaxDistance(tt.p, square); math.Abs(got-tt.wantMax) > 1e-12 {
				t.Errorf("MaxDistance(%v) = %v, want %v", tt.p, got, tt.wantMax)
			}
		})
	}
}

func TestClipSegmentConvex(t *testing.T) {
	square := mustSquare(0, 0, 10)
	a, b, ok := ClipSegmentConvex(r2.Point{X: -5, Y: 5}, r2.Point{X: 15, Y: 5}, square)
	if !ok {
		t.Fatalf("ClipSegmentConvex(...) ok = false, want true")
	}
	want := []r2.Point{{X: 0, Y: 5}, {X: 10, Y: 5}}
	if diff := cmp.Diff(want, []r2.Point{a, b}); diff != "" {
		t.Errorf("ClipSegmentConvex(...) mismatch (-want +got):\n%s", diff)
	}

	if _, _, ok := ClipSegmentConvex(r2.Point{X: -5, Y: 15}, r2.Point{X: 15, Y: 15}, square); ok {
		t.Errorf("ClipSegmentConvex(outside) ok = true, want false")
	}
}

func TestCoveredByAndOverlaps(t *testing.T) {
	outer := mustSquare(0, 0, 10)
	inner := mustSquare(2, 2, 3)
	apart := mustSquare(20, 20, 3)
	straddle := mustSquare(8, 8, 5)
	notch := []r2.Point{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10}, {X: 3, Y: 3}, {X: 0, Y: 10}}

	tests := []struct {
		name        string
		a, b        []r2.Point
		wantCovered bool
		wantOverlap bool
	}{
		{"inner", inner, outer, true, true},
		{"apart", apart, outer, false, false},
		{"straddle", straddle, outer, false, true},
		{"same", outer, outer, true, true},
		{"notched outer", mustSquare(1, 1, 4), notch, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CoveredBy(tt.a, tt.b); got != tt.wantCovered {
				t.Errorf("CoveredBy(...) = %v, want %v", got, tt.wantCovered)
			}
			if got := Overlaps(tt.a, tt.b); got != tt.wantOverlap {
				t.Errorf("Overlaps(...) = %v, want %v", got, tt.wantOverlap)
			}
		})
	}
}

func TestErode(t *testing.T) {
	square := mustSquare(0, 0, 10)
	got := Erode(square, 0.5)
	for i, p := range got {
		if d := p.Sub(square[i]).Norm(); math.Abs(d-0.5) > 1e-12 {
			t.Errorf("Erode(...)[%d] moved by %v, want 0.5", i, d)
		}
		if in, _ := PointInPolygon(p, square); !in {
			t.Errorf("Erode(...)[%d] = %v is not inside the square", i, p)
		}
	}
}

// Helpers

func mustSquare(x, y, side float64) []r2.Point {
	return []r2.Point{
		{X: x, Y: y},
		{X: x + side, Y: y},
		{X: x + side, Y: y + side},
		{X: x, Y: y + side},
	}
}
