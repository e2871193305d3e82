// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

package render_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/2dChan/ehl/internal/meshtest"
	"github.com/2dChan/ehl/render"
	"github.com/2dChan/ehl/visibility"
	"github.com/golang/geo/r2"
)

func TestNew_Invalid(t *testing.T) {
	if _, err := render.New(&bytes.Buffer{}, r2.EmptyRect(), 100); err == nil {
		t.Errorf("New(empty rect) error = nil, want non-nil")
	}
	rect := r2.RectFromPoints(r2.Point{}, r2.Point{X: 1, Y: 1})
	if _, err := render.New(&bytes.Buffer{}, rect, 10); err == nil {
		t.Errorf("New(width 10) error = nil, want non-nil")
	}
}

func TestCanvas_ToScreen(t *testing.T) {
	rect := r2.RectFromPoints(r2.Point{X: 0, Y: 0}, r2.Point{X: 10, Y: 5})
	c, err := render.New(&bytes.Buffer{}, rect, 120)
	if err != nil {
		t.Fatalf("New(...) error = %v, want nil", err)
	}
	if w, h := c.Size(); w != 120 || h != 70 {
		t.Errorf("Size() = %v, %v, want 120, 70", w, h)
	}
	tests := []struct {
		p      r2.Point
		wx, wy int
	}{
		{r2.Point{X: 0, Y: 5}, 10, 10},
		{r2.Point{X: 0, Y: 0}, 10, 60},
		{r2.Point{X: 10, Y: 0}, 110, 60},
		{r2.Point{X: 5, Y: 2.5}, 60, 35},
	}
	for _, tt := range tests {
		if x, y := c.ToScreen(tt.p); x != tt.wx || y != tt.wy {
			t.Errorf("ToScreen(%v) = %v, %v, want %v, %v", tt.p, x, y, tt.wx, tt.wy)
		}
	}
}

func TestCanvas_Document(t *testing.T) {
	m := meshtest.Box(t)
	s := visibility.NewSearcher(m)
	area, err := s.VisibleArea(m.TurningVertices()[0])
	if err != nil {
		t.Fatalf("VisibleArea(...) error = %v, want nil", err)
	}

	var buf bytes.Buffer
	c, err := render.New(&buf, m.Bounds(), 400)
	if err != nil {
		t.Fatalf("New(...) error = %v, want nil", err)
	}
	c.Mesh(m, render.PolygonStyle)
	c.Area(area, render.LoopStyle)
	c.Vertices(m, m.TurningVertices(), 3, render.TurningStyle)
	c.Path([]r2.Point{{X: 1, Y: 5}, {X: 4, Y: 6}, {X: 9, Y: 5}}, render.PathStyle)
	c.End()

	out := buf.String()
	if !strings.HasPrefix(out, "<?xml") || !strings.HasSuffix(strings.TrimSpace(out), "</svg>") {
		t.Errorf("document is not a complete SVG:\n%s", out)
	}
	if got, want := strings.Count(out, "<polygon"), m.NumPolygons()+2; got != want {
		t.Errorf("document has %d polygons, want %d", got, want)
	}
	if got, want := strings.Count(out, "<circle"), len(m.TurningVertices())+2; got != want {
		t.Errorf("document has %d circles, want %d", got, want)
	}
	if got := strings.Count(out, "<polyline"); got != 1 {
		t.Errorf("document has %d polylines, want 1", got)
	}
}
