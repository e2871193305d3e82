// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

// Package render draws meshes, visible areas and query paths as SVG.
package render

import (
	"fmt"
	"io"
	"math"

	"github.com/2dChan/ehl/mesh"
	"github.com/2dChan/ehl/visibility"
	svg "github.com/ajstarks/svgo"
	"github.com/golang/geo/r2"
)

const (
	PolygonStyle  = "fill:rgb(255,255,255);stroke:rgb(170,170,170);stroke-width:1;stroke-opacity:1.0"
	ObstacleStyle = "fill:rgb(60,60,60)"
	TurningStyle  = "fill:rgb(255,0,0)"
	LoopStyle     = "fill:rgb(0,120,255);fill-opacity:0.25;stroke:rgb(0,120,255);stroke-width:1"
	PathStyle     = "fill:none;stroke:rgb(0,160,0);stroke-width:2"
	EndpointStyle = "fill:rgb(0,160,0)"

	margin = 10
)

// Canvas maps mesh coordinates onto an SVG document. The y axis points up in
// mesh space and down on screen.
type Canvas struct {
	svg    *svg.SVG
	bounds r2.Rect
	scale  float64
	width  int
	height int
}

// New starts a document of the given width showing bounds. The height keeps
// the aspect ratio of bounds. Call End to finish the document.
func New(w io.Writer, bounds r2.Rect, width int) (*Canvas, error) {
	if bounds.IsEmpty() || width <= 2*margin {
		return nil, fmt.Errorf("render: cannot draw %v at width %d", bounds, width)
	}
	size := bounds.Size()
	span := math.Max(size.X, size.Y)
	if span == 0 {
		span = 1
	}
	c := &Canvas{
		svg:    svg.New(w),
		bounds: bounds,
		scale:  float64(width-2*margin) / span,
		width:  width,
	}
	c.height = int(math.Ceil(size.Y*c.scale)) + 2*margin
	c.svg.Start(c.width, c.height)
	c.svg.Rect(0, 0, c.width, c.height, ObstacleStyle)
	return c, nil
}

func (c *Canvas) Size() (int, int) {
	return c.width, c.height
}

// ToScreen converts p to pixel coordinates.
func (c *Canvas) ToScreen(p r2.Point) (int, int) {
	x := (p.X-c.bounds.X.Lo)*c.scale + margin
	y := (c.bounds.Y.Hi-p.Y)*c.scale + margin
	return int(math.Round(x)), int(math.Round(y))
}

func (c *Canvas) screen(pts []r2.Point) ([]int, []int) {
	xs := make([]int, len(pts))
	ys := make([]int, len(pts))
	for i, p := range pts {
		xs[i], ys[i] = c.ToScreen(p)
	}
	return xs, ys
}

// Polygon draws a closed polygon.
func (c *Canvas) Polygon(pts []r2.Point, style string) {
	if len(pts) < 3 {
		return
	}
	xs, ys := c.screen(pts)
	c.svg.Polygon(xs, ys, style)
}

// Mesh draws every polygon of m over the obstacle background.
func (c *Canvas) Mesh(m *mesh.Mesh, style string) {
	for p := range m.NumPolygons() {
		c.Polygon(m.PolygonPoints(p), style)
	}
}

// Vertices marks the given vertices of m.
func (c *Canvas) Vertices(m *mesh.Mesh, verts []int, r int, style string) {
	for _, v := range verts {
		x, y := c.ToScreen(m.Point(v))
		c.svg.Circle(x, y, r, style)
	}
}

// Area draws both loops of a visible area.
func (c *Canvas) Area(a visibility.Area, style string) {
	for _, loop := range a.Loops {
		c.Polygon(loop, style)
	}
}

// Path draws a polyline and marks its endpoints.
func (c *Canvas) Path(pts []r2.Point, style string) {
	if len(pts) == 0 {
		return
	}
	xs, ys := c.screen(pts)
	if len(pts) > 1 {
		c.svg.Polyline(xs, ys, style)
	}
	c.svg.Circle(xs[0], ys[0], 4, EndpointStyle)
	c.svg.Circle(xs[len(xs)-1], ys[len(ys)-1], 4, EndpointStyle)
}

// End finishes the document.
func (c *Canvas) End() {
	c.svg.End()
}
