// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

package mesh

import (
	"math"

	"github.com/dhconnelly/rtreego"
	"github.com/golang/geo/r2"
)

const (
	locateEps = 1e-8

	// R-tree fan-out, 2D.
	rtreeMinChildren = 25
	rtreeMaxChildren = 50
)

type LocationKind int

const (
	NotOnMesh LocationKind = iota
	InPolygon
	OnMeshBorder
	OnEdge
	OnCornerVertexAmbig
	OnCornerVertexUnambig
	OnNonCornerVertex
)

func (k LocationKind) String() string {
	switch k {
	case InPolygon:
		return "InPolygon"
	case OnMeshBorder:
		return "OnMeshBorder"
	case OnEdge:
		return "OnEdge"
	case OnCornerVertexAmbig:
		return "OnCornerVertexAmbig"
	case OnCornerVertexUnambig:
		return "OnCornerVertexUnambig"
	case OnNonCornerVertex:
		return "OnNonCornerVertex"
	}
	return "NotOnMesh"
}

// Location describes where a point falls on the mesh. Poly1 is always a
// polygon containing the point when the point is on the mesh. Poly2 is the
// other polygon of an OnEdge location. Vertex1 is the vertex of a vertex
// location, Vertex1 and Vertex2 are the edge endpoints of edge locations.
type Location struct {
	Kind    LocationKind
	Poly1   int
	Poly2   int
	Vertex1 int
	Vertex2 int
}

func (l Location) IsVertex() bool {
	return l.Kind == OnCornerVertexAmbig || l.Kind == OnCornerVertexUnambig || l.Kind == OnNonCornerVertex
}

type polygonEntry struct {
	id   int
	bbox rtreego.Rect
}

// Bounds implements rtreego.Spatial.
func (e *polygonEntry) Bounds() rtreego.Rect {
	return e.bbox
}

// Locator answers point-location queries against a mesh. It is read-only after
// construction and safe for concurrent use.
type Locator struct {
	m    *Mesh
	tree *rtreego.Rtree
}

// NewLocator indexes the bounding boxes of every polygon of m. The mesh must
// not be mutated while the locator is in use.
func NewLocator(m *Mesh) *Locator {
	tree := rtreego.NewTree(2, rtreeMinChildren, rtreeMaxChildren)
	for i := range m.Polygons {
		b := m.Polygons[i].Bounds
		bbox, err := rtreego.NewRect(
			rtreego.Point{b.X.Lo - locateEps, b.Y.Lo - locateEps},
			[]float64{b.X.Length() + 2*locateEps, b.Y.Length() + 2*locateEps},
		)
		if err != nil {
			continue
		}
		tree.Insert(&polygonEntry{id: i, bbox: bbox})
	}
	return &Locator{m: m, tree: tree}
}

// Locate finds the feature of the mesh containing p.
func (l *Locator) Locate(p r2.Point) Location {
	results := l.tree.SearchIntersect(rtreego.Point{p.X, p.Y}.ToRect(locateEps))
	best := Location{Kind: NotOnMesh, Poly1: -1, Poly2: -1, Vertex1: -1, Vertex2: -1}
	for _, item := range results {
		id := item.(*polygonEntry).id
		loc, ok := l.locateIn(p, id)
		if !ok {
			continue
		}
		// Results come back in tree order; prefer the lowest polygon id so
		// locations are deterministic.
		if best.Kind == NotOnMesh || loc.Poly1 < best.Poly1 {
			best = loc
		}
	}
	return best
}

func (l *Locator) locateIn(p r2.Point, id int) (Location, bool) {
	m := l.m
	poly := &m.Polygons[id]
	n := len(poly.Vertices)
	onEdge := -1
	for i := range n {
		a := m.Vertices[poly.Vertices[i]].P
		b := m.Vertices[poly.Vertices[(i+1)%n]].P
		e := b.Sub(a)
		length := e.Norm()
		if length == 0 {
			continue
		}
		d := e.Cross(p.Sub(a)) / length
		if d < -locateEps {
			return Location{}, false
		}
		if math.Abs(d) <= locateEps && onEdge < 0 {
			onEdge = i
		}
	}

	for _, v := range poly.Vertices {
		if m.Vertices[v].P.Sub(p).Norm() <= locateEps {
			vert := &m.Vertices[v]
			kind := OnNonCornerVertex
			switch {
			case vert.IsCorner && vert.IsAmbig:
				kind = OnCornerVertexAmbig
			case vert.IsCorner:
				kind = OnCornerVertexUnambig
			}
			return Location{Kind: kind, Poly1: id, Poly2: -1, Vertex1: v, Vertex2: -1}, true
		}
	}
	if onEdge >= 0 {
		loc := Location{
			Kind:    OnEdge,
			Poly1:   id,
			Poly2:   poly.Neighbors[onEdge],
			Vertex1: poly.Vertices[onEdge],
			Vertex2: poly.Vertices[(onEdge+1)%n],
		}
		if loc.Poly2 == -1 {
			loc.Kind = OnMeshBorder
		}
		return loc, true
	}
	return Location{Kind: InPolygon, Poly1: id, Poly2: -1, Vertex1: -1, Vertex2: -1}, true
}

// LocationPolygons returns the polygons a ray leaving the located point may start in.
func (m *Mesh) LocationPolygons(loc Location) []int {
	switch loc.Kind {
	case InPolygon, OnMeshBorder:
		return []int{loc.Poly1}
	case OnEdge:
		return []int{loc.Poly1, loc.Poly2}
	case OnCornerVertexAmbig, OnCornerVertexUnambig, OnNonCornerVertex:
		return m.IncidentPolygons(loc.Vertex1)
	}
	return nil
}

// VertexLocation returns the location of mesh vertex v.
func (m *Mesh) VertexLocation(v int) Location {
	vert := &m.Vertices[v]
	kind := OnNonCornerVertex
	switch {
	case vert.IsCorner && vert.IsAmbig:
		kind = OnCornerVertexAmbig
	case vert.IsCorner:
		kind = OnCornerVertexUnambig
	}
	poly := -1
	if ps := m.IncidentPolygons(v); len(ps) > 0 {
		poly = ps[0]
	}
	return Location{Kind: kind, Poly1: poly, Poly2: -1, Vertex1: v, Vertex2: -1}
}
