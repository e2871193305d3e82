// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

package hublabel

import (
	"math"

	"github.com/2dChan/ehl/geom"
	"github.com/2dChan/ehl/mesh"
	"github.com/golang/geo/r2"
)

// tautEps is the angular slack of the taut tests. Paths that graze an
// extension line count as taut.
const tautEps = 1e-9

// relAngle returns the direction of p seen from v, measured counter-clockwise
// from the obstacle edge that starts free space at v, and the free angle of v.
func relAngle(m *mesh.Mesh, v int, p r2.Point) (float64, float64) {
	vert := &m.Vertices[v]
	u := m.Point(vert.ObstacleEdge[0]).Sub(vert.P)
	phi := m.FreeAngle(v)
	a := geom.CCWAngle(u, p.Sub(vert.P))
	if a > phi+tautEps {
		a -= 2 * math.Pi
	}
	return a, phi
}

// constrained reports whether v is a corner with a single obstacle wedge,
// the only kind of vertex a path has to bend around.
func constrained(m *mesh.Mesh, v int) bool {
	vert := &m.Vertices[v]
	return vert.IsCorner && !vert.IsAmbig && vert.ObstacleEdge[0] >= 0 && vert.ObstacleEdge[1] >= 0
}

// TautAt reports whether a taut path bending at v can arrive from or leave
// towards p: p lies in one of the two wedges between an obstacle edge of v
// and the extension of the other.
func TautAt(m *mesh.Mesh, v int, p r2.Point) bool {
	if !constrained(m, v) {
		return true
	}
	a, phi := relAngle(m, v, p)
	return a <= phi-math.Pi+tautEps || a >= math.Pi-tautEps
}

// Taut reports whether the path x -> v -> y is locally taut at v: the two
// directions are at least Pi apart on the free side of v.
func Taut(m *mesh.Mesh, x r2.Point, v int, y r2.Point) bool {
	if !constrained(m, v) {
		return true
	}
	a, _ := relAngle(m, v, x)
	b, _ := relAngle(m, v, y)
	return math.Abs(a-b) >= math.Pi-tautEps
}

// IsTurnEdge reports whether the segment u-w can be part of a taut path that
// bends at both ends.
func IsTurnEdge(m *mesh.Mesh, u, w int) bool {
	return TautAt(m, u, m.Point(w)) && TautAt(m, w, m.Point(u))
}

// IsValidTurnEdge is IsTurnEdge, except that edges touching an ambiguous
// vertex are always valid.
func IsValidTurnEdge(m *mesh.Mesh, u, w int) bool {
	if u == w || m.Vertices[u].IsAmbig || m.Vertices[w].IsAmbig {
		return true
	}
	return IsTurnEdge(m, u, w)
}

// FilterDeadEnds drops raw labels whose first or last edge cannot be part of
// a taut path. order maps oracle ids to mesh vertices. It returns the kept
// labels and the number dropped.
func FilterDeadEnds(m *mesh.Mesh, order []int, ls Labels) (Labels, int) {
	out := make(Labels, len(ls))
	dropped := 0
	for v, list := range ls {
		kept := make([]Label, 0, len(list))
		for _, l := range list {
			if l.Hub != v &&
				(!IsValidTurnEdge(m, order[v], order[l.Pred]) || !IsValidTurnEdge(m, order[l.First], order[l.Hub])) {
				dropped++
				continue
			}
			kept = append(kept, l)
		}
		out[v] = kept
	}
	return out, dropped
}
