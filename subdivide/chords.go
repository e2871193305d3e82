// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

package subdivide

import (
	"context"
	"math"
	"sort"

	"github.com/2dChan/ehl/geom"
	"github.com/2dChan/ehl/internal/parallel"
	"github.com/2dChan/ehl/mesh"
	"github.com/2dChan/ehl/visibility"
	"github.com/golang/geo/r2"
)

// angleEps is the tolerance under which two directions are the same.
const angleEps = 1e-12

type event struct {
	angle float64
	dist  float64
	to    int
}

// findAngle returns the target of the event at angle, or -1.
func findAngle(events []event, angle float64) int {
	i := sort.Search(len(events), func(i int) bool { return events[i].angle > angle-angleEps })
	for ; i < len(events) && events[i].angle < angle+angleEps; i++ {
		if math.Abs(events[i].angle-angle) < angleEps {
			return events[i].to
		}
	}
	return -1
}

// GenerateChords returns the chords along which the via labels of regions
// change: for every vertex i of verts and every vertex j it sees, the line
// through i and j beyond j up to the first obstacle. Collinear chains of
// vertices produce a single chord covering the whole chain. verts holds
// turning vertices and concave corners; rays stop at concave corners.
func GenerateChords(ctx context.Context, s *visibility.Searcher, verts []int, workers int, progress parallel.Progress) ([]Chord, error) {
	m := s.Mesh()
	index := make(map[int]int, len(verts))
	for i, v := range verts {
		index[v] = i
	}

	events, err := parallel.Map(ctx, len(verts), workers, nil, func(_ context.Context, i int) ([]event, error) {
		v := verts[i]
		from := m.Point(v)
		var out []event
		for _, w := range s.VisibleVertices(from, m.VertexLocation(v)) {
			j, ok := index[w]
			if !ok || j == i {
				continue
			}
			d := m.Point(w).Sub(from)
			out = append(out, event{angle: geom.Angle(d), dist: d.Norm(), to: j})
		}
		sort.Slice(out, func(a, b int) bool {
			if math.Abs(out[a].angle-out[b].angle) < angleEps {
				return out[a].dist < out[b].dist
			}
			return out[a].angle < out[b].angle
		})
		return out, nil
	})
	if err != nil {
		return nil, err
	}

	concave := func(j int) bool { return !m.Vertices[verts[j]].IsTurning }
	// cast returns where the ray from i through j stops.
	cast := func(i, j int) r2.Point {
		if concave(j) {
			return m.Point(verts[j])
		}
		v := verts[i]
		return s.CastThrough(m.Point(v), m.Point(verts[j]), m.VertexLocation(v))
	}

	perVertex, err := parallel.Map(ctx, len(verts), workers, progress, func(_ context.Context, i int) ([]Chord, error) {
		var out []Chord
		last := math.Inf(-1)
		for _, ev := range events[i] {
			if math.Abs(ev.angle-last) < angleEps {
				continue
			}
			last = ev.angle
			// Only the far end of a collinear chain emits the chord.
			if findAngle(events[ev.to], ev.angle) >= 0 {
				continue
			}
			opp := ev.angle - math.Pi
			if opp < 0 {
				opp += 2 * math.Pi
			}
			end, steps := i, 0
			for steps <= len(verts) {
				k := findAngle(events[end], opp)
				if k < 0 {
					break
				}
				end = k
				steps++
			}

			hit := cast(i, ev.to)
			if steps > 0 {
				if ev.angle >= math.Pi {
					continue
				}
				out = append(out, Chord{From: hit, To: cast(i, end)})
				continue
			}
			if hit.Sub(m.Point(verts[ev.to])).Norm() <= geom.Eps {
				continue
			}
			out = append(out, Chord{From: m.Point(verts[ev.to]), To: hit})
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}
	var chords []Chord
	for _, cs := range perVertex {
		chords = append(chords, cs...)
	}
	return chords, nil
}

// AssignChords returns, for every polygon of m, the indices of the chords
// that cross it in a single non-degenerate piece.
func AssignChords(ctx context.Context, m *mesh.Mesh, chords []Chord, workers int, progress parallel.Progress) ([][]int, error) {
	return parallel.Map(ctx, len(m.Polygons), workers, progress, func(_ context.Context, p int) ([]int, error) {
		pts := m.PolygonPoints(p)
		bounds := m.Polygons[p].Bounds
		var out []int
		for j, c := range chords {
			if !r2.RectFromPoints(c.From, c.To).Intersects(bounds) {
				continue
			}
			if a, b, ok := geom.ClipSegmentConvex(c.From, c.To, pts); ok && a != b {
				out = append(out, j)
			}
		}
		return out, nil
	})
}

// EstimateRegions estimates the number of regions of the arrangement of
// chords: one plus the chord count plus the number of proper crossings.
// Collinear overlaps count negatively.
func EstimateRegions(ctx context.Context, chords []Chord, workers int) (int, error) {
	counts, err := parallel.Map(ctx, len(chords), workers, nil, func(_ context.Context, i int) (int, error) {
		a := chords[i]
		cnt := 0
		for _, b := range chords[i+1:] {
			if !geom.SegmentsIntersect(a.From, a.To, b.From, b.To) {
				continue
			}
			ip, ok := geom.LineIntersection(a.From, a.To, b.From, b.To)
			switch {
			case !ok:
				cnt--
			case ip != a.From && ip != a.To && ip != b.From && ip != b.To:
				cnt++
			}
		}
		return cnt, nil
	})
	if err != nil {
		return 0, err
	}
	total := len(chords) + 1
	for _, c := range counts {
		total += c
	}
	return total, nil
}
