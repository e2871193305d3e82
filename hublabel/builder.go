// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

package hublabel

import (
	"fmt"
	"math"
	"sort"

	"github.com/2dChan/ehl/geom"
	"github.com/2dChan/ehl/mesh"
	"github.com/2dChan/ehl/visibility"
	"github.com/golang/geo/r2"
)

// Builder derives the pruned label set of mesh regions. It is read-only after
// construction and safe for concurrent use.
type Builder struct {
	m      *mesh.Mesh
	order  []int
	labels Labels
	areas  []visibility.Area
	offset []int
}

// NewBuilder prepares a builder over m. order maps oracle ids to mesh
// vertices, labels are the dead-end filtered labels and areas[i] is the
// visible area of oracle id i.
func NewBuilder(m *mesh.Mesh, order []int, labels Labels, areas []visibility.Area) (*Builder, error) {
	if len(order) != len(labels) || len(order) != len(areas) {
		return nil, fmt.Errorf("NewBuilder: %d order entries, %d label lists and %d areas",
			len(order), len(labels), len(areas))
	}
	offset := make([]int, len(labels)+1)
	for i, a := range areas {
		if order[i] < 0 || order[i] >= len(m.Vertices) {
			return nil, fmt.Errorf("NewBuilder: order entry %d = %d out of range [0 %d)", i, order[i], len(m.Vertices))
		}
		if a.Vertex != order[i] {
			return nil, fmt.Errorf("NewBuilder: area %d belongs to vertex %d, want %d", i, a.Vertex, order[i])
		}
		offset[i+1] = offset[i] + len(labels[i])
	}
	if offset[len(labels)] > math.MaxUint32 {
		return nil, fmt.Errorf("NewBuilder: %d labels overflow uint32 ids", offset[len(labels)])
	}
	return &Builder{m: m, order: order, labels: labels, areas: areas, offset: offset}, nil
}

// NumLabelIDs returns the size of the label id space.
func (b *Builder) NumLabelIDs() int {
	return b.offset[len(b.offset)-1]
}

// LabelID returns the id of entry k of oracle id v.
func (b *Builder) LabelID(v, k int) uint32 {
	return uint32(b.offset[v] + k)
}

// LabelByID returns the owner and entry of a label id.
func (b *Builder) LabelByID(id uint32) (int, Label) {
	v := sort.Search(len(b.labels), func(i int) bool { return b.offset[i+1] > int(id) })
	return v, b.labels[v][int(id)-b.offset[v]]
}

// Region classifies every via vertex against region p, attaches its labels
// and prunes them:
//
//   - a label survives only if its lower bound over the region does not exceed
//     the best upper bound of a fully visible label of the same hub;
//   - a fully visible label is dropped when no region vertex makes the path
//     through its vertex taut;
//   - hubs without labels are removed.
func (b *Builder) Region(p int) RegionLabels {
	m := b.m
	region := m.PolygonPoints(p)
	out := RegionLabels{Region: p}

	byHub := make(map[int][]ConvexVertexLabel)
	bounds := make(map[int][2]float64) // lower and upper bound per label id
	for v := range b.areas {
		cov := b.areas[v].Classify(region)
		if cov == visibility.Hidden {
			continue
		}
		pt := m.Point(b.order[v])
		visible := cov == visibility.Full
		minD, maxD := geom.MinDistance(pt, region), geom.MaxDistance(pt, region)
		if visible {
			out.Fully = append(out.Fully, v)
		}
		for k, l := range b.labels[v] {
			cl := ConvexVertexLabel{
				ID:       b.LabelID(v, k),
				Vertex:   v,
				Distance: l.Distance,
				Visible:  visible,
				Pred:     l.Pred,
			}
			byHub[l.Hub] = append(byHub[l.Hub], cl)
			bounds[int(cl.ID)] = [2]float64{minD + l.Distance, maxD + l.Distance}
		}
	}

	for hub, list := range byHub {
		ub := math.Inf(1)
		for _, cl := range list {
			if cl.Visible {
				ub = math.Min(ub, bounds[int(cl.ID)][1])
			}
		}
		kept := list[:0]
		lb := math.Inf(1)
		for _, cl := range list {
			lo := bounds[int(cl.ID)][0]
			if lo > ub+geom.Eps {
				continue
			}
			if cl.Visible && cl.Vertex != hub && !b.tautFromRegion(region, cl) {
				continue
			}
			kept = append(kept, cl)
			lb = math.Min(lb, lo)
		}
		if len(kept) == 0 {
			continue
		}
		sort.Slice(kept, func(i, j int) bool { return kept[i].ID < kept[j].ID })
		out.Hubs = append(out.Hubs, HubLabel{Hub: hub, Labels: kept, MinLowerBound: lb})
	}
	sort.Slice(out.Hubs, func(i, j int) bool { return out.Hubs[i].Hub < out.Hubs[j].Hub })
	return out
}

// tautFromRegion reports whether some region vertex x makes the path
// x -> label vertex -> predecessor taut.
func (b *Builder) tautFromRegion(region []r2.Point, cl ConvexVertexLabel) bool {
	v := b.order[cl.Vertex]
	pred := b.m.Point(b.order[cl.Pred])
	for _, x := range region {
		if Taut(b.m, x, v, pred) {
			return true
		}
	}
	return false
}
