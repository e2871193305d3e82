// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

package ehl

import (
	"bytes"
	"fmt"
	"io"

	"github.com/2dChan/ehl/hublabel"
	"github.com/2dChan/ehl/mesh"
	"github.com/2dChan/ehl/store"
	"github.com/2dChan/ehl/visibility"
	"github.com/golang/geo/r2"
)

// Section tags of the index payload, in payload order.
const (
	tagMeta    uint32 = 0x4154454d // "META"
	tagMesh    uint32 = 0x4853454d // "MESH"
	tagOrder   uint32 = 0x5244524f // "ORDR"
	tagLabels  uint32 = 0x4c42414c // "LABL"
	tagAreas   uint32 = 0x41455241 // "AREA"
	tagSources uint32 = 0x53435253 // "SRCS"
	tagNodes   uint32 = 0x45444f4e // "NODE"
	tagLeaves  uint32 = 0x4641454c // "LEAF"
)

// WriteTo serializes x into a store container compressed with codec. The
// filtered labels are not stored; ReadIndex derives them again.
func (x *Index) WriteTo(w io.Writer, codec store.Codec) (int64, error) {
	sw := store.NewWriter()

	sw.Section(tagMeta)
	sw.Int(x.Lambda)
	sw.Int(x.Depth)
	sw.Int(x.TreeDepth)
	sw.Uint64(x.OriginalCost)
	sw.Uint64(x.CompressedCost)

	sw.Section(tagMesh)
	var mb bytes.Buffer
	if err := x.Mesh.Write(&mb); err != nil {
		return 0, err
	}
	sw.Text(mb.String())

	sw.Section(tagOrder)
	sw.Ints(x.Order)

	sw.Section(tagLabels)
	sw.Int(len(x.Raw))
	for _, list := range x.Raw {
		sw.Int(len(list))
		for _, l := range list {
			sw.Int(l.Hub)
			sw.Float64(l.Distance)
			sw.Int(l.Pred)
			sw.Int(l.First)
		}
	}

	sw.Section(tagAreas)
	sw.Int(len(x.Areas))
	for _, a := range x.Areas {
		sw.Int(a.Vertex)
		for _, loop := range a.Loops {
			writePoints(sw, loop)
		}
	}

	sw.Section(tagSources)
	sw.Ints(x.Sources)

	sw.Section(tagNodes)
	sw.Int(len(x.Nodes))
	for _, n := range x.Nodes {
		sw.Int(n.Parent)
		sw.Bitmap(n.Local)
	}

	sw.Section(tagLeaves)
	sw.Int(len(x.Leaves))
	for _, l := range x.Leaves {
		sw.Ints(l.Fully)
		sw.Int(len(l.Bounds))
		for _, b := range l.Bounds {
			sw.Int(b.Hub)
			sw.Float64(b.Lower)
		}
	}

	return sw.Flush(w, codec)
}

func writePoints(sw *store.Writer, pts []r2.Point) {
	sw.Int(len(pts))
	for _, p := range pts {
		sw.Float64(p.X)
		sw.Float64(p.Y)
	}
}

// ReadIndex loads an index written by WriteTo.
func ReadIndex(r io.Reader) (*Index, error) {
	payload, _, err := store.Decode(r)
	if err != nil {
		return nil, err
	}
	x, err := decodeIndex(store.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	return x, nil
}

func decodeIndex(sr *store.Reader) (*Index, error) {
	x := &Index{}

	sr.Section(tagMeta)
	x.Lambda = sr.Int()
	x.Depth = sr.Int()
	x.TreeDepth = sr.Int()
	x.OriginalCost = sr.Uint64()
	x.CompressedCost = sr.Uint64()

	sr.Section(tagMesh)
	text := sr.Text()
	if err := sr.Err(); err != nil {
		return nil, err
	}
	m, err := mesh.Read(bytes.NewReader([]byte(text)))
	if err != nil {
		return nil, err
	}
	x.Mesh = m

	sr.Section(tagOrder)
	x.Order = sr.Ints()
	if err := sr.Err(); err != nil {
		return nil, err
	}
	for i, v := range x.Order {
		if v < 0 || v >= m.NumVertices() || !m.Vertices[v].IsCorner {
			return nil, fmt.Errorf("order entry %d: vertex %d is not a corner", i, v)
		}
		m.Vertices[v].IsTurning = true
	}

	sr.Section(tagLabels)
	n := count(sr)
	x.Raw = make(hublabel.Labels, n)
	for v := range x.Raw {
		k := count(sr)
		list := make([]hublabel.Label, k)
		for i := range list {
			list[i] = hublabel.Label{Hub: sr.Int(), Distance: sr.Float64(), Pred: sr.Int(), First: sr.Int()}
		}
		x.Raw[v] = list
	}
	if err := sr.Err(); err != nil {
		return nil, err
	}
	if len(x.Raw) != len(x.Order) {
		return nil, fmt.Errorf("%d label lists for %d turning vertices", len(x.Raw), len(x.Order))
	}
	if err := x.Raw.Validate(); err != nil {
		return nil, err
	}

	sr.Section(tagAreas)
	x.Areas = make([]visibility.Area, count(sr))
	for i := range x.Areas {
		a := &x.Areas[i]
		a.Vertex = sr.Int()
		for k := range a.Loops {
			a.Loops[k] = readPoints(sr)
		}
	}

	sr.Section(tagSources)
	x.Sources = sr.Ints()

	sr.Section(tagNodes)
	x.Nodes = make([]Node, count(sr))
	for i := range x.Nodes {
		x.Nodes[i] = Node{Parent: sr.Int(), Local: sr.Bitmap()}
	}

	sr.Section(tagLeaves)
	x.Leaves = make([]Leaf, count(sr))
	for i := range x.Leaves {
		l := &x.Leaves[i]
		l.Fully = sr.Ints()
		l.Bounds = make([]HubBound, count(sr))
		for j := range l.Bounds {
			l.Bounds[j] = HubBound{Hub: sr.Int(), Lower: sr.Float64()}
		}
	}
	if err := sr.Done(); err != nil {
		return nil, err
	}

	if len(x.Sources) != m.NumPolygons() || len(x.Leaves) != m.NumPolygons() {
		return nil, fmt.Errorf("%d sources and %d leaves for %d regions", len(x.Sources), len(x.Leaves), m.NumPolygons())
	}
	if len(x.Areas) != len(x.Order) {
		return nil, fmt.Errorf("%d areas for %d turning vertices", len(x.Areas), len(x.Order))
	}
	if len(x.Nodes) < len(x.Leaves) {
		return nil, fmt.Errorf("%d nodes for %d regions", len(x.Nodes), len(x.Leaves))
	}
	for i, nd := range x.Nodes {
		if nd.Parent < -1 || nd.Parent == i || nd.Parent >= len(x.Nodes) {
			return nil, fmt.Errorf("node %d: parent %d", i, nd.Parent)
		}
	}
	for i := range x.Nodes {
		steps := 0
		for n := i; n >= 0; n = x.Nodes[n].Parent {
			if steps++; steps > len(x.Nodes) {
				return nil, fmt.Errorf("node %d: parent cycle", i)
			}
		}
	}
	x.Labels, _ = hublabel.FilterDeadEnds(m, x.Order, x.Raw)
	return x, nil
}

// count reads a length and caps it by the remaining payload so that a
// corrupted length cannot trigger a huge allocation.
func count(sr *store.Reader) int {
	n := sr.Int()
	if n < 0 || n > sr.Remaining() {
		sr.Fail(fmt.Errorf("%w: count %d", store.ErrTruncated, n))
		return 0
	}
	return n
}

func readPoints(sr *store.Reader) []r2.Point {
	n := count(sr)
	if n == 0 {
		return nil
	}
	pts := make([]r2.Point, n)
	for i := range pts {
		pts[i] = r2.Point{X: sr.Float64(), Y: sr.Float64()}
	}
	return pts
}
