// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

// Package hublabel reads, computes and prunes hub labels over the turning
// vertices of a mesh.
//
// Raw labels are addressed by oracle id: the rank of a turning vertex in the
// labeling order, where rank 0 is the most important hub. An order maps every
// oracle id to its mesh vertex.
package hublabel

import (
	"errors"
	"fmt"
	"sort"
)

var (
	ErrMalformed = errors.New("hublabel: malformed input")
)

// Label is one raw hub label entry of an owner vertex: the shortest path from
// the owner to Hub has length Distance, leaves the owner towards Pred and
// enters Hub from First. For the owner's own entry Hub, Pred and First are
// the owner.
type Label struct {
	Hub      int
	Distance float64
	Pred     int
	First    int
}

// Labels holds the raw labels of every oracle id, each list sorted by hub.
type Labels [][]Label

// Find returns the entry of owner v for hub h.
func (ls Labels) Find(v, h int) (Label, bool) {
	if v < 0 || v >= len(ls) {
		return Label{}, false
	}
	list := ls[v]
	i := sort.Search(len(list), func(i int) bool { return list[i].Hub >= h })
	if i < len(list) && list[i].Hub == h {
		return list[i], true
	}
	return Label{}, false
}

// Query returns the shortest distance between u and v over their common hubs
// and the hub that realizes it, or -1 when they share none.
func (ls Labels) Query(u, v int) (float64, int) {
	a, b := ls[u], ls[v]
	best, hub := -1.0, -1
	for i, j := 0, 0; i < len(a) && j < len(b); {
		switch {
		case a[i].Hub < b[j].Hub:
			i++
		case a[i].Hub > b[j].Hub:
			j++
		default:
			if d := a[i].Distance + b[j].Distance; hub < 0 || d < best {
				best, hub = d, a[i].Hub
			}
			i++
			j++
		}
	}
	return best, hub
}

// Size returns the total number of entries.
func (ls Labels) Size() int {
	n := 0
	for _, l := range ls {
		n += len(l)
	}
	return n
}

// Validate checks that ids are in range and lists are sorted by hub.
func (ls Labels) Validate() error {
	n := len(ls)
	for v, list := range ls {
		for k, l := range list {
			if l.Hub < 0 || l.Hub >= n || l.Pred < 0 || l.Pred >= n || l.First < 0 || l.First >= n {
				return fmt.Errorf("%w: vertex %d label %d references id out of range [0 %d)", ErrMalformed, v, k, n)
			}
			if k > 0 && list[k-1].Hub >= l.Hub {
				return fmt.Errorf("%w: vertex %d labels not sorted by hub", ErrMalformed, v)
			}
			if l.Distance < 0 {
				return fmt.Errorf("%w: vertex %d label %d has negative distance", ErrMalformed, v, k)
			}
		}
	}
	return nil
}

// ConvexVertexLabel is a raw label attached to a region through its owner,
// the via vertex the region reaches the hub through.
type ConvexVertexLabel struct {
	// ID identifies the (owner, hub) entry across all regions.
	ID       uint32
	Vertex   int
	Distance float64
	// Visible is set when every point of the region sees Vertex.
	Visible bool
	Pred    int
}

// HubLabel groups the surviving labels of one hub in a region.
type HubLabel struct {
	Hub           int
	Labels        []ConvexVertexLabel
	MinLowerBound float64
}

// RegionLabels is the pruned label set of one region, sorted by hub.
type RegionLabels struct {
	Region int
	Hubs   []HubLabel
	// Fully lists the via vertices that see the whole region, ascending.
	Fully []int
}

// Find returns the hub label of h by binary search.
func (r *RegionLabels) Find(h int) (*HubLabel, bool) {
	i := sort.Search(len(r.Hubs), func(i int) bool { return r.Hubs[i].Hub >= h })
	if i < len(r.Hubs) && r.Hubs[i].Hub == h {
		return &r.Hubs[i], true
	}
	return nil, false
}

// NumLabels returns the number of convex vertex labels over all hubs.
func (r *RegionLabels) NumLabels() int {
	n := 0
	for i := range r.Hubs {
		n += len(r.Hubs[i].Labels)
	}
	return n
}

// IDs returns the label ids of the region in ascending order.
func (r *RegionLabels) IDs() []uint32 {
	ids := make([]uint32, 0, r.NumLabels())
	for i := range r.Hubs {
		for _, l := range r.Hubs[i].Labels {
			ids = append(ids, l.ID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
