// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

// Package compress merges adjacent regions into a forest whose inner nodes
// store the label ids their subtrees share.
package compress

import (
	"container/heap"
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/RoaringBitmap/roaring/v2"
)

// ErrDepthUnreachable is returned when no merge is left before the requested
// tree depth.
var ErrDepthUnreachable = errors.New("compress: tree depth unreachable")

// Tree is a merge forest. Nodes [0, NumLeaves) are the input regions, the
// rest are created by merges. After Build every node stores only the labels
// its parent does not hold.
type Tree struct {
	NumLeaves int
	// Parent is -1 for roots and ignored leaves.
	Parent   []int
	Children [][]int
	Local    []*roaring.Bitmap
	// Ignored marks leaves without labels. They never take part in merges.
	Ignored []bool
	// Depth is the number of merge passes that created nodes.
	Depth int

	OriginalCost   uint64
	CompressedCost uint64
}

// NumNodes returns the number of leaves and merged nodes.
func (t *Tree) NumNodes() int {
	return len(t.Parent)
}

// CostRatio returns CompressedCost / OriginalCost, or 1 for an empty tree.
func (t *Tree) CostRatio() float64 {
	if t.OriginalCost == 0 {
		return 1
	}
	return float64(t.CompressedCost) / float64(t.OriginalCost)
}

// Chain returns n followed by its ancestors up to the root.
func (t *Tree) Chain(n int) []int {
	var out []int
	for ; n >= 0; n = t.Parent[n] {
		out = append(out, n)
	}
	return out
}

// Labels returns the full label set of n: the union of the local sets on its
// chain.
func (t *Tree) Labels(n int) *roaring.Bitmap {
	out := roaring.New()
	for _, c := range t.Chain(n) {
		out.Or(t.Local[c])
	}
	return out
}

type node struct {
	labels    *roaring.Bitmap
	neighbors map[int]struct{}
	children  []int
	parent    int
	gen       int
}

type builder struct {
	nodes []node
	pq    mergeQueue
	// firstNew is the first node id created in the running pass.
	firstNew int
}

// Build merges the regions described by leaves (label id sets) and
// neighbors (region adjacency) for maxDepth passes. maxDepth 0 disables
// merging and a negative maxDepth merges until no beneficial pair is left.
// The input bitmaps are not modified.
func Build(ctx context.Context, leaves []*roaring.Bitmap, neighbors [][]int, maxDepth int) (*Tree, error) {
	if len(leaves) != len(neighbors) {
		return nil, fmt.Errorf("compress: %d label sets and %d adjacency lists", len(leaves), len(neighbors))
	}
	b := &builder{nodes: make([]node, len(leaves))}
	ignored := make([]bool, len(leaves))
	for i, l := range leaves {
		b.nodes[i] = node{labels: l.Clone(), neighbors: make(map[int]struct{}), parent: -1}
		ignored[i] = l.IsEmpty()
	}
	for i, adj := range neighbors {
		if ignored[i] {
			continue
		}
		for _, j := range adj {
			if j < 0 {
				continue
			}
			if j >= len(leaves) {
				return nil, fmt.Errorf("compress: region %d neighbor %d out of range [0 %d)", i, j, len(leaves))
			}
			if j != i && !ignored[j] {
				b.nodes[i].neighbors[j] = struct{}{}
				b.nodes[j].neighbors[i] = struct{}{}
			}
		}
	}

	depth := 0
	if maxDepth != 0 {
		b.seed(0, len(leaves))
		for maxDepth < 0 || depth < maxDepth {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			start := len(b.nodes)
			if err := b.pass(); err != nil {
				return nil, err
			}
			if len(b.nodes) == start {
				if maxDepth > 0 {
					return nil, fmt.Errorf("%w: stopped at depth %d of %d", ErrDepthUnreachable, depth, maxDepth)
				}
				break
			}
			depth++
			b.seed(start, len(b.nodes))
		}
	}
	return b.finalize(ignored, len(leaves), depth), nil
}

// seed queues every adjacent pair of nodes in [lo, hi). Both nodes of such a
// pair are old in the next pass, so merging them creates a new node.
func (b *builder) seed(lo, hi int) {
	b.pq = b.pq[:0]
	for a := lo; a < hi; a++ {
		if b.nodes[a].parent >= 0 {
			continue
		}
		for x := range b.nodes[a].neighbors {
			if x <= a || x >= hi || b.nodes[x].parent >= 0 {
				continue
			}
			if g := int(b.nodes[a].labels.AndCardinality(b.nodes[x].labels)); g > 0 {
				b.pq = append(b.pq, b.entry(g, a, x))
			}
		}
	}
	heap.Init(&b.pq)
}

func (b *builder) entry(gain, a, x int) mergeEntry {
	return mergeEntry{gain: gain, a: a, b: x, genA: b.nodes[a].gen, genB: b.nodes[x].gen}
}

// pass drains the queue. A pair of old nodes creates a new node, a pair with
// a node created in this pass grows that node.
func (b *builder) pass() error {
	b.firstNew = len(b.nodes)
	for b.pq.Len() > 0 {
		e := heap.Pop(&b.pq).(mergeEntry)
		na, nb := &b.nodes[e.a], &b.nodes[e.b]
		if na.parent >= 0 || nb.parent >= 0 || na.gen != e.genA || nb.gen != e.genB {
			continue
		}
		if na.labels.IsEmpty() || nb.labels.IsEmpty() {
			return fmt.Errorf("compress: merge of empty node %d or %d", e.a, e.b)
		}
		var n int
		if e.b < b.firstNew {
			n = b.create(e.a, e.b)
		} else {
			n = e.b
			b.grow(n, e.a)
		}
		b.push(n)
	}
	return nil
}

func (b *builder) create(x, y int) int {
	n := len(b.nodes)
	b.nodes = append(b.nodes, node{
		labels:    roaring.And(b.nodes[x].labels, b.nodes[y].labels),
		neighbors: make(map[int]struct{}),
		parent:    -1,
	})
	b.adopt(n, x)
	b.adopt(n, y)
	return n
}

func (b *builder) grow(n, x int) {
	b.nodes[n].labels.And(b.nodes[x].labels)
	b.adopt(n, x)
	b.nodes[n].gen++
}

// adopt makes x a child of n and moves the adjacency of x to n.
func (b *builder) adopt(n, x int) {
	nx := &b.nodes[x]
	nx.parent = n
	b.nodes[n].children = append(b.nodes[n].children, x)
	for y := range nx.neighbors {
		delete(b.nodes[y].neighbors, x)
		if y == n || b.nodes[y].parent == n {
			continue
		}
		b.nodes[y].neighbors[n] = struct{}{}
		b.nodes[n].neighbors[y] = struct{}{}
	}
	delete(b.nodes[n].neighbors, x)
	nx.neighbors = nil
}

// push queues the merges of n with its old neighbors that gain labels. The
// gain discounts the labels every direct child of n would have to store again.
func (b *builder) push(n int) {
	nn := &b.nodes[n]
	size := int(nn.labels.GetCardinality())
	for x := range nn.neighbors {
		if x >= b.firstNew || b.nodes[x].parent >= 0 {
			continue
		}
		inter := int(nn.labels.AndCardinality(b.nodes[x].labels))
		if gain := inter - (size-inter)*len(nn.children); gain > 0 {
			heap.Push(&b.pq, b.entry(gain, x, n))
		}
	}
}

func (b *builder) finalize(ignored []bool, leaves, depth int) *Tree {
	t := &Tree{
		NumLeaves: leaves,
		Parent:    make([]int, len(b.nodes)),
		Children:  make([][]int, len(b.nodes)),
		Local:     make([]*roaring.Bitmap, len(b.nodes)),
		Ignored:   ignored,
		Depth:     depth,
	}
	for i := range b.nodes {
		n := &b.nodes[i]
		t.Parent[i] = n.parent
		if len(n.children) > 0 {
			t.Children[i] = append([]int(nil), n.children...)
			sort.Ints(t.Children[i])
		}
		if i < leaves {
			t.OriginalCost += n.labels.GetCardinality()
		}
		if n.parent >= 0 {
			t.Local[i] = roaring.AndNot(n.labels, b.nodes[n.parent].labels)
		} else {
			t.Local[i] = n.labels.Clone()
		}
		t.Local[i].RunOptimize()
		t.CompressedCost += t.Local[i].GetCardinality()
	}
	return t
}

type mergeEntry struct {
	gain       int
	a, b       int
	genA, genB int
}

// mergeQueue is a max-heap on gain, ties by node ids.
type mergeQueue []mergeEntry

func (q mergeQueue) Len() int { return len(q) }
func (q mergeQueue) Less(i, j int) bool {
	if q[i].gain != q[j].gain {
		return q[i].gain > q[j].gain
	}
	if q[i].a != q[j].a {
		return q[i].a < q[j].a
	}
	return q[i].b < q[j].b
}
func (q mergeQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }
func (q *mergeQueue) Push(x any)   { *q = append(*q, x.(mergeEntry)) }
func (q *mergeQueue) Pop() any {
	old := *q
	e := old[len(old)-1]
	*q = old[:len(old)-1]
	return e
}
