// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

package hublabel

import (
	"container/heap"
	"context"
	"math"
	"sort"

	"github.com/2dChan/ehl/visibility"
)

// Compute builds a pruned landmark labeling of the undirected weighted graph
// g. Nodes are ranked by decreasing degree, ties by index. It returns the
// labels in oracle ids and the order mapping every oracle id to its node in g.
func Compute(ctx context.Context, g [][]visibility.Edge) (Labels, []int, error) {
	n := len(g)
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return len(g[order[i]]) > len(g[order[j]])
	})
	rank := make([]int, n)
	for r, v := range order {
		rank[v] = r
	}

	ls := make(Labels, n)
	dist := make([]float64, n)
	parent := make([]int, n)
	first := make([]int, n)
	for i := range dist {
		dist[i] = math.Inf(1)
	}
	var touched []int
	for h := range n {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		touched = touched[:0]
		dist[h], parent[h], first[h] = 0, h, h
		touched = append(touched, h)
		pq := &nodeQueue{{node: h}}
		for pq.Len() > 0 {
			it := heap.Pop(pq).(nodeItem)
			u := it.node
			if it.dist > dist[u] {
				continue
			}
			if d, hub := ls.Query(h, u); hub >= 0 && d <= it.dist {
				continue
			}
			ls[u] = append(ls[u], Label{Hub: h, Distance: it.dist, Pred: parent[u], First: first[u]})
			for _, e := range g[order[u]] {
				w := rank[e.To]
				nd := it.dist + e.Weight
				if nd >= dist[w] {
					continue
				}
				if math.IsInf(dist[w], 1) {
					touched = append(touched, w)
				}
				dist[w], parent[w] = nd, u
				if u == h {
					first[w] = w
				} else {
					first[w] = first[u]
				}
				heap.Push(pq, nodeItem{node: w, dist: nd})
			}
		}
		for _, v := range touched {
			dist[v] = math.Inf(1)
		}
	}
	return ls, order, nil
}

type nodeItem struct {
	node int
	dist float64
}

type nodeQueue []nodeItem

func (q nodeQueue) Len() int           { return len(q) }
func (q nodeQueue) Less(i, j int) bool { return q[i].dist < q[j].dist }
func (q nodeQueue) Swap(i, j int)      { q[i], q[j] = q[j], q[i] }
func (q *nodeQueue) Push(x any)        { *q = append(*q, x.(nodeItem)) }
func (q *nodeQueue) Pop() any {
	old := *q
	it := old[len(old)-1]
	*q = old[:len(old)-1]
	return it
}
