// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

package ehl

import (
	"container/heap"
	"context"
	"math"
	"sync"

	"github.com/2dChan/ehl/mesh"
	"github.com/2dChan/ehl/visibility"
	"github.com/golang/geo/r2"
)

// cornerGraph is the visibility graph over every corner vertex of the index
// mesh, built on first use.
type cornerGraph struct {
	once    sync.Once
	corners []int
	edges   [][]visibility.Edge
	err     error
}

func (e *Engine) cornerGraph(ctx context.Context) (*cornerGraph, error) {
	cg := &e.reference
	cg.once.Do(func() {
		m := e.x.Mesh
		for v := range m.Vertices {
			if m.Vertices[v].IsCorner {
				cg.corners = append(cg.corners, v)
			}
		}
		cg.edges, cg.err = e.s.Graph(ctx, cg.corners, e.opts.Workers, nil)
	})
	return cg, cg.err
}

// ReferenceDistance computes the shortest distance from start to goal with
// Dijkstra's algorithm over the visibility graph of the mesh corners. It does
// not use the labels and serves as ground truth for validation.
func (e *Engine) ReferenceDistance(ctx context.Context, start, goal r2.Point) (float64, bool, error) {
	sl, gl := e.s.Locate(start), e.s.Locate(goal)
	if sl.Kind == mesh.NotOnMesh || gl.Kind == mesh.NotOnMesh {
		return 0, false, nil
	}
	if ok, _ := e.s.IsVisible(start, goal, sl); ok {
		return start.Sub(goal).Norm(), true, nil
	}
	cg, err := e.cornerGraph(ctx)
	if err != nil {
		return 0, false, err
	}

	m := e.x.Mesh
	n := len(cg.corners)
	// Node n is start; the goal is reached through goalEdge.
	dist := make([]float64, n+1)
	for i := range dist {
		dist[i] = math.Inf(1)
	}
	goalEdge := make([]float64, n)
	for i, c := range cg.corners {
		p := m.Point(c)
		goalEdge[i] = math.Inf(1)
		if ok, _ := e.s.IsVisible(goal, p, gl); ok {
			goalEdge[i] = goal.Sub(p).Norm()
		}
	}

	dist[n] = 0
	pq := &distQueue{{node: n}}
	best := math.Inf(1)
	for pq.Len() > 0 {
		if err := ctx.Err(); err != nil {
			return 0, false, err
		}
		it := heap.Pop(pq).(distItem)
		u := it.node
		if it.dist > dist[u] || it.dist >= best {
			continue
		}
		if u == n {
			for i, c := range cg.corners {
				p := m.Point(c)
				if ok, _ := e.s.IsVisible(start, p, sl); ok {
					if d := start.Sub(p).Norm(); d < dist[i] {
						dist[i] = d
						heap.Push(pq, distItem{node: i, dist: d})
					}
				}
			}
			continue
		}
		best = math.Min(best, it.dist+goalEdge[u])
		for _, ed := range cg.edges[u] {
			if d := it.dist + ed.Weight; d < dist[ed.To] {
				dist[ed.To] = d
				heap.Push(pq, distItem{node: ed.To, dist: d})
			}
		}
	}
	if math.IsInf(best, 1) {
		return 0, false, nil
	}
	return best, true, nil
}

type distItem struct {
	node int
	dist float64
}

type distQueue []distItem

func (q distQueue) Len() int           { return len(q) }
func (q distQueue) Less(i, j int) bool { return q[i].dist < q[j].dist }
func (q distQueue) Swap(i, j int)      { q[i], q[j] = q[j], q[i] }
func (q *distQueue) Push(x any)        { *q = append(*q, x.(distItem)) }
func (q *distQueue) Pop() any {
	old := *q
	it := old[len(old)-1]
	*q = old[:len(old)-1]
	return it
}
