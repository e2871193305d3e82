// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

package visibility

import (
	"context"
	"slices"

	"github.com/2dChan/ehl/internal/parallel"
)

// Edge is an arc of a visibility graph. To indexes the vertex list the graph
// was built over.
type Edge struct {
	To     int
	Weight float64
}

// Graph builds the undirected visibility graph over the mesh vertices verts.
// Adjacency list i belongs to verts[i] and is sorted by target index. A pair
// is connected when either endpoint's search sees the other.
func (s *Searcher) Graph(ctx context.Context, verts []int, workers int, progress parallel.Progress) ([][]Edge, error) {
	index := make(map[int]int, len(verts))
	for i, v := range verts {
		index[v] = i
	}
	seen, err := parallel.Map(ctx, len(verts), workers, progress, func(_ context.Context, i int) ([]int, error) {
		v := verts[i]
		var out []int
		for _, w := range s.VisibleVertices(s.m.Point(v), s.m.VertexLocation(v)) {
			if j, ok := index[w]; ok && j != i {
				out = append(out, j)
			}
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}

	adj := make([][]int, len(verts))
	for i, js := range seen {
		for _, j := range js {
			adj[i] = append(adj[i], j)
			adj[j] = append(adj[j], i)
		}
	}
	graph := make([][]Edge, len(verts))
	for i, js := range adj {
		slices.Sort(js)
		js = slices.Compact(js)
		p := s.m.Point(verts[i])
		graph[i] = make([]Edge, len(js))
		for k, j := range js {
			graph[i][k] = Edge{To: j, Weight: p.Sub(s.m.Point(verts[j])).Norm()}
		}
	}
	return graph, nil
}
