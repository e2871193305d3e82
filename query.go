// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

package ehl

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/2dChan/ehl/hublabel"
	"github.com/2dChan/ehl/mesh"
	"github.com/2dChan/ehl/visibility"
	"github.com/golang/geo/r2"
	"github.com/rs/zerolog"
)

// State is the phase a query reached.
type State int

const (
	Idle State = iota
	LocatingEndpoints
	GatheringLabels
	Fusing
	Done
)

func (s State) String() string {
	switch s {
	case LocatingEndpoints:
		return "LocatingEndpoints"
	case GatheringLabels:
		return "GatheringLabels"
	case Fusing:
		return "Fusing"
	case Done:
		return "Done"
	}
	return "Idle"
}

// Stats holds the cost of one query.
type Stats struct {
	LocateTime     time.Duration
	VisibilityTime time.Duration
	FusionTime     time.Duration
	// ViaLabels counts the labels examined, VisibilityChecks the raycasts
	// and PrunedHubs the common hubs skipped by their lower bound.
	ViaLabels        int
	VisibilityChecks int
	PrunedHubs       int
}

// Result is the answer to a query. Path runs from start to goal and is empty
// when no path was found.
type Result struct {
	Distance float64
	Path     []r2.Point
	Found    bool
	State    State
	// Ambiguous is set when an endpoint lies on an ambiguous corner, where
	// the labels may not hold.
	Ambiguous bool
	Stats     Stats
}

// Engine answers shortest path queries against an Index. It is safe for
// concurrent use.
type Engine struct {
	x       *Index
	s       *visibility.Searcher
	b       *hublabel.Builder
	opts    EngineOptions
	log     zerolog.Logger
	metrics *engineMetrics

	reference cornerGraph
}

// NewEngine prepares x for queries. The index must not be modified while the
// engine is in use.
func NewEngine(x *Index, setters ...EngineOption) (*Engine, error) {
	opts := defaultEngineOptions()
	for _, set := range setters {
		if err := set(&opts); err != nil {
			return nil, err
		}
	}
	if len(x.Leaves) != x.Mesh.NumPolygons() || len(x.Nodes) < len(x.Leaves) {
		return nil, fmt.Errorf("%w: %d leaves and %d nodes for %d regions",
			ErrMalformed, len(x.Leaves), len(x.Nodes), x.Mesh.NumPolygons())
	}
	b, err := hublabel.NewBuilder(x.Mesh, x.Order, x.Labels, x.Areas)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	return &Engine{
		x:       x,
		s:       visibility.NewSearcher(x.Mesh),
		b:       b,
		opts:    opts,
		log:     opts.Logger.With().Str("stage", "query").Logger(),
		metrics: newEngineMetrics(opts.Registerer),
	}, nil
}

func (e *Engine) Index() *Index {
	return e.x
}

// entry is a label of one query side: the side's point reaches the hub
// through oracle id via.
type entry struct {
	via  int
	dist float64
	// cost is the straight distance to via plus dist.
	cost float64
}

// side is the per-endpoint state of a query.
type side struct {
	p       r2.Point
	loc     mesh.Location
	leaf    *Leaf
	hubs    map[int][]entry
	visible map[int]bool
}

// Query returns the shortest path from start to goal.
func (e *Engine) Query(start, goal r2.Point) Result {
	var res Result
	outcome := e.query(start, goal, &res)
	e.metrics.observe(&res, outcome)
	return res
}

// Distance is a shorthand for Query that only reports the distance.
func (e *Engine) Distance(start, goal r2.Point) (float64, bool) {
	r := e.Query(start, goal)
	return r.Distance, r.Found
}

func (e *Engine) query(start, goal r2.Point, res *Result) string {
	res.State = LocatingEndpoints
	t := time.Now()
	sl, gl := e.s.Locate(start), e.s.Locate(goal)
	res.Stats.LocateTime = time.Since(t)
	res.Ambiguous = sl.Kind == mesh.OnCornerVertexAmbig || gl.Kind == mesh.OnCornerVertexAmbig
	if sl.Kind == mesh.NotOnMesh || gl.Kind == mesh.NotOnMesh {
		return outcomeOffMesh
	}

	t = time.Now()
	visible, _ := e.s.IsVisible(start, goal, sl)
	res.Stats.VisibilityChecks++
	res.Stats.VisibilityTime += time.Since(t)
	if visible {
		res.Distance = start.Sub(goal).Norm()
		res.Path = []r2.Point{start, goal}
		res.Found = true
		res.State = Done
		return outcomeDirect
	}

	res.State = GatheringLabels
	t = time.Now()
	raycasts := res.Stats.VisibilityTime
	s := e.gather(start, sl)
	g := e.gather(goal, gl)
	type candidate struct {
		hub   int
		lower float64
	}
	var common []candidate
	for h := range s.hubs {
		if _, ok := g.hubs[h]; !ok {
			continue
		}
		ls, _ := s.leaf.bound(h)
		lg, _ := g.leaf.bound(h)
		common = append(common, candidate{hub: h, lower: ls + lg})
	}
	sort.Slice(common, func(i, j int) bool {
		if common[i].lower != common[j].lower {
			return common[i].lower < common[j].lower
		}
		return common[i].hub < common[j].hub
	})

	res.State = Fusing
	best, bestHub := math.Inf(1), -1
	var bestS, bestG entry
	for i, c := range common {
		if c.lower >= best {
			res.Stats.PrunedHubs += len(common) - i
			break
		}
		es, ok := e.pick(s, c.hub, res)
		if !ok {
			continue
		}
		eg, ok := e.pick(g, c.hub, res)
		if !ok {
			continue
		}
		if d := es.cost + eg.cost; d < best {
			best, bestHub, bestS, bestG = d, c.hub, es, eg
		}
	}
	res.Stats.FusionTime = time.Since(t) - (res.Stats.VisibilityTime - raycasts)
	if bestHub < 0 {
		res.State = Done
		return outcomeNotFound
	}
	res.Distance = best
	res.Path = e.path(start, goal, bestHub, bestS.via, bestG.via)
	res.Found = true
	res.State = Done
	return outcomeLabels
}

// gather collects the labels of the compression chain of the region holding
// p, grouped by hub and ordered by cost.
func (e *Engine) gather(p r2.Point, loc mesh.Location) *side {
	x := e.x
	sd := &side{
		p:       p,
		loc:     loc,
		leaf:    &x.Leaves[loc.Poly1],
		hubs:    make(map[int][]entry),
		visible: make(map[int]bool),
	}
	for _, n := range x.Chain(loc.Poly1) {
		it := x.Nodes[n].Local.Iterator()
		for it.HasNext() {
			v, l := e.b.LabelByID(it.Next())
			d := p.Sub(x.Mesh.Point(x.Order[v])).Norm()
			sd.hubs[l.Hub] = append(sd.hubs[l.Hub], entry{via: v, dist: l.Distance, cost: d + l.Distance})
		}
	}
	for _, list := range sd.hubs {
		sort.Slice(list, func(i, j int) bool {
			if list[i].cost != list[j].cost {
				return list[i].cost < list[j].cost
			}
			return list[i].via < list[j].via
		})
	}
	return sd
}

// pick returns the cheapest label of hub that the side's point sees.
// Labels of fully visible vertices need no raycast; other results are cached
// per side.
func (e *Engine) pick(sd *side, hub int, res *Result) (entry, bool) {
	for _, en := range sd.hubs[hub] {
		res.Stats.ViaLabels++
		if sd.leaf.isFully(en.via) {
			return en, true
		}
		vis, ok := sd.visible[en.via]
		if !ok {
			t := time.Now()
			vis, _ = e.s.IsVisible(sd.p, e.x.Mesh.Point(e.x.Order[en.via]), sd.loc)
			res.Stats.VisibilityTime += time.Since(t)
			res.Stats.VisibilityChecks++
			sd.visible[en.via] = vis
		}
		if vis {
			return en, true
		}
	}
	return entry{}, false
}

// path reconstructs start, the turning vertices from via s to hub and on to
// via g, then goal.
func (e *Engine) path(start, goal r2.Point, hub, s, g int) []r2.Point {
	x := e.x
	toHub := func(v int) []int {
		out := []int{v}
		for steps := 0; v != hub && steps < len(x.Raw); steps++ {
			l, ok := x.Raw.Find(v, hub)
			if !ok || l.Pred == v {
				break
			}
			v = l.Pred
			out = append(out, v)
		}
		if out[len(out)-1] != hub {
			out = append(out, hub)
		}
		return out
	}
	fwd := toHub(s)
	back := toHub(g)

	path := []r2.Point{start}
	add := func(v int) {
		p := x.Mesh.Point(x.Order[v])
		if path[len(path)-1] != p {
			path = append(path, p)
		}
	}
	for _, v := range fwd {
		add(v)
	}
	for i := len(back) - 2; i >= 0; i-- {
		add(back[i])
	}
	if path[len(path)-1] != goal {
		path = append(path, goal)
	}
	return path
}
