// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

package ehl

import (
	"context"
	"fmt"
	"math"
	"slices"
	"sort"
	"time"

	"github.com/2dChan/ehl/compress"
	"github.com/2dChan/ehl/geom"
	"github.com/2dChan/ehl/hublabel"
	"github.com/2dChan/ehl/internal/parallel"
	"github.com/2dChan/ehl/mesh"
	"github.com/2dChan/ehl/subdivide"
	"github.com/2dChan/ehl/visibility"
	"github.com/RoaringBitmap/roaring/v2"
	"github.com/rs/zerolog"
)

// BuildStats summarizes a build.
type BuildStats struct {
	Chords           int
	EstimatedRegions int
	CreatedRegions   int
	PrecisionSkips   int
	DeadEnds         int
	Phases           map[string]time.Duration
}

// BuildContext owns the state of one build while it moves through the
// phases of Build. Every phase reads what the earlier phases produced.
type BuildContext struct {
	opts BuildOptions
	log  zerolog.Logger

	Mesh     *mesh.Mesh
	Raw      RawLabels
	Searcher *visibility.Searcher
	Chords   []subdivide.Chord
	Sources  []int
	Areas    []visibility.Area
	Labels   hublabel.Labels
	Builder  *hublabel.Builder
	Regions  []hublabel.RegionLabels
	Tree     *compress.Tree
	Index    *Index
	Stats    BuildStats
}

type buildPhase struct {
	name string
	run  func(ctx context.Context) error
}

// Build constructs an index over a copy of m from raw labels of its turning
// vertices. The turning vertices are marked as configured by the options and
// must be exactly the vertices raw.Order names.
func Build(ctx context.Context, m *mesh.Mesh, raw RawLabels, setters ...BuildOption) (*Index, error) {
	bc, err := NewBuildContext(m, raw, setters...)
	if err != nil {
		return nil, err
	}
	if err := bc.Run(ctx); err != nil {
		return nil, err
	}
	return bc.Index, nil
}

// NewBuildContext prepares a build of m without running it.
func NewBuildContext(m *mesh.Mesh, raw RawLabels, setters ...BuildOption) (*BuildContext, error) {
	opts := defaultBuildOptions()
	for _, set := range setters {
		if err := set(&opts); err != nil {
			return nil, err
		}
	}
	return &BuildContext{
		opts:  opts,
		log:   opts.Logger.With().Str("stage", "build").Logger(),
		Mesh:  m.Clone(),
		Raw:   raw,
		Stats: BuildStats{Phases: make(map[string]time.Duration)},
	}, nil
}

// Run executes every build phase in order.
func (bc *BuildContext) Run(ctx context.Context) error {
	phases := []buildPhase{
		{"prepare", bc.prepare},
		{"bind", bc.bind},
		{"subdivide", bc.subdivide},
		{"areas", bc.visibleAreas},
		{"dead ends", bc.filterDeadEnds},
		{"labels", bc.regionLabels},
		{"compress", bc.compress},
		{"materialize", bc.materialize},
	}
	total := time.Now()
	for _, p := range phases {
		if err := ctx.Err(); err != nil {
			return err
		}
		start := time.Now()
		if err := p.run(ctx); err != nil {
			bc.log.Error().Str("phase", p.name).Err(err).Msg("build failed")
			return fmt.Errorf("ehl: %s: %w", p.name, err)
		}
		bc.Stats.Phases[p.name] = time.Since(start)
		bc.log.Debug().Str("phase", p.name).Dur("duration", time.Since(start)).Msg("phase done")
	}
	bc.log.Info().
		Int("regions", bc.Index.NumRegions()).
		Int("turning", len(bc.Index.Order)).
		Int("created", bc.Stats.CreatedRegions).
		Int("precision_skips", bc.Stats.PrecisionSkips).
		Int("dead_ends", bc.Stats.DeadEnds).
		Int("tree_depth", bc.Index.TreeDepth).
		Float64("cost_ratio", bc.Index.CostRatio()).
		Dur("duration", time.Since(total)).
		Msg("index built")
	return nil
}

// prepareMesh finalizes the topology of m and marks its turning points.
func prepareMesh(m *mesh.Mesh, grid *mesh.Grid) error {
	if err := m.FinalizeTopology(); err != nil {
		return err
	}
	switch {
	case grid != nil:
		m.MarkTurningPoints(grid)
	case len(m.TurningVertices()) == 0:
		m.MarkTurningPointsByAngle()
	}
	return m.Validate()
}

func (bc *BuildContext) prepare(context.Context) error {
	if err := prepareMesh(bc.Mesh, bc.opts.Grid); err != nil {
		return err
	}
	bc.log.Info().
		Int("vertices", bc.Mesh.NumVertices()).
		Int("polygons", bc.Mesh.NumPolygons()).
		Int("turning", len(bc.Mesh.TurningVertices())).
		Msg("mesh prepared")
	return nil
}

// bind checks that the raw labels cover exactly the turning vertices.
func (bc *BuildContext) bind(context.Context) error {
	raw := bc.Raw
	if len(raw.Order) != len(raw.Labels) {
		return fmt.Errorf("%w: %d order entries for %d label lists", ErrLabelMismatch, len(raw.Order), len(raw.Labels))
	}
	if err := raw.Labels.Validate(); err != nil {
		return err
	}
	turning := bc.Mesh.TurningVertices()
	sorted := slices.Sorted(slices.Values(raw.Order))
	if !slices.Equal(sorted, turning) {
		return fmt.Errorf("%w: order names %d vertices, mesh has %d turning vertices", ErrLabelMismatch, len(sorted), len(turning))
	}
	for i := range raw.Labels {
		if _, ok := raw.Labels.Find(i, i); !ok {
			return fmt.Errorf("%w: oracle id %d has no label of its own", ErrLabelMismatch, i)
		}
	}
	return nil
}

func (bc *BuildContext) subdivide(ctx context.Context) error {
	m := bc.Mesh
	bc.Sources = make([]int, m.NumPolygons())
	for i := range bc.Sources {
		bc.Sources[i] = i
	}
	if bc.opts.MaxExtraRegions == 0 {
		return nil
	}
	bc.Searcher = visibility.NewSearcher(m)
	verts := append(m.TurningVertices(), m.ConcaveVertices()...)
	chords, err := subdivide.GenerateChords(ctx, bc.Searcher, verts, bc.opts.Workers, bc.opts.progress("chords"))
	if err != nil {
		return err
	}
	bc.Chords = chords
	bc.Stats.Chords = len(chords)
	if est, err := subdivide.EstimateRegions(ctx, chords, bc.opts.Workers); err == nil {
		bc.Stats.EstimatedRegions = est
	}

	res, err := subdivide.Subdivide(ctx, m, chords, subdivide.Options{
		MaxExtraRegions: bc.opts.MaxExtraRegions,
		Seed:            bc.opts.Seed,
		Workers:         bc.opts.Workers,
		Progress:        bc.opts.progress("assign chords"),
	})
	if err != nil {
		return err
	}
	bc.Sources = res.Parents
	bc.Stats.CreatedRegions = res.Created
	bc.Stats.PrecisionSkips = res.PrecisionSkips
	bc.log.Info().
		Int("chords", len(chords)).
		Int("estimated_regions", bc.Stats.EstimatedRegions).
		Int("created", res.Created).
		Int("precision_skips", res.PrecisionSkips).
		Msg("mesh subdivided")
	return nil
}

func (bc *BuildContext) visibleAreas(ctx context.Context) error {
	// Subdivision changed the mesh under the old searcher.
	bc.Searcher = visibility.NewSearcher(bc.Mesh)
	areas, err := parallel.Map(ctx, len(bc.Raw.Order), bc.opts.Workers, bc.opts.progress("areas"),
		func(_ context.Context, i int) (visibility.Area, error) {
			return bc.Searcher.VisibleArea(bc.Raw.Order[i])
		})
	if err != nil {
		return err
	}
	bc.Areas = areas
	return nil
}

func (bc *BuildContext) filterDeadEnds(context.Context) error {
	labels, dropped := hublabel.FilterDeadEnds(bc.Mesh, bc.Raw.Order, bc.Raw.Labels)
	bc.Labels = labels
	bc.Stats.DeadEnds = dropped
	bc.log.Info().Int("kept", labels.Size()).Int("dropped", dropped).Msg("dead ends filtered")
	return nil
}

func (bc *BuildContext) regionLabels(ctx context.Context) error {
	b, err := hublabel.NewBuilder(bc.Mesh, bc.Raw.Order, bc.Labels, bc.Areas)
	if err != nil {
		return err
	}
	bc.Builder = b
	regions, err := parallel.Map(ctx, bc.Mesh.NumPolygons(), bc.opts.Workers, bc.opts.progress("labels"),
		func(_ context.Context, p int) (hublabel.RegionLabels, error) {
			return b.Region(p), nil
		})
	if err != nil {
		return err
	}
	bc.Regions = regions
	return nil
}

// compress merges region label sets. It runs on a single goroutine after
// every region is labeled.
func (bc *BuildContext) compress(ctx context.Context) error {
	m := bc.Mesh
	leaves := make([]*roaring.Bitmap, len(bc.Regions))
	neighbors := make([][]int, len(bc.Regions))
	for p := range bc.Regions {
		leaves[p] = roaring.BitmapOf(bc.Regions[p].IDs()...)
		for _, q := range m.Polygons[p].Neighbors {
			if q >= 0 {
				neighbors[p] = append(neighbors[p], q)
			}
		}
	}
	tree, err := compress.Build(ctx, leaves, neighbors, bc.opts.MaxTreeDepth)
	if err != nil {
		return err
	}
	bc.Tree = tree
	bc.log.Info().
		Int("nodes", tree.NumNodes()).
		Int("depth", tree.Depth).
		Uint64("original_cost", tree.OriginalCost).
		Uint64("compressed_cost", tree.CompressedCost).
		Float64("cost_ratio", tree.CostRatio()).
		Msg("labels compressed")
	return nil
}

// materialize builds the index nodes and the per-region lower bounds, which
// are recomputed from the labels found along each compression chain.
func (bc *BuildContext) materialize(ctx context.Context) error {
	tree := bc.Tree
	x := &Index{
		Mesh:           bc.Mesh,
		Order:          bc.Raw.Order,
		Raw:            bc.Raw.Labels,
		Labels:         bc.Labels,
		Areas:          bc.Areas,
		Sources:        bc.Sources,
		Nodes:          make([]Node, tree.NumNodes()),
		Lambda:         lambdaOf(bc.opts.MaxExtraRegions),
		Depth:          bc.opts.MaxTreeDepth,
		TreeDepth:      tree.Depth,
		OriginalCost:   tree.OriginalCost,
		CompressedCost: tree.CompressedCost,
	}
	for n := range x.Nodes {
		x.Nodes[n] = Node{Parent: tree.Parent[n], Local: tree.Local[n]}
	}
	leaves, err := parallel.Map(ctx, len(bc.Regions), bc.opts.Workers, bc.opts.progress("bounds"),
		func(_ context.Context, p int) (Leaf, error) {
			return leafOf(x, bc.Builder, p, bc.Regions[p].Fully), nil
		})
	if err != nil {
		return err
	}
	x.Leaves = leaves
	bc.Index = x
	return nil
}

// leafOf computes the per-hub lower bounds of region p from the labels of
// its compression chain.
func leafOf(x *Index, b *hublabel.Builder, p int, fully []int) Leaf {
	m := x.Mesh
	region := m.PolygonPoints(p)
	lower := make(map[int]float64)
	it := x.chainLabels(p).Iterator()
	for it.HasNext() {
		v, l := b.LabelByID(it.Next())
		d := geom.MinDistance(m.Point(x.Order[v]), region) + l.Distance
		if cur, ok := lower[l.Hub]; !ok || d < cur {
			lower[l.Hub] = d
		}
	}
	leaf := Leaf{Fully: fully, Bounds: make([]HubBound, 0, len(lower))}
	for h, d := range lower {
		leaf.Bounds = append(leaf.Bounds, HubBound{Hub: h, Lower: d})
	}
	sort.Slice(leaf.Bounds, func(i, j int) bool { return leaf.Bounds[i].Hub < leaf.Bounds[j].Hub })
	return leaf
}

// BuildLabels computes raw labels for a self-contained build: the
// visibility graph over the turning vertices of m labeled by pruned landmark
// labeling. m is not modified; turning vertices are marked on a copy the same
// way Build marks them.
func BuildLabels(ctx context.Context, m *mesh.Mesh, setters ...BuildOption) (RawLabels, error) {
	opts := defaultBuildOptions()
	for _, set := range setters {
		if err := set(&opts); err != nil {
			return RawLabels{}, err
		}
	}
	m = m.Clone()
	if err := prepareMesh(m, opts.Grid); err != nil {
		return RawLabels{}, fmt.Errorf("ehl: labels: %w", err)
	}
	turning := m.TurningVertices()
	s := visibility.NewSearcher(m)
	g, err := s.Graph(ctx, turning, opts.Workers, opts.progress("visibility graph"))
	if err != nil {
		return RawLabels{}, fmt.Errorf("ehl: labels: %w", err)
	}
	labels, order, err := hublabel.Compute(ctx, g)
	if err != nil {
		return RawLabels{}, fmt.Errorf("ehl: labels: %w", err)
	}
	for i, node := range order {
		order[i] = turning[node]
	}
	opts.Logger.Info().
		Int("turning", len(turning)).
		Int("labels", labels.Size()).
		Float64("avg_label_size", float64(labels.Size())/math.Max(1, float64(len(turning)))).
		Msg("hub labels computed")
	return RawLabels{Labels: labels, Order: order}, nil
}
