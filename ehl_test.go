// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

package ehl

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/2dChan/ehl/internal/meshtest"
	"github.com/2dChan/ehl/mesh"
	"github.com/2dChan/ehl/store"
	"github.com/RoaringBitmap/roaring/v2"
	"github.com/google/go-cmp/cmp"
)

// Options

func TestBuildOptions(t *testing.T) {
	tests := []struct {
		name    string
		opt     BuildOption
		wantErr bool
	}{
		{"workers positive", WithWorkers(4), false},
		{"workers zero", WithWorkers(0), true},
		{"workers negative", WithWorkers(-1), true},
		{"grid nil", WithGrid(nil), true},
		{"grid", WithGrid(&mesh.Grid{}), false},
		{"unbounded regions", WithMaxExtraRegions(-1), false},
		{"unbounded depth", WithMaxTreeDepth(-1), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := defaultBuildOptions()
			err := tt.opt(&opts)
			if (err != nil) != tt.wantErr {
				t.Errorf("opt(...) error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestEngineOptions(t *testing.T) {
	tests := []struct {
		name    string
		opt     EngineOption
		wantErr bool
	}{
		{"tolerance zero", WithTolerance(0), false},
		{"tolerance negative", WithTolerance(-1e-9), true},
		{"registerer nil", WithRegisterer(nil), true},
		{"workers zero", WithEngineWorkers(0), true},
		{"workers positive", WithEngineWorkers(2), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := defaultEngineOptions()
			err := tt.opt(&opts)
			if (err != nil) != tt.wantErr {
				t.Errorf("opt(...) error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestBuild_InvalidOption(t *testing.T) {
	raw := mustBuildLabels(t, meshtest.Mountain(t))
	if _, err := Build(context.Background(), meshtest.Mountain(t), raw, WithWorkers(0)); err == nil {
		t.Errorf("Build(..., WithWorkers(0)) error = nil, want non-nil")
	}
}

// Logger

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(LoggerConfig{Level: "warn", Output: &buf, Component: "test"})
	log.Info().Msg("hidden")
	log.Warn().Int("regions", 3).Msg("shown")

	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("json.Unmarshal(%q) error = %v, want nil", buf.String(), err)
	}
	want := map[string]any{"level": "warn", "component": "test", "regions": float64(3), "message": "shown"}
	for k, v := range want {
		if entry[k] != v {
			t.Errorf("entry[%q] = %v, want %v", k, entry[k], v)
		}
	}
}

func TestNewLogger_DefaultComponent(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(LoggerConfig{Output: &buf})
	log.Info().Msg("x")
	if !bytes.Contains(buf.Bytes(), []byte(`"component":"ehl"`)) {
		t.Errorf("log output = %q, want component ehl", buf.String())
	}
}

// Build

func TestBuildLabels_Mountain(t *testing.T) {
	raw := mustBuildLabels(t, meshtest.Mountain(t))
	if diff := cmp.Diff([]int{2}, raw.Order); diff != "" {
		t.Errorf("raw.Order mismatch (-want +got):\n%s", diff)
	}
	l, ok := raw.Labels.Find(0, 0)
	if !ok || l.Distance != 0 {
		t.Errorf("raw.Labels.Find(0, 0) = %v, %v, want a zero self label", l, ok)
	}
}

func TestBuildLabels_Box(t *testing.T) {
	raw := mustBuildLabels(t, meshtest.Box(t))
	if len(raw.Order) != 4 {
		t.Fatalf("len(raw.Order) = %d, want 4", len(raw.Order))
	}
	for i := range raw.Labels {
		if _, ok := raw.Labels.Find(i, i); !ok {
			t.Errorf("raw.Labels.Find(%d, %d) ok = false, want true", i, i)
		}
	}
}

func TestBuild(t *testing.T) {
	tests := []struct {
		name     string
		m        func(testing.TB) *mesh.Mesh
		extra    int
		sources  int
		wantTurn int
	}{
		{"mountain no subdivision", meshtest.Mountain, 0, 3, 1},
		{"mountain", meshtest.Mountain, 3, 3, 1},
		{"mountain unbounded", meshtest.Mountain, -1, 3, 1},
		{"box no subdivision", meshtest.Box, 0, 4, 4},
		{"box", meshtest.Box, 3, 4, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x := mustBuild(t, tt.m(t), WithMaxExtraRegions(tt.extra))
			if x.NumRegions() < tt.sources {
				t.Errorf("x.NumRegions() = %d, want at least %d", x.NumRegions(), tt.sources)
			}
			if tt.extra == 0 && x.NumRegions() != tt.sources {
				t.Errorf("x.NumRegions() = %d, want %d", x.NumRegions(), tt.sources)
			}
			if len(x.Order) != tt.wantTurn {
				t.Errorf("len(x.Order) = %d, want %d", len(x.Order), tt.wantTurn)
			}
			for r, s := range x.Sources {
				if s < 0 || s >= tt.sources {
					t.Errorf("x.Sources[%d] = %d, want in [0 %d)", r, s, tt.sources)
				}
			}
			if got := x.CostRatio(); got <= 0 || got > 1 {
				t.Errorf("x.CostRatio() = %v, want in (0 1]", got)
			}
			if err := x.Check(lambdaOf(tt.extra), defaultMaxTreeDepth); err != nil {
				t.Errorf("x.Check(...) error = %v, want nil", err)
			}
		})
	}
}

func TestBuild_DoesNotModifyInput(t *testing.T) {
	m := meshtest.Mountain(t)
	n := m.NumPolygons()
	mustBuild(t, m, WithMaxExtraRegions(-1))
	if m.NumPolygons() != n {
		t.Errorf("m.NumPolygons() = %d after Build, want %d", m.NumPolygons(), n)
	}
}

func TestBuild_LabelMismatch(t *testing.T) {
	box := mustBuildLabels(t, meshtest.Box(t))
	tests := []struct {
		name string
		raw  RawLabels
	}{
		{"empty", RawLabels{}},
		{"other mesh", box},
		{"order shorter than labels", RawLabels{Labels: box.Labels, Order: box.Order[:1]}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Build(context.Background(), meshtest.Mountain(t), tt.raw)
			if !errors.Is(err, ErrLabelMismatch) {
				t.Errorf("Build(...) error = %v, want %v", err, ErrLabelMismatch)
			}
		})
	}
}

func TestBuild_Canceled(t *testing.T) {
	raw := mustBuildLabels(t, meshtest.Box(t))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Build(ctx, meshtest.Box(t), raw); !errors.Is(err, context.Canceled) {
		t.Errorf("Build(canceled) error = %v, want %v", err, context.Canceled)
	}
}

func TestBuild_Progress(t *testing.T) {
	phases := make(map[string]bool)
	progress := func(phase string, done, total int) {
		phases[phase] = true
	}
	// A single worker keeps the callback on one goroutine.
	mustBuild(t, meshtest.Box(t), WithWorkers(1), WithProgress(progress))
	for _, p := range []string{"areas", "labels", "bounds"} {
		if !phases[p] {
			t.Errorf("progress phase %q not reported", p)
		}
	}
}

// Compression keeps exactly the labels every region computed.
func TestBuild_CompressionLossless(t *testing.T) {
	for _, depth := range []int{0, -1} {
		m := meshtest.Box(t)
		raw := mustBuildLabels(t, m)
		bc, err := NewBuildContext(m, raw, WithMaxExtraRegions(-1), WithMaxTreeDepth(depth))
		if err != nil {
			t.Fatalf("NewBuildContext(...) error = %v, want nil", err)
		}
		if err := bc.Run(context.Background()); err != nil {
			t.Fatalf("bc.Run(...) error = %v, want nil", err)
		}
		x := bc.Index
		for p := range x.NumRegions() {
			want := roaring.BitmapOf(bc.Regions[p].IDs()...)
			if got := x.chainLabels(p); !got.Equals(want) {
				t.Errorf("depth %d: x.chainLabels(%d) = %v, want %v", depth, p, got.ToArray(), want.ToArray())
			}
		}
		if x.CompressedCost > x.OriginalCost {
			t.Errorf("depth %d: CompressedCost = %d, want at most %d", depth, x.CompressedCost, x.OriginalCost)
		}
	}
}

func TestBuild_LowerBounds(t *testing.T) {
	m := meshtest.Box(t)
	raw := mustBuildLabels(t, m)
	bc, err := NewBuildContext(m, raw)
	if err != nil {
		t.Fatalf("NewBuildContext(...) error = %v, want nil", err)
	}
	if err := bc.Run(context.Background()); err != nil {
		t.Fatalf("bc.Run(...) error = %v, want nil", err)
	}
	x := bc.Index
	for p := range x.NumRegions() {
		bounds := x.Leaves[p].Bounds
		for i := 1; i < len(bounds); i++ {
			if bounds[i-1].Hub >= bounds[i].Hub {
				t.Errorf("region %d: Bounds not sorted by hub at %d", p, i)
			}
		}
		for _, b := range bounds {
			if b.Lower < 0 {
				t.Errorf("region %d: hub %d lower bound %v, want non-negative", p, b.Hub, b.Lower)
			}
		}
	}
}

// Index

func TestIndex_Check(t *testing.T) {
	x := mustBuild(t, meshtest.Mountain(t), WithMaxExtraRegions(2), WithMaxTreeDepth(0))
	if err := x.Check(3, 0); err != nil {
		t.Errorf("x.Check(3, 0) error = %v, want nil", err)
	}
	err := x.Check(4, -1)
	if !errors.Is(err, ErrIndexMismatch) {
		t.Errorf("x.Check(4, -1) error = %v, want %v", err, ErrIndexMismatch)
	}
	var me *MismatchError
	if !errors.As(err, &me) {
		t.Fatalf("x.Check(4, -1) error = %T, want *MismatchError", err)
	}
	want := MismatchError{Lambda: 3, Depth: 0, WantLambda: 4, WantDepth: -1}
	if diff := cmp.Diff(want, *me); diff != "" {
		t.Errorf("MismatchError mismatch (-want +got):\n%s", diff)
	}
}

func TestLambdaOf(t *testing.T) {
	tests := []struct {
		extra, want int
	}{
		{-1, 0},
		{0, 1},
		{3, 4},
	}
	for _, tt := range tests {
		if got := lambdaOf(tt.extra); got != tt.want {
			t.Errorf("lambdaOf(%d) = %d, want %d", tt.extra, got, tt.want)
		}
	}
}

func TestIndex_Chain(t *testing.T) {
	x := mustBuild(t, meshtest.Box(t))
	for p := range x.NumRegions() {
		chain := x.Chain(p)
		if chain[0] != p {
			t.Errorf("x.Chain(%d)[0] = %d, want %d", p, chain[0], p)
		}
		if root := chain[len(chain)-1]; x.Nodes[root].Parent != -1 {
			t.Errorf("x.Chain(%d) ends at %d with parent %d, want a root", p, root, x.Nodes[root].Parent)
		}
	}
}

// Region

func TestIndex_Region(t *testing.T) {
	x := mustBuild(t, meshtest.Box(t), WithMaxExtraRegions(0))
	tests := []struct {
		name    string
		idx     int
		wantErr bool
	}{
		{"first", 0, false},
		{"last", 3, false},
		{"negative", -1, true},
		{"out of range", 4, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := x.Region(tt.idx)
			if (err != nil) != tt.wantErr {
				t.Fatalf("x.Region(%d) error = %v, wantErr %v", tt.idx, err, tt.wantErr)
			}
			if err == nil && r.Index() != tt.idx {
				t.Errorf("r.Index() = %d, want %d", r.Index(), tt.idx)
			}
		})
	}
}

func TestRegion_Accessors(t *testing.T) {
	x := mustBuild(t, meshtest.Box(t), WithMaxExtraRegions(0))
	r, err := x.Region(0)
	if err != nil {
		t.Fatalf("x.Region(0) error = %v, want nil", err)
	}
	if diff := cmp.Diff([]int{0, 1, 5, 4}, r.VertexIndices()); diff != "" {
		t.Errorf("r.VertexIndices() mismatch (-want +got):\n%s", diff)
	}
	if r.NumVertices() != r.NumNeighbors() {
		t.Errorf("r.NumVertices() = %d, r.NumNeighbors() = %d, want equal", r.NumVertices(), r.NumNeighbors())
	}
	if r.Source() != 0 {
		t.Errorf("r.Source() = %d, want 0", r.Source())
	}
	p, err := r.Vertex(2)
	if err != nil || p.X != 6 || p.Y != 4 {
		t.Errorf("r.Vertex(2) = %v, %v, want (6, 4), nil", p, err)
	}
	if _, err := r.Vertex(4); err == nil {
		t.Errorf("r.Vertex(4) error = nil, want non-nil")
	}

	// Edge 0 is the outer wall, edge 1 borders region 1.
	if _, err := r.Neighbor(0); !errors.Is(err, ErrNoNeighbor) {
		t.Errorf("r.Neighbor(0) error = %v, want %v", err, ErrNoNeighbor)
	}
	n, err := r.Neighbor(1)
	if err != nil || n.Index() != 1 {
		t.Errorf("r.Neighbor(1) = %d, %v, want 1, nil", n.Index(), err)
	}
	if _, err := r.Neighbor(-1); err == nil {
		t.Errorf("r.Neighbor(-1) error = nil, want non-nil")
	}

	if chain := r.Chain(); chain[0] != 0 {
		t.Errorf("r.Chain()[0] = %d, want 0", chain[0])
	}
	if r.LabelIDs().IsEmpty() {
		t.Errorf("r.LabelIDs() is empty, want the labels of the bottom trapezoid")
	}
	for _, b := range x.Leaves[0].Bounds {
		got, ok := r.LowerBound(b.Hub)
		if !ok || got != b.Lower {
			t.Errorf("r.LowerBound(%d) = %v, %v, want %v, true", b.Hub, got, ok, b.Lower)
		}
	}
	if _, ok := r.LowerBound(1 << 20); ok {
		t.Errorf("r.LowerBound(unknown) ok = true, want false")
	}
}

// Persistence

func TestIndex_WriteTo(t *testing.T) {
	for _, codec := range []store.Codec{store.CodecNone, store.CodecZstd, store.CodecLZ4} {
		t.Run(codec.String(), func(t *testing.T) {
			x := mustBuild(t, meshtest.Box(t), WithMaxExtraRegions(-1))
			first := mustWrite(t, x, codec)

			y, err := ReadIndex(bytes.NewReader(first))
			if err != nil {
				t.Fatalf("ReadIndex(...) error = %v, want nil", err)
			}
			if second := mustWrite(t, y, codec); !bytes.Equal(first, second) {
				t.Errorf("re-serialized index differs: %d bytes, want %d", len(second), len(first))
			}

			if diff := cmp.Diff(x.Labels, y.Labels); diff != "" {
				t.Errorf("y.Labels mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(x.Order, y.Order); diff != "" {
				t.Errorf("y.Order mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(x.Leaves, y.Leaves); diff != "" {
				t.Errorf("y.Leaves mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(x.Mesh.TurningVertices(), y.Mesh.TurningVertices()); diff != "" {
				t.Errorf("y.Mesh.TurningVertices() mismatch (-want +got):\n%s", diff)
			}
			if err := y.Check(x.Lambda, x.Depth); err != nil {
				t.Errorf("y.Check(...) error = %v, want nil", err)
			}
			for n := range x.Nodes {
				if !x.Nodes[n].Local.Equals(y.Nodes[n].Local) {
					t.Errorf("y.Nodes[%d].Local = %v, want %v", n, y.Nodes[n].Local.ToArray(), x.Nodes[n].Local.ToArray())
				}
			}
		})
	}
}

func TestReadIndex_Corrupt(t *testing.T) {
	x := mustBuild(t, meshtest.Mountain(t))
	data := mustWrite(t, x, store.CodecNone)

	flipped := bytes.Clone(data)
	flipped[len(flipped)-1] ^= 0xff

	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"empty", nil, store.ErrTruncated},
		{"header only", data[:28], store.ErrTruncated},
		{"truncated payload", data[:len(data)-1], store.ErrTruncated},
		{"flipped byte", flipped, store.ErrChecksum},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ReadIndex(bytes.NewReader(tt.data)); !errors.Is(err, tt.want) {
				t.Errorf("ReadIndex(...) error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestReadIndex_WrongPayload(t *testing.T) {
	var buf bytes.Buffer
	if _, err := store.Encode(&buf, store.CodecNone, []byte("not an index")); err != nil {
		t.Fatalf("store.Encode(...) error = %v, want nil", err)
	}
	if _, err := ReadIndex(&buf); !errors.Is(err, ErrMalformed) {
		t.Errorf("ReadIndex(...) error = %v, want %v", err, ErrMalformed)
	}
}

// Helpers

func mustBuildLabels(t testing.TB, m *mesh.Mesh) RawLabels {
	t.Helper()
	raw, err := BuildLabels(context.Background(), m)
	if err != nil {
		t.Fatalf("BuildLabels(...) error = %v, want nil", err)
	}
	return raw
}

func mustBuild(t testing.TB, m *mesh.Mesh, setters ...BuildOption) *Index {
	t.Helper()
	raw := mustBuildLabels(t, m)
	x, err := Build(context.Background(), m, raw, setters...)
	if err != nil {
		t.Fatalf("Build(...) error = %v, want nil", err)
	}
	return x
}

func mustWrite(t testing.TB, x *Index, codec store.Codec) []byte {
	t.Helper()
	var buf bytes.Buffer
	n, err := x.WriteTo(&buf, codec)
	if err != nil {
		t.Fatalf("x.WriteTo(...) error = %v, want nil", err)
	}
	if n != int64(buf.Len()) {
		t.Errorf("x.WriteTo(...) = %d, wrote %d bytes", n, buf.Len())
	}
	return buf.Bytes()
}
