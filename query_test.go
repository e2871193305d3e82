// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

package ehl

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/2dChan/ehl/internal/meshtest"
	"github.com/2dChan/ehl/mesh"
	"github.com/2dChan/ehl/scenario"
	"github.com/golang/geo/r2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

const distEps = 1e-9

type queryCase struct {
	name        string
	m           func(testing.TB) *mesh.Mesh
	start, goal r2.Point
	want        float64
	found       bool
}

var queryCases = []queryCase{
	{"mountain grazing apex", meshtest.Mountain, r2.Point{X: 1, Y: 1}, r2.Point{X: 9, Y: 9}, math.Sqrt(128), true},
	{"mountain over apex", meshtest.Mountain, r2.Point{X: 1, Y: 1}, r2.Point{X: 9, Y: 1}, 2 * math.Sqrt(32), true},
	{"mountain same side", meshtest.Mountain, r2.Point{X: 1, Y: 1}, r2.Point{X: 1, Y: 9}, 8, true},
	{"box around", meshtest.Box, r2.Point{X: 1, Y: 5}, r2.Point{X: 9, Y: 5}, 2*math.Sqrt(10) + 2, true},
	{"box around one corner", meshtest.Box, r2.Point{X: 4.5, Y: 6.1}, r2.Point{X: 6.4, Y: 4.2}, math.Sqrt(2.26) + math.Sqrt(3.4), true},
	{"box direct", meshtest.Box, r2.Point{X: 1, Y: 1}, r2.Point{X: 9, Y: 1}, 8, true},
	{"mountain inside obstacle", meshtest.Mountain, r2.Point{X: 1, Y: 1}, r2.Point{X: 5, Y: 1}, 0, false},
	{"box outside", meshtest.Box, r2.Point{X: -1, Y: 5}, r2.Point{X: 9, Y: 5}, 0, false},
}

// Engine

func TestEngine_Query(t *testing.T) {
	budgets := []struct {
		name  string
		extra int
		depth int
	}{
		{"plain", 0, 0},
		{"subdivided", 3, -1},
		{"subdivided flat", 3, 0},
		{"unbounded", -1, -1},
	}
	for _, bt := range budgets {
		for _, tt := range queryCases {
			t.Run(bt.name+"/"+tt.name, func(t *testing.T) {
				e := mustEngine(t, mustBuild(t, tt.m(t), WithMaxExtraRegions(bt.extra), WithMaxTreeDepth(bt.depth)))
				res := e.Query(tt.start, tt.goal)
				if res.Found != tt.found {
					t.Fatalf("Query(%v, %v).Found = %v, want %v", tt.start, tt.goal, res.Found, tt.found)
				}
				if !tt.found {
					if res.State != LocatingEndpoints {
						t.Errorf("Query(...).State = %v, want %v", res.State, LocatingEndpoints)
					}
					return
				}
				if math.Abs(res.Distance-tt.want) > distEps {
					t.Errorf("Query(%v, %v).Distance = %v, want %v", tt.start, tt.goal, res.Distance, tt.want)
				}
				if res.State != Done {
					t.Errorf("Query(...).State = %v, want %v", res.State, Done)
				}
				checkPath(t, res, tt.start, tt.goal)
			})
		}
	}
}

func TestEngine_QueryMatchesReference(t *testing.T) {
	for _, tt := range queryCases {
		t.Run(tt.name, func(t *testing.T) {
			e := mustEngine(t, mustBuild(t, tt.m(t), WithMaxExtraRegions(-1)))
			ref, ok, err := e.ReferenceDistance(context.Background(), tt.start, tt.goal)
			if err != nil {
				t.Fatalf("ReferenceDistance(...) error = %v, want nil", err)
			}
			if ok != tt.found {
				t.Fatalf("ReferenceDistance(...) ok = %v, want %v", ok, tt.found)
			}
			if ok && math.Abs(ref-tt.want) > distEps {
				t.Errorf("ReferenceDistance(%v, %v) = %v, want %v", tt.start, tt.goal, ref, tt.want)
			}
			d, found := e.Distance(tt.start, tt.goal)
			if found != ok || math.Abs(d-ref) > distEps {
				t.Errorf("Distance(...) = %v, %v, want %v, %v", d, found, ref, ok)
			}
		})
	}
}

// Every pair of sample points in the box room agrees with the reference. The
// samples avoid the lines through obstacle edges and corner diagonals.
func TestEngine_QueryGrid(t *testing.T) {
	e := mustEngine(t, mustBuild(t, meshtest.Box(t)))
	var pts []r2.Point
	for x := 0.7; x < 10; x += 1.9 {
		for y := 0.4; y < 10; y += 1.9 {
			p := r2.Point{X: x, Y: y}
			if x > 4 && x < 6 && y > 4 && y < 6 {
				continue
			}
			pts = append(pts, p)
		}
	}
	for _, s := range pts {
		for _, g := range pts {
			res := e.Query(s, g)
			ref, ok, err := e.ReferenceDistance(context.Background(), s, g)
			if err != nil {
				t.Fatalf("ReferenceDistance(...) error = %v, want nil", err)
			}
			if res.Found != ok || math.Abs(res.Distance-ref) > 1e-6 {
				t.Errorf("Query(%v, %v) = %v, %v, want %v, %v", s, g, res.Distance, res.Found, ref, ok)
			}
		}
	}
}

func TestEngine_QueryStats(t *testing.T) {
	e := mustEngine(t, mustBuild(t, meshtest.Box(t)))

	direct := e.Query(r2.Point{X: 1, Y: 1}, r2.Point{X: 9, Y: 1})
	if direct.Stats.VisibilityChecks != 1 || direct.Stats.ViaLabels != 0 {
		t.Errorf("direct query stats = %+v, want one raycast and no labels", direct.Stats)
	}
	around := e.Query(r2.Point{X: 1, Y: 5}, r2.Point{X: 9, Y: 5})
	if around.Stats.ViaLabels == 0 {
		t.Errorf("labelled query stats = %+v, want labels examined", around.Stats)
	}
}

func TestEngine_Concurrent(t *testing.T) {
	e := mustEngine(t, mustBuild(t, meshtest.Box(t)))
	want := 2*math.Sqrt(10) + 2
	var wg sync.WaitGroup
	errs := make(chan float64, 8)
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 50 {
				if d, _ := e.Distance(r2.Point{X: 1, Y: 5}, r2.Point{X: 9, Y: 5}); math.Abs(d-want) > distEps {
					errs <- d
					return
				}
			}
		}()
	}
	wg.Wait()
	close(errs)
	for d := range errs {
		t.Errorf("concurrent Distance(...) = %v, want %v", d, want)
	}
}

func TestNewEngine_Malformed(t *testing.T) {
	x := mustBuild(t, meshtest.Box(t))
	broken := *x
	broken.Leaves = broken.Leaves[:1]
	if _, err := NewEngine(&broken); !errors.Is(err, ErrMalformed) {
		t.Errorf("NewEngine(truncated leaves) error = %v, want %v", err, ErrMalformed)
	}
	if _, err := NewEngine(x, WithTolerance(-1)); err == nil {
		t.Errorf("NewEngine(..., WithTolerance(-1)) error = nil, want non-nil")
	}
}

func TestState_String(t *testing.T) {
	tests := []struct {
		s    State
		want string
	}{
		{Idle, "Idle"},
		{LocatingEndpoints, "LocatingEndpoints"},
		{GatheringLabels, "GatheringLabels"},
		{Fusing, "Fusing"},
		{Done, "Done"},
	}
	for _, tt := range tests {
		if got := tt.s.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", tt.s, got, tt.want)
		}
	}
}

// Metrics

func TestEngine_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	e := mustEngine(t, mustBuild(t, meshtest.Box(t)), WithRegisterer(reg))
	e.Query(r2.Point{X: 1, Y: 1}, r2.Point{X: 9, Y: 1})
	e.Query(r2.Point{X: 1, Y: 5}, r2.Point{X: 9, Y: 5})
	e.Query(r2.Point{X: 5, Y: 5}, r2.Point{X: 9, Y: 5})

	if n, err := testutil.GatherAndCount(reg, "ehl_queries_total"); err != nil || n != 3 {
		t.Errorf("GatherAndCount(ehl_queries_total) = %d, %v, want 3, nil", n, err)
	}
	tests := []struct {
		outcome string
		want    float64
	}{
		{outcomeDirect, 1},
		{outcomeLabels, 1},
		{outcomeOffMesh, 1},
		{outcomeNotFound, 0},
	}
	for _, tt := range tests {
		if got := testutil.ToFloat64(e.metrics.queries.WithLabelValues(tt.outcome)); got != tt.want {
			t.Errorf("ehl_queries_total{outcome=%q} = %v, want %v", tt.outcome, got, tt.want)
		}
	}
	if got := testutil.ToFloat64(e.metrics.visibilityChecks); got < 2 {
		t.Errorf("ehl_visibility_checks_total = %v, want at least 2", got)
	}
}

// Scenarios

func TestEngine_RunScenarios(t *testing.T) {
	reg := prometheus.NewRegistry()
	e := mustEngine(t, mustBuild(t, meshtest.Box(t)), WithValidation(true), WithRegisterer(reg), WithEngineWorkers(2))
	scens := []scenario.Scenario{
		{Map: "box", Start: r2.Point{X: 1, Y: 5}, Goal: r2.Point{X: 9, Y: 5}},
		{Map: "box", Start: r2.Point{X: 1, Y: 1}, Goal: r2.Point{X: 9, Y: 9}},
		{Map: "box", Start: r2.Point{X: 5, Y: 1}, Goal: r2.Point{X: 5, Y: 9}},
		{Map: "box", Start: r2.Point{X: 5, Y: 5}, Goal: r2.Point{X: 5, Y: 9}},
	}
	rep, err := e.RunScenarios(context.Background(), scens)
	if err != nil {
		t.Fatalf("RunScenarios(...) error = %v, want nil", err)
	}
	if len(rep.Results) != len(scens) {
		t.Fatalf("len(rep.Results) = %d, want %d", len(rep.Results), len(scens))
	}
	if rep.Found != 3 {
		t.Errorf("rep.Found = %d, want 3", rep.Found)
	}
	if rep.Mismatches != 0 || rep.MismatchRate() != 0 {
		t.Errorf("rep.Mismatches = %d, MismatchRate() = %v, want 0", rep.Mismatches, rep.MismatchRate())
	}
	for i, sr := range rep.Results {
		if sr.Scenario != scens[i] {
			t.Errorf("rep.Results[%d].Scenario = %+v, want %+v", i, sr.Scenario, scens[i])
		}
		if sr.Result.Found && math.Abs(sr.Reference-sr.Result.Distance) > distEps {
			t.Errorf("rep.Results[%d] = %v, reference %v", i, sr.Result.Distance, sr.Reference)
		}
	}
	if got := testutil.ToFloat64(e.metrics.mismatches); got != 0 {
		t.Errorf("ehl_scenario_mismatches_total = %v, want 0", got)
	}
}

func TestEngine_RunScenarios_Canceled(t *testing.T) {
	e := mustEngine(t, mustBuild(t, meshtest.Box(t)))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	scens := []scenario.Scenario{{Start: r2.Point{X: 1, Y: 1}, Goal: r2.Point{X: 2, Y: 2}}}
	if _, err := e.RunScenarios(ctx, scens); !errors.Is(err, context.Canceled) {
		t.Errorf("RunScenarios(canceled) error = %v, want %v", err, context.Canceled)
	}
}

func TestBatchReport_MismatchRate(t *testing.T) {
	tests := []struct {
		name string
		rep  BatchReport
		want float64
	}{
		{"empty", BatchReport{}, 0},
		{"all skipped", BatchReport{Results: make([]ScenarioResult, 2), Skipped: 2}, 0},
		{"quarter", BatchReport{Results: make([]ScenarioResult, 5), Skipped: 1, Mismatches: 1}, 0.25},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.rep.MismatchRate(); got != tt.want {
				t.Errorf("MismatchRate() = %v, want %v", got, tt.want)
			}
		})
	}
}

// Benchmarks

func BenchmarkEngine_Query(b *testing.B) {
	e := mustEngine(b, mustBuild(b, meshtest.Box(b)))
	start, goal := r2.Point{X: 1, Y: 5}, r2.Point{X: 9, Y: 5}
	for b.Loop() {
		e.Query(start, goal)
	}
}

// Helpers

func mustEngine(t testing.TB, x *Index, setters ...EngineOption) *Engine {
	t.Helper()
	e, err := NewEngine(x, setters...)
	if err != nil {
		t.Fatalf("NewEngine(...) error = %v, want nil", err)
	}
	return e
}

func checkPath(t *testing.T, res Result, start, goal r2.Point) {
	t.Helper()
	if len(res.Path) < 2 || res.Path[0] != start || res.Path[len(res.Path)-1] != goal {
		t.Errorf("Path = %v, want it to run from %v to %v", res.Path, start, goal)
		return
	}
	length := 0.0
	for i := 1; i < len(res.Path); i++ {
		length += res.Path[i].Sub(res.Path[i-1]).Norm()
	}
	if math.Abs(length-res.Distance) > 1e-6 {
		t.Errorf("Path %v has length %v, want %v", res.Path, length, res.Distance)
	}
}
