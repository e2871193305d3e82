// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

package ehl

import (
	"context"
	"math"
	"time"

	"github.com/2dChan/ehl/internal/parallel"
	"github.com/2dChan/ehl/scenario"
)

// ScenarioResult is the answer to one scenario. Reference is set when the
// engine validates answers.
type ScenarioResult struct {
	Scenario  scenario.Scenario
	Result    Result
	Reference float64
	Mismatch  bool
}

// BatchReport aggregates a scenario batch.
type BatchReport struct {
	Results []ScenarioResult
	Found   int
	// Mismatches counts validated answers that differ from the reference by
	// more than the tolerance. Skipped counts answers not validated because
	// an endpoint is ambiguous.
	Mismatches int
	Skipped    int
	Stats      Stats
	Elapsed    time.Duration
}

// MismatchRate returns the share of validated answers that mismatched.
func (r *BatchReport) MismatchRate() float64 {
	validated := len(r.Results) - r.Skipped
	if validated <= 0 {
		return 0
	}
	return float64(r.Mismatches) / float64(validated)
}

// RunScenarios answers every scenario concurrently. Mismatches against the
// reference distance are counted, never fatal; the batch always completes
// unless ctx is canceled.
func (e *Engine) RunScenarios(ctx context.Context, scens []scenario.Scenario) (*BatchReport, error) {
	start := time.Now()
	results, err := parallel.Map(ctx, len(scens), e.opts.Workers, nil,
		func(ctx context.Context, i int) (ScenarioResult, error) {
			sc := scens[i]
			sr := ScenarioResult{Scenario: sc, Result: e.Query(sc.Start, sc.Goal)}
			if !e.opts.Validate || sr.Result.Ambiguous {
				return sr, nil
			}
			ref, ok, err := e.ReferenceDistance(ctx, sc.Start, sc.Goal)
			if err != nil {
				return sr, err
			}
			sr.Reference = ref
			sr.Mismatch = ok != sr.Result.Found || math.Abs(ref-sr.Result.Distance) > e.opts.Tolerance
			return sr, nil
		})
	if err != nil {
		return nil, err
	}

	rep := &BatchReport{Results: results, Elapsed: time.Since(start)}
	for i := range results {
		sr := &results[i]
		r := &sr.Result
		if r.Found {
			rep.Found++
		}
		if e.opts.Validate && r.Ambiguous {
			rep.Skipped++
		}
		if sr.Mismatch {
			rep.Mismatches++
			e.metrics.mismatches.Inc()
			e.log.Warn().
				Int("scenario", i).
				Float64("distance", r.Distance).
				Float64("reference", sr.Reference).
				Msg("distance mismatch")
		}
		rep.Stats.LocateTime += r.Stats.LocateTime
		rep.Stats.VisibilityTime += r.Stats.VisibilityTime
		rep.Stats.FusionTime += r.Stats.FusionTime
		rep.Stats.ViaLabels += r.Stats.ViaLabels
		rep.Stats.VisibilityChecks += r.Stats.VisibilityChecks
		rep.Stats.PrunedHubs += r.Stats.PrunedHubs
	}
	e.log.Info().
		Int("scenarios", len(scens)).
		Int("found", rep.Found).
		Int("mismatches", rep.Mismatches).
		Int("skipped", rep.Skipped).
		Dur("elapsed", rep.Elapsed).
		Msg("scenarios done")
	return rep, nil
}
