// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

package ehl

import (
	"fmt"
	"runtime"

	"github.com/2dChan/ehl/internal/parallel"
	"github.com/2dChan/ehl/mesh"
	"github.com/2dChan/ehl/subdivide"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

const (
	defaultMaxExtraRegions = 3
	defaultMaxTreeDepth    = -1
	defaultTolerance       = 1e-6
)

type BuildOptions struct {
	// MaxExtraRegions bounds the regions split off every mesh polygon.
	// Negative is unbounded, zero disables subdivision.
	MaxExtraRegions int
	// MaxTreeDepth is the number of compression passes. Negative merges
	// while merging pays off, zero disables compression.
	MaxTreeDepth int
	Seed         int64
	Workers      int
	// Grid marks turning points from a grid map. Without it turning points
	// are the vertices whose free-space angle exceeds Pi.
	Grid     *mesh.Grid
	Logger   zerolog.Logger
	Progress func(phase string, done, total int)
}

type BuildOption func(*BuildOptions) error

func defaultBuildOptions() BuildOptions {
	return BuildOptions{
		MaxExtraRegions: defaultMaxExtraRegions,
		MaxTreeDepth:    defaultMaxTreeDepth,
		Seed:            subdivide.DefaultSeed,
		Workers:         runtime.GOMAXPROCS(0),
		Logger:          zerolog.Nop(),
	}
}

func WithMaxExtraRegions(n int) BuildOption {
	return func(o *BuildOptions) error {
		o.MaxExtraRegions = n
		return nil
	}
}

func WithMaxTreeDepth(depth int) BuildOption {
	return func(o *BuildOptions) error {
		o.MaxTreeDepth = depth
		return nil
	}
}

func WithSeed(seed int64) BuildOption {
	return func(o *BuildOptions) error {
		o.Seed = seed
		return nil
	}
}

func WithWorkers(n int) BuildOption {
	return func(o *BuildOptions) error {
		if n <= 0 {
			return fmt.Errorf("WithWorkers: workers must be positive, got %d", n)
		}
		o.Workers = n
		return nil
	}
}

func WithGrid(g *mesh.Grid) BuildOption {
	return func(o *BuildOptions) error {
		if g == nil {
			return fmt.Errorf("WithGrid: grid is nil")
		}
		o.Grid = g
		return nil
	}
}

func WithLogger(l zerolog.Logger) BuildOption {
	return func(o *BuildOptions) error {
		o.Logger = l
		return nil
	}
}

// WithProgress reports the progress of every parallel build phase.
func WithProgress(fn func(phase string, done, total int)) BuildOption {
	return func(o *BuildOptions) error {
		o.Progress = fn
		return nil
	}
}

func (o *BuildOptions) progress(phase string) parallel.Progress {
	if o.Progress == nil {
		return nil
	}
	return func(done, total int) {
		o.Progress(phase, done, total)
	}
}

type EngineOptions struct {
	Logger     zerolog.Logger
	Registerer prometheus.Registerer
	// Tolerance is the largest difference from the reference distance that
	// RunScenarios accepts.
	Tolerance float64
	// Validate makes RunScenarios compare every answer with
	// ReferenceDistance.
	Validate bool
	Workers  int
}

type EngineOption func(*EngineOptions) error

func defaultEngineOptions() EngineOptions {
	return EngineOptions{
		Logger:    zerolog.Nop(),
		Tolerance: defaultTolerance,
		Workers:   runtime.GOMAXPROCS(0),
	}
}

func WithEngineLogger(l zerolog.Logger) EngineOption {
	return func(o *EngineOptions) error {
		o.Logger = l
		return nil
	}
}

// WithRegisterer registers the query metrics with reg. A registerer serves a
// single engine.
func WithRegisterer(reg prometheus.Registerer) EngineOption {
	return func(o *EngineOptions) error {
		if reg == nil {
			return fmt.Errorf("WithRegisterer: registerer is nil")
		}
		o.Registerer = reg
		return nil
	}
}

func WithTolerance(tol float64) EngineOption {
	return func(o *EngineOptions) error {
		if tol < 0 {
			return fmt.Errorf("WithTolerance: tolerance must be non-negative, got %v", tol)
		}
		o.Tolerance = tol
		return nil
	}
}

func WithValidation(enabled bool) EngineOption {
	return func(o *EngineOptions) error {
		o.Validate = enabled
		return nil
	}
}

func WithEngineWorkers(n int) EngineOption {
	return func(o *EngineOptions) error {
		if n <= 0 {
			return fmt.Errorf("WithEngineWorkers: workers must be positive, got %d", n)
		}
		o.Workers = n
		return nil
	}
}
