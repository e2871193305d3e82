// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

// Package parallel runs index-range loops across a bounded set of goroutines.
package parallel

import (
	"context"
	"runtime"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// Progress receives the number of finished items and the total. It may be
// called from several goroutines at once.
type Progress func(done, total int)

// progressStep is how many items a worker finishes between progress reports.
const progressStep = 64

// For calls fn(ctx, i) for every i in [0, n). The range is cut into one
// contiguous chunk per worker; fn must only touch state owned by index i.
// workers <= 0 means runtime.GOMAXPROCS(0). The first error cancels the
// remaining chunks and is returned.
func For(ctx context.Context, n, workers int, progress Progress, fn func(ctx context.Context, i int) error) error {
	if n <= 0 {
		return nil
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	workers = min(workers, n)

	var done atomic.Int64
	report := func(k int) {
		if progress == nil {
			return
		}
		progress(int(done.Add(int64(k))), n)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	chunk := (n + workers - 1) / workers
	for lo := 0; lo < n; lo += chunk {
		hi := min(lo+chunk, n)
		g.Go(func() error {
			pending := 0
			for i := lo; i < hi; i++ {
				if err := ctx.Err(); err != nil {
					return err
				}
				if err := fn(ctx, i); err != nil {
					return err
				}
				pending++
				if pending == progressStep {
					report(pending)
					pending = 0
				}
			}
			if pending > 0 {
				report(pending)
			}
			return nil
		})
	}
	return g.Wait()
}

// Map calls fn for every i in [0, n) through For and collects the results in
// index order.
func Map[T any](ctx context.Context, n, workers int, progress Progress, fn func(ctx context.Context, i int) (T, error)) ([]T, error) {
	out := make([]T, max(n, 0))
	err := For(ctx, n, workers, progress, func(ctx context.Context, i int) error {
		v, err := fn(ctx, i)
		if err != nil {
			return err
		}
		out[i] = v
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
