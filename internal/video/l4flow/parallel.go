package l4flow

import (
	"runtime"

	"golang.org/x/sync/errgroup"
)

// parallelRange splits [lo, hi) into contiguous chunks and runs fn on each
// chunk, with at most workers chunks in flight. fn must only write state
// owned by its chunk.
func parallelRange(lo, hi, workers int, fn func(start, end int) error) error {
	n := hi - lo
	if n <= 0 {
		return nil
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	workers = min(workers, n)
	if workers == 1 {
		return fn(lo, hi)
	}

	chunk := (n + workers - 1) / workers
	var g errgroup.Group
	g.SetLimit(workers)
	for start := lo; start < hi; start += chunk {
		end := min(start+chunk, hi)
		g.Go(func() error {
			return fn(start, end)
		})
	}
	return g.Wait()
}
