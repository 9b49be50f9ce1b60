// Package parallel runs data-parallel loops over an index space on a bounded
// number of goroutines.
//
// Every index in [0, n) is handed to exactly one worker. Workers must only
// write state they own (disjoint cells); the only shared accumulation goes
// through Reduce, which merges private partials under a single lock.
package parallel

import (
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Pool bounds the number of goroutines a loop may use. It holds no goroutines
// between calls, so a zero-cost value can be shared by many pipelines.
type Pool struct {
	workers int
}

// New returns a pool of the given width. workers <= 0 uses GOMAXPROCS.
func New(workers int) *Pool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Pool{workers: workers}
}

// Workers returns the pool width.
func (p *Pool) Workers() int {
	return p.workers
}

// span returns how many workers a loop over n items should use.
func (p *Pool) span(n int) int {
	return min(p.workers, n)
}

// For executes fn over [0, n) split into contiguous blocks, one per worker.
// Blocks until all work completes.
func (p *Pool) For(n int, fn func(start, end int)) {
	if n <= 0 {
		return
	}
	workers := p.span(n)
	if workers == 1 {
		fn(0, n)
		return
	}

	chunk := (n + workers - 1) / workers

	var g errgroup.Group
	g.SetLimit(workers)
	for start := 0; start < n; start += chunk {
		end := min(start+chunk, n)
		g.Go(func() error {
			fn(start, end)
			return nil
		})
	}
	_ = g.Wait()
}

// ForStrided executes fn for each index in [0, n), assigning indices to
// workers round-robin: worker w gets w, w+W, w+2W, ...
func (p *Pool) ForStrided(n int, fn func(i int)) {
	if n <= 0 {
		return
	}
	workers := p.span(n)
	if workers == 1 {
		for i := 0; i < n; i++ {
			fn(i)
		}
		return
	}

	var g errgroup.Group
	g.SetLimit(workers)
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			for i := w; i < n; i += workers {
				fn(i)
			}
			return nil
		})
	}
	_ = g.Wait()
}

// Reduce splits [0, n) into blocks like For, lets each worker compute a
// private partial with fn, and folds the partials into one int32. Each worker
// merges once, inside a critical section. int32 addition wraps, so the result
// does not depend on merge order.
func (p *Pool) Reduce(n int, fn func(start, end int) int32) int32 {
	var (
		mu    sync.Mutex
		total int32
	)
	p.For(n, func(start, end int) {
		local := fn(start, end)
		mu.Lock()
		total += local
		mu.Unlock()
	})
	return total
}
