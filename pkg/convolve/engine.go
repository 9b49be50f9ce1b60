// Package convolve implements "same size" 2D convolution of an integer raster
// against a square kernel with replicated borders and kernel-sum
// normalization.
//
// Two engines share one pipeline and produce bit-identical output:
// Sequential runs everything on the calling goroutine, Parallel splits the
// independent loops across a bounded pool.
package convolve

import (
	"fmt"
	"strings"
	"time"

	"go-convolve/pkg/common"
	"go-convolve/pkg/parallel"
	"go-convolve/pkg/raster"
	"go-convolve/pkg/stats"
)

// Engine runs the convolution pipeline.
type Engine interface {
	// Name is used in banners and reports.
	Name() string

	// Convolve writes the normalized convolution of img by kernel into out,
	// which must have img's dimensions. img is consumed: its buffer is
	// retired once the extended copy exists.
	Convolve(kernel, img, out *raster.Raster) (stats.Timing, error)
}

// Apply allocates the output raster and runs e.
func Apply(e Engine, kernel, img *raster.Raster) (*raster.Raster, stats.Timing, error) {
	out := raster.New(img.Rows(), img.Cols())
	t, err := e.Convolve(kernel, img, out)
	if err != nil {
		return nil, t, err
	}
	return out, t, nil
}

// Strategy selects which loop level of the Parallel engine runs in parallel.
// Only one level is ever parallel so pixels do not oversubscribe the pool.
type Strategy int

const (
	// OuterLoop splits output rows across workers.
	OuterLoop Strategy = iota
	// InnerLoop walks pixels in order and splits each pixel's kernel rows.
	InnerLoop
)

func (s Strategy) String() string {
	switch s {
	case OuterLoop:
		return "outer"
	case InnerLoop:
		return "inner"
	default:
		return fmt.Sprintf("Strategy(%d)", int(s))
	}
}

// ParseStrategy accepts "outer" or "inner".
func ParseStrategy(s string) (Strategy, error) {
	switch strings.ToLower(s) {
	case "outer", "":
		return OuterLoop, nil
	case "inner":
		return InnerLoop, nil
	}
	return 0, fmt.Errorf("unknown strategy %q: %w", s, common.ErrUsage)
}

// Sequential is the single-goroutine reference engine.
type Sequential struct{}

func (Sequential) Name() string { return "Sequential" }

func (Sequential) Convolve(kernel, img, out *raster.Raster) (stats.Timing, error) {
	var t stats.Timing
	p := pipeline{
		loop:     serialLoop{},
		mac:      PixelMAC,
		parallel: &t.Serial,
		serial:   &t.Serial,
	}
	err := p.run(kernel, img, out)
	return t, err
}

// Parallel splits the pipeline's independent loops across a worker pool.
type Parallel struct {
	pool     *parallel.Pool
	strategy Strategy
}

// NewParallel returns a parallel engine. workers <= 0 uses GOMAXPROCS.
func NewParallel(workers int, strategy Strategy) *Parallel {
	return &Parallel{pool: parallel.New(workers), strategy: strategy}
}

func (p *Parallel) Name() string { return "Parallel" }

func (p *Parallel) Workers() int { return p.pool.Workers() }

func (p *Parallel) Strategy() Strategy { return p.strategy }

func (p *Parallel) Convolve(kernel, img, out *raster.Raster) (stats.Timing, error) {
	var t stats.Timing
	pl := pipeline{
		loop:     p.pool,
		mac:      PixelMAC,
		parallel: &t.Parallel,
		serial:   &t.Serial,
	}
	if p.strategy == InnerLoop {
		pl.pixels = serialLoop{}
		pl.mac = func(kernel, ext *raster.Raster, row, col int) int32 {
			return PixelMACParallel(p.pool, kernel, ext, row, col)
		}
	}
	err := pl.run(kernel, img, out)
	return t, err
}

// looper runs fn over [0, n) split into ranges.
type looper interface {
	For(n int, fn func(start, end int))
}

type serialLoop struct{}

func (serialLoop) For(n int, fn func(start, end int)) {
	if n > 0 {
		fn(0, n)
	}
}

type macFunc func(kernel, ext *raster.Raster, row, col int) int32

// pipeline is one pass of Start -> Extended -> Convolved -> Normalized -> Done.
type pipeline struct {
	loop   looper // interior copy, normalization, and pixels unless overridden
	pixels looper // per-pixel loop; nil means loop
	mac    macFunc

	parallel *time.Duration // time spent in loop
	serial   *time.Duration // everything else
}

func (p pipeline) run(kernel, img, out *raster.Raster) error {
	if !kernel.IsSquare() {
		return fmt.Errorf("kernel is %dx%d, want square: %w", kernel.Rows(), kernel.Cols(), common.ErrMalformed)
	}
	if out.Rows() != img.Rows() || out.Cols() != img.Cols() {
		return fmt.Errorf("output is %dx%d, input is %dx%d: %w",
			out.Rows(), out.Cols(), img.Rows(), img.Cols(), common.ErrMalformed)
	}

	half := kernel.Rows() / 2
	rows, cols := img.Rows(), img.Cols()

	// Start -> Extended. The interior copy counts as parallel work and the
	// layer fill as serial, so extend is timed in two parts.
	copyLoop := &timedLoop{looper: p.loop, bucket: p.parallel}
	done := stats.Stopwatch(p.serial)
	ext := extend(img, half, copyLoop)
	*p.serial -= copyLoop.spent
	done()

	// Extended -> Convolved.
	pixels := p.pixels
	if pixels == nil {
		pixels = p.loop
	}
	done = stats.Stopwatch(p.parallel)
	pixels.For(rows, func(start, end int) {
		for r := start; r < end; r++ {
			dst := out.Row(r)
			for c := 0; c < cols; c++ {
				dst[c] = p.mac(kernel, ext, r+half, c+half)
			}
		}
	})
	done()

	// Convolved -> Normalized.
	done = stats.Stopwatch(p.serial)
	divisor := KernelSum(kernel)
	done()

	done = stats.Stopwatch(p.parallel)
	normalize(out, out, divisor, p.loop)
	done()

	// Normalized -> Done.
	done = stats.Stopwatch(p.serial)
	ext.Retire()
	done()
	return nil
}

// timedLoop adds the wall time of each For call to bucket and remembers it
// so the enclosing serial region can subtract it.
type timedLoop struct {
	looper
	bucket *time.Duration
	spent  time.Duration
}

func (t *timedLoop) For(n int, fn func(start, end int)) {
	start := time.Now()
	t.looper.For(n, fn)
	d := time.Since(start)
	t.spent += d
	*t.bucket += d
}
