// Package benchmark runs the sequential and parallel engines over the same
// inputs, checks that they agree and reports their timings.
package benchmark

import (
	"fmt"
	"io"
	"math/rand"
	"path/filepath"
	"strings"
	"time"

	"go-convolve/pkg/common"
	"go-convolve/pkg/convolve"
	"go-convolve/pkg/raster"
	"go-convolve/pkg/rasterio"
	"go-convolve/pkg/stats"
)

// Config describes one benchmark session.
type Config struct {
	InputPaths []string
	KernelPath string
	// Size generates a random Size x Size input when InputPaths is empty.
	Size int
	// OutputDir receives each engine's results; empty skips writing.
	OutputDir string
	Workers   int
	Strategy  convolve.Strategy
	Runs      int
	Seed      int64
}

type input struct {
	name string
	img  *raster.Raster
}

// Run benchmarks both engines and returns one report entry per engine, the
// sequential one first. Progress lines go to w.
func Run(cfg Config, w io.Writer) ([]stats.PerformanceData, error) {
	if cfg.Runs < 1 {
		cfg.Runs = 1
	}

	kernel, err := rasterio.ReadKernel(cfg.KernelPath)
	if err != nil {
		return nil, err
	}
	inputs, err := loadInputs(cfg)
	if err != nil {
		return nil, err
	}

	par := convolve.NewParallel(cfg.Workers, cfg.Strategy)

	fmt.Fprintln(w, "1. Running Sequential engine:")
	seq, seqOut, err := runEngine(convolve.Sequential{}, kernel, inputs, cfg, w)
	if err != nil {
		return nil, err
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "2. Running Parallel engine (%d workers, %s):\n", par.Workers(), par.Strategy())
	parData, parOut, err := runEngine(par, kernel, inputs, cfg, w)
	if err != nil {
		return nil, err
	}

	workers := par.Workers()
	strategy := par.Strategy().String()
	mismatches := 0
	for i := range seqOut {
		mismatches += countDiff(seqOut[i], parOut[i])
	}
	parData.Workers = &workers
	parData.Strategy = &strategy
	parData.Mismatches = &mismatches

	if mismatches > 0 {
		fmt.Fprintf(w, "\nWARNING: %d cells differ between engines\n", mismatches)
	} else {
		fmt.Fprintf(w, "\nEngines agree on all %d rasters\n", len(inputs))
	}
	return []stats.PerformanceData{seq, parData}, nil
}

func loadInputs(cfg Config) ([]input, error) {
	if len(cfg.InputPaths) == 0 {
		if cfg.Size <= 0 {
			return nil, fmt.Errorf("no inputs and no size given: %w", common.ErrUsage)
		}
		rng := rand.New(rand.NewSource(cfg.Seed))
		return []input{{
			name: fmt.Sprintf("random-%dx%d", cfg.Size, cfg.Size),
			img:  Random(rng, cfg.Size, cfg.Size),
		}}, nil
	}

	inputs := make([]input, 0, len(cfg.InputPaths))
	for _, path := range cfg.InputPaths {
		img, err := rasterio.ReadFile(path)
		if err != nil {
			return nil, err
		}
		inputs = append(inputs, input{name: path, img: img})
	}
	return inputs, nil
}

// runEngine convolves every input cfg.Runs times and keeps the first
// output of each.
func runEngine(e convolve.Engine, kernel *raster.Raster, inputs []input, cfg Config, w io.Writer) (stats.PerformanceData, []*raster.Raster, error) {
	data := stats.PerformanceData{
		AlgorithmName:    e.Name(),
		RastersProcessed: len(inputs),
		KernelSize:       kernel.Rows(),
		Timestamp:        time.Now(),
	}
	outputs := make([]*raster.Raster, len(inputs))

	var total stats.Timing
	startTime := time.Now()
	for i, in := range inputs {
		fmt.Fprintf(w, "  Processing %s (%dx%d)...", in.name, in.img.Rows(), in.img.Cols())

		var timing stats.Timing
		for run := 0; run < cfg.Runs; run++ {
			out, t, err := convolve.Apply(e, kernel, in.img.Clone())
			if err != nil {
				return data, nil, fmt.Errorf("%s: %w", in.name, err)
			}
			timing.Add(t)
			if run == 0 {
				outputs[i] = out
			}
		}
		fmt.Fprintf(w, " %s\n", timing)
		total.Add(timing)
		data.InputPaths = append(data.InputPaths, in.name)

		if cfg.OutputDir != "" {
			path := outputPath(cfg.OutputDir, in.name, e.Name())
			if err := rasterio.WriteFile(path, outputs[i]); err != nil {
				return data, nil, err
			}
			data.OutputPaths = append(data.OutputPaths, path)
		}
	}

	data.TotalTime = time.Since(startTime).Seconds()
	data.AverageTime = data.TotalTime / float64(len(inputs)*cfg.Runs)
	serial := total.Serial.Seconds() / float64(cfg.Runs)
	parallel := total.Parallel.Seconds() / float64(cfg.Runs)
	data.SerialTime = &serial
	data.ParallelTime = &parallel

	fmt.Fprintf(w, "Total execution time: %.3fs\n", data.TotalTime)
	fmt.Fprintf(w, "Average time per raster: %.3fs\n", data.AverageTime)
	return data, outputs, nil
}

func outputPath(dir, name, engine string) string {
	base := filepath.Base(name)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(dir, fmt.Sprintf("%s_%s.txt", stem, strings.ToLower(engine)))
}

// countDiff returns the number of cells that differ between two rasters of
// the same shape, or every cell when the shapes differ.
func countDiff(a, b *raster.Raster) int {
	if a.Rows() != b.Rows() || a.Cols() != b.Cols() {
		return max(a.Len(), b.Len())
	}
	n := 0
	for i := 0; i < a.Rows(); i++ {
		ra, rb := a.Row(i), b.Row(i)
		for j := range ra {
			if ra[j] != rb[j] {
				n++
			}
		}
	}
	return n
}

// Random fills a rows x cols raster with 8-bit samples.
func Random(rng *rand.Rand, rows, cols int) *raster.Raster {
	r := raster.New(rows, cols)
	for i := 0; i < rows; i++ {
		row := r.Row(i)
		for j := range row {
			row[j] = rng.Int31n(256)
		}
	}
	return r
}
