// Package cli implements the positional command line shared by the
// sequential and parallel convolution programs:
//
//	program <input-raster> <kernel-raster> <output-raster>
package cli

import (
	"fmt"
	"io"
	"log"
	"os"
	"strconv"

	"golang.org/x/sync/errgroup"

	"go-convolve/pkg/common"
	"go-convolve/pkg/convolve"
	"go-convolve/pkg/raster"
	"go-convolve/pkg/rasterio"
	"go-convolve/pkg/stats"
)

// WorkersEnv overrides the parallel worker count; the positional contract
// leaves no room for flags.
const WorkersEnv = "CONVOLVE_WORKERS"

// Main runs the program and returns its exit code.
func Main(args []string, engine convolve.Engine, stdout io.Writer) int {
	err := Run(args, engine, stdout)
	if err != nil {
		log.Printf("%s: %v", engine.Name(), err)
	}
	return common.ExitCode(err)
}

// Run convolves args[0] by args[1] and writes args[2], then prints the
// timing banner to stdout.
func Run(args []string, engine convolve.Engine, stdout io.Writer) error {
	if len(args) != 3 {
		return fmt.Errorf("want 3 arguments <input> <kernel> <output>, got %d: %w", len(args), common.ErrUsage)
	}
	inputPath, kernelPath, outputPath := args[0], args[1], args[2]

	var prog stats.Timing
	done := stats.Stopwatch(&prog.Serial)

	var img, kernel *raster.Raster
	var g errgroup.Group
	g.Go(func() (err error) {
		img, err = rasterio.ReadFile(inputPath)
		return err
	})
	g.Go(func() (err error) {
		kernel, err = rasterio.ReadKernel(kernelPath)
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}
	out := raster.New(img.Rows(), img.Cols())
	done()

	conv, err := engine.Convolve(kernel, img, out)
	if err != nil {
		return err
	}

	done = stats.Stopwatch(&prog.Serial)
	if err := rasterio.WriteFile(outputPath, out); err != nil {
		return err
	}
	done()

	printBanner(stdout, engine, prog, conv)
	return nil
}

func printBanner(w io.Writer, engine convolve.Engine, prog, conv stats.Timing) {
	switch engine.(type) {
	case convolve.Sequential:
		fmt.Fprintf(w, "CONVOLUTION SERIAL\n")
		fmt.Fprintf(w, "Serial Program time: %f ms\n", stats.Millis(prog.Serial+conv.Total()))
	default:
		fmt.Fprintf(w, "CONVOLUTION PARALLEL\n")
		fmt.Fprintf(w, "Parallel time: %f ms\n", stats.Millis(conv.Parallel))
		fmt.Fprintf(w, "Sequential time: %f ms\n", stats.Millis(prog.Serial+conv.Serial))
	}
}

// WorkersFromEnv reads WorkersEnv, returning 0 (GOMAXPROCS) when unset or
// invalid.
func WorkersFromEnv() int {
	v := os.Getenv(WorkersEnv)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		log.Printf("ignoring %s=%q", WorkersEnv, v)
		return 0
	}
	return n
}
