// Command convolution-par convolves a raster by a kernel across all CPUs.
//
//	convolution-par <input-raster> <kernel-raster> <output-raster>
//
// CONVOLVE_WORKERS limits the number of workers.
package main

import (
	"os"

	"go-convolve/pkg/cli"
	"go-convolve/pkg/convolve"
)

func main() {
	engine := convolve.NewParallel(cli.WorkersFromEnv(), convolve.OuterLoop)
	os.Exit(cli.Main(os.Args[1:], engine, os.Stdout))
}
