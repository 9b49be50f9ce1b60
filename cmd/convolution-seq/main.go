// Command convolution-seq convolves a raster by a kernel on one goroutine.
//
//	convolution-seq <input-raster> <kernel-raster> <output-raster>
package main

import (
	"os"

	"go-convolve/pkg/cli"
	"go-convolve/pkg/convolve"
)

func main() {
	os.Exit(cli.Main(os.Args[1:], convolve.Sequential{}, os.Stdout))
}
