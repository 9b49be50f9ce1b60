package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"go-convolve/pkg/benchmark"
	"go-convolve/pkg/convolve"
	"go-convolve/pkg/stats"
)

func main() {
	var (
		inputs     = flag.String("input", "", "Comma-separated input rasters (empty generates a random one)")
		size       = flag.Int("size", 1024, "Side of the random input when -input is empty")
		kernelPath = flag.String("kernel", "data/kernel.txt", "Kernel raster")
		outputDir  = flag.String("output", "", "Directory for engine outputs (empty skips writing)")
		workers    = flag.Int("workers", 0, "Parallel workers (0 = GOMAXPROCS)")
		strategy   = flag.String("strategy", "outer", "Parallel strategy: outer or inner")
		runs       = flag.Int("runs", 3, "Runs per raster")
		seed       = flag.Int64("seed", 1, "Seed for the random input")
		prefix     = flag.String("prefix", "conv_", "Report file prefix under logs/")
	)
	flag.Parse()

	strat, err := convolve.ParseStrategy(*strategy)
	if err != nil {
		log.Fatalf("Invalid strategy: %v", err)
	}

	cfg := benchmark.Config{
		KernelPath: *kernelPath,
		Size:       *size,
		OutputDir:  *outputDir,
		Workers:    *workers,
		Strategy:   strat,
		Runs:       *runs,
		Seed:       *seed,
	}
	if *inputs != "" {
		cfg.InputPaths = strings.Split(*inputs, ",")
	}
	if cfg.OutputDir != "" {
		if err := os.MkdirAll(cfg.OutputDir, 0755); err != nil {
			log.Fatalf("Failed to create output directory: %v", err)
		}
	}

	fmt.Println("Running both convolution engines...")
	fmt.Printf("Host: %s\n\n", stats.HostInfo())

	results, err := benchmark.Run(cfg, os.Stdout)
	if err != nil {
		log.Fatalf("Benchmark failed: %v", err)
	}

	fmt.Println("\nWriting combined results file...")
	stats.WritePerformanceResultsWithPrefix(results, *prefix)
	fmt.Printf("Results written to logs/%s*.txt\n", *prefix)
}
