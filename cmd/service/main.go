package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"go-convolve/pkg/common"
	"go-convolve/pkg/coordinator"
	"go-convolve/pkg/processor"
	"go-convolve/pkg/queue"
	"go-convolve/pkg/stats"
)

func main() {
	var (
		redisAddr  = flag.String("redis", "localhost:6379", "Redis address")
		inputDir   = flag.String("input", "data/input", "Input directory")
		kernelPath = flag.String("kernel", "data/kernel.txt", "Kernel raster")
		outputDir  = flag.String("output", "data/output", "Output directory")
		numWorkers = flag.Int("workers", 4, "Number of concurrent jobs per worker process")
		threads    = flag.Int("threads", 0, "Goroutines per parallel job (0 = GOMAXPROCS)")
		engineMode = flag.String("engine", common.ModeParallel, "Engine used by workers: sequential or parallel")
		mode       = flag.String("mode", "all", "Mode: coordinator, worker, or all")
	)
	flag.Parse()

	hostname, _ := os.Hostname()
	serviceID := fmt.Sprintf("%s-%d", hostname, time.Now().Unix())

	log.Printf("Starting distributed convolution service")
	log.Printf("Mode: %s, Service ID: %s", *mode, serviceID)
	log.Printf("Redis: %s, Workers: %d, Threads: %d", *redisAddr, *numWorkers, *threads)

	redisClient, err := queue.NewRedisClient(*redisAddr)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()

	if err := redisClient.EnsureGroups(); err != nil {
		log.Printf("Failed to ensure Redis groups: %v", err)
	}

	if err := os.MkdirAll(*outputDir, 0755); err != nil {
		log.Fatalf("Failed to create output directory: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup

	switch *mode {
	case "coordinator":
		runCoordinator(ctx, redisClient, *inputDir, *kernelPath, *outputDir, *engineMode, serviceID)

	case "worker":
		workerPool := processor.NewWorkerPool(redisClient, *numWorkers, *threads, serviceID)

		wg.Add(1)
		go func() {
			defer wg.Done()
			workerPool.Start()
		}()

		<-ctx.Done()
		workerPool.Stop()

	case "all":
		workerPool := processor.NewWorkerPool(redisClient, *numWorkers, *threads, serviceID)
		wg.Add(1)
		go func() {
			defer wg.Done()
			workerPool.Start()
		}()

		runCoordinator(ctx, redisClient, *inputDir, *kernelPath, *outputDir, *engineMode, serviceID)

		log.Println("Shutting down all components...")
		workerPool.Stop()

	default:
		log.Fatalf("Invalid mode: %s. Use coordinator, worker, or all", *mode)
	}

	wg.Wait()
	log.Println("Service shutdown complete")
}

// runCoordinator queues every raster in inputDir, waits for their results
// and writes the performance report.
func runCoordinator(ctx context.Context, redisClient *queue.RedisClient, inputDir, kernelPath, outputDir, engineMode, serviceID string) {
	inputPaths := findRasters(inputDir)
	if len(inputPaths) == 0 {
		log.Printf("No rasters found in %s", inputDir)
		return
	}

	log.Printf("Coordinator: Processing %d rasters", len(inputPaths))

	coord := coordinator.NewCoordinator(redisClient, kernelPath, engineMode)

	startTime := time.Now()
	if _, err := coord.ProcessRasters(inputPaths, outputDir); err != nil {
		log.Printf("Coordinator failed: %v", err)
		return
	}
	log.Printf("Coordinator: All rasters queued in %.2fs", time.Since(startTime).Seconds())

	collector := coordinator.NewCollector(redisClient, serviceID)
	results, err := collector.Collect(ctx, len(inputPaths))
	if err != nil {
		log.Printf("Collector stopped early: %v", err)
	}

	data, failed := coordinator.Summarize(results, inputPaths, time.Since(startTime))
	log.Printf("Coordinator: %d rasters done, %d failed, in %.2fs", data.RastersProcessed, failed, data.TotalTime)
	stats.WritePerformanceResultsWithPrefix([]stats.PerformanceData{data}, "dist_")
}

func findRasters(dir string) []string {
	var rasters []string

	patterns := []string{"*.txt", "*.pgm", "*.zst", "*.png", "*.jpg", "*.jpeg", "*.bmp", "*.tif", "*.tiff"}
	for _, pattern := range patterns {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err == nil {
			rasters = append(rasters, matches...)
		}
	}

	kept := rasters[:0]
	for _, path := range rasters {
		if !strings.Contains(filepath.Base(path), "_convolved") {
			kept = append(kept, path)
		}
	}
	return kept
}
