package stats

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"
)

// PerformanceData holds timing and metadata for one engine's run
type PerformanceData struct {
	AlgorithmName    string
	RastersProcessed int
	KernelSize       int
	TotalTime        float64
	AverageTime      float64
	InputPaths       []string
	OutputPaths      []string
	Timestamp        time.Time

	// Engine-specific data
	SerialTime   *float64 // seconds spent outside parallel loops
	ParallelTime *float64 // seconds spent inside parallel loops
	Workers      *int     // For the parallel engine
	Strategy     *string  // For the parallel engine
	Mismatches   *int     // Cells differing from the sequential reference
}

// WritePerformanceResults writes a single combined results file
func WritePerformanceResults(results []PerformanceData) {
	WritePerformanceResultsWithPrefix(results, "conv_")
}

// WritePerformanceResultsWithPrefix writes results file with custom prefix
func WritePerformanceResultsWithPrefix(results []PerformanceData, prefix string) {
	if _, err := WritePerformanceResultsTo("logs", prefix, results); err != nil {
		log.Printf("Failed to write results file: %v", err)
	}
}

// WritePerformanceResultsTo writes the combined report into dir and returns
// the file path.
func WritePerformanceResultsTo(dir, prefix string, results []PerformanceData) (string, error) {
	if len(results) == 0 {
		return "", nil
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create %s: %w", dir, err)
	}

	// Use timestamp from first result
	timestamp := results[0].Timestamp.Format("2006-01-02_15-04-05")
	resultsFile := filepath.Join(dir, fmt.Sprintf("%s%s.txt", prefix, timestamp))

	file, err := os.Create(resultsFile)
	if err != nil {
		return "", fmt.Errorf("failed to create results file: %w", err)
	}
	defer file.Close()

	if err := FormatPerformanceResults(file, results); err != nil {
		return "", err
	}
	return resultsFile, nil
}

// FormatPerformanceResults renders the report body.
func FormatPerformanceResults(w io.Writer, results []PerformanceData) error {
	if len(results) == 0 {
		return nil
	}
	ew := &errWriter{w: w}

	ew.printf("=== Combined Convolution Results ===\n")
	ew.printf("Timestamp: %s\n", results[0].Timestamp.Format("2006-01-02 15:04:05"))
	ew.printf("Host: %s\n\n", HostInfo())

	for _, result := range results {
		prefix := ""
		switch result.AlgorithmName {
		case "Sequential":
			prefix = "seq_"
		case "Parallel":
			prefix = "par_"
		case "Distributed":
			prefix = "dist_"
		}

		ew.printf("=== %s%s Results ===\n", prefix, result.AlgorithmName)
		ew.printf("Rasters processed: %d\n", result.RastersProcessed)
		ew.printf("Kernel size: %d\n", result.KernelSize)

		if result.SerialTime != nil {
			ew.printf("Serial time: %.3fms\n", *result.SerialTime*1000)
		}
		if result.ParallelTime != nil {
			ew.printf("Parallel time: %.3fms\n", *result.ParallelTime*1000)
		}

		ew.printf("Total execution time: %.3fs\n", result.TotalTime)
		ew.printf("Average time per raster: %.3fs\n", result.AverageTime)

		if result.Workers != nil {
			ew.printf("Workers: %d\n", *result.Workers)
		}
		if result.Strategy != nil {
			ew.printf("Strategy: %s\n", *result.Strategy)
		}
		if result.Mismatches != nil {
			ew.printf("Cells differing from sequential: %d\n", *result.Mismatches)
		}

		ew.printf("\nInput files:\n")
		for i, path := range result.InputPaths {
			ew.printf("  %d. %s\n", i+1, path)
		}

		ew.printf("\nOutput files:\n")
		for i, path := range result.OutputPaths {
			ew.printf("  %d. %s\n", i+1, path)
		}

		ew.printf("\n")
	}
	return ew.err
}

type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) printf(format string, args ...any) {
	if e.err != nil {
		return
	}
	_, e.err = fmt.Fprintf(e.w, format, args...)
}
