package coordinator

import (
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"go-convolve/pkg/common"
)

// JobSink is the part of the Redis client the coordinator writes to.
type JobSink interface {
	AddJob(job *common.JobMessage) (string, error)
	StoreJobInfo(info *common.JobInfo) error
}

type Coordinator struct {
	jobs       JobSink
	kernelPath string
	mode       string
}

// NewCoordinator queues jobs that convolve with the kernel at kernelPath,
// using mode (common.ModeSequential or common.ModeParallel) on the workers.
func NewCoordinator(jobs JobSink, kernelPath, mode string) *Coordinator {
	return &Coordinator{
		jobs:       jobs,
		kernelPath: kernelPath,
		mode:       mode,
	}
}

// ProcessRaster queues one raster as job jobID.
func (c *Coordinator) ProcessRaster(jobID int, inputPath, outputPath string) error {
	now := time.Now()

	info := &common.JobInfo{
		ID:         jobID,
		InputPath:  inputPath,
		OutputPath: outputPath,
		StartTime:  now,
	}
	if err := c.jobs.StoreJobInfo(info); err != nil {
		return fmt.Errorf("failed to store job info: %w", err)
	}

	job := &common.JobMessage{
		Type: "convolve",
		Job: &common.ConvolutionJob{
			JobID:      jobID,
			InputPath:  inputPath,
			KernelPath: c.kernelPath,
			OutputPath: outputPath,
			Mode:       c.mode,
			QueuedAt:   now,
		},
	}
	if _, err := c.jobs.AddJob(job); err != nil {
		return fmt.Errorf("failed to add job: %w", err)
	}

	log.Printf("Coordinator: Queued job %d for %s", jobID, inputPath)
	return nil
}

// ProcessRasters queues every input and returns the output paths in input
// order. Job IDs are the input indexes.
func (c *Coordinator) ProcessRasters(inputPaths []string, outputDir string) ([]string, error) {
	outputs := make([]string, len(inputPaths))
	var g errgroup.Group
	g.SetLimit(8)

	for i, inputPath := range inputPaths {
		outputs[i] = OutputPath(outputDir, inputPath)
		g.Go(func() error {
			if err := c.ProcessRaster(i, inputPath, outputs[i]); err != nil {
				return fmt.Errorf("raster %d: %w", i, err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return outputs, nil
}

// OutputPath names the result of convolving inputPath inside outputDir.
// Image inputs keep their extension, so the result is exported as PNG.
func OutputPath(outputDir, inputPath string) string {
	base := filepath.Base(inputPath)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)

	switch strings.ToLower(ext) {
	case ".png", ".jpg", ".jpeg", ".gif", ".bmp", ".tif", ".tiff":
		ext = ".png"
	case ".zst":
		ext = ".txt.zst"
		stem = strings.TrimSuffix(stem, filepath.Ext(stem))
	case "":
		ext = ".txt"
	}
	return filepath.Join(outputDir, stem+"_convolved"+ext)
}
