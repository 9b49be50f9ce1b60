package common

import (
	"time"
)

// Execution modes understood by jobs and the benchmark runner.
const (
	ModeSequential = "sequential"
	ModeParallel   = "parallel"
)

// ConvolutionJob asks a worker to convolve one raster file against a kernel file.
type ConvolutionJob struct {
	JobID      int       `json:"job_id"`
	InputPath  string    `json:"input_path"`
	KernelPath string    `json:"kernel_path"`
	OutputPath string    `json:"output_path"`
	Mode       string    `json:"mode"`
	QueuedAt   time.Time `json:"queued_at"`
}

type JobMessage struct {
	Type string          `json:"type"`
	Job  *ConvolutionJob `json:"job,omitempty"`
}

type ResultMessage struct {
	JobID        int     `json:"job_id"`
	WorkerID     string  `json:"worker_id"`
	OutputPath   string  `json:"output_path"`
	Rows         int     `json:"rows"`
	Cols         int     `json:"cols"`
	KernelSize   int     `json:"kernel_size"`
	SerialTime   float64 `json:"serial_time"`
	ParallelTime float64 `json:"parallel_time"`
	ProcessTime  float64 `json:"process_time"`
	Error        string  `json:"error,omitempty"`
}

// JobInfo is stored alongside a queued job so results can be matched back.
type JobInfo struct {
	ID         int       `json:"id"`
	InputPath  string    `json:"input_path"`
	OutputPath string    `json:"output_path"`
	StartTime  time.Time `json:"start_time"`
}
