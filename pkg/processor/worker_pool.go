package processor

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"go-convolve/pkg/common"
	"go-convolve/pkg/convolve"
	"go-convolve/pkg/queue"
	"go-convolve/pkg/rasterio"
)

// JobQueue is the part of the Redis client the worker pool needs.
type JobQueue interface {
	ReadJob(consumer string, block time.Duration) (string, *common.JobMessage, error)
	ReadClaimedJob(consumer string) (string, *common.JobMessage, error)
	AckJob(id string) error
	AddResult(res *common.ResultMessage) (string, error)
	ClaimStaleJobs(consumer string, minIdle time.Duration, count int) ([]string, error)
}

type WorkerPool struct {
	jobs          JobQueue
	numWorkers    int
	threads       int
	workerID      string
	jobsProcessed atomic.Int64
	ctx           context.Context
	cancel        context.CancelFunc
}

// NewWorkerPool creates numWorkers job consumers. Jobs in parallel mode
// convolve with threads goroutines each (0 means GOMAXPROCS).
func NewWorkerPool(jobs JobQueue, numWorkers, threads int, workerID string) *WorkerPool {
	ctx, cancel := context.WithCancel(context.Background())

	return &WorkerPool{
		jobs:       jobs,
		numWorkers: numWorkers,
		threads:    threads,
		workerID:   workerID,
		ctx:        ctx,
		cancel:     cancel,
	}
}

func (wp *WorkerPool) Start() {
	var wg sync.WaitGroup

	for i := 0; i < wp.numWorkers; i++ {
		wg.Add(1)
		go wp.worker(i, &wg)
	}

	wg.Add(1)
	go wp.retryMonitor(&wg)

	log.Printf("WorkerPool: Started %d workers", wp.numWorkers)
	wg.Wait()
}

func (wp *WorkerPool) Stop() {
	log.Println("WorkerPool: Shutting down...")
	wp.cancel()
}

// Processed returns the number of jobs acknowledged so far.
func (wp *WorkerPool) Processed() int64 {
	return wp.jobsProcessed.Load()
}

func (wp *WorkerPool) worker(id int, wg *sync.WaitGroup) {
	defer wg.Done()

	consumer := fmt.Sprintf("%s-worker-%d", wp.workerID, id)
	log.Printf("Worker %d started as consumer %s", id, consumer)

	for {
		select {
		case <-wp.ctx.Done():
			log.Printf("Worker %d shutting down", id)
			return
		default:
			msgID, job, err := wp.jobs.ReadJob(consumer, 5*time.Second)
			if err != nil {
				if !queue.IsEmpty(err) {
					log.Printf("Worker %d read error: %v", id, err)
					if msgID != "" {
						_ = wp.jobs.AckJob(msgID)
					}
				}
				continue
			}
			if job == nil {
				continue
			}
			wp.handle(id, msgID, job)
		}
	}
}

// handle runs one job and acknowledges it unless its result could not be
// published, in which case the retry monitor picks it up again.
func (wp *WorkerPool) handle(id int, msgID string, msg *common.JobMessage) {
	if msg.Type != "convolve" || msg.Job == nil {
		log.Printf("Worker %d: invalid job type %q", id, msg.Type)
		_ = wp.jobs.AckJob(msgID)
		return
	}

	if err := wp.ProcessJob(msg.Job); err != nil {
		log.Printf("Worker %d failed to process job %d: %v", id, msg.Job.JobID, err)
		return
	}

	_ = wp.jobs.AckJob(msgID)
	if count := wp.jobsProcessed.Add(1); count%10 == 0 {
		log.Printf("WorkerPool: Processed %d jobs total", count)
	}
}

// ProcessJob convolves one job and publishes its result. Bad input files are
// reported in the result rather than returned, since retrying cannot fix
// them.
func (wp *WorkerPool) ProcessJob(job *common.ConvolutionJob) error {
	startTime := time.Now()

	result := &common.ResultMessage{
		JobID:      job.JobID,
		WorkerID:   wp.workerID,
		OutputPath: job.OutputPath,
	}

	if err := wp.convolve(job, result); err != nil {
		if !errors.Is(err, common.ErrIO) && !errors.Is(err, common.ErrMalformed) && !errors.Is(err, common.ErrUsage) {
			return err
		}
		result.Error = err.Error()
	}
	result.ProcessTime = time.Since(startTime).Seconds()

	if _, err := wp.jobs.AddResult(result); err != nil {
		return fmt.Errorf("failed to add result: %w", err)
	}
	return nil
}

func (wp *WorkerPool) convolve(job *common.ConvolutionJob, result *common.ResultMessage) error {
	engine, err := EngineFor(job.Mode, wp.threads)
	if err != nil {
		return err
	}

	img, err := rasterio.ReadFile(job.InputPath)
	if err != nil {
		return err
	}
	kernel, err := rasterio.ReadKernel(job.KernelPath)
	if err != nil {
		return err
	}

	out, timing, err := convolve.Apply(engine, kernel, img)
	if err != nil {
		return err
	}
	if err := rasterio.WriteFile(job.OutputPath, out); err != nil {
		return err
	}

	result.Rows, result.Cols = out.Rows(), out.Cols()
	result.KernelSize = kernel.Rows()
	result.SerialTime = timing.Serial.Seconds()
	result.ParallelTime = timing.Parallel.Seconds()
	return nil
}

// EngineFor maps a job mode to an engine.
func EngineFor(mode string, threads int) (convolve.Engine, error) {
	switch mode {
	case common.ModeSequential:
		return convolve.Sequential{}, nil
	case common.ModeParallel, "":
		return convolve.NewParallel(threads, convolve.OuterLoop), nil
	}
	return nil, fmt.Errorf("unknown mode %q: %w", mode, common.ErrUsage)
}

func (wp *WorkerPool) retryMonitor(wg *sync.WaitGroup) {
	defer wg.Done()

	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	consumer := fmt.Sprintf("%s-retry-monitor", wp.workerID)

	for {
		select {
		case <-wp.ctx.Done():
			return
		case <-ticker.C:
			claimedIDs, err := wp.jobs.ClaimStaleJobs(consumer, 30*time.Second, 50)
			if err != nil {
				log.Printf("Failed to claim stale jobs: %v", err)
				continue
			}

			if len(claimedIDs) > 0 {
				log.Printf("Claimed %d stale jobs for retry", len(claimedIDs))
			}
			wp.drainClaimed(consumer)
		}
	}
}

// drainClaimed reruns every job currently pending on consumer.
func (wp *WorkerPool) drainClaimed(consumer string) {
	for wp.ctx.Err() == nil {
		msgID, job, err := wp.jobs.ReadClaimedJob(consumer)
		if err != nil {
			if msgID != "" {
				_ = wp.jobs.AckJob(msgID)
				continue
			}
			if !queue.IsEmpty(err) {
				log.Printf("Retry monitor read error: %v", err)
			}
			return
		}
		if job == nil {
			return
		}
		wp.handle(-1, msgID, job)
	}
}
