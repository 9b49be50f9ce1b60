package coordinator

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"go-convolve/pkg/common"
	"go-convolve/pkg/queue"
	"go-convolve/pkg/stats"
)

// ResultSource is the part of the Redis client the collector reads from.
type ResultSource interface {
	ReadResult(consumer string, block time.Duration) (string, *common.ResultMessage, error)
	AckResult(id string) error
	MarkJobCompleted(jobID int) error
}

// Collector gathers worker results until every queued job has reported.
type Collector struct {
	results     ResultSource
	collectorID string
	block       time.Duration
}

func NewCollector(results ResultSource, collectorID string) *Collector {
	return &Collector{
		results:     results,
		collectorID: collectorID,
		block:       5 * time.Second,
	}
}

// Collect reads results until expected distinct jobs have reported or ctx
// ends. Redelivered results for a job already seen are acknowledged and
// dropped. The returned slice is ordered by job ID.
func (c *Collector) Collect(ctx context.Context, expected int) ([]common.ResultMessage, error) {
	consumer := fmt.Sprintf("collector-%s", c.collectorID)
	seen := make(map[int]common.ResultMessage, expected)

	for len(seen) < expected {
		select {
		case <-ctx.Done():
			return sortedResults(seen), fmt.Errorf("collected %d of %d results: %w", len(seen), expected, ctx.Err())
		default:
		}

		msgID, res, err := c.results.ReadResult(consumer, c.block)
		if err != nil {
			if !queue.IsEmpty(err) {
				log.Printf("Collector read error: %v", err)
				if msgID != "" {
					_ = c.results.AckResult(msgID)
				}
			}
			continue
		}
		if res == nil {
			continue
		}

		if _, dup := seen[res.JobID]; dup {
			log.Printf("Result for job %d already collected (idempotent)", res.JobID)
			_ = c.results.AckResult(msgID)
			continue
		}
		seen[res.JobID] = *res
		_ = c.results.AckResult(msgID)

		if res.Error != "" {
			log.Printf("Job %d failed on %s: %s", res.JobID, res.WorkerID, res.Error)
			continue
		}
		if err := c.results.MarkJobCompleted(res.JobID); err != nil {
			log.Printf("Warning: failed to mark job %d as completed in Redis: %v", res.JobID, err)
		}
		log.Printf("Job %d done: %dx%d in %.3fs by %s (%d/%d)",
			res.JobID, res.Rows, res.Cols, res.ProcessTime, res.WorkerID, len(seen), expected)
	}
	return sortedResults(seen), nil
}

func sortedResults(seen map[int]common.ResultMessage) []common.ResultMessage {
	out := make([]common.ResultMessage, 0, len(seen))
	for _, r := range seen {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].JobID < out[j].JobID })
	return out
}

// Summarize turns collected results into a report entry. Failed jobs are
// left out of the timings and counted in the returned int.
func Summarize(results []common.ResultMessage, inputPaths []string, wall time.Duration) (stats.PerformanceData, int) {
	data := stats.PerformanceData{
		AlgorithmName: "Distributed",
		InputPaths:    inputPaths,
		TotalTime:     wall.Seconds(),
		Timestamp:     time.Now(),
	}

	var serial, parallel float64
	failed := 0
	for _, r := range results {
		if r.Error != "" {
			failed++
			continue
		}
		data.RastersProcessed++
		data.OutputPaths = append(data.OutputPaths, r.OutputPath)
		data.KernelSize = r.KernelSize
		serial += r.SerialTime
		parallel += r.ParallelTime
	}

	if data.RastersProcessed > 0 {
		data.AverageTime = data.TotalTime / float64(data.RastersProcessed)
	}
	data.SerialTime = &serial
	data.ParallelTime = &parallel
	return data, failed
}
