package coordinator

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"go-convolve/pkg/common"
)

type fakeSink struct {
	mu    sync.Mutex
	jobs  []*common.JobMessage
	infos map[int]*common.JobInfo
	fail  bool
}

func (f *fakeSink) AddJob(job *common.JobMessage) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return "", errors.New("connection refused")
	}
	f.jobs = append(f.jobs, job)
	return "1-0", nil
}

func (f *fakeSink) StoreJobInfo(info *common.JobInfo) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.infos == nil {
		f.infos = make(map[int]*common.JobInfo)
	}
	f.infos[info.ID] = info
	return nil
}

func TestProcessRasters(t *testing.T) {
	sink := &fakeSink{}
	c := NewCoordinator(sink, "k.txt", common.ModeParallel)

	inputs := []string{"in/a.txt", "in/b.png", "in/c.txt"}
	outputs, err := c.ProcessRasters(inputs, "out")
	if err != nil {
		t.Fatalf("ProcessRasters: %v", err)
	}

	want := []string{
		filepath.Join("out", "a_convolved.txt"),
		filepath.Join("out", "b_convolved.png"),
		filepath.Join("out", "c_convolved.txt"),
	}
	for i := range want {
		if outputs[i] != want[i] {
			t.Errorf("outputs[%d] = %q, want %q", i, outputs[i], want[i])
		}
	}

	if len(sink.jobs) != len(inputs) {
		t.Fatalf("queued %d jobs, want %d", len(sink.jobs), len(inputs))
	}
	for _, msg := range sink.jobs {
		job := msg.Job
		if msg.Type != "convolve" || job.KernelPath != "k.txt" || job.Mode != common.ModeParallel {
			t.Errorf("job %+v", job)
		}
		if job.InputPath != inputs[job.JobID] || job.OutputPath != want[job.JobID] {
			t.Errorf("job %d paths = %s -> %s", job.JobID, job.InputPath, job.OutputPath)
		}
		if sink.infos[job.JobID] == nil {
			t.Errorf("job %d has no stored info", job.JobID)
		}
	}
}

func TestProcessRastersError(t *testing.T) {
	c := NewCoordinator(&fakeSink{fail: true}, "k.txt", common.ModeSequential)
	if _, err := c.ProcessRasters([]string{"a.txt"}, "out"); err == nil {
		t.Error("expected error from failing queue")
	}
}

func TestOutputPath(t *testing.T) {
	tests := map[string]string{
		"data/img.txt":     "img_convolved.txt",
		"data/img":         "img_convolved.txt",
		"data/photo.JPG":   "photo_convolved.png",
		"data/big.txt.zst": "big_convolved.txt.zst",
		"data/scan.tiff":   "scan_convolved.png",
	}
	for in, want := range tests {
		if got := OutputPath("out", in); got != filepath.Join("out", want) {
			t.Errorf("OutputPath(%q) = %q, want %q", in, got, want)
		}
	}
}

type fakeSource struct {
	results   []*common.ResultMessage
	acked     []string
	completed []int
}

func (f *fakeSource) ReadResult(consumer string, block time.Duration) (string, *common.ResultMessage, error) {
	if len(f.results) == 0 {
		return "", nil, redis.Nil
	}
	res := f.results[0]
	f.results = f.results[1:]
	return "id-" + res.WorkerID, res, nil
}

func (f *fakeSource) AckResult(id string) error {
	f.acked = append(f.acked, id)
	return nil
}

func (f *fakeSource) MarkJobCompleted(jobID int) error {
	f.completed = append(f.completed, jobID)
	return nil
}

func TestCollect(t *testing.T) {
	src := &fakeSource{results: []*common.ResultMessage{
		{JobID: 1, WorkerID: "w1", OutputPath: "b", KernelSize: 3, SerialTime: 1, ParallelTime: 2},
		{JobID: 1, WorkerID: "w2", OutputPath: "b"},
		{JobID: 0, WorkerID: "w3", OutputPath: "a", KernelSize: 3, SerialTime: 3, ParallelTime: 4},
		{JobID: 2, WorkerID: "w4", Error: "open x: i/o failure"},
	}}

	got, err := NewCollector(src, "test").Collect(context.Background(), 3)
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if len(got) != 3 || got[0].JobID != 0 || got[1].JobID != 1 || got[2].JobID != 2 {
		t.Fatalf("results = %+v", got)
	}
	if got[1].WorkerID != "w1" {
		t.Errorf("duplicate replaced first result: %+v", got[1])
	}
	if len(src.acked) != 4 {
		t.Errorf("acked %v, want all 4 messages", src.acked)
	}
	if len(src.completed) != 2 {
		t.Errorf("completed %v, want jobs 1 and 0 only", src.completed)
	}

	data, failed := Summarize(got, []string{"a", "b", "c"}, 2*time.Second)
	if failed != 1 || data.RastersProcessed != 2 {
		t.Errorf("failed = %d, processed = %d", failed, data.RastersProcessed)
	}
	if *data.SerialTime != 4 || *data.ParallelTime != 6 {
		t.Errorf("serial = %v, parallel = %v", *data.SerialTime, *data.ParallelTime)
	}
	if data.AverageTime != 1 || data.KernelSize != 3 || data.AlgorithmName != "Distributed" {
		t.Errorf("summary = %+v", data)
	}
}

func TestCollectCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewCollector(&fakeSource{}, "test").Collect(ctx, 1)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}
