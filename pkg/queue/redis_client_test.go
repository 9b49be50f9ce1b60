package queue

import (
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"go-convolve/pkg/common"
)

func TestBytesFromInterface(t *testing.T) {
	tests := []struct {
		in   interface{}
		want string
	}{
		{`{"a":1}`, `{"a":1}`},
		{[]byte("raw"), "raw"},
		{42, "42"},
	}
	for _, tt := range tests {
		if got := string(bytesFromInterface(tt.in)); got != tt.want {
			t.Errorf("bytesFromInterface(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestKeys(t *testing.T) {
	r := &RedisClient{prefix: "run1"}
	if got := r.jobsStream(); got != "run1:jobs" {
		t.Errorf("jobsStream = %q", got)
	}
	if got := r.resultsStream(); got != "run1:results" {
		t.Errorf("resultsStream = %q", got)
	}
	if got := r.jobInfoKey(3); got != "run1:job:3:info" {
		t.Errorf("jobInfoKey = %q", got)
	}
	if got := r.jobStatusKey(3); got != "run1:job:3:status" {
		t.Errorf("jobStatusKey = %q", got)
	}
}

func TestErrorClassification(t *testing.T) {
	if !IsEmpty(fmt.Errorf("read: %w", redis.Nil)) {
		t.Error("wrapped redis.Nil not treated as empty")
	}
	if IsEmpty(errors.New("i/o timeout")) {
		t.Error("timeout treated as empty")
	}
	if !isBusyGroup(errors.New("BUSYGROUP Consumer Group name already exists")) {
		t.Error("BUSYGROUP not recognised")
	}
}

// newTestClient connects to REDIS_ADDR under a fresh prefix, skipping the
// test when no server is configured.
func newTestClient(t *testing.T) *RedisClient {
	t.Helper()
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	prefix := fmt.Sprintf("conv-test-%d", time.Now().UnixNano())
	r, err := NewRedisClientWithPrefix(addr, prefix)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() {
		r.client.Del(r.ctx, r.jobsStream(), r.resultsStream())
		r.Close()
	})
	if err := r.EnsureGroups(); err != nil {
		t.Fatalf("EnsureGroups: %v", err)
	}
	// A second call must tolerate the existing groups.
	if err := r.EnsureGroups(); err != nil {
		t.Fatalf("EnsureGroups again: %v", err)
	}
	return r
}

func TestJobRoundTrip(t *testing.T) {
	r := newTestClient(t)

	job := &common.JobMessage{Type: "convolve", Job: &common.ConvolutionJob{JobID: 5, InputPath: "in.txt", Mode: common.ModeParallel}}
	if _, err := r.AddJob(job); err != nil {
		t.Fatalf("AddJob: %v", err)
	}

	id, got, err := r.ReadJob("c1", time.Second)
	if err != nil {
		t.Fatalf("ReadJob: %v", err)
	}
	if got.Job.JobID != 5 || got.Job.InputPath != "in.txt" || got.Job.Mode != common.ModeParallel {
		t.Errorf("job = %+v", got.Job)
	}

	// Unacknowledged, the job can be claimed by another consumer.
	claimed, err := r.ClaimStaleJobs("c2", 0, 10)
	if err != nil || len(claimed) != 1 || claimed[0] != id {
		t.Fatalf("ClaimStaleJobs = %v, %v", claimed, err)
	}
	cid, again, err := r.ReadClaimedJob("c2")
	if err != nil || cid != id || again.Job.JobID != 5 {
		t.Fatalf("ReadClaimedJob = %s, %+v, %v", cid, again, err)
	}

	if err := r.AckJob(id); err != nil {
		t.Fatalf("AckJob: %v", err)
	}
	if _, _, err := r.ReadJob("c1", 50*time.Millisecond); !IsEmpty(err) {
		t.Errorf("ReadJob on empty stream = %v, want redis.Nil", err)
	}
}

func TestJobStatus(t *testing.T) {
	r := newTestClient(t)
	id := int(time.Now().UnixNano() % 1_000_000)
	t.Cleanup(func() { r.client.Del(r.ctx, r.jobInfoKey(id), r.jobStatusKey(id)) })

	if err := r.StoreJobInfo(&common.JobInfo{ID: id, InputPath: "a", OutputPath: "b"}); err != nil {
		t.Fatalf("StoreJobInfo: %v", err)
	}
	info, err := r.GetJobInfo(id)
	if err != nil || info.InputPath != "a" || info.OutputPath != "b" {
		t.Fatalf("GetJobInfo = %+v, %v", info, err)
	}

	if done, err := r.IsJobCompleted(id); err != nil || done {
		t.Fatalf("IsJobCompleted before = %v, %v", done, err)
	}
	if err := r.MarkJobCompleted(id); err != nil {
		t.Fatal(err)
	}
	if done, err := r.IsJobCompleted(id); err != nil || !done {
		t.Fatalf("IsJobCompleted after = %v, %v", done, err)
	}
}

func TestResultRoundTrip(t *testing.T) {
	r := newTestClient(t)

	if _, err := r.AddResult(&common.ResultMessage{JobID: 2, WorkerID: "w", Rows: 4, Cols: 5}); err != nil {
		t.Fatalf("AddResult: %v", err)
	}
	id, res, err := r.ReadResult("collector", time.Second)
	if err != nil {
		t.Fatalf("ReadResult: %v", err)
	}
	if res.JobID != 2 || res.Rows != 4 || res.Cols != 5 {
		t.Errorf("result = %+v", res)
	}
	if err := r.AckResult(id); err != nil {
		t.Errorf("AckResult: %v", err)
	}
}
