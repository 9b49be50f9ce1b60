package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"go-convolve/pkg/common"
)

const (
	workersGroup    = "workers"
	collectorsGroup = "collectors"
)

type RedisClient struct {
	client *redis.Client
	ctx    context.Context
	prefix string
}

func NewRedisClient(addr string) (*RedisClient, error) {
	return NewRedisClientWithPrefix(addr, "conv")
}

// NewRedisClientWithPrefix namespaces every key under prefix, so several
// runs can share one Redis.
func NewRedisClientWithPrefix(addr, prefix string) (*RedisClient, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &RedisClient{
		client: client,
		ctx:    ctx,
		prefix: prefix,
	}, nil
}

func (r *RedisClient) Close() error {
	return r.client.Close()
}

func (r *RedisClient) jobsStream() string {
	return r.prefix + ":jobs"
}

func (r *RedisClient) resultsStream() string {
	return r.prefix + ":results"
}

func (r *RedisClient) jobInfoKey(jobID int) string {
	return fmt.Sprintf("%s:job:%d:info", r.prefix, jobID)
}

func (r *RedisClient) jobStatusKey(jobID int) string {
	return fmt.Sprintf("%s:job:%d:status", r.prefix, jobID)
}

// IsEmpty reports whether a read error only means the block timed out.
func IsEmpty(err error) bool {
	return errors.Is(err, redis.Nil)
}

func (r *RedisClient) EnsureGroups() error {
	for stream, group := range map[string]string{
		r.jobsStream():    workersGroup,
		r.resultsStream(): collectorsGroup,
	} {
		err := r.client.XGroupCreateMkStream(r.ctx, stream, group, "$").Err()
		if err != nil && !isBusyGroup(err) {
			return fmt.Errorf("create group %s on %s: %w", group, stream, err)
		}
	}
	return nil
}

func isBusyGroup(err error) bool {
	return strings.HasPrefix(err.Error(), "BUSYGROUP")
}

func (r *RedisClient) AddJob(job *common.JobMessage) (string, error) {
	return r.add(r.jobsStream(), job)
}

func (r *RedisClient) AddResult(res *common.ResultMessage) (string, error) {
	return r.add(r.resultsStream(), res)
}

func (r *RedisClient) add(stream string, v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}

	result := r.client.XAdd(r.ctx, &redis.XAddArgs{
		Stream: stream,
		Values: map[string]interface{}{"data": b},
	})

	return result.Val(), result.Err()
}

func (r *RedisClient) ReadJob(consumer string, block time.Duration) (string, *common.JobMessage, error) {
	var job common.JobMessage
	id, ok, err := r.read(r.jobsStream(), workersGroup, consumer, block, &job)
	if err != nil || !ok {
		// A message that fails to decode still returns its id so the caller
		// can acknowledge it.
		return id, nil, err
	}
	return id, &job, nil
}

func (r *RedisClient) AckJob(id string) error {
	return r.client.XAck(r.ctx, r.jobsStream(), workersGroup, id).Err()
}

func (r *RedisClient) ReadResult(consumer string, block time.Duration) (string, *common.ResultMessage, error) {
	var res common.ResultMessage
	id, ok, err := r.read(r.resultsStream(), collectorsGroup, consumer, block, &res)
	if err != nil || !ok {
		// A message that fails to decode still returns its id so the caller
		// can acknowledge it.
		return id, nil, err
	}
	return id, &res, nil
}

func (r *RedisClient) AckResult(id string) error {
	return r.client.XAck(r.ctx, r.resultsStream(), collectorsGroup, id).Err()
}

func (r *RedisClient) read(stream, group, consumer string, block time.Duration, into any) (string, bool, error) {
	result, err := r.client.XReadGroup(r.ctx, &redis.XReadGroupArgs{
		Group:    group,
		Consumer: consumer,
		Streams:  []string{stream, ">"},
		Count:    1,
		Block:    block,
	}).Result()

	if err != nil || len(result) == 0 || len(result[0].Messages) == 0 {
		return "", false, err
	}

	msg := result[0].Messages[0]
	if err := json.Unmarshal(bytesFromInterface(msg.Values["data"]), into); err != nil {
		return msg.ID, false, fmt.Errorf("decode message %s: %w", msg.ID, err)
	}
	return msg.ID, true, nil
}

func (r *RedisClient) StoreJobInfo(info *common.JobInfo) error {
	b, err := json.Marshal(info)
	if err != nil {
		return err
	}
	return r.client.Set(r.ctx, r.jobInfoKey(info.ID), b, 24*time.Hour).Err()
}

func (r *RedisClient) GetJobInfo(jobID int) (*common.JobInfo, error) {
	data, err := r.client.Get(r.ctx, r.jobInfoKey(jobID)).Result()
	if err != nil {
		return nil, err
	}

	var info common.JobInfo
	if err := json.Unmarshal([]byte(data), &info); err != nil {
		return nil, err
	}

	return &info, nil
}

func (r *RedisClient) MarkJobCompleted(jobID int) error {
	return r.client.Set(r.ctx, r.jobStatusKey(jobID), "completed", 24*time.Hour).Err()
}

func (r *RedisClient) IsJobCompleted(jobID int) (bool, error) {
	result, err := r.client.Get(r.ctx, r.jobStatusKey(jobID)).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return result == "completed", nil
}

// ClaimStaleJobs moves jobs idle for longer than minIdle to consumer.
func (r *RedisClient) ClaimStaleJobs(consumer string, minIdle time.Duration, count int) ([]string, error) {
	pending, err := r.client.XPendingExt(r.ctx, &redis.XPendingExtArgs{
		Stream: r.jobsStream(),
		Group:  workersGroup,
		Idle:   minIdle,
		Count:  int64(count),
		Start:  "-",
		End:    "+",
	}).Result()

	if err != nil || len(pending) == 0 {
		return nil, err
	}

	ids := make([]string, 0, len(pending))
	for _, p := range pending {
		ids = append(ids, p.ID)
	}

	claimed, err := r.client.XClaim(r.ctx, &redis.XClaimArgs{
		Stream:   r.jobsStream(),
		Group:    workersGroup,
		Consumer: consumer,
		MinIdle:  minIdle,
		Messages: ids,
	}).Result()

	if err != nil {
		return nil, err
	}

	claimedIDs := make([]string, 0, len(claimed))
	for _, c := range claimed {
		claimedIDs = append(claimedIDs, c.ID)
	}

	return claimedIDs, nil
}

// ReadClaimedJob returns one job already delivered to consumer (e.g. by
// ClaimStaleJobs) but not yet acknowledged.
func (r *RedisClient) ReadClaimedJob(consumer string) (string, *common.JobMessage, error) {
	result, err := r.client.XReadGroup(r.ctx, &redis.XReadGroupArgs{
		Group:    workersGroup,
		Consumer: consumer,
		Streams:  []string{r.jobsStream(), "0"},
		Count:    1,
		Block:    -1,
	}).Result()

	if err != nil || len(result) == 0 || len(result[0].Messages) == 0 {
		return "", nil, err
	}

	msg := result[0].Messages[0]
	var job common.JobMessage
	if err := json.Unmarshal(bytesFromInterface(msg.Values["data"]), &job); err != nil {
		return msg.ID, nil, fmt.Errorf("decode message %s: %w", msg.ID, err)
	}
	return msg.ID, &job, nil
}

func bytesFromInterface(v interface{}) []byte {
	switch t := v.(type) {
	case string:
		return []byte(t)
	case []byte:
		return t
	default:
		b, _ := json.Marshal(t)
		return b
	}
}
