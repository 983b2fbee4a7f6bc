package verification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	jobsKey     = "verification:jobs"
	inflightKey = "verification:inflight"

	defaultPollInterval = 250 * time.Millisecond
)

// claimScript atomically moves the earliest due job from the schedule to the
// in-flight hash.
var claimScript = redis.NewScript(`
local items = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', ARGV[1], 'LIMIT', 0, 1)
if #items == 0 then
  return false
end
redis.call('ZREM', KEYS[1], items[1])
local job = cjson.decode(items[1])
redis.call('HSET', KEYS[2], job['id'], items[1])
return items[1]
`)

// RedisQueue keeps jobs in a sorted set scored by due time in unix
// milliseconds. Claimed jobs are held in a hash until acked.
type RedisQueue struct {
	client *redis.Client
	poll   time.Duration
	now    func() time.Time
}

// NewRedisQueue builds a queue on client. A zero poll uses 250ms.
func NewRedisQueue(client *redis.Client, poll time.Duration) *RedisQueue {
	if poll <= 0 {
		poll = defaultPollInterval
	}
	return &RedisQueue{client: client, poll: poll, now: time.Now}
}

func (q *RedisQueue) Enqueue(ctx context.Context, job Job) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("encode job: %w", err)
	}
	if err := q.client.ZAdd(ctx, jobsKey, redis.Z{Score: float64(job.DueAt.UnixMilli()), Member: payload}).Err(); err != nil {
		return fmt.Errorf("enqueue job: %w", err)
	}
	return nil
}

func (q *RedisQueue) Dequeue(ctx context.Context) (Job, error) {
	for {
		now := strconv.FormatInt(q.now().UnixMilli(), 10)
		raw, err := claimScript.Run(ctx, q.client, []string{jobsKey, inflightKey}, now).Text()
		switch {
		case err == nil:
			var job Job
			if err := json.Unmarshal([]byte(raw), &job); err != nil {
				return Job{}, fmt.Errorf("decode job: %w", err)
			}
			return job, nil
		case !errors.Is(err, redis.Nil):
			return Job{}, fmt.Errorf("claim job: %w", err)
		}

		timer := time.NewTimer(q.poll)
		select {
		case <-ctx.Done():
			timer.Stop()
			return Job{}, ctx.Err()
		case <-timer.C:
		}
	}
}

func (q *RedisQueue) Ack(ctx context.Context, job Job) error {
	if err := q.client.HDel(ctx, inflightKey, job.ID).Err(); err != nil {
		return fmt.Errorf("ack job: %w", err)
	}
	return nil
}

// Recover reschedules every in-flight job as due now.
func (q *RedisQueue) Recover(ctx context.Context) (int, error) {
	stuck, err := q.client.HGetAll(ctx, inflightKey).Result()
	if err != nil {
		return 0, fmt.Errorf("list in-flight jobs: %w", err)
	}
	if len(stuck) == 0 {
		return 0, nil
	}
	score := float64(q.now().UnixMilli())
	_, err = q.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for id, payload := range stuck {
			pipe.ZAdd(ctx, jobsKey, redis.Z{Score: score, Member: payload})
			pipe.HDel(ctx, inflightKey, id)
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("recover jobs: %w", err)
	}
	return len(stuck), nil
}
