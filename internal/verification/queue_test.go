package verification

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/trust-ride/trust_ride/internal/chain"
)

func mustJob(t *testing.T, txHash string, delay time.Duration) Job {
	t.Helper()
	job, err := newJob(time.Now().UTC(), txHash, chain.EntityRide, 1, delay)
	if err != nil {
		t.Fatalf("new job: %v", err)
	}
	return job
}

func TestNewJobIDsAreULIDs(t *testing.T) {
	a := mustJob(t, "0xa", 0)
	b := mustJob(t, "0xb", 0)
	if len(a.ID) != 26 || a.ID == b.ID {
		t.Fatalf("unexpected ids %q %q", a.ID, b.ID)
	}
}

func TestMemoryQueueOrdersByDueTime(t *testing.T) {
	q := NewMemoryQueue()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	late := mustJob(t, "0xlate", 60*time.Millisecond)
	early := mustJob(t, "0xearly", 10*time.Millisecond)
	_ = q.Enqueue(ctx, late)
	_ = q.Enqueue(ctx, early)

	first, err := q.Dequeue(ctx)
	if err != nil {
		t.Fatalf("dequeue: %v", err)
	}
	if first.TxHash != "0xearly" {
		t.Fatalf("expected earliest job first, got %s", first.TxHash)
	}
	if time.Now().Before(early.DueAt) {
		t.Fatal("job dequeued before it was due")
	}
	second, err := q.Dequeue(ctx)
	if err != nil {
		t.Fatalf("dequeue: %v", err)
	}
	if second.TxHash != "0xlate" {
		t.Fatalf("expected late job, got %s", second.TxHash)
	}
}

func TestMemoryQueueDequeueHonorsContext(t *testing.T) {
	q := NewMemoryQueue()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := q.Dequeue(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestMemoryQueueWakesWaitingWorker(t *testing.T) {
	q := NewMemoryQueue()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	got := make(chan Job, 1)
	go func() {
		job, err := q.Dequeue(ctx)
		if err == nil {
			got <- job
		}
	}()
	time.Sleep(10 * time.Millisecond)
	_ = q.Enqueue(ctx, mustJob(t, "0xnow", 0))

	select {
	case job := <-got:
		if job.TxHash != "0xnow" {
			t.Fatalf("unexpected job %+v", job)
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatal("waiting worker was not woken")
	}
}

func TestMemoryQueueRecover(t *testing.T) {
	q := NewMemoryQueue()
	ctx := context.Background()
	_ = q.Enqueue(ctx, mustJob(t, "0x1", 0))
	job, err := q.Dequeue(ctx)
	if err != nil {
		t.Fatalf("dequeue: %v", err)
	}
	if queued, inflight := q.Len(); queued != 0 || inflight != 1 {
		t.Fatalf("expected job in flight, got %d queued %d in flight", queued, inflight)
	}

	n, err := q.Recover(ctx)
	if err != nil || n != 1 {
		t.Fatalf("recover: %d %v", n, err)
	}
	again, err := q.Dequeue(ctx)
	if err != nil || again.ID != job.ID {
		t.Fatalf("expected recovered job, got %+v %v", again, err)
	}
	_ = q.Ack(ctx, again)
	if queued, inflight := q.Len(); queued != 0 || inflight != 0 {
		t.Fatalf("expected empty queue, got %d queued %d in flight", queued, inflight)
	}
}

func newRedisQueue(t *testing.T) (*RedisQueue, *redis.Client) {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisQueue(client, 5*time.Millisecond), client
}

func TestRedisQueueDequeueAndAck(t *testing.T) {
	q, client := newRedisQueue(t)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	later := mustJob(t, "0xlater", time.Hour)
	due := mustJob(t, "0xdue", 0)
	if err := q.Enqueue(ctx, later); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if err := q.Enqueue(ctx, due); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	job, err := q.Dequeue(ctx)
	if err != nil {
		t.Fatalf("dequeue: %v", err)
	}
	if job.ID != due.ID || job.EntityType != chain.EntityRide {
		t.Fatalf("unexpected job %+v", job)
	}
	if n, _ := client.HLen(ctx, inflightKey).Result(); n != 1 {
		t.Fatalf("expected one in-flight job, got %d", n)
	}
	if err := q.Ack(ctx, job); err != nil {
		t.Fatalf("ack: %v", err)
	}
	if n, _ := client.HLen(ctx, inflightKey).Result(); n != 0 {
		t.Fatalf("ack should clear in-flight job, got %d", n)
	}
	if n, _ := client.ZCard(ctx, jobsKey).Result(); n != 1 {
		t.Fatalf("future job should stay scheduled, got %d", n)
	}

	short, cancelShort := context.WithTimeout(ctx, 30*time.Millisecond)
	defer cancelShort()
	if _, err := q.Dequeue(short); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("future job must not be dequeued, got %v", err)
	}
}

func TestRedisQueueRecoversAfterRestart(t *testing.T) {
	q, client := newRedisQueue(t)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	job := mustJob(t, "0xcrash", 0)
	if err := q.Enqueue(ctx, job); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if _, err := q.Dequeue(ctx); err != nil {
		t.Fatalf("dequeue: %v", err)
	}

	restarted := NewRedisQueue(client, 5*time.Millisecond)
	n, err := restarted.Recover(ctx)
	if err != nil || n != 1 {
		t.Fatalf("recover: %d %v", n, err)
	}
	again, err := restarted.Dequeue(ctx)
	if err != nil {
		t.Fatalf("dequeue after recover: %v", err)
	}
	if again.ID != job.ID || again.TxHash != "0xcrash" {
		t.Fatalf("expected recovered job, got %+v", again)
	}
	if n, err := restarted.Recover(ctx); err != nil || n != 1 {
		t.Fatalf("job should be in flight again, got %d %v", n, err)
	}
}
