package verification

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Queue holds jobs until they are due. Dequeued jobs stay in flight until
// acked so they can be recovered after a crash.
type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	// Dequeue blocks until a job is due or ctx is done.
	Dequeue(ctx context.Context) (Job, error)
	Ack(ctx context.Context, job Job) error
	// Recover returns in-flight jobs to the queue and reports how many moved.
	Recover(ctx context.Context) (int, error)
}

const maxIdleWait = time.Second

// MemoryQueue is a process-local Queue. Jobs do not survive a restart.
type MemoryQueue struct {
	mu       sync.Mutex
	jobs     []Job
	inflight map[string]Job
	wake     chan struct{}
	now      func() time.Time
}

// NewMemoryQueue builds an empty in-memory queue.
func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{
		inflight: make(map[string]Job),
		wake:     make(chan struct{}, 1),
		now:      time.Now,
	}
}

func (q *MemoryQueue) Enqueue(_ context.Context, job Job) error {
	q.mu.Lock()
	q.insert(job)
	q.mu.Unlock()
	q.signal()
	return nil
}

func (q *MemoryQueue) insert(job Job) {
	i := sort.Search(len(q.jobs), func(i int) bool { return q.jobs[i].DueAt.After(job.DueAt) })
	q.jobs = append(q.jobs, Job{})
	copy(q.jobs[i+1:], q.jobs[i:])
	q.jobs[i] = job
}

func (q *MemoryQueue) signal() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

func (q *MemoryQueue) Dequeue(ctx context.Context) (Job, error) {
	for {
		q.mu.Lock()
		wait := maxIdleWait
		if len(q.jobs) > 0 {
			next := q.jobs[0]
			if until := next.DueAt.Sub(q.now()); until <= 0 {
				q.jobs = q.jobs[1:]
				q.inflight[next.ID] = next
				more := len(q.jobs) > 0
				q.mu.Unlock()
				if more {
					q.signal()
				}
				return next, nil
			} else if until < wait {
				wait = until
			}
		}
		q.mu.Unlock()

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return Job{}, ctx.Err()
		case <-q.wake:
			timer.Stop()
		case <-timer.C:
		}
	}
}

func (q *MemoryQueue) Ack(_ context.Context, job Job) error {
	q.mu.Lock()
	delete(q.inflight, job.ID)
	q.mu.Unlock()
	return nil
}

func (q *MemoryQueue) Recover(_ context.Context) (int, error) {
	q.mu.Lock()
	n := len(q.inflight)
	for id, job := range q.inflight {
		q.insert(job)
		delete(q.inflight, id)
	}
	q.mu.Unlock()
	if n > 0 {
		q.signal()
	}
	return n, nil
}

// Len reports the number of queued and in-flight jobs.
func (q *MemoryQueue) Len() (queued, inflight int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.jobs), len(q.inflight)
}
