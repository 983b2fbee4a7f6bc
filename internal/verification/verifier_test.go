package verification

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/trust-ride/trust_ride/internal/chain"
	"github.com/trust-ride/trust_ride/internal/metrics"
	"github.com/trust-ride/trust_ride/internal/notification"
)

type flakyLogs struct {
	chain.Repository
	failures atomic.Int32
}

func (f *flakyLogs) UpdateStatus(ctx context.Context, txHash string, update chain.Update) (chain.LogEntry, error) {
	if f.failures.Add(-1) >= 0 {
		return chain.LogEntry{}, errors.New("connection reset")
	}
	return f.Repository.UpdateStatus(ctx, txHash, update)
}

type collectNotifier struct {
	mu   sync.Mutex
	msgs []notification.Message
}

func (n *collectNotifier) Send(_ context.Context, msg notification.Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.msgs = append(n.msgs, msg)
	return nil
}

func (n *collectNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.msgs)
}

var fastSim = Simulator{MinDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}

func seedPending(t *testing.T, logs chain.Repository, entity chain.EntityType, id int64) string {
	t.Helper()
	hash, err := chain.NewTxHash()
	if err != nil {
		t.Fatalf("tx hash: %v", err)
	}
	if _, err := logs.Create(context.Background(), chain.LogEntry{EntityType: entity, EntityID: id, TxHash: hash, Status: chain.StatusPending, CreatedAt: time.Now()}); err != nil {
		t.Fatalf("create log: %v", err)
	}
	return hash
}

func waitSettled(t *testing.T, logs chain.Repository, hash string) chain.LogEntry {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		entry, err := logs.GetByTxHash(context.Background(), hash)
		if err != nil {
			t.Fatalf("get log: %v", err)
		}
		if entry.Status.Terminal() {
			return entry
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("log %s never settled", hash)
	return chain.LogEntry{}
}

func startVerifier(t *testing.T, v *Verifier) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- v.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			if err != nil {
				t.Errorf("run: %v", err)
			}
		case <-time.After(2 * time.Second):
			t.Error("verifier did not stop")
		}
	})
}

func TestVerifierSettlesVerified(t *testing.T) {
	logs := chain.NewMemoryRepository()
	notifier := &collectNotifier{}
	sim := fastSim
	sim.SuccessRate = 1
	v := NewVerifier(NewMemoryQueue(), logs, sim, notifier, metrics.New(), nil, Options{Workers: 2})
	startVerifier(t, v)

	hashes := make([]string, 0, 5)
	for i := int64(1); i <= 5; i++ {
		hash := seedPending(t, logs, chain.EntityRide, i)
		if err := v.Submit(context.Background(), hash, chain.EntityRide, i); err != nil {
			t.Fatalf("submit: %v", err)
		}
		hashes = append(hashes, hash)
	}

	for _, hash := range hashes {
		entry := waitSettled(t, logs, hash)
		if entry.Status != chain.StatusVerified {
			t.Fatalf("expected verified, got %s", entry.Status)
		}
		if entry.BlockNumber == nil || *entry.BlockNumber < chain.BaseBlockNumber || entry.GasUsed == nil || *entry.GasUsed != chain.TransferGas {
			t.Fatalf("verified entry missing block data: %+v", entry)
		}
		if entry.VerifiedAt == nil {
			t.Fatal("verified entry missing verified_at")
		}
	}

	deadline := time.Now().Add(time.Second)
	for notifier.count() < len(hashes) && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if notifier.count() != len(hashes) {
		t.Fatalf("expected %d notifications, got %d", len(hashes), notifier.count())
	}
}

func TestVerifierFailedOutcomeIsTerminal(t *testing.T) {
	logs := chain.NewMemoryRepository()
	queue := NewMemoryQueue()
	v := NewVerifier(queue, logs, fastSim, nil, nil, nil, Options{Workers: 1})
	startVerifier(t, v)

	hash := seedPending(t, logs, chain.EntityAlert, 1)
	if err := v.Submit(context.Background(), hash, chain.EntityAlert, 1); err != nil {
		t.Fatalf("submit: %v", err)
	}
	entry := waitSettled(t, logs, hash)
	if entry.Status != chain.StatusFailed || entry.BlockNumber != nil || entry.VerifiedAt == nil {
		t.Fatalf("unexpected failed entry %+v", entry)
	}

	time.Sleep(20 * time.Millisecond)
	if queued, inflight := queue.Len(); queued != 0 || inflight != 0 {
		t.Fatalf("failed outcome must not be retried, got %d queued %d in flight", queued, inflight)
	}
}

func TestVerifierReplayKeepsSettledOutcome(t *testing.T) {
	logs := chain.NewMemoryRepository()
	notifier := &collectNotifier{}
	sim := fastSim
	sim.SuccessRate = 1
	first := NewVerifier(NewMemoryQueue(), logs, sim, notifier, nil, nil, Options{Workers: 1})
	startVerifier(t, first)

	hash := seedPending(t, logs, chain.EntityRide, 4)
	if err := first.Submit(context.Background(), hash, chain.EntityRide, 4); err != nil {
		t.Fatalf("submit: %v", err)
	}
	settled := waitSettled(t, logs, hash)
	if settled.Status != chain.StatusVerified {
		t.Fatalf("expected verified, got %s", settled.Status)
	}
	for wait := time.Now().Add(time.Second); notifier.count() == 0 && time.Now().Before(wait); {
		time.Sleep(5 * time.Millisecond)
	}

	// A redelivered job resolving to failure must not overwrite the outcome.
	queue := NewMemoryQueue()
	replay := NewVerifier(queue, logs, fastSim, notifier, nil, nil, Options{Workers: 1})
	startVerifier(t, replay)
	if err := replay.Submit(context.Background(), hash, chain.EntityRide, 4); err != nil {
		t.Fatalf("resubmit: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if queued, inflight := queue.Len(); queued == 0 && inflight == 0 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	if queued, inflight := queue.Len(); queued != 0 || inflight != 0 {
		t.Fatalf("replayed job should be acked, got %d queued %d in flight", queued, inflight)
	}

	entry, err := logs.GetByTxHash(context.Background(), hash)
	if err != nil {
		t.Fatalf("get log: %v", err)
	}
	if entry.Status != chain.StatusVerified || entry.BlockNumber == nil || *entry.BlockNumber != *settled.BlockNumber {
		t.Fatalf("settled entry was rewritten: %+v", entry)
	}
	if notifier.count() != 1 {
		t.Fatalf("expected a single notification, got %d", notifier.count())
	}
}

func TestVerifierRetriesStoreErrors(t *testing.T) {
	logs := &flakyLogs{Repository: chain.NewMemoryRepository()}
	logs.failures.Store(2)
	sim := fastSim
	sim.SuccessRate = 1
	v := NewVerifier(NewMemoryQueue(), logs, sim, nil, nil, nil, Options{Workers: 1, RetryBackoff: 5 * time.Millisecond})
	startVerifier(t, v)

	hash := seedPending(t, logs.Repository, chain.EntityRide, 9)
	if err := v.Submit(context.Background(), hash, chain.EntityRide, 9); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if entry := waitSettled(t, logs.Repository, hash); entry.Status != chain.StatusVerified {
		t.Fatalf("expected verified after retries, got %s", entry.Status)
	}
}

func TestVerifierAbandonsAfterMaxAttempts(t *testing.T) {
	logs := &flakyLogs{Repository: chain.NewMemoryRepository()}
	logs.failures.Store(100)
	queue := NewMemoryQueue()
	v := NewVerifier(queue, logs, fastSim, nil, nil, nil, Options{Workers: 1, MaxAttempts: 3, RetryBackoff: time.Millisecond})
	startVerifier(t, v)

	hash := seedPending(t, logs.Repository, chain.EntityRide, 1)
	if err := v.Submit(context.Background(), hash, chain.EntityRide, 1); err != nil {
		t.Fatalf("submit: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if 100-logs.failures.Load() >= 3 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	time.Sleep(30 * time.Millisecond)
	if attempts := 100 - logs.failures.Load(); attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", attempts)
	}
	if queued, inflight := queue.Len(); queued != 0 || inflight != 0 {
		t.Fatalf("abandoned job should leave the queue, got %d queued %d in flight", queued, inflight)
	}
	entry, _ := logs.GetByTxHash(context.Background(), hash)
	if entry.Status != chain.StatusPending {
		t.Fatalf("abandoned entry should stay pending, got %s", entry.Status)
	}
}

func TestSubmitSchedulesWithDelay(t *testing.T) {
	queue := NewMemoryQueue()
	sim := Simulator{MinDelay: time.Hour, MaxDelay: time.Hour}
	v := NewVerifier(queue, chain.NewMemoryRepository(), sim, nil, nil, nil, Options{})

	before := time.Now()
	if err := v.Submit(context.Background(), "0xabc", chain.EntityRide, 1); err != nil {
		t.Fatalf("submit: %v", err)
	}
	queue.mu.Lock()
	job := queue.jobs[0]
	queue.mu.Unlock()
	if job.DueAt.Before(before.Add(time.Hour)) || job.TxHash != "0xabc" || job.Attempts != 0 {
		t.Fatalf("unexpected job %+v", job)
	}
}
