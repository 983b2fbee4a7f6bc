package chain

import (
	"context"
	"sort"
	"sync"
	"time"
)

type memoryRepository struct {
	mu      sync.RWMutex
	nextID  int64
	entries map[string]LogEntry
}

// NewMemoryRepository builds an in-memory log store holding the given seed entries.
func NewMemoryRepository(seed ...LogEntry) Repository {
	r := &memoryRepository{entries: make(map[string]LogEntry)}
	for _, entry := range seed {
		if entry.ID > r.nextID {
			r.nextID = entry.ID
		}
		r.entries[entry.TxHash] = entry
	}
	return r
}

func (r *memoryRepository) Create(_ context.Context, entry LogEntry) (LogEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[entry.TxHash]; exists {
		return LogEntry{}, ErrDuplicateTxHash
	}
	r.nextID++
	entry.ID = r.nextID
	r.entries[entry.TxHash] = entry
	return entry, nil
}

func (r *memoryRepository) GetByTxHash(_ context.Context, txHash string) (LogEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.entries[txHash]
	if !ok {
		return LogEntry{}, ErrLogNotFound
	}
	return entry, nil
}

func (r *memoryRepository) List(_ context.Context) ([]LogEntry, error) {
	r.mu.RLock()
	entries := make([]LogEntry, 0, len(r.entries))
	for _, entry := range r.entries {
		entries = append(entries, entry)
	}
	r.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].CreatedAt.Equal(entries[j].CreatedAt) {
			return entries[i].CreatedAt.After(entries[j].CreatedAt)
		}
		return entries[i].ID > entries[j].ID
	})
	return entries, nil
}

func (r *memoryRepository) UpdateStatus(_ context.Context, txHash string, update Update) (LogEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.entries[txHash]
	if !ok {
		return LogEntry{}, ErrLogNotFound
	}
	if entry.Status.Terminal() {
		return entry, ErrAlreadySettled
	}
	entry.Status = update.Status
	entry.BlockNumber = update.BlockNumber
	entry.GasUsed = update.GasUsed
	verifiedAt := update.VerifiedAt.UTC()
	entry.VerifiedAt = &verifiedAt
	r.entries[txHash] = entry
	return entry, nil
}

// SeedDriverLogs returns the verified entries backing the seeded drivers.
func SeedDriverLogs() []LogEntry {
	entry := func(id, driverID, block int64, hash string, created time.Time) LogEntry {
		gas := TransferGas
		verifiedAt := created.Add(2 * time.Minute)
		return LogEntry{
			ID:          id,
			EntityType:  EntityDriver,
			EntityID:    driverID,
			TxHash:      hash,
			Status:      StatusVerified,
			BlockNumber: &block,
			GasUsed:     &gas,
			CreatedAt:   created,
			VerifiedAt:  &verifiedAt,
		}
	}
	return []LogEntry{
		entry(1, 1, BaseBlockNumber, "0x1a2b3c4d5e6f7890abcdef1234567890abcdef1234567890abcdef1234567890", time.Date(2024, 1, 10, 10, 0, 0, 0, time.UTC)),
		entry(2, 2, BaseBlockNumber+1, "0x2b3c4d5e6f7890ab1234567890abcdef1234567890abcdef1234567890abcdef", time.Date(2024, 1, 11, 14, 30, 0, 0, time.UTC)),
	}
}
