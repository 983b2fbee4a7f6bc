package rides

import (
	"context"
	"sort"
	"sync"
	"time"
)

type memoryRepository struct {
	mu     sync.RWMutex
	nextID int64
	rides  map[int64]Ride
}

// NewMemoryRepository constructs an in-memory ride repository.
func NewMemoryRepository() Repository {
	return &memoryRepository{rides: make(map[int64]Ride)}
}

func (r *memoryRepository) Create(_ context.Context, ride Ride) (Ride, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	ride.ID = r.nextID
	r.rides[ride.ID] = ride
	return ride, nil
}

func (r *memoryRepository) Get(_ context.Context, id int64) (Ride, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ride, ok := r.rides[id]
	if !ok {
		return Ride{}, ErrRideNotFound
	}
	return ride, nil
}

func (r *memoryRepository) ListByUser(_ context.Context, userID int64) ([]Ride, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Ride
	for _, ride := range r.rides {
		if ride.UserID == userID {
			out = append(out, ride)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memoryRepository) UpdateStatus(_ context.Context, id int64, status Status, txHash string) (Ride, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ride, ok := r.rides[id]
	if !ok {
		return Ride{}, ErrRideNotFound
	}
	ride.Status = status
	if txHash != "" {
		ride.BlockchainTx = txHash
	}
	ride.UpdatedAt = time.Now().UTC()
	r.rides[id] = ride
	return ride, nil
}
