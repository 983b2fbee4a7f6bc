package fleet

import (
	"context"
	"sort"
	"sync"
	"time"
)

type memoryRepository struct {
	mu      sync.RWMutex
	drivers map[int64]Driver
}

// NewMemoryRepository constructs an in-memory driver repository holding drivers.
func NewMemoryRepository(drivers ...Driver) Repository {
	r := &memoryRepository{drivers: make(map[int64]Driver, len(drivers))}
	for _, d := range drivers {
		r.drivers[d.ID] = d
	}
	return r
}

func (r *memoryRepository) VerifiedDrivers(_ context.Context) ([]Driver, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Driver
	for _, d := range r.drivers {
		if d.VerifiedOnChain {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memoryRepository) Get(_ context.Context, id int64) (Driver, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.drivers[id]
	if !ok {
		return Driver{}, ErrDriverNotFound
	}
	return d, nil
}

// SeedDrivers returns the drivers provisioned on a fresh install. Their tx
// hashes match chain.SeedDriverLogs.
func SeedDrivers() []Driver {
	return []Driver{
		{
			ID:              1,
			Name:            "Sarah Johnson",
			LicenseNumber:   "DL123456789",
			Rating:          4.9,
			VerifiedOnChain: true,
			BlockchainTx:    "0x1a2b3c4d5e6f7890abcdef1234567890abcdef1234567890abcdef1234567890",
			CreatedAt:       time.Date(2024, 1, 10, 10, 0, 0, 0, time.UTC),
			UpdatedAt:       time.Date(2024, 1, 10, 10, 0, 0, 0, time.UTC),
		},
		{
			ID:              2,
			Name:            "Mike Davis",
			LicenseNumber:   "DL987654321",
			Rating:          4.7,
			VerifiedOnChain: true,
			BlockchainTx:    "0x2b3c4d5e6f7890ab1234567890abcdef1234567890abcdef1234567890abcdef",
			CreatedAt:       time.Date(2024, 1, 11, 14, 30, 0, 0, time.UTC),
			UpdatedAt:       time.Date(2024, 1, 11, 14, 30, 0, 0, time.UTC),
		},
	}
}
