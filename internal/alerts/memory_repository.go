package alerts

import (
	"context"
	"sort"
	"sync"
)

type memoryRepository struct {
	mu     sync.RWMutex
	nextID int64
	alerts map[int64]Alert
}

// NewMemoryRepository constructs an in-memory alert repository.
func NewMemoryRepository() Repository {
	return &memoryRepository{alerts: make(map[int64]Alert)}
}

func (r *memoryRepository) Create(_ context.Context, alert Alert) (Alert, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	alert.ID = r.nextID
	r.alerts[alert.ID] = alert
	return alert, nil
}

func (r *memoryRepository) Get(_ context.Context, id int64) (Alert, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	alert, ok := r.alerts[id]
	if !ok {
		return Alert{}, ErrAlertNotFound
	}
	return alert, nil
}

func (r *memoryRepository) ListByUser(_ context.Context, userID int64) ([]Alert, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Alert
	for _, alert := range r.alerts {
		if alert.UserID == userID {
			out = append(out, alert)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
