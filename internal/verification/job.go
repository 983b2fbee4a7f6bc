package verification

import (
	"crypto/rand"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/trust-ride/trust_ride/internal/chain"
)

// Job is a pending verification waiting for its settle time.
type Job struct {
	ID          string           `json:"id"`
	TxHash      string           `json:"tx_hash"`
	EntityType  chain.EntityType `json:"entity_type"`
	EntityID    int64            `json:"entity_id"`
	SubmittedAt time.Time        `json:"submitted_at"`
	DueAt       time.Time        `json:"due_at"`
	Attempts    int              `json:"attempts"`
}

func newJob(now time.Time, txHash string, entity chain.EntityType, entityID int64, delay time.Duration) (Job, error) {
	id, err := ulid.New(ulid.Timestamp(now), rand.Reader)
	if err != nil {
		return Job{}, err
	}
	return Job{
		ID:          id.String(),
		TxHash:      txHash,
		EntityType:  entity,
		EntityID:    entityID,
		SubmittedAt: now,
		DueAt:       now.Add(delay),
	}, nil
}
