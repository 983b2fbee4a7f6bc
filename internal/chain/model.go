package chain

import "time"

// EntityType names the kind of record a log entry attests.
type EntityType string

const (
	EntityDriver EntityType = "driver"
	EntityRide   EntityType = "ride"
	EntityAlert  EntityType = "alert"
)

// Status is the verification state of a log entry.
type Status string

const (
	StatusPending  Status = "pending"
	StatusVerified Status = "verified"
	StatusFailed   Status = "failed"
)

// Terminal reports whether no further transition is expected.
func (s Status) Terminal() bool {
	return s == StatusVerified || s == StatusFailed
}

const (
	// BaseBlockNumber is the lowest synthetic block number assigned on verification.
	BaseBlockNumber int64 = 18_500_000
	// TransferGas is recorded as gas used for every verified entry.
	TransferGas int64 = 21_000
)

// LogEntry tracks the simulated on-chain confirmation of an entity's tx hash.
type LogEntry struct {
	ID          int64
	EntityType  EntityType
	EntityID    int64
	TxHash      string
	Status      Status
	BlockNumber *int64
	GasUsed     *int64
	CreatedAt   time.Time
	VerifiedAt  *time.Time
}

// Update describes a status transition applied by tx hash.
type Update struct {
	Status      Status
	BlockNumber *int64
	GasUsed     *int64
	VerifiedAt  time.Time
}
