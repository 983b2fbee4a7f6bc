package rides

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status is the lifecycle state of a ride.
type Status string

const (
	StatusPending   Status = "pending"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// Ride is a booking made by a rider and assigned to a driver.
type Ride struct {
	ID             int64
	UserID         int64
	DriverID       *int64
	PickupLocation string
	Destination    string
	Status         Status
	BlockchainTx   string
	Fare           decimal.Decimal
	ScheduledAt    *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// BookInput carries a booking request as received from the client.
type BookInput struct {
	PickupLocation string
	Destination    string
	// ScheduledTime is optional and must be RFC3339 when set.
	ScheduledTime string
}
