package fleet

import (
	"errors"
	"time"
)

// ErrDriverNotFound is returned when no driver matches the id.
var ErrDriverNotFound = errors.New("driver not found")

// Driver is a vetted driver whose license has been attested on the ledger.
type Driver struct {
	ID              int64
	Name            string
	LicenseNumber   string
	Rating          float64
	VerifiedOnChain bool
	BlockchainTx    string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
