package chain

import "errors"

var (
	// ErrLogNotFound is returned when no entry carries the tx hash.
	ErrLogNotFound = errors.New("verification log not found")
	// ErrDuplicateTxHash is returned when a tx hash is already recorded.
	ErrDuplicateTxHash = errors.New("duplicate tx hash")
	// ErrAlreadySettled is returned when an update targets an entry that is
	// no longer pending. The stored entry is left untouched.
	ErrAlreadySettled = errors.New("verification log already settled")
)
