package rides

import "errors"

var (
	ErrRideNotFound      = errors.New("ride not found")
	ErrForbidden         = errors.New("access denied")
	ErrNoVerifiedDrivers = errors.New("no verified drivers available")
)

// ValidationError reports a rejected booking field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}
