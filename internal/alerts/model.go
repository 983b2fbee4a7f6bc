package alerts

import (
	"errors"
	"time"
)

// Alert types accepted by the panic endpoint.
const (
	TypePanic      = "panic"
	TypeEmergency  = "emergency"
	TypeSuspicious = "suspicious"
)

// ErrAlertNotFound is returned when no alert matches the id.
var ErrAlertNotFound = errors.New("alert not found")

// Location is where the rider was when the alert was raised. Every field is optional.
type Location struct {
	Lat     *float64
	Lng     *float64
	Address string
}

// Alert is a safety alert raised by a rider.
type Alert struct {
	ID        int64
	UserID    int64
	RideID    *int64
	Type      string
	Timestamp time.Time
	Location  Location
	TxHash    string
	CreatedAt time.Time
}

// PanicInput carries a panic request as received from the client.
type PanicInput struct {
	Type     string
	RideID   *int64
	Location Location
}

// ValidationError reports a rejected alert field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}
