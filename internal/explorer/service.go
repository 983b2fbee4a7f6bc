package explorer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/trust-ride/trust_ride/internal/alerts"
	"github.com/trust-ride/trust_ride/internal/chain"
	"github.com/trust-ride/trust_ride/internal/fleet"
	"github.com/trust-ride/trust_ride/internal/rides"
)

// Details describes the entity behind a log entry. It is empty when the
// entity is unknown or belongs to another rider.
type Details struct {
	Name        string
	Description string
	Location    string
}

// Entry is a log entry with its entity details.
type Entry struct {
	chain.LogEntry
	Details Details
}

// Service lists verification logs for the explorer view.
type Service struct {
	logs    chain.Repository
	drivers fleet.Repository
	rides   rides.Repository
	alerts  alerts.Repository
}

// NewService builds an explorer service.
func NewService(logs chain.Repository, drivers fleet.Repository, rides rides.Repository, alerts alerts.Repository) *Service {
	return &Service{logs: logs, drivers: drivers, rides: rides, alerts: alerts}
}

// List returns every log entry, newest first. Ride and alert details are
// only filled in for entities owned by viewerID.
func (s *Service) List(ctx context.Context, viewerID int64) ([]Entry, error) {
	entries, err := s.logs.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Entry, 0, len(entries))
	for _, entry := range entries {
		details, err := s.details(ctx, viewerID, entry)
		if err != nil {
			return nil, fmt.Errorf("describe %s %d: %w", entry.EntityType, entry.EntityID, err)
		}
		out = append(out, Entry{LogEntry: entry, Details: details})
	}
	return out, nil
}

func (s *Service) details(ctx context.Context, viewerID int64, entry chain.LogEntry) (Details, error) {
	switch entry.EntityType {
	case chain.EntityDriver:
		d, err := s.drivers.Get(ctx, entry.EntityID)
		if errors.Is(err, fleet.ErrDriverNotFound) {
			return Details{}, nil
		}
		if err != nil {
			return Details{}, err
		}
		return Details{Name: d.Name, Description: "License: " + d.LicenseNumber}, nil

	case chain.EntityRide:
		r, err := s.rides.Get(ctx, entry.EntityID)
		if errors.Is(err, rides.ErrRideNotFound) {
			return Details{}, nil
		}
		if err != nil {
			return Details{}, err
		}
		if r.UserID != viewerID {
			return Details{}, nil
		}
		return Details{
			Name:        fmt.Sprintf("Ride #%d", r.ID),
			Description: r.PickupLocation + " → " + r.Destination,
			Location:    r.PickupLocation,
		}, nil

	case chain.EntityAlert:
		a, err := s.alerts.Get(ctx, entry.EntityID)
		if errors.Is(err, alerts.ErrAlertNotFound) {
			return Details{}, nil
		}
		if err != nil {
			return Details{}, err
		}
		if a.UserID != viewerID {
			return Details{}, nil
		}
		location := a.Location.Address
		if location == "" {
			location = "Unknown location"
		}
		return Details{
			Name:        alertTitle(a.Type),
			Description: "Emergency alert triggered",
			Location:    location,
		}, nil
	}
	return Details{}, nil
}

func alertTitle(kind string) string {
	if kind == "" {
		return "Alert"
	}
	return strings.ToUpper(kind[:1]) + kind[1:] + " Alert"
}
