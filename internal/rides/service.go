package rides

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/trust-ride/trust_ride/internal/chain"
	"github.com/trust-ride/trust_ride/internal/fleet"
)

const (
	maxLocationLength = 255
	unknownDriver     = "Unknown Driver"
)

// Verifier schedules the simulated confirmation of a tx hash.
type Verifier interface {
	Submit(ctx context.Context, txHash string, entity chain.EntityType, entityID int64) error
}

// Booking is the result of a successful booking.
type Booking struct {
	Ride   Ride
	Driver fleet.Driver
}

// HistoryItem is a ride annotated for the rider's history view.
type HistoryItem struct {
	Ride
	DriverName         string
	VerificationStatus chain.Status
}

// Detail is a single ride with its assigned driver, if any.
type Detail struct {
	Ride   Ride
	Driver *fleet.Driver
}

// Service implements booking and ride lookups.
type Service struct {
	repo     Repository
	drivers  fleet.Repository
	logs     chain.Repository
	verifier Verifier
	fares    FareQuoter
	logger   *slog.Logger
	now      func() time.Time
}

// NewService builds a ride service.
func NewService(repo Repository, drivers fleet.Repository, logs chain.Repository, verifier Verifier, fares FareQuoter, logger *slog.Logger) *Service {
	if fares == nil {
		fares = RandomFare
	}
	return &Service{
		repo:     repo,
		drivers:  drivers,
		logs:     logs,
		verifier: verifier,
		fares:    fares,
		logger:   logger,
		now:      time.Now,
	}
}

// Book assigns the first verified driver, records the ride and its pending
// log entry and schedules verification. Nothing is written when no driver is available.
func (s *Service) Book(ctx context.Context, userID int64, in BookInput) (Booking, error) {
	pickup, destination, scheduledAt, err := validateBooking(in)
	if err != nil {
		return Booking{}, err
	}

	available, err := s.drivers.VerifiedDrivers(ctx)
	if err != nil {
		return Booking{}, fmt.Errorf("list verified drivers: %w", err)
	}
	if len(available) == 0 {
		return Booking{}, ErrNoVerifiedDrivers
	}
	driver := available[0]

	now := s.now().UTC()
	ride, err := s.repo.Create(ctx, Ride{
		UserID:         userID,
		DriverID:       &driver.ID,
		PickupLocation: pickup,
		Destination:    destination,
		Status:         StatusPending,
		Fare:           s.fares(),
		ScheduledAt:    scheduledAt,
		CreatedAt:      now,
		UpdatedAt:      now,
	})
	if err != nil {
		return Booking{}, fmt.Errorf("create ride: %w", err)
	}

	txHash, err := chain.NewTxHash()
	if err != nil {
		return Booking{}, err
	}
	ride, err = s.repo.UpdateStatus(ctx, ride.ID, StatusActive, txHash)
	if err != nil {
		return Booking{}, fmt.Errorf("activate ride: %w", err)
	}

	if _, err := s.logs.Create(ctx, chain.LogEntry{
		EntityType: chain.EntityRide,
		EntityID:   ride.ID,
		TxHash:     txHash,
		Status:     chain.StatusPending,
		CreatedAt:  now,
	}); err != nil {
		return Booking{}, fmt.Errorf("create verification log: %w", err)
	}

	if err := s.verifier.Submit(ctx, txHash, chain.EntityRide, ride.ID); err != nil && s.logger != nil {
		s.logger.Error("schedule ride verification",
			slog.Int64("ride_id", ride.ID),
			slog.String("tx_hash", txHash),
			slog.Any("error", err),
		)
	}

	return Booking{Ride: ride, Driver: driver}, nil
}

// History lists the rider's rides with driver names and verification status.
func (s *Service) History(ctx context.Context, userID int64) ([]HistoryItem, error) {
	list, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	items := make([]HistoryItem, 0, len(list))
	for _, ride := range list {
		item := HistoryItem{Ride: ride, DriverName: unknownDriver, VerificationStatus: chain.StatusPending}
		if ride.DriverID != nil {
			driver, err := s.drivers.Get(ctx, *ride.DriverID)
			switch {
			case err == nil:
				item.DriverName = driver.Name
			case !errors.Is(err, fleet.ErrDriverNotFound):
				return nil, err
			}
		}
		if ride.BlockchainTx != "" {
			entry, err := s.logs.GetByTxHash(ctx, ride.BlockchainTx)
			switch {
			case err == nil:
				item.VerificationStatus = entry.Status
			case !errors.Is(err, chain.ErrLogNotFound):
				return nil, err
			}
		}
		items = append(items, item)
	}
	return items, nil
}

// Get returns a ride owned by userID. Rides of other riders yield ErrForbidden.
func (s *Service) Get(ctx context.Context, userID, rideID int64) (Detail, error) {
	ride, err := s.Owned(ctx, userID, rideID)
	if err != nil {
		return Detail{}, err
	}
	detail := Detail{Ride: ride}
	if ride.DriverID != nil {
		driver, err := s.drivers.Get(ctx, *ride.DriverID)
		if err != nil && !errors.Is(err, fleet.ErrDriverNotFound) {
			return Detail{}, err
		}
		if err == nil {
			detail.Driver = &driver
		}
	}
	return detail, nil
}

// Owned returns the ride when it exists and belongs to userID.
func (s *Service) Owned(ctx context.Context, userID, rideID int64) (Ride, error) {
	ride, err := s.repo.Get(ctx, rideID)
	if err != nil {
		return Ride{}, err
	}
	if ride.UserID != userID {
		return Ride{}, ErrForbidden
	}
	return ride, nil
}

func validateBooking(in BookInput) (string, string, *time.Time, error) {
	pickup := strings.TrimSpace(in.PickupLocation)
	destination := strings.TrimSpace(in.Destination)
	switch {
	case pickup == "":
		return "", "", nil, &ValidationError{Field: "pickup_location", Message: "pickup location and destination are required"}
	case destination == "":
		return "", "", nil, &ValidationError{Field: "destination", Message: "pickup location and destination are required"}
	case len(pickup) > maxLocationLength:
		return "", "", nil, &ValidationError{Field: "pickup_location", Message: "pickup location is too long"}
	case len(destination) > maxLocationLength:
		return "", "", nil, &ValidationError{Field: "destination", Message: "destination is too long"}
	}

	raw := strings.TrimSpace(in.ScheduledTime)
	if raw == "" {
		return pickup, destination, nil, nil
	}
	at, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return "", "", nil, &ValidationError{Field: "scheduled_time", Message: "scheduled time must be an RFC3339 timestamp"}
	}
	at = at.UTC()
	return pickup, destination, &at, nil
}
