package alerts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/trust-ride/trust_ride/internal/chain"
	"github.com/trust-ride/trust_ride/internal/identity"
	"github.com/trust-ride/trust_ride/internal/notification"
	"github.com/trust-ride/trust_ride/internal/rides"
)

const (
	unknownLocation  = "Unknown location"
	maxAddressLength = 500
)

// Verifier schedules the simulated confirmation of a tx hash.
type Verifier interface {
	Submit(ctx context.Context, txHash string, entity chain.EntityType, entityID int64) error
}

// Users resolves the rider raising an alert.
type Users interface {
	Get(ctx context.Context, id int64) (identity.User, error)
}

// Rides checks that a referenced ride belongs to the rider.
type Rides interface {
	Owned(ctx context.Context, userID, rideID int64) (rides.Ride, error)
}

// PanicResult is the outcome of raising an alert.
type PanicResult struct {
	Alert            Alert
	TxHash           string
	GuardianNotified bool
}

// Item is an alert with the verification status of its tx hash.
type Item struct {
	Alert
	Status chain.Status
}

// Service raises and lists safety alerts.
type Service struct {
	repo     Repository
	logs     chain.Repository
	verifier Verifier
	users    Users
	rides    Rides
	notifier notification.Notifier
	logger   *slog.Logger
	now      func() time.Time
}

// NewService builds an alert service.
func NewService(repo Repository, logs chain.Repository, verifier Verifier, users Users, rides Rides, notifier notification.Notifier, logger *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		logs:     logs,
		verifier: verifier,
		users:    users,
		rides:    rides,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}
}

// Panic records an alert with a pending log entry, schedules its verification
// and notifies the rider's guardian when one is on file.
func (s *Service) Panic(ctx context.Context, userID int64, in PanicInput) (PanicResult, error) {
	if err := validatePanic(in); err != nil {
		return PanicResult{}, err
	}
	if in.RideID != nil {
		if _, err := s.rides.Owned(ctx, userID, *in.RideID); err != nil {
			return PanicResult{}, err
		}
	}

	txHash, err := chain.NewTxHash()
	if err != nil {
		return PanicResult{}, err
	}
	now := s.now().UTC()
	in.Location.Address = strings.TrimSpace(in.Location.Address)
	alert, err := s.repo.Create(ctx, Alert{
		UserID:    userID,
		RideID:    in.RideID,
		Type:      in.Type,
		Timestamp: now,
		Location:  in.Location,
		TxHash:    txHash,
		CreatedAt: now,
	})
	if err != nil {
		return PanicResult{}, fmt.Errorf("create alert: %w", err)
	}

	if _, err := s.logs.Create(ctx, chain.LogEntry{
		EntityType: chain.EntityAlert,
		EntityID:   alert.ID,
		TxHash:     txHash,
		Status:     chain.StatusPending,
		CreatedAt:  now,
	}); err != nil {
		return PanicResult{}, fmt.Errorf("create verification log: %w", err)
	}

	if err := s.verifier.Submit(ctx, txHash, chain.EntityAlert, alert.ID); err != nil {
		s.logError(ctx, "schedule alert verification", alert.ID, err)
	}

	return PanicResult{Alert: alert, TxHash: txHash, GuardianNotified: s.notifyGuardian(ctx, userID, alert)}, nil
}

func (s *Service) notifyGuardian(ctx context.Context, userID int64, alert Alert) bool {
	user, err := s.users.Get(ctx, userID)
	if err != nil {
		if !errors.Is(err, identity.ErrUserNotFound) {
			s.logError(ctx, "load rider for guardian notification", alert.ID, err)
		}
		return false
	}
	if user.GuardianContact == "" || s.notifier == nil {
		return false
	}
	where := alert.Location.Address
	if where == "" {
		where = unknownLocation
	}
	err = s.notifier.Send(ctx, notification.Message{
		Kind:        notification.KindGuardianAlert,
		Destination: user.GuardianContact,
		Body:        fmt.Sprintf("Emergency alert from %s at %s. Blockchain TX: %s", user.Name, where, alert.TxHash),
		Reference:   alert.TxHash,
	})
	if err != nil {
		s.logError(ctx, "notify guardian", alert.ID, err)
		return false
	}
	return true
}

// List returns the rider's alerts with their verification status.
func (s *Service) List(ctx context.Context, userID int64) ([]Item, error) {
	list, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	items := make([]Item, 0, len(list))
	for _, alert := range list {
		item := Item{Alert: alert, Status: chain.StatusPending}
		entry, err := s.logs.GetByTxHash(ctx, alert.TxHash)
		switch {
		case err == nil:
			item.Status = entry.Status
		case !errors.Is(err, chain.ErrLogNotFound):
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func (s *Service) logError(ctx context.Context, msg string, alertID int64, err error) {
	if s.logger == nil {
		return
	}
	s.logger.ErrorContext(ctx, msg, slog.Int64("alert_id", alertID), slog.Any("error", err))
}

func validatePanic(in PanicInput) error {
	switch in.Type {
	case "":
		return &ValidationError{Field: "alert_type", Message: "alert type is required"}
	case TypePanic, TypeEmergency, TypeSuspicious:
	default:
		return &ValidationError{Field: "alert_type", Message: "alert type must be panic, emergency or suspicious"}
	}
	if lat := in.Location.Lat; lat != nil && (*lat < -90 || *lat > 90) {
		return &ValidationError{Field: "location_lat", Message: "latitude must be between -90 and 90"}
	}
	if lng := in.Location.Lng; lng != nil && (*lng < -180 || *lng > 180) {
		return &ValidationError{Field: "location_lng", Message: "longitude must be between -180 and 180"}
	}
	if len(in.Location.Address) > maxAddressLength {
		return &ValidationError{Field: "location_address", Message: "location address is too long"}
	}
	return nil
}
