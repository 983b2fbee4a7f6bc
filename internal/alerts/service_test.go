package alerts

import (
	"context"
	"errors"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/trust-ride/trust_ride/internal/chain"
	"github.com/trust-ride/trust_ride/internal/fleet"
	"github.com/trust-ride/trust_ride/internal/identity"
	"github.com/trust-ride/trust_ride/internal/notification"
	"github.com/trust-ride/trust_ride/internal/rides"
)

type nopVerifier struct{ submitted []string }

func (v *nopVerifier) Submit(_ context.Context, txHash string, _ chain.EntityType, _ int64) error {
	v.submitted = append(v.submitted, txHash)
	return nil
}

type captureNotifier struct{ sent []notification.Message }

func (n *captureNotifier) Send(_ context.Context, msg notification.Message) error {
	n.sent = append(n.sent, msg)
	return nil
}

type fixture struct {
	svc      *Service
	rides    *rides.Service
	logs     chain.Repository
	verifier *nopVerifier
	notifier *captureNotifier
	guarded  identity.User
	plain    identity.User
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	ctx := context.Background()
	ids := identity.NewService(identity.NewMemoryRepository(), identity.NewHasher(bcrypt.MinCost))
	guarded, err := ids.Register(ctx, identity.SignupInput{Name: "Ann Lee", Email: "ann@x.com", Password: "Abcd123!", GuardianContact: "+15551234567"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	plain, err := ids.Register(ctx, identity.SignupInput{Name: "Bob Ray", Email: "bob@x.com", Password: "Abcd123!"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	logs := chain.NewMemoryRepository()
	verifier := &nopVerifier{}
	notifier := &captureNotifier{}
	rideSvc := rides.NewService(rides.NewMemoryRepository(), fleet.NewMemoryRepository(fleet.SeedDrivers()...), logs, verifier, nil, nil)
	svc := NewService(NewMemoryRepository(), logs, verifier, ids, rideSvc, notifier, nil)
	return fixture{svc: svc, rides: rideSvc, logs: logs, verifier: verifier, notifier: notifier, guarded: guarded, plain: plain}
}

func TestPanicCreatesPendingLogAndNotifiesGuardian(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	lat, lng := 40.7128, -74.0060

	result, err := f.svc.Panic(ctx, f.guarded.ID, PanicInput{
		Type:     TypePanic,
		Location: Location{Lat: &lat, Lng: &lng, Address: "Main St"},
	})
	if err != nil {
		t.Fatalf("panic: %v", err)
	}
	if !chain.ValidTxHash(result.TxHash) || result.Alert.TxHash != result.TxHash {
		t.Fatalf("unexpected tx hash %q", result.TxHash)
	}
	if !result.GuardianNotified {
		t.Fatal("expected guardian to be notified")
	}

	entry, err := f.logs.GetByTxHash(ctx, result.TxHash)
	if err != nil {
		t.Fatalf("log entry: %v", err)
	}
	if entry.EntityType != chain.EntityAlert || entry.EntityID != result.Alert.ID || entry.Status != chain.StatusPending {
		t.Fatalf("unexpected log entry %+v", entry)
	}
	if len(f.verifier.submitted) != 1 || f.verifier.submitted[0] != result.TxHash {
		t.Fatalf("expected verification to be scheduled, got %v", f.verifier.submitted)
	}

	if len(f.notifier.sent) != 1 {
		t.Fatalf("expected one notification, got %d", len(f.notifier.sent))
	}
	msg := f.notifier.sent[0]
	if msg.Kind != notification.KindGuardianAlert || msg.Destination != "+15551234567" {
		t.Fatalf("unexpected notification %+v", msg)
	}
	if !strings.Contains(msg.Body, "Ann Lee") || !strings.Contains(msg.Body, "Main St") || !strings.Contains(msg.Body, result.TxHash) {
		t.Fatalf("unexpected body %q", msg.Body)
	}
}

func TestPanicWithoutGuardian(t *testing.T) {
	f := newFixture(t)
	result, err := f.svc.Panic(context.Background(), f.plain.ID, PanicInput{Type: TypeSuspicious})
	if err != nil {
		t.Fatalf("panic: %v", err)
	}
	if result.GuardianNotified || len(f.notifier.sent) != 0 {
		t.Fatal("no guardian should be notified")
	}
}

func TestPanicValidation(t *testing.T) {
	f := newFixture(t)
	badLat := 91.0
	cases := []struct {
		name  string
		in    PanicInput
		field string
	}{
		{"missing type", PanicInput{}, "alert_type"},
		{"unknown type", PanicInput{Type: "fire"}, "alert_type"},
		{"latitude out of range", PanicInput{Type: TypePanic, Location: Location{Lat: &badLat}}, "location_lat"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Panic(context.Background(), f.plain.ID, tc.in)
			var verr *ValidationError
			if !errors.As(err, &verr) || verr.Field != tc.field {
				t.Fatalf("expected validation error on %s, got %v", tc.field, err)
			}
		})
	}
	if entries, _ := f.logs.List(context.Background()); len(entries) != 0 {
		t.Fatalf("rejected alerts must not create log entries, got %d", len(entries))
	}
}

func TestPanicChecksRideOwnership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	booking, err := f.rides.Book(ctx, f.guarded.ID, rides.BookInput{PickupLocation: "A", Destination: "B"})
	if err != nil {
		t.Fatalf("book: %v", err)
	}

	rideID := booking.Ride.ID
	if _, err := f.svc.Panic(ctx, f.plain.ID, PanicInput{Type: TypePanic, RideID: &rideID}); !errors.Is(err, rides.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	missing := int64(999)
	if _, err := f.svc.Panic(ctx, f.guarded.ID, PanicInput{Type: TypePanic, RideID: &missing}); !errors.Is(err, rides.ErrRideNotFound) {
		t.Fatalf("expected ride not found, got %v", err)
	}
	result, err := f.svc.Panic(ctx, f.guarded.ID, PanicInput{Type: TypeEmergency, RideID: &rideID})
	if err != nil {
		t.Fatalf("panic on own ride: %v", err)
	}
	if result.Alert.RideID == nil || *result.Alert.RideID != rideID {
		t.Fatalf("alert should reference the ride, got %+v", result.Alert)
	}
}

func TestListDerivesStatusFromLog(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first, _ := f.svc.Panic(ctx, f.guarded.ID, PanicInput{Type: TypePanic})
	if _, err := f.svc.Panic(ctx, f.guarded.ID, PanicInput{Type: TypeSuspicious}); err != nil {
		t.Fatalf("panic: %v", err)
	}
	if _, err := f.svc.Panic(ctx, f.plain.ID, PanicInput{Type: TypePanic}); err != nil {
		t.Fatalf("panic: %v", err)
	}

	block := chain.BaseBlockNumber
	if _, err := f.logs.UpdateStatus(ctx, first.TxHash, chain.Update{Status: chain.StatusVerified, BlockNumber: &block}); err != nil {
		t.Fatalf("update: %v", err)
	}

	items, err := f.svc.List(ctx, f.guarded.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 alerts, got %d", len(items))
	}
	if items[0].Status != chain.StatusVerified || items[1].Status != chain.StatusPending {
		t.Fatalf("unexpected statuses %s %s", items[0].Status, items[1].Status)
	}
}
