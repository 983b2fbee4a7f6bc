package rides

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/trust-ride/trust_ride/internal/apierror"
	"github.com/trust-ride/trust_ride/internal/auth"
	"github.com/trust-ride/trust_ride/internal/fleet"
)

const bookedMessage = "Ride booked successfully! Your driver is on the way."

// Handler exposes ride HTTP endpoints.
type Handler struct {
	service *Service
}

// NewHandler builds a ride HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type bookRequest struct {
	PickupLocation string `json:"pickup_location"`
	Destination    string `json:"destination"`
	ScheduledTime  string `json:"scheduled_time"`
}

type rideResponse struct {
	ID             int64       `json:"id"`
	UserID         int64       `json:"user_id"`
	DriverID       *int64      `json:"driver_id,omitempty"`
	PickupLocation string      `json:"pickup_location"`
	Destination    string      `json:"destination"`
	Status         string      `json:"status"`
	BlockchainTx   string      `json:"blockchain_tx,omitempty"`
	Fare           json.Number `json:"fare"`
	ScheduledTime  *time.Time  `json:"scheduled_time,omitempty"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

type historyResponse struct {
	rideResponse
	DriverName         string `json:"driver_name"`
	VerificationStatus string `json:"verification_status"`
}

type driverResponse struct {
	ID                   int64   `json:"id"`
	Name                 string  `json:"name"`
	LicenseNumber        string  `json:"license_number"`
	Rating               float64 `json:"rating"`
	VerifiedOnBlockchain bool    `json:"verified_on_blockchain"`
	BlockchainTx         string  `json:"blockchain_tx,omitempty"`
}

func toRideResponse(r Ride) rideResponse {
	return rideResponse{
		ID:             r.ID,
		UserID:         r.UserID,
		DriverID:       r.DriverID,
		PickupLocation: r.PickupLocation,
		Destination:    r.Destination,
		Status:         string(r.Status),
		BlockchainTx:   r.BlockchainTx,
		Fare:           json.Number(r.Fare.StringFixed(2)),
		ScheduledTime:  r.ScheduledAt,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
}

func toDriverResponse(d fleet.Driver) driverResponse {
	return driverResponse{
		ID:                   d.ID,
		Name:                 d.Name,
		LicenseNumber:        d.LicenseNumber,
		Rating:               d.Rating,
		VerifiedOnBlockchain: d.VerifiedOnChain,
		BlockchainTx:         d.BlockchainTx,
	}
}

// Book reserves a ride for the authenticated rider.
func (h *Handler) Book(c *fiber.Ctx) error {
	claims, ok := auth.ClaimsFrom(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, "unauthorized")
	}
	var req bookRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid request body")
	}
	booking, err := h.service.Book(c.UserContext(), claims.UserID, BookInput{
		PickupLocation: req.PickupLocation,
		Destination:    req.Destination,
		ScheduledTime:  req.ScheduledTime,
	})
	if err != nil {
		return rideError(err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"ride":    toRideResponse(booking.Ride),
		"driver":  toDriverResponse(booking.Driver),
		"message": bookedMessage,
	})
}

// History lists the rider's rides.
func (h *Handler) History(c *fiber.Ctx) error {
	claims, ok := auth.ClaimsFrom(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, "unauthorized")
	}
	items, err := h.service.History(c.UserContext(), claims.UserID)
	if err != nil {
		return err
	}
	out := make([]historyResponse, 0, len(items))
	for _, item := range items {
		out = append(out, historyResponse{
			rideResponse:       toRideResponse(item.Ride),
			DriverName:         item.DriverName,
			VerificationStatus: string(item.VerificationStatus),
		})
	}
	return c.JSON(fiber.Map{"rides": out})
}

// Get returns a single ride owned by the caller.
func (h *Handler) Get(c *fiber.Ctx) error {
	claims, ok := auth.ClaimsFrom(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, "unauthorized")
	}
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid ride id")
	}
	detail, err := h.service.Get(c.UserContext(), claims.UserID, id)
	if err != nil {
		return rideError(err)
	}
	var driver *driverResponse
	if detail.Driver != nil {
		d := toDriverResponse(*detail.Driver)
		driver = &d
	}
	return c.JSON(fiber.Map{
		"ride":   toRideResponse(detail.Ride),
		"driver": driver,
	})
}

func rideError(err error) error {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		return apierror.Validation(verr.Field, verr.Message)
	case errors.Is(err, ErrNoVerifiedDrivers), errors.Is(err, ErrRideNotFound):
		return fiber.NewError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrForbidden):
		return fiber.NewError(http.StatusForbidden, err.Error())
	default:
		return err
	}
}
