package alerts

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/trust-ride/trust_ride/internal/apierror"
	"github.com/trust-ride/trust_ride/internal/auth"
	"github.com/trust-ride/trust_ride/internal/rides"
)

const createdMessage = "Emergency alert created successfully"

// Handler exposes alert HTTP endpoints.
type Handler struct {
	service *Service
}

// NewHandler builds an alert HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type panicRequest struct {
	AlertType       string   `json:"alert_type"`
	RideID          *int64   `json:"ride_id"`
	LocationLat     *float64 `json:"location_lat"`
	LocationLng     *float64 `json:"location_lng"`
	LocationAddress string   `json:"location_address"`
}

type alertResponse struct {
	ID              int64     `json:"id"`
	UserID          int64     `json:"user_id"`
	RideID          *int64    `json:"ride_id,omitempty"`
	AlertType       string    `json:"alert_type"`
	Timestamp       time.Time `json:"timestamp"`
	LocationLat     *float64  `json:"location_lat,omitempty"`
	LocationLng     *float64  `json:"location_lng,omitempty"`
	LocationAddress string    `json:"location_address,omitempty"`
	TxHash          string    `json:"tx_hash"`
	Status          string    `json:"status"`
}

func toAlertResponse(a Alert, status string) alertResponse {
	return alertResponse{
		ID:              a.ID,
		UserID:          a.UserID,
		RideID:          a.RideID,
		AlertType:       a.Type,
		Timestamp:       a.Timestamp,
		LocationLat:     a.Location.Lat,
		LocationLng:     a.Location.Lng,
		LocationAddress: a.Location.Address,
		TxHash:          a.TxHash,
		Status:          status,
	}
}

// Panic raises a safety alert for the authenticated rider.
func (h *Handler) Panic(c *fiber.Ctx) error {
	claims, ok := auth.ClaimsFrom(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, "unauthorized")
	}
	var req panicRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid request body")
	}
	result, err := h.service.Panic(c.UserContext(), claims.UserID, PanicInput{
		Type:   req.AlertType,
		RideID: req.RideID,
		Location: Location{
			Lat:     req.LocationLat,
			Lng:     req.LocationLng,
			Address: req.LocationAddress,
		},
	})
	if err != nil {
		return alertError(err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"alert":             toAlertResponse(result.Alert, "pending"),
		"tx_hash":           result.TxHash,
		"message":           createdMessage,
		"guardian_notified": result.GuardianNotified,
	})
}

// List returns the rider's alerts.
func (h *Handler) List(c *fiber.Ctx) error {
	claims, ok := auth.ClaimsFrom(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, "unauthorized")
	}
	items, err := h.service.List(c.UserContext(), claims.UserID)
	if err != nil {
		return err
	}
	out := make([]alertResponse, 0, len(items))
	for _, item := range items {
		out = append(out, toAlertResponse(item.Alert, string(item.Status)))
	}
	return c.JSON(fiber.Map{"alerts": out})
}

func alertError(err error) error {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		return apierror.Validation(verr.Field, verr.Message)
	case errors.Is(err, rides.ErrRideNotFound):
		return fiber.NewError(http.StatusNotFound, err.Error())
	case errors.Is(err, rides.ErrForbidden):
		return fiber.NewError(http.StatusForbidden, err.Error())
	default:
		return err
	}
}
