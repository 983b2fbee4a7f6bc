package explorer

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/trust-ride/trust_ride/internal/auth"
)

// Handler exposes the verification log explorer.
type Handler struct {
	service *Service
}

// NewHandler builds an explorer HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type detailsResponse struct {
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
	Location    string `json:"location,omitempty"`
}

type logResponse struct {
	ID            int64           `json:"id"`
	EntityType    string          `json:"entity_type"`
	EntityID      int64           `json:"entity_id"`
	TxHash        string          `json:"tx_hash"`
	Status        string          `json:"status"`
	BlockNumber   *int64          `json:"block_number,omitempty"`
	GasUsed       *int64          `json:"gas_used,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	VerifiedAt    *time.Time      `json:"verified_at,omitempty"`
	EntityDetails detailsResponse `json:"entity_details"`
}

// Logs lists verification log entries, newest first.
func (h *Handler) Logs(c *fiber.Ctx) error {
	claims, ok := auth.ClaimsFrom(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, "unauthorized")
	}
	entries, err := h.service.List(c.UserContext(), claims.UserID)
	if err != nil {
		return err
	}
	out := make([]logResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, logResponse{
			ID:          e.ID,
			EntityType:  string(e.EntityType),
			EntityID:    e.EntityID,
			TxHash:      e.TxHash,
			Status:      string(e.Status),
			BlockNumber: e.BlockNumber,
			GasUsed:     e.GasUsed,
			CreatedAt:   e.CreatedAt,
			VerifiedAt:  e.VerifiedAt,
			EntityDetails: detailsResponse{
				Name:        e.Details.Name,
				Description: e.Details.Description,
				Location:    e.Details.Location,
			},
		})
	}
	return c.JSON(fiber.Map{"logs": out})
}
