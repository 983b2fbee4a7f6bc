package apierror

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"
)

const internalMessage = "internal server error"

// FieldError is a 400 response that names the offending input field.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return e.Field + ": " + e.Message
}

// Validation builds a FieldError.
func Validation(field, message string) error {
	return &FieldError{Field: field, Message: message}
}

// Status is the HTTP status the error renders as.
func Status(err error) int {
	var fieldErr *FieldError
	if errors.As(err, &fieldErr) {
		return http.StatusBadRequest
	}
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code
	}
	return http.StatusInternalServerError
}

type body struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// Handler renders every error as JSON. Fiber errors keep their status and
// message; anything else becomes a generic 500 and is logged.
func Handler(logger *slog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var fieldErr *FieldError
		if errors.As(err, &fieldErr) {
			return c.Status(http.StatusBadRequest).JSON(body{Error: fieldErr.Message, Field: fieldErr.Field})
		}

		var fe *fiber.Error
		if errors.As(err, &fe) && fe.Code < http.StatusInternalServerError {
			return c.Status(fe.Code).JSON(body{Error: fe.Message})
		}

		status := http.StatusInternalServerError
		if fe != nil {
			status = fe.Code
		}
		if logger != nil {
			logger.Error("request failed",
				slog.String("method", c.Method()),
				slog.String("path", c.Path()),
				slog.Int("status", status),
				slog.Any("error", err),
			)
		}
		message := internalMessage
		if fe != nil && status != http.StatusInternalServerError {
			message = fe.Message
		}
		return c.Status(status).JSON(body{Error: message})
	}
}
