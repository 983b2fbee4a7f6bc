package auth

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/trust-ride/trust_ride/internal/apierror"
	"github.com/trust-ride/trust_ride/internal/identity"
)

// Handler exposes signup, login, Google sign-in and profile endpoints.
type Handler struct {
	ids    *identity.Service
	tokens *Issuer
	google GoogleVerifier
	logger *slog.Logger
}

// NewHandler wires the auth endpoints. google may be nil when sign-in with Google is disabled.
func NewHandler(ids *identity.Service, tokens *Issuer, google GoogleVerifier, logger *slog.Logger) *Handler {
	return &Handler{ids: ids, tokens: tokens, google: google, logger: logger}
}

type signupRequest struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	GuardianContact string `json:"guardian_contact"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type googleRequest struct {
	Credential string `json:"credential"`
}

type profileRequest struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	GuardianContact string `json:"guardian_contact"`
}

type userResponse struct {
	ID              int64  `json:"id"`
	Name            string `json:"name"`
	Email           string `json:"email"`
	GuardianContact string `json:"guardian_contact,omitempty"`
	Picture         string `json:"picture,omitempty"`
}

type sessionResponse struct {
	Token string       `json:"token"`
	User  userResponse `json:"user"`
}

func toUserResponse(u identity.User) userResponse {
	return userResponse{ID: u.ID, Name: u.Name, Email: u.Email, GuardianContact: u.GuardianContact}
}

// Signup registers an account and returns a session token.
func (h *Handler) Signup(c *fiber.Ctx) error {
	var req signupRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid request body")
	}
	user, err := h.ids.Register(c.UserContext(), identity.SignupInput{
		Name:            req.Name,
		Email:           req.Email,
		Password:        req.Password,
		GuardianContact: req.GuardianContact,
	})
	if err != nil {
		return identityError(err)
	}
	return h.session(c, http.StatusCreated, user, "")
}

// Login verifies an email/password pair and returns a session token.
func (h *Handler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid request body")
	}
	user, err := h.ids.Authenticate(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return identityError(err)
	}
	return h.session(c, http.StatusOK, user, "")
}

// Google signs in with a Google ID token, creating the account on first use.
func (h *Handler) Google(c *fiber.Ctx) error {
	var req googleRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid request body")
	}
	if req.Credential == "" {
		return apierror.Validation("credential", "google credential is required")
	}
	if h.google == nil {
		return fiber.NewError(http.StatusServiceUnavailable, ErrGoogleUnavailable.Error())
	}
	profile, err := h.google.Verify(c.UserContext(), req.Credential)
	if err != nil {
		if h.logger != nil {
			h.logger.Warn("google token rejected", slog.Any("error", err))
		}
		return fiber.NewError(http.StatusUnauthorized, "invalid google token")
	}
	user, err := h.ids.SignInExternal(c.UserContext(), profile.Email, profile.Name)
	if err != nil {
		return identityError(err)
	}
	return h.session(c, http.StatusOK, user, profile.Picture)
}

// UpdateProfile persists name, email and guardian contact for the caller.
func (h *Handler) UpdateProfile(c *fiber.Ctx) error {
	claims, ok := ClaimsFrom(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, "unauthorized")
	}
	var req profileRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid request body")
	}
	user, err := h.ids.UpdateProfile(c.UserContext(), claims.UserID, identity.ProfileInput{
		Name:            req.Name,
		Email:           req.Email,
		GuardianContact: req.GuardianContact,
	})
	if err != nil {
		return identityError(err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"user":    toUserResponse(user),
		"message": "Profile updated successfully",
	})
}

func (h *Handler) session(c *fiber.Ctx, status int, user identity.User, picture string) error {
	token, err := h.tokens.Issue(Claims{UserID: user.ID, Email: user.Email, Name: user.Name})
	if err != nil {
		return err
	}
	resp := toUserResponse(user)
	resp.Picture = picture
	return c.Status(status).JSON(sessionResponse{Token: token, User: resp})
}

func identityError(err error) error {
	var verr *identity.ValidationError
	switch {
	case errors.As(err, &verr):
		return apierror.Validation(verr.Field, verr.Message)
	case errors.Is(err, identity.ErrEmailTaken):
		return fiber.NewError(http.StatusConflict, err.Error())
	case errors.Is(err, identity.ErrInvalidCredentials):
		return fiber.NewError(http.StatusUnauthorized, err.Error())
	case errors.Is(err, identity.ErrUserNotFound):
		return fiber.NewError(http.StatusNotFound, err.Error())
	default:
		return err
	}
}
