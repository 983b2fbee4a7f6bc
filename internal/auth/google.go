package auth

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/api/idtoken"
)

// ErrGoogleUnavailable is returned when Google sign-in has no client id configured.
var ErrGoogleUnavailable = errors.New("google sign-in is not configured")

// GoogleProfile is the subset of a verified Google ID token the app uses.
type GoogleProfile struct {
	Email   string
	Name    string
	Picture string
}

// GoogleVerifier validates a Google ID token credential.
type GoogleVerifier interface {
	Verify(ctx context.Context, credential string) (GoogleProfile, error)
}

type idTokenVerifier struct {
	audience  string
	validator *idtoken.Validator
}

// NewGoogleVerifier validates ID tokens against Google's published keys for clientID.
func NewGoogleVerifier(ctx context.Context, clientID string) (GoogleVerifier, error) {
	if clientID == "" {
		return nil, ErrGoogleUnavailable
	}
	validator, err := idtoken.NewValidator(ctx)
	if err != nil {
		return nil, fmt.Errorf("google id token validator: %w", err)
	}
	return &idTokenVerifier{audience: clientID, validator: validator}, nil
}

func (v *idTokenVerifier) Verify(ctx context.Context, credential string) (GoogleProfile, error) {
	payload, err := v.validator.Validate(ctx, credential, v.audience)
	if err != nil {
		return GoogleProfile{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	email, _ := payload.Claims["email"].(string)
	if email == "" {
		return GoogleProfile{}, fmt.Errorf("%w: google token has no email", ErrInvalidToken)
	}
	if verified, ok := payload.Claims["email_verified"].(bool); ok && !verified {
		return GoogleProfile{}, fmt.Errorf("%w: google email not verified", ErrInvalidToken)
	}
	name, _ := payload.Claims["name"].(string)
	picture, _ := payload.Claims["picture"].(string)
	return GoogleProfile{Email: email, Name: name, Picture: picture}, nil
}
