package identity

import (
	"context"
	"errors"
	"strings"
	"time"
)

const defaultGoogleName = "Google User"

// Service manages the user account lifecycle.
type Service struct {
	repo   Repository
	hasher Hasher
	now    func() time.Time
}

// NewService creates a new identity service.
func NewService(repo Repository, hasher Hasher) *Service {
	return &Service{repo: repo, hasher: hasher, now: time.Now}
}

// Register validates input, rejects taken emails and stores a bcrypt-hashed password.
func (s *Service) Register(ctx context.Context, in SignupInput) (User, error) {
	if err := ValidateSignup(in); err != nil {
		return User{}, err
	}
	email := NormalizeEmail(in.Email)

	if _, err := s.repo.FindByEmail(ctx, email); err == nil {
		return User{}, ErrEmailTaken
	} else if !errors.Is(err, ErrUserNotFound) {
		return User{}, err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return User{}, err
	}

	now := s.now().UTC()
	return s.repo.Create(ctx, User{
		Name:            strings.TrimSpace(in.Name),
		Email:           email,
		PasswordHash:    hash,
		GuardianContact: strings.TrimSpace(in.GuardianContact),
		CreatedAt:       now,
		UpdatedAt:       now,
	})
}

// Authenticate checks an email/password pair.
func (s *Service) Authenticate(ctx context.Context, email, password string) (User, error) {
	email = NormalizeEmail(email)
	if email == "" || password == "" {
		return User{}, invalid("email", "email and password are required")
	}

	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return User{}, ErrInvalidCredentials
		}
		return User{}, err
	}
	if !s.hasher.Verify(user.PasswordHash, password) {
		return User{}, ErrInvalidCredentials
	}
	return user, nil
}

// SignInExternal returns the account for an externally verified email,
// creating a password-less one on first sign-in.
func (s *Service) SignInExternal(ctx context.Context, email, name string) (User, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return User{}, invalid("email", "external identity has no email")
	}

	user, err := s.repo.FindByEmail(ctx, email)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, ErrUserNotFound) {
		return User{}, err
	}

	if strings.TrimSpace(name) == "" {
		name = defaultGoogleName
	}
	now := s.now().UTC()
	user, err = s.repo.Create(ctx, User{Name: strings.TrimSpace(name), Email: email, CreatedAt: now, UpdatedAt: now})
	if errors.Is(err, ErrEmailTaken) {
		// Lost a race with a concurrent first sign-in.
		return s.repo.FindByEmail(ctx, email)
	}
	return user, err
}

// Get fetches a user by id.
func (s *Service) Get(ctx context.Context, id int64) (User, error) {
	return s.repo.FindByID(ctx, id)
}

// UpdateProfile validates and persists name, email and guardian contact.
func (s *Service) UpdateProfile(ctx context.Context, id int64, in ProfileInput) (User, error) {
	if err := ValidateProfile(in); err != nil {
		return User{}, err
	}

	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return User{}, err
	}

	email := NormalizeEmail(in.Email)
	if email != user.Email {
		if other, err := s.repo.FindByEmail(ctx, email); err == nil && other.ID != id {
			return User{}, ErrEmailTaken
		} else if err != nil && !errors.Is(err, ErrUserNotFound) {
			return User{}, err
		}
	}

	user.Name = strings.TrimSpace(in.Name)
	user.Email = email
	user.GuardianContact = strings.TrimSpace(in.GuardianContact)
	user.UpdatedAt = s.now().UTC()
	if err := s.repo.Update(ctx, user); err != nil {
		return User{}, err
	}
	return user, nil
}
