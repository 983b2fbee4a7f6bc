package identity

import "time"

// User is a registered rider account.
type User struct {
	ID              int64
	Name            string
	Email           string
	PasswordHash    []byte
	GuardianContact string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// HasPassword reports whether the account can sign in with a password.
// Accounts created through Google sign-in carry no hash.
func (u User) HasPassword() bool {
	return len(u.PasswordHash) > 0
}

// SignupInput carries the fields accepted at registration.
type SignupInput struct {
	Name            string
	Email           string
	Password        string
	GuardianContact string
}

// ProfileInput carries the editable profile fields.
type ProfileInput struct {
	Name            string
	Email           string
	GuardianContact string
}
