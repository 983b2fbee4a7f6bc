package identity

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	minPasswordLength = 8
	// bcrypt ignores everything past 72 bytes.
	maxPasswordBytes = 72
	minNameLength    = 2
	minGuardianDigit = 10
)

var (
	emailPattern    = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	namePattern     = regexp.MustCompile(`^[a-zA-Z\s]+$`)
	guardianPattern = regexp.MustCompile(`^\+?[\d\s\-()]+$`)

	disposableDomains = map[string]struct{}{
		"tempmail.org":      {},
		"10minutemail.com":  {},
		"guerrillamail.com": {},
	}
)

// NormalizeEmail trims and lower-cases an email so lookups are case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return invalid("name", "full name is required")
	}
	if utf8.RuneCountInString(name) < minNameLength {
		return invalid("name", "name must be at least 2 characters")
	}
	if !namePattern.MatchString(name) {
		return invalid("name", "name can only contain letters and spaces")
	}
	return nil
}

func validateEmail(email string) error {
	if email == "" {
		return invalid("email", "email is required")
	}
	if !emailPattern.MatchString(email) {
		return invalid("email", "invalid email format")
	}
	domain := email[strings.LastIndex(email, "@")+1:]
	if _, blocked := disposableDomains[domain]; blocked {
		return invalid("email", "please use a permanent email address")
	}
	return nil
}

func validatePassword(password string) error {
	if password == "" {
		return invalid("password", "password is required")
	}
	if utf8.RuneCountInString(password) < minPasswordLength {
		return invalid("password", "password must be at least 8 characters long")
	}
	if len(password) > maxPasswordBytes {
		return invalid("password", "password must be at most 72 bytes")
	}

	var upper, lower, digit, special bool
	for _, r := range password {
		switch {
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= '0' && r <= '9':
			digit = true
		default:
			special = true
		}
	}
	switch {
	case !upper:
		return invalid("password", "password must contain at least one uppercase letter")
	case !lower:
		return invalid("password", "password must contain at least one lowercase letter")
	case !digit:
		return invalid("password", "password must contain at least one number")
	case !special:
		return invalid("password", "password must contain at least one special character")
	}
	return nil
}

func validateGuardianContact(contact string) error {
	if contact == "" {
		return nil
	}
	if !guardianPattern.MatchString(contact) {
		return invalid("guardian_contact", "please enter a valid phone number")
	}
	digits := 0
	for _, r := range contact {
		if unicode.IsDigit(r) {
			digits++
		}
	}
	if digits < minGuardianDigit {
		return invalid("guardian_contact", "please enter a valid phone number")
	}
	return nil
}

// ValidateSignup checks registration input and returns the first offending field.
func ValidateSignup(in SignupInput) error {
	if err := validateName(in.Name); err != nil {
		return err
	}
	if err := validateEmail(NormalizeEmail(in.Email)); err != nil {
		return err
	}
	if err := validatePassword(in.Password); err != nil {
		return err
	}
	return validateGuardianContact(strings.TrimSpace(in.GuardianContact))
}

// ValidateProfile checks profile edits.
func ValidateProfile(in ProfileInput) error {
	if strings.TrimSpace(in.Name) == "" || strings.TrimSpace(in.Email) == "" {
		field := "name"
		if strings.TrimSpace(in.Name) != "" {
			field = "email"
		}
		return invalid(field, "name and email are required")
	}
	if err := validateName(in.Name); err != nil {
		return err
	}
	if err := validateEmail(NormalizeEmail(in.Email)); err != nil {
		return err
	}
	return validateGuardianContact(strings.TrimSpace(in.GuardianContact))
}
