package domain

import (
	"errors"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrUsernameRequired = errors.New("username is required")
	ErrPasswordTooWeak  = errors.New("password does not meet security requirements")
	ErrPasswordRequired = errors.New("password is required")
)

// Principal is the authenticated identity a CAS ticket is issued for. CAS
// itself has no notion of an account beyond "a string the login form
// accepted": username is whatever the credential store used to
// authenticate the principal returns, and has no uniqueness requirements
// beyond what the store enforces.
type Principal struct {
	Username       string
	HashedPassword string
	Email          string
}

// PasswordRequirements describes password complexity rules for credential
// creation. Nothing in this repository applies them: PrincipalRepository.Create
// stores whatever hash it is given, and login itself only ever compares hashes.
type PasswordRequirements struct {
	MinLength      int
	RequireUpper   bool
	RequireLower   bool
	RequireNumber  bool
	RequireSpecial bool
}

func DefaultPasswordRequirements() PasswordRequirements {
	return PasswordRequirements{
		MinLength:     8,
		RequireUpper:  true,
		RequireLower:  true,
		RequireNumber: true,
	}
}

func (r PasswordRequirements) Validate(password string) error {
	if password == "" {
		return ErrPasswordRequired
	}
	if len(password) < r.MinLength {
		return ErrPasswordTooWeak
	}
	var hasUpper, hasLower, hasNumber, hasSpecial bool
	for _, c := range password {
		switch {
		case unicode.IsUpper(c):
			hasUpper = true
		case unicode.IsLower(c):
			hasLower = true
		case unicode.IsNumber(c):
			hasNumber = true
		case unicode.IsPunct(c) || unicode.IsSymbol(c):
			hasSpecial = true
		}
	}
	if (r.RequireUpper && !hasUpper) ||
		(r.RequireLower && !hasLower) ||
		(r.RequireNumber && !hasNumber) ||
		(r.RequireSpecial && !hasSpecial) {
		return ErrPasswordTooWeak
	}
	return nil
}

// HashPassword hashes a plaintext password with bcrypt for storage.
func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// CheckPassword reports whether the plaintext password matches the
// principal's stored hash.
func (p *Principal) CheckPassword(password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(p.HashedPassword), []byte(password))
	return err == nil
}
