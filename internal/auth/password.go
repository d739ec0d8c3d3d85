package auth

import (
	"crypto/subtle"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// Password modes accepted by NewVerifier
const (
	PasswordModePlain  = "plain"
	PasswordModeBcrypt = "bcrypt"
)

// CredentialVerifier turns a plain password into its stored form and
// checks a candidate against a stored value.
type CredentialVerifier interface {
	Hash(plain string) (string, error)
	Verify(stored, plain string) bool
}

// NewVerifier returns the verifier for mode
func NewVerifier(mode string) (CredentialVerifier, error) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "", PasswordModePlain:
		return PlainVerifier{}, nil
	case PasswordModeBcrypt:
		return BcryptVerifier{}, nil
	default:
		return nil, fmt.Errorf("unknown password mode %q", mode)
	}
}

// PlainVerifier stores passwords as given. It exists for compatibility
// with databases seeded before hashing was introduced.
type PlainVerifier struct{}

func (PlainVerifier) Hash(plain string) (string, error) {
	return plain, nil
}

func (PlainVerifier) Verify(stored, plain string) bool {
	return subtle.ConstantTimeCompare([]byte(stored), []byte(plain)) == 1
}

// BcryptVerifier stores bcrypt hashes
type BcryptVerifier struct{}

func (BcryptVerifier) Hash(plain string) (string, error) {
	return HashPassword(plain)
}

func (BcryptVerifier) Verify(stored, plain string) bool {
	return ComparePassword(stored, plain) == nil
}

// HashPassword hashes a plain text password using bcrypt
func HashPassword(plain string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// ComparePassword compares a bcrypt hashed password with a plain text password
func ComparePassword(hash, plain string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain))
}
