// Package auth protects the web UI and API with HTTP Basic authentication.
package auth

import (
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// MinCost is the lowest bcrypt cost accepted for hashing a plain password.
const MinCost = 10

var (
	ErrEmptyPassword = errors.New("auth: password cannot be empty")

	// ErrPasswordMismatch covers wrong passwords and unusable hashes alike.
	ErrPasswordMismatch = errors.New("auth: password does not match")
)

// isBcryptHash reports whether s looks like a bcrypt hash ($2a$, $2b$ or $2y$).
func isBcryptHash(s string) bool {
	if !strings.HasPrefix(s, "$2") {
		return false
	}
	_, err := bcrypt.Cost([]byte(s))
	return err == nil
}

// HashPassword returns the hash BasicAuth compares against. WEBUI_PASSWORD
// may already hold a bcrypt hash, which is returned unchanged.
func HashPassword(password string, cost int) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}
	if isBcryptHash(password) {
		return password, nil
	}
	if cost < MinCost || cost > bcrypt.MaxCost {
		return "", bcrypt.InvalidCostError(cost)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyPassword returns ErrPasswordMismatch unless password matches hash.
func VerifyPassword(password, hash string) error {
	if password == "" || hash == "" {
		return ErrPasswordMismatch
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return ErrPasswordMismatch
	}
	return nil
}
