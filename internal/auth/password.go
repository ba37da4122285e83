package auth

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// bcryptCost trades login latency for resistance to offline cracking of the
// admin hash.
const bcryptCost = 12

// ErrEmptyPassword rejects blank admin passwords before they reach bcrypt.
var ErrEmptyPassword = errors.New("password is required")

// HashPassword derives the bcrypt hash the API compares login attempts
// against.
func HashPassword(password string) (string, error) {
	trimmed := strings.TrimSpace(password)
	if trimmed == "" {
		return "", ErrEmptyPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(trimmed), bcryptCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// VerifyPassword reports whether password matches hash. Blank inputs never
// match.
func VerifyPassword(password, hash string) bool {
	password = strings.TrimSpace(password)
	hash = strings.TrimSpace(hash)
	if password == "" || hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
