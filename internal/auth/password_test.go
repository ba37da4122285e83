package auth

import (
	"errors"
	"testing"
	"time"
)

func TestHashAndVerifyPassword(t *testing.T) {
	t.Parallel()

	hash, err := HashPassword("changeme123")
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	if hash == "" {
		t.Fatalf("expected non-empty hash")
	}
	if !VerifyPassword("changeme123", hash) {
		t.Fatalf("expected password verification to succeed")
	}
	if VerifyPassword("wrong-password", hash) {
		t.Fatalf("did not expect wrong password to verify")
	}
	if _, err := HashPassword("   "); !errors.Is(err, ErrEmptyPassword) {
		t.Fatalf("expected ErrEmptyPassword for blank input, got %v", err)
	}
}

func TestSessionStoreIssueAndValidate(t *testing.T) {
	t.Parallel()

	store := NewSessionStore(time.Hour)
	token, expiresAt, err := store.Issue()
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	if token == "" {
		t.Fatal("expected non-empty token")
	}
	if !expiresAt.After(time.Now()) {
		t.Fatalf("expected a future expiry, got %v", expiresAt)
	}

	if !store.Validate(token) {
		t.Fatal("expected issued token to validate")
	}
	if store.Validate("unknown-token") {
		t.Fatal("did not expect an unknown token to validate")
	}

	store.Revoke(token)
	if store.Validate(token) {
		t.Fatal("did not expect a revoked token to validate")
	}
}

func TestSessionStoreExpiry(t *testing.T) {
	t.Parallel()

	store := NewSessionStore(time.Minute)
	current := time.Now()
	store.now = func() time.Time { return current }

	token, _, err := store.Issue()
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	if !store.Validate(token) {
		t.Fatal("expected fresh token to validate")
	}

	current = current.Add(2 * time.Minute)
	if store.Validate(token) {
		t.Fatal("did not expect an expired token to validate")
	}
}
