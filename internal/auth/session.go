package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"
)

const DefaultSessionTTL = 7 * 24 * time.Hour

// SessionStore hands out bearer tokens and expires them after a TTL.
// Tokens live in memory only; restarting the server signs everyone out.
type SessionStore struct {
	ttl time.Duration
	now func() time.Time

	mu     sync.Mutex
	tokens map[string]time.Time
}

func NewSessionStore(ttl time.Duration) *SessionStore {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &SessionStore{
		ttl:    ttl,
		now:    time.Now,
		tokens: make(map[string]time.Time),
	}
}

// Issue mints a fresh bearer token and returns it with its expiry.
func (s *SessionStore) Issue() (string, time.Time, error) {
	raw := make([]byte, 24)
	if _, err := rand.Read(raw); err != nil {
		return "", time.Time{}, fmt.Errorf("generate session token: %w", err)
	}
	token := hex.EncodeToString(raw)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.pruneLocked()
	expiresAt := s.now().Add(s.ttl)
	s.tokens[token] = expiresAt
	return token, expiresAt, nil
}

// Validate reports whether the token exists and has not expired.
func (s *SessionStore) Validate(token string) bool {
	token = strings.TrimSpace(token)
	if token == "" {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	expiresAt, ok := s.tokens[token]
	if !ok {
		return false
	}
	if !expiresAt.After(s.now()) {
		delete(s.tokens, token)
		return false
	}
	return true
}

// Revoke drops the token immediately.
func (s *SessionStore) Revoke(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, strings.TrimSpace(token))
}

func (s *SessionStore) pruneLocked() {
	now := s.now()
	for token, expiresAt := range s.tokens {
		if !expiresAt.After(now) {
			delete(s.tokens, token)
		}
	}
}
