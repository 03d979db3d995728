package auth

import (
	"context"
	"sync"
)

// NewInMemorySessionStore returns a SessionStore backed by an in-memory map.
func NewInMemorySessionStore() *InMemorySessionStore {
	return &InMemorySessionStore{tokens: make(map[string]string)}
}

// InMemorySessionStore implements SessionStore for tests and local development.
type InMemorySessionStore struct {
	mu     sync.RWMutex
	tokens map[string]string
}

// SetRefreshToken replaces the user's current refresh token. An empty token clears it.
func (s *InMemorySessionStore) SetRefreshToken(_ context.Context, userID, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if token == "" {
		delete(s.tokens, userID)
		return nil
	}
	s.tokens[userID] = token
	return nil
}

// GetRefreshToken returns the user's current refresh token, or "" when none is stored.
func (s *InMemorySessionStore) GetRefreshToken(_ context.Context, userID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tokens[userID], nil
}

// Has reports whether the user holds an active session. Useful for tests.
func (s *InMemorySessionStore) Has(userID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.tokens[userID]
	return ok
}
