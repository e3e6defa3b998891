// Package auth keeps the bearer credential obtained at login.
package auth

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Storage keys in the persistent scope.
const (
	KeyAuthToken  = "authToken"
	KeyRememberMe = "rememberMe"
)

const scope = "local"

// ErrNoCredential is returned when no usable token is held.
var ErrNoCredential = errors.New("not signed in")

// Backend is the persistent key/value storage. *db.Store satisfies it.
type Backend interface {
	Get(scope, key string) (string, bool, error)
	Set(scope, key, value string) error
	Delete(scope, key string) error
}

// TokenStore holds the bearer token. Remembered tokens are written to the
// backend; others live only as long as the process.
type TokenStore struct {
	backend Backend
	now     func() time.Time

	mu    sync.RWMutex
	token string
}

// NewTokenStore loads any remembered token from backend.
func NewTokenStore(backend Backend) (*TokenStore, error) {
	s := &TokenStore{backend: backend, now: time.Now}
	token, _, err := backend.Get(scope, KeyAuthToken)
	if err != nil {
		return nil, fmt.Errorf("load token: %w", err)
	}
	s.token = token
	return s, nil
}

// Token returns the current token, or ErrNoCredential when there is none or
// it carries an expiry that has passed.
func (s *TokenStore) Token() (string, error) {
	s.mu.RLock()
	token := s.token
	s.mu.RUnlock()

	if token == "" || Expired(token, s.now()) {
		return "", ErrNoCredential
	}
	return token, nil
}

// Save replaces the held token.
func (s *TokenStore) Save(token string, remember bool) error {
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()

	if err := s.backend.Set(scope, KeyRememberMe, fmt.Sprint(remember)); err != nil {
		return fmt.Errorf("save remember flag: %w", err)
	}
	if !remember {
		if err := s.backend.Delete(scope, KeyAuthToken); err != nil {
			return fmt.Errorf("drop stored token: %w", err)
		}
		return nil
	}
	if err := s.backend.Set(scope, KeyAuthToken, token); err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	return nil
}

// RememberMe reports the last "remember me" choice, for pre-filling the login form.
func (s *TokenStore) RememberMe() bool {
	v, _, err := s.backend.Get(scope, KeyRememberMe)
	return err == nil && v == "true"
}

// Clear forgets the token in memory and on disk.
func (s *TokenStore) Clear() error {
	s.mu.Lock()
	s.token = ""
	s.mu.Unlock()

	if err := s.backend.Delete(scope, KeyAuthToken); err != nil {
		return fmt.Errorf("clear token: %w", err)
	}
	return nil
}

// Expired reports whether token is a JWT whose exp claim lies before now.
// Opaque tokens are never considered expired here; the server decides.
func Expired(token string, now time.Time) bool {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return false
	}
	return claims.ExpiresAt != nil && !now.Before(claims.ExpiresAt.Time)
}
