package squeezysdk

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"
)

// refreshBuffer refreshes the access token this long before it expires.
const refreshBuffer = 30 * time.Second

// Session represents a logged-in user with automatic token refresh.
type Session struct {
	client *SDKClient

	mu           sync.RWMutex
	accessToken  string
	refreshToken string
	expiresAt    time.Time
}

func newSession(client *SDKClient, pair TokenPair) *Session {
	return &Session{
		client:       client,
		accessToken:  pair.AccessToken,
		refreshToken: pair.RefreshToken,
		expiresAt:    pair.AccessExpiresAt.Add(-refreshBuffer),
	}
}

// getValidToken returns a valid access token, refreshing if expired.
func (s *Session) getValidToken(ctx context.Context) (string, error) {
	s.mu.RLock()
	if time.Now().Before(s.expiresAt) {
		token := s.accessToken
		s.mu.RUnlock()
		return token, nil
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	// Another goroutine may have refreshed while we waited for the lock
	if time.Now().Before(s.expiresAt) {
		return s.accessToken, nil
	}

	if err := s.refreshLocked(ctx); err != nil {
		return "", err
	}
	return s.accessToken, nil
}

// Refresh forces a token refresh.
func (s *Session) Refresh(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refreshLocked(ctx)
}

func (s *Session) refreshLocked(ctx context.Context) error {
	if s.refreshToken == "" {
		return errors.New("access token expired and no refresh token available")
	}

	pair, err := s.client.RefreshToken(ctx, s.refreshToken)
	if err != nil {
		return fmt.Errorf("failed to refresh token: %w", err)
	}

	s.accessToken = pair.AccessToken
	if pair.RefreshToken != "" {
		s.refreshToken = pair.RefreshToken
	}
	s.expiresAt = pair.AccessExpiresAt.Add(-refreshBuffer)
	return nil
}

// Logout ends the session on the server. The Session is unusable afterwards.
func (s *Session) Logout(ctx context.Context) error {
	resp, err := s.doAuthRequest(ctx, http.MethodPost, "/v1/auth/logout", nil)
	if err != nil {
		return err
	}
	if err := decodeJSON(resp, nil, http.StatusOK); err != nil {
		return err
	}

	s.mu.Lock()
	s.accessToken, s.refreshToken = "", ""
	s.expiresAt = time.Time{}
	s.mu.Unlock()
	return nil
}

// AccessToken returns the current access token without checking expiration.
func (s *Session) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accessToken
}

// RefreshTokenValue returns the current refresh token.
func (s *Session) RefreshTokenValue() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.refreshToken
}
