package squeezysdk

import (
	"context"
	"net/http"
	"net/url"
)

// ListSessions returns the user's active sessions, marking this one.
func (s *Session) ListSessions(ctx context.Context) ([]SessionInfo, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodGet, "/v1/sessions", nil)
	if err != nil {
		return nil, err
	}

	var sessions []SessionInfo
	if err := decodeJSON(resp, &sessions, http.StatusOK); err != nil {
		return nil, err
	}
	return sessions, nil
}

// Current returns this session and its user.
func (s *Session) Current(ctx context.Context) (*CurrentSession, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodGet, "/v1/sessions/current", nil)
	if err != nil {
		return nil, err
	}

	var cur CurrentSession
	if err := decodeJSON(resp, &cur, http.StatusOK); err != nil {
		return nil, err
	}
	return &cur, nil
}

// DeleteSession signs out one of the user's sessions.
func (s *Session) DeleteSession(ctx context.Context, id string) error {
	resp, err := s.doAuthRequest(ctx, http.MethodDelete, "/v1/sessions/"+url.PathEscape(id), nil)
	if err != nil {
		return err
	}
	return decodeJSON(resp, nil, http.StatusOK)
}
