package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aussiebroadwan/squeezy/internal/squeezy/domain"
	"github.com/aussiebroadwan/squeezy/internal/squeezy/store"
	"github.com/aussiebroadwan/squeezy/pkg/idx"
)

const (
	DefaultSessionTTL     = 30 * 24 * time.Hour
	DefaultRenewThreshold = 24 * time.Hour
)

// SessionService owns the session lifecycle. A session is the revocation
// point for every token minted against it.
type SessionService struct {
	Store store.Store

	TTL            time.Duration
	RenewThreshold time.Duration
	Now            func() time.Time
}

func NewSessionService(st store.Store) *SessionService {
	return &SessionService{
		Store:          st,
		TTL:            DefaultSessionTTL,
		RenewThreshold: DefaultRenewThreshold,
		Now:            time.Now,
	}
}

func (s *SessionService) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now().UTC()
}

// Create starts a new session for the user.
func (s *SessionService) Create(ctx context.Context, userID, userAgent string) (domain.Session, error) {
	now := s.now()
	sess := domain.Session{
		ID:        idx.NewAt(now).String(),
		UserID:    userID,
		UserAgent: userAgent,
		CreatedAt: now,
		ExpiresAt: now.Add(s.TTL),
	}
	if err := s.Store.Sessions().CreateSession(ctx, sess); err != nil {
		return domain.Session{}, fmt.Errorf("create session: %w", err)
	}
	return sess, nil
}

// Get returns the session even when it has expired; callers decide.
func (s *SessionService) Get(ctx context.Context, id string) (domain.Session, error) {
	sess, err := s.Store.Sessions().GetSessionByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return domain.Session{}, ErrSessionNotFound
	}
	if err != nil {
		return domain.Session{}, fmt.Errorf("get session: %w", err)
	}
	return sess, nil
}

// Active returns the session only while it is unexpired.
func (s *SessionService) Active(ctx context.Context, id string) (domain.Session, error) {
	sess, err := s.Get(ctx, id)
	if err != nil {
		return domain.Session{}, err
	}
	if sess.Expired(s.now()) {
		return domain.Session{}, ErrSessionNotFound
	}
	return sess, nil
}

// Renew extends the session to a full TTL once its remaining lifetime has
// dropped to the renewal threshold. It reports whether it did. Expiry never
// moves backwards, even under concurrent renewals.
func (s *SessionService) Renew(ctx context.Context, sess domain.Session) (domain.Session, bool, error) {
	now := s.now()
	if sess.Remaining(now) > s.RenewThreshold {
		return sess, false, nil
	}

	newExpiry := now.Add(s.TTL)
	changed, err := s.Store.Sessions().ExtendSession(ctx, sess.ID, newExpiry)
	if err != nil {
		return sess, false, fmt.Errorf("extend session: %w", err)
	}
	if !changed {
		// Someone else already pushed it further out.
		fresh, err := s.Get(ctx, sess.ID)
		if err != nil {
			return sess, false, err
		}
		return fresh, false, nil
	}

	sess.ExpiresAt = newExpiry
	return sess, true, nil
}

func (s *SessionService) Delete(ctx context.Context, id string) error {
	if err := s.Store.Sessions().DeleteSession(ctx, id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (s *SessionService) DeleteAllForUser(ctx context.Context, userID string) (int64, error) {
	n, err := s.Store.Sessions().DeleteAllUserSessions(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("delete user sessions: %w", err)
	}
	return n, nil
}

// ListActiveForUser returns unexpired sessions, newest first.
func (s *SessionService) ListActiveForUser(ctx context.Context, userID string) ([]domain.Session, error) {
	sessions, err := s.Store.Sessions().ListActiveSessions(ctx, userID, s.now())
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return sessions, nil
}

// DeleteForUser deletes one of the user's own sessions.
func (s *SessionService) DeleteForUser(ctx context.Context, id, userID string) error {
	err := s.Store.Sessions().DeleteUserSession(ctx, id, userID)
	if errors.Is(err, store.ErrNotFound) {
		return ErrSessionNotFound
	}
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// CurrentSession is a session together with the user that owns it.
type CurrentSession struct {
	Session domain.Session  `json:"session"`
	User    domain.UserView `json:"user"`
}

// GetWithUser loads an active session and its owner.
func (s *SessionService) GetWithUser(ctx context.Context, id string) (CurrentSession, error) {
	sess, err := s.Active(ctx, id)
	if err != nil {
		return CurrentSession{}, err
	}
	user, err := s.Store.Users().GetUserByID(ctx, sess.UserID)
	if errors.Is(err, store.ErrNotFound) {
		return CurrentSession{}, ErrUserNotFound
	}
	if err != nil {
		return CurrentSession{}, fmt.Errorf("get user: %w", err)
	}
	return CurrentSession{Session: sess, User: user.View()}, nil
}
