package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/aussiebroadwan/squeezy/internal/squeezy/domain"
	"github.com/aussiebroadwan/squeezy/internal/squeezy/mail"
	"github.com/aussiebroadwan/squeezy/internal/squeezy/store"
	"github.com/aussiebroadwan/squeezy/pkg/cryptox"
	"github.com/aussiebroadwan/squeezy/pkg/idx"
	"github.com/aussiebroadwan/squeezy/pkg/jwtx"
	"github.com/aussiebroadwan/squeezy/pkg/slogx"
)

const (
	emailVerificationTTL = 45 * time.Minute
	passwordResetTTL     = time.Hour

	// At most resetLimit reset codes per user inside resetWindow.
	resetLimit  = 2
	resetWindow = 3 * time.Minute

	codeAttempts = 3
)

// AuthService drives registration, login, token refresh and the password
// and email flows built on one-time codes.
type AuthService struct {
	Store    store.Store
	Sessions *SessionService
	Tokens   *jwtx.Codec
	Mailer   mail.Sender

	// AppOrigin is the front-end origin links in mails point at.
	AppOrigin string
	Now       func() time.Time
}

func (s *AuthService) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now().UTC()
}

var (
	dummyHashOnce sync.Once
	dummyHash     string
)

// verifyDummy burns the same time as a real password check so unknown
// emails cannot be told apart by latency.
func verifyDummy(password string) {
	dummyHashOnce.Do(func() {
		dummyHash, _ = cryptox.HashPassword("squeezy-dummy-password")
	})
	if dummyHash != "" {
		_ = cryptox.VerifyPassword(password, dummyHash)
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates an unverified account and mails a confirmation link.
// No session is started.
func (s *AuthService) Register(ctx context.Context, name, email, password string) (domain.UserView, error) {
	logger := slogx.FromContext(ctx)
	now := s.now()

	hash, err := cryptox.HashPassword(password)
	if err != nil {
		return domain.UserView{}, fmt.Errorf("hash password: %w", err)
	}

	user := domain.User{
		ID:           idx.NewAt(now).String(),
		Name:         strings.TrimSpace(name),
		Email:        normalizeEmail(email),
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	var code string
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Users().CreateUser(ctx, user); err != nil {
			if errors.Is(err, store.ErrAlreadyExists) {
				return ErrEmailAlreadyExists
			}
			return fmt.Errorf("create user: %w", err)
		}

		code, err = issueCode(ctx, tx, user.ID, domain.PurposeEmailVerification, now, emailVerificationTTL)
		return err
	})
	if err != nil {
		return domain.UserView{}, err
	}

	logger.Info("user registered", "user_id", user.ID)

	link := s.link("/confirm-account", url.Values{"code": {code}})
	msg, err := mail.VerifyEmail(user.Email, user.Name, link)
	if err == nil {
		_, err = s.Mailer.Send(ctx, msg)
	}
	if err != nil {
		logger.Error("failed to send verification email", "user_id", user.ID, "error", err)
	}

	return user.View(), nil
}

// Login checks the password and either starts a session or, for MFA
// accounts, asks for the second factor without starting one.
func (s *AuthService) Login(ctx context.Context, email, password, userAgent string) (domain.LoginResult, error) {
	logger := slogx.FromContext(ctx)

	user, err := s.Store.Users().GetUserByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, store.ErrNotFound) {
		verifyDummy(password)
		logger.Info("login failed", "reason", "unknown_email")
		return domain.LoginResult{}, ErrInvalidCredentials
	}
	if err != nil {
		return domain.LoginResult{}, fmt.Errorf("get user: %w", err)
	}

	if err := cryptox.VerifyPassword(password, user.PasswordHash); err != nil {
		logger.Info("login failed", "reason", "bad_password", "user_id", user.ID)
		return domain.LoginResult{}, ErrInvalidCredentials
	}
	s.upgradeHash(ctx, user, password)

	if user.MFAEnabled {
		logger.Info("login needs second factor", "user_id", user.ID)
		return domain.LoginResult{User: user.View(), MFARequired: true}, nil
	}

	return s.startSession(ctx, user, userAgent)
}

// upgradeHash rewrites a stored hash made with older cost settings. Failure
// only costs a retry on the next login.
func (s *AuthService) upgradeHash(ctx context.Context, user domain.User, password string) {
	if !cryptox.NeedsRehash(user.PasswordHash) {
		return
	}
	hash, err := cryptox.HashPassword(password)
	if err == nil {
		err = s.Store.Users().UpdatePasswordHash(ctx, user.ID, hash, s.now())
	}
	if err != nil {
		slogx.FromContext(ctx).Warn("password rehash failed", "user_id", user.ID, "err", err)
		return
	}
	slogx.FromContext(ctx).Info("password hash upgraded", "user_id", user.ID)
}

// startSession creates a session and mints both tokens for it.
func (s *AuthService) startSession(ctx context.Context, user domain.User, userAgent string) (domain.LoginResult, error) {
	sess, err := s.Sessions.Create(ctx, user.ID, userAgent)
	if err != nil {
		return domain.LoginResult{}, err
	}

	now := s.now()
	access, accessExp, err := s.Tokens.SignAccess(jwtx.AccessPayload{UserID: user.ID, SessionID: sess.ID}, now)
	if err != nil {
		return domain.LoginResult{}, fmt.Errorf("sign access token: %w", err)
	}
	refresh, refreshExp, err := s.Tokens.SignRefresh(jwtx.RefreshPayload{SessionID: sess.ID}, now)
	if err != nil {
		return domain.LoginResult{}, fmt.Errorf("sign refresh token: %w", err)
	}

	slogx.FromContext(ctx).Info("session started", "user_id", user.ID, "session_id", sess.ID)

	return domain.LoginResult{
		User: user.View(),
		Tokens: domain.TokenPair{
			AccessToken:      access,
			AccessExpiresAt:  accessExp,
			RefreshToken:     refresh,
			RefreshExpiresAt: refreshExp,
		},
		Session: &sess,
	}, nil
}

// RefreshToken mints a new access token. The refresh token is only rotated
// when the session was close enough to expiry to be renewed.
func (s *AuthService) RefreshToken(ctx context.Context, refreshToken string) (domain.TokenPair, error) {
	payload, err := s.Tokens.VerifyRefresh(refreshToken)
	if err != nil {
		return domain.TokenPair{}, ErrUnauthorized
	}

	sess, err := s.Sessions.Active(ctx, payload.SessionID)
	if errors.Is(err, ErrSessionNotFound) {
		return domain.TokenPair{}, ErrUnauthorized
	}
	if err != nil {
		return domain.TokenPair{}, err
	}

	sess, renewed, err := s.Sessions.Renew(ctx, sess)
	if err != nil {
		return domain.TokenPair{}, err
	}

	now := s.now()
	var pair domain.TokenPair
	pair.AccessToken, pair.AccessExpiresAt, err = s.Tokens.SignAccess(jwtx.AccessPayload{UserID: sess.UserID, SessionID: sess.ID}, now)
	if err != nil {
		return domain.TokenPair{}, fmt.Errorf("sign access token: %w", err)
	}
	if renewed {
		pair.RefreshToken, pair.RefreshExpiresAt, err = s.Tokens.SignRefresh(jwtx.RefreshPayload{SessionID: sess.ID}, now)
		if err != nil {
			return domain.TokenPair{}, fmt.Errorf("sign refresh token: %w", err)
		}
		slogx.FromContext(ctx).Info("session renewed", "session_id", sess.ID, "expires_at", sess.ExpiresAt)
	}

	return pair, nil
}

// Authenticate validates an access token and the session behind it. A
// deleted or expired session revokes the token immediately.
func (s *AuthService) Authenticate(ctx context.Context, accessToken string) (jwtx.AccessPayload, error) {
	payload, err := s.Tokens.VerifyAccess(accessToken)
	if err != nil {
		return jwtx.AccessPayload{}, ErrUnauthorized
	}

	sess, err := s.Sessions.Active(ctx, payload.SessionID)
	if errors.Is(err, ErrSessionNotFound) {
		return jwtx.AccessPayload{}, ErrUnauthorized
	}
	if err != nil {
		return jwtx.AccessPayload{}, err
	}
	if sess.UserID != payload.UserID {
		return jwtx.AccessPayload{}, ErrUnauthorized
	}

	return payload, nil
}

// VerifyEmail consumes an email verification code.
func (s *AuthService) VerifyEmail(ctx context.Context, code string) (domain.UserView, error) {
	now := s.now()

	var user domain.User
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		vc, err := tx.VerificationCodes().GetValidVerificationCode(ctx, cryptox.FingerprintToken(normalizeCode(code)), domain.PurposeEmailVerification, now)
		if errors.Is(err, store.ErrNotFound) {
			return ErrInvalidOrExpiredCode
		}
		if err != nil {
			return fmt.Errorf("get verification code: %w", err)
		}

		if err := tx.Users().MarkEmailVerified(ctx, vc.UserID, now); err != nil {
			return fmt.Errorf("mark email verified: %w", err)
		}
		if err := tx.VerificationCodes().DeleteVerificationCode(ctx, vc.ID); err != nil {
			return fmt.Errorf("delete verification code: %w", err)
		}

		user, err = tx.Users().GetUserByID(ctx, vc.UserID)
		if err != nil {
			return fmt.Errorf("get user: %w", err)
		}
		return nil
	})
	if err != nil {
		return domain.UserView{}, err
	}

	slogx.FromContext(ctx).Info("email verified", "user_id", user.ID)
	return user.View(), nil
}

// ForgotPassword mails a reset link. Requests are limited per user.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	logger := slogx.FromContext(ctx)
	now := s.now()

	user, err := s.Store.Users().GetUserByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, store.ErrNotFound) {
		return ErrUserNotFound
	}
	if err != nil {
		return fmt.Errorf("get user: %w", err)
	}

	var (
		code      string
		expiresAt = now.Add(passwordResetTTL)
	)
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		count, err := tx.VerificationCodes().CountVerificationCodesSince(ctx, user.ID, domain.PurposePasswordReset, now.Add(-resetWindow))
		if err != nil {
			return fmt.Errorf("count reset codes: %w", err)
		}
		if count >= resetLimit {
			return ErrTooManyRequests
		}

		code, err = issueCode(ctx, tx, user.ID, domain.PurposePasswordReset, now, passwordResetTTL)
		return err
	})
	if err != nil {
		if errors.Is(err, ErrTooManyRequests) {
			logger.Warn("password reset rate limited", "user_id", user.ID)
		}
		return err
	}

	link := s.link("/reset-password", url.Values{
		"code": {code},
		"exp":  {strconv.FormatInt(expiresAt.UnixMilli(), 10)},
	})
	msg, err := mail.PasswordReset(user.Email, user.Name, link)
	if err != nil {
		return fmt.Errorf("build reset mail: %w", err)
	}

	id, err := s.Mailer.Send(ctx, msg)
	if err != nil || id == "" {
		logger.Error("failed to send password reset email", "user_id", user.ID, "error", err)
		return ErrMailDelivery
	}

	logger.Info("password reset requested", "user_id", user.ID)
	return nil
}

// ResetPassword consumes a reset code, sets the new password and ends every
// session of the user.
func (s *AuthService) ResetPassword(ctx context.Context, code, newPassword string) (domain.UserView, error) {
	now := s.now()

	hash, err := cryptox.HashPassword(newPassword)
	if err != nil {
		return domain.UserView{}, fmt.Errorf("hash password: %w", err)
	}

	var (
		user    domain.User
		revoked int64
	)
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		vc, err := tx.VerificationCodes().GetValidVerificationCode(ctx, cryptox.FingerprintToken(normalizeCode(code)), domain.PurposePasswordReset, now)
		if errors.Is(err, store.ErrNotFound) {
			return ErrInvalidOrExpiredCode
		}
		if err != nil {
			return fmt.Errorf("get reset code: %w", err)
		}

		if err := tx.Users().UpdatePasswordHash(ctx, vc.UserID, hash, now); err != nil {
			return fmt.Errorf("update password: %w", err)
		}
		if err := tx.VerificationCodes().DeleteVerificationCode(ctx, vc.ID); err != nil {
			return fmt.Errorf("delete reset code: %w", err)
		}
		if revoked, err = tx.Sessions().DeleteAllUserSessions(ctx, vc.UserID); err != nil {
			return fmt.Errorf("delete sessions: %w", err)
		}

		user, err = tx.Users().GetUserByID(ctx, vc.UserID)
		if err != nil {
			return fmt.Errorf("get user: %w", err)
		}
		return nil
	})
	if err != nil {
		return domain.UserView{}, err
	}

	slogx.FromContext(ctx).Info("password reset", "user_id", user.ID, "sessions_revoked", revoked)
	return user.View(), nil
}

// Logout ends one session. Unknown sessions are not an error.
func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	if err := s.Sessions.Delete(ctx, sessionID); err != nil {
		return err
	}
	slogx.FromContext(ctx).Info("session ended", "session_id", sessionID)
	return nil
}

func (s *AuthService) link(path string, q url.Values) string {
	return strings.TrimRight(s.AppOrigin, "/") + path + "?" + q.Encode()
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// issueCode stores the fingerprint of a fresh code and returns the code.
func issueCode(ctx context.Context, tx store.Tx, userID string, purpose domain.VerificationPurpose, now time.Time, ttl time.Duration) (string, error) {
	for range codeAttempts {
		code, err := cryptox.NewVerificationCode()
		if err != nil {
			return "", err
		}

		err = tx.VerificationCodes().CreateVerificationCode(ctx, domain.VerificationCode{
			ID:        idx.NewAt(now).String(),
			UserID:    userID,
			Purpose:   purpose,
			CodeHash:  cryptox.FingerprintToken(code),
			ExpiresAt: now.Add(ttl),
			CreatedAt: now,
		})
		if errors.Is(err, store.ErrAlreadyExists) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("create verification code: %w", err)
		}
		return code, nil
	}
	return "", fmt.Errorf("create verification code: %d collisions", codeAttempts)
}
