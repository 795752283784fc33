package service

import (
	"bytes"
	"context"
	"encoding/base32"
	"encoding/base64"
	"errors"
	"fmt"
	"image/png"
	"strings"
	"time"

	"github.com/aussiebroadwan/squeezy/internal/squeezy/domain"
	"github.com/aussiebroadwan/squeezy/internal/squeezy/store"
	"github.com/aussiebroadwan/squeezy/pkg/slogx"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

const qrSize = 200

var totpOpts = totp.ValidateOpts{
	Period:    30,
	Skew:      1,
	Digits:    otp.DigitsSix,
	Algorithm: otp.AlgorithmSHA1,
}

// MFAService enrolls, confirms and revokes TOTP second factors, and
// completes logins that need one.
type MFAService struct {
	Store  store.Store
	Auth   *AuthService
	Issuer string // shown in authenticator apps
	Now    func() time.Time
}

func (s *MFAService) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now().UTC()
}

func (s *MFAService) user(ctx context.Context, userID string) (domain.User, error) {
	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return domain.User{}, ErrUserNotFound
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

// GenerateSetup returns the secret, otpauth URI and QR image for enrollment.
// A pending secret from an earlier unconfirmed setup is reused so a
// half-scanned QR code stays valid.
func (s *MFAService) GenerateSetup(ctx context.Context, userID string) (domain.MFASetup, error) {
	user, err := s.user(ctx, userID)
	if err != nil {
		return domain.MFASetup{}, err
	}
	if user.MFAEnabled {
		return domain.MFASetup{AlreadyEnabled: true, Message: "MFA is already enabled"}, nil
	}

	opts := totp.GenerateOpts{
		Issuer:      s.Issuer,
		AccountName: user.Email,
		Period:      totpOpts.Period,
		Digits:      totpOpts.Digits,
		Algorithm:   totpOpts.Algorithm,
	}
	pending := user.MFASecret != nil && *user.MFASecret != ""
	if pending {
		raw, err := base32.StdEncoding.WithPadding(base32.NoPadding).DecodeString(strings.ToUpper(*user.MFASecret))
		if err != nil {
			return domain.MFASetup{}, fmt.Errorf("decode pending secret: %w", err)
		}
		opts.Secret = raw
	}

	key, err := totp.Generate(opts)
	if err != nil {
		return domain.MFASetup{}, fmt.Errorf("generate TOTP key: %w", err)
	}

	if !pending {
		if err := s.Store.Users().UpdateMFASecret(ctx, user.ID, key.Secret(), s.now()); err != nil {
			return domain.MFASetup{}, fmt.Errorf("store MFA secret: %w", err)
		}
	}

	qr, err := qrDataURL(key)
	if err != nil {
		return domain.MFASetup{}, err
	}

	slogx.FromContext(ctx).Info("MFA setup generated", "user_id", user.ID, "reused", pending)

	return domain.MFASetup{
		Message:    "Scan the QR code with your authenticator app",
		Secret:     key.Secret(),
		URI:        key.URL(),
		QRImageURL: qr,
	}, nil
}

// ConfirmSetup enables MFA once the user proves their authenticator
// produces codes for the pending secret.
func (s *MFAService) ConfirmSetup(ctx context.Context, userID, code, secret string) (domain.MFAStatus, error) {
	user, err := s.user(ctx, userID)
	if err != nil {
		return domain.MFAStatus{}, err
	}
	if user.MFAEnabled {
		return domain.MFAStatus{Enabled: true, Message: "MFA is already enabled"}, nil
	}

	secret = strings.ToUpper(strings.TrimSpace(secret))
	pending := user.MFASecret != nil && *user.MFASecret != ""
	if pending && *user.MFASecret != secret {
		return domain.MFAStatus{}, ErrMFASetupMismatch
	}

	if !s.validate(code, secret) {
		slogx.FromContext(ctx).Info("MFA setup code rejected", "user_id", user.ID)
		return domain.MFAStatus{}, ErrInvalidMFACode
	}

	now := s.now()
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if !pending {
			if err := tx.Users().UpdateMFASecret(ctx, user.ID, secret, now); err != nil {
				return fmt.Errorf("store MFA secret: %w", err)
			}
		}
		if err := tx.Users().EnableMFA(ctx, user.ID, now); err != nil {
			return fmt.Errorf("enable MFA: %w", err)
		}
		return nil
	})
	if err != nil {
		return domain.MFAStatus{}, err
	}

	slogx.FromContext(ctx).Info("MFA enabled", "user_id", user.ID)
	return domain.MFAStatus{Enabled: true, Changed: true, Message: "MFA enabled"}, nil
}

// Revoke turns MFA off and forgets the secret.
func (s *MFAService) Revoke(ctx context.Context, userID string) (domain.MFAStatus, error) {
	user, err := s.user(ctx, userID)
	if err != nil {
		return domain.MFAStatus{}, err
	}
	if !user.MFAEnabled {
		return domain.MFAStatus{Enabled: false, Message: "MFA is not enabled"}, nil
	}

	if err := s.Store.Users().DisableMFA(ctx, user.ID, s.now()); err != nil {
		return domain.MFAStatus{}, fmt.Errorf("disable MFA: %w", err)
	}

	slogx.FromContext(ctx).Info("MFA revoked", "user_id", user.ID)
	return domain.MFAStatus{Enabled: false, Changed: true, Message: "MFA revoked"}, nil
}

// VerifyForLogin completes a login that stopped at the second factor.
func (s *MFAService) VerifyForLogin(ctx context.Context, code, email, userAgent string) (domain.LoginResult, error) {
	user, err := s.Store.Users().GetUserByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, store.ErrNotFound) {
		return domain.LoginResult{}, ErrUserNotFound
	}
	if err != nil {
		return domain.LoginResult{}, fmt.Errorf("get user: %w", err)
	}

	if !user.MFAEnabled || user.MFASecret == nil || *user.MFASecret == "" {
		return domain.LoginResult{}, ErrUnauthorized
	}
	if !s.validate(code, *user.MFASecret) {
		slogx.FromContext(ctx).Info("MFA login code rejected", "user_id", user.ID)
		return domain.LoginResult{}, ErrInvalidMFACode
	}

	return s.Auth.startSession(ctx, user, userAgent)
}

func (s *MFAService) validate(code, secret string) bool {
	ok, err := totp.ValidateCustom(strings.TrimSpace(code), secret, s.now(), totpOpts)
	return err == nil && ok
}

func qrDataURL(key *otp.Key) (string, error) {
	img, err := key.Image(qrSize, qrSize)
	if err != nil {
		return "", fmt.Errorf("render QR code: %w", err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("encode QR code: %w", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
