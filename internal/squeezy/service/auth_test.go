package service

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/aussiebroadwan/squeezy/pkg/cryptox"
	"github.com/aussiebroadwan/squeezy/pkg/jwtx"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/argon2"
)

func TestRegister(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	u, err := f.auth.Register(ctx, " Ann ", "Ann@Example.com", "password1")
	require.NoError(t, err)
	require.Equal(t, "ann@example.com", u.Email)
	require.Equal(t, "Ann", u.Name)
	require.False(t, u.EmailVerified)

	msg := f.mailer.last(t)
	require.Equal(t, "ann@example.com", msg.To)
	require.Contains(t, msg.Text, "https://app.test/confirm-account?code=")

	_, err = f.auth.Register(ctx, "Ann", "ANN@example.com", "password2")
	require.ErrorIs(t, err, ErrEmailAlreadyExists)
}

func TestRegisterMailFailureIsNotFatal(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.mailer.err = errors.New("smtp down")

	u, err := f.auth.Register(context.Background(), "Bob", "bob@example.com", "password1")
	require.NoError(t, err)
	require.NotEmpty(t, u.ID)
}

func TestLogin(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	f.register(t, "a@x.com", "p1-secret")

	t.Run("wrong password", func(t *testing.T) {
		_, err := f.auth.Login(ctx, "a@x.com", "nope", "ua")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("unknown email", func(t *testing.T) {
		_, err := f.auth.Login(ctx, "ghost@x.com", "p1-secret", "ua")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("issues session and tokens", func(t *testing.T) {
		res, err := f.auth.Login(ctx, "A@X.com", "p1-secret", "test-agent")
		require.NoError(t, err)
		require.False(t, res.MFARequired)
		require.NotNil(t, res.Session)
		require.Equal(t, "test-agent", res.Session.UserAgent)

		access, err := f.tokens.VerifyAccess(res.Tokens.AccessToken)
		require.NoError(t, err)
		require.Equal(t, jwtx.AccessPayload{UserID: res.User.ID, SessionID: res.Session.ID}, access)

		refresh, err := f.tokens.VerifyRefresh(res.Tokens.RefreshToken)
		require.NoError(t, err)
		require.Equal(t, res.Session.ID, refresh.SessionID)

		// Tokens never verify as the other class.
		_, err = f.tokens.VerifyAccess(res.Tokens.RefreshToken)
		require.Error(t, err)
		_, err = f.tokens.VerifyRefresh(res.Tokens.AccessToken)
		require.Error(t, err)
	})
}

func TestLoginUpgradesLegacyHash(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	id := f.register(t, "old@x.com", "legacy-pass")

	salt := []byte("0123456789abcdef")
	key := argon2.IDKey([]byte("legacy-pass"+cryptox.GetPepper()), salt, 1, 8*1024, 1, 16)
	legacy := fmt.Sprintf("$argon2id$v=19$m=8192,t=1,p=1$%s$%s",
		base64.RawStdEncoding.EncodeToString(salt), base64.RawStdEncoding.EncodeToString(key))
	require.NoError(t, f.store.Users().UpdatePasswordHash(ctx, id, legacy, f.clock.Now()))

	_, err := f.auth.Login(ctx, "old@x.com", "legacy-pass", "ua")
	require.NoError(t, err)

	u, err := f.store.Users().GetUserByID(ctx, id)
	require.NoError(t, err)
	require.NotEqual(t, legacy, u.PasswordHash)
	require.False(t, cryptox.NeedsRehash(u.PasswordHash))
	require.NoError(t, cryptox.VerifyPassword("legacy-pass", u.PasswordHash))
}

func TestRefreshTokenRenewal(t *testing.T) {
	t.Parallel()

	t.Run("renews inside the last day", func(t *testing.T) {
		f := newFixture(t)
		ctx := context.Background()
		f.register(t, "a@x.com", "p1-secret")
		res, err := f.auth.Login(ctx, "a@x.com", "p1-secret", "")
		require.NoError(t, err)

		// Session now has 12h left.
		f.clock.Advance(DefaultSessionTTL - 12*time.Hour)

		pair, err := f.auth.RefreshToken(ctx, res.Tokens.RefreshToken)
		require.NoError(t, err)
		require.NotEmpty(t, pair.AccessToken)
		require.NotEmpty(t, pair.RefreshToken)

		sess, err := f.sessions.Get(ctx, res.Session.ID)
		require.NoError(t, err)
		require.True(t, sess.ExpiresAt.After(f.clock.Now().Add(24*time.Hour)))

		// The rotated refresh token names the same session.
		payload, err := f.tokens.VerifyRefresh(pair.RefreshToken)
		require.NoError(t, err)
		require.Equal(t, res.Session.ID, payload.SessionID)
	})

	t.Run("does not renew with time to spare", func(t *testing.T) {
		f := newFixture(t)
		ctx := context.Background()
		f.register(t, "a@x.com", "p1-secret")
		res, err := f.auth.Login(ctx, "a@x.com", "p1-secret", "")
		require.NoError(t, err)

		// Session now has 10 days left.
		f.clock.Advance(DefaultSessionTTL - 10*24*time.Hour)

		pair, err := f.auth.RefreshToken(ctx, res.Tokens.RefreshToken)
		require.NoError(t, err)
		require.NotEmpty(t, pair.AccessToken)
		require.Empty(t, pair.RefreshToken)

		sess, err := f.sessions.Get(ctx, res.Session.ID)
		require.NoError(t, err)
		require.Equal(t, res.Session.ExpiresAt, sess.ExpiresAt)
	})

	t.Run("rejects bad tokens and dead sessions", func(t *testing.T) {
		f := newFixture(t)
		ctx := context.Background()
		f.register(t, "a@x.com", "p1-secret")
		res, err := f.auth.Login(ctx, "a@x.com", "p1-secret", "")
		require.NoError(t, err)

		_, err = f.auth.RefreshToken(ctx, "garbage")
		require.ErrorIs(t, err, ErrUnauthorized)

		_, err = f.auth.RefreshToken(ctx, res.Tokens.AccessToken)
		require.ErrorIs(t, err, ErrUnauthorized)

		require.NoError(t, f.auth.Logout(ctx, res.Session.ID))
		_, err = f.auth.RefreshToken(ctx, res.Tokens.RefreshToken)
		require.ErrorIs(t, err, ErrUnauthorized)
	})
}

func TestAuthenticate(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	f.register(t, "a@x.com", "p1-secret")
	res, err := f.auth.Login(ctx, "a@x.com", "p1-secret", "")
	require.NoError(t, err)

	p, err := f.auth.Authenticate(ctx, res.Tokens.AccessToken)
	require.NoError(t, err)
	require.Equal(t, res.Session.ID, p.SessionID)

	_, err = f.auth.Authenticate(ctx, res.Tokens.RefreshToken)
	require.ErrorIs(t, err, ErrUnauthorized)

	// Deleting the session revokes the still-unexpired access token.
	require.NoError(t, f.auth.Logout(ctx, res.Session.ID))
	_, err = f.auth.Authenticate(ctx, res.Tokens.AccessToken)
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestVerifyEmail(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	f.register(t, "a@x.com", "p1-secret")
	code := f.mailer.codeFrom(t)

	_, err := f.auth.VerifyEmail(ctx, "DEADBEEF")
	require.ErrorIs(t, err, ErrInvalidOrExpiredCode)

	u, err := f.auth.VerifyEmail(ctx, strings.ToLower(code))
	require.NoError(t, err)
	require.True(t, u.EmailVerified)

	// Codes are single use.
	_, err = f.auth.VerifyEmail(ctx, code)
	require.ErrorIs(t, err, ErrInvalidOrExpiredCode)
}

func TestVerifyEmailExpired(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.register(t, "a@x.com", "p1-secret")
	code := f.mailer.codeFrom(t)

	f.clock.Advance(46 * time.Minute)
	_, err := f.auth.VerifyEmail(context.Background(), code)
	require.ErrorIs(t, err, ErrInvalidOrExpiredCode)
}

func TestForgotPassword(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	f.register(t, "a@x.com", "p1-secret")

	require.ErrorIs(t, f.auth.ForgotPassword(ctx, "ghost@x.com"), ErrUserNotFound)

	require.NoError(t, f.auth.ForgotPassword(ctx, "a@x.com"))
	msg := f.mailer.last(t)
	require.Contains(t, msg.Text, "https://app.test/reset-password?code=")
	require.Contains(t, msg.Text, "&exp=")

	f.clock.Advance(time.Minute)
	require.NoError(t, f.auth.ForgotPassword(ctx, "a@x.com"))

	f.clock.Advance(time.Minute)
	require.ErrorIs(t, f.auth.ForgotPassword(ctx, "a@x.com"), ErrTooManyRequests)

	// The window is three minutes from the first request.
	f.clock.Advance(2 * time.Minute)
	require.NoError(t, f.auth.ForgotPassword(ctx, "a@x.com"))
}

func TestForgotPasswordMailFailure(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	f := newFixture(t)
	f.register(t, "a@x.com", "p1-secret")
	f.mailer.err = errors.New("provider down")
	err := f.auth.ForgotPassword(ctx, "a@x.com")
	require.ErrorIs(t, err, ErrMailDelivery)
	require.Equal(t, KindInternal, KindOf(err))

	g := newFixture(t)
	g.register(t, "b@x.com", "p1-secret")
	g.mailer.emptyID = true
	require.ErrorIs(t, g.auth.ForgotPassword(ctx, "b@x.com"), ErrMailDelivery)
}

func TestResetPassword(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	f.register(t, "a@x.com", "old-password")

	first, err := f.auth.Login(ctx, "a@x.com", "old-password", "laptop")
	require.NoError(t, err)
	second, err := f.auth.Login(ctx, "a@x.com", "old-password", "phone")
	require.NoError(t, err)

	require.NoError(t, f.auth.ForgotPassword(ctx, "a@x.com"))
	code := f.mailer.codeFrom(t)

	_, err = f.auth.ResetPassword(ctx, "00000000", "new-password")
	require.ErrorIs(t, err, ErrInvalidOrExpiredCode)

	_, err = f.auth.ResetPassword(ctx, code, "new-password")
	require.NoError(t, err)

	// Every session is gone, so old refresh tokens stop working.
	_, err = f.auth.RefreshToken(ctx, first.Tokens.RefreshToken)
	require.ErrorIs(t, err, ErrUnauthorized)
	_, err = f.auth.RefreshToken(ctx, second.Tokens.RefreshToken)
	require.ErrorIs(t, err, ErrUnauthorized)

	_, err = f.auth.Login(ctx, "a@x.com", "old-password", "")
	require.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = f.auth.Login(ctx, "a@x.com", "new-password", "")
	require.NoError(t, err)

	_, err = f.auth.ResetPassword(ctx, code, "another-password")
	require.ErrorIs(t, err, ErrInvalidOrExpiredCode)
}
