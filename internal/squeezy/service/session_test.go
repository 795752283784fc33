package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSessionLifecycle(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	alice := f.register(t, "alice@x.com", "p1")
	bob := f.register(t, "bob@x.com", "p1")

	s1, err := f.sessions.Create(ctx, alice, "laptop")
	require.NoError(t, err)
	require.Equal(t, f.clock.Now().Add(DefaultSessionTTL), s1.ExpiresAt)

	f.clock.Advance(time.Minute)
	s2, err := f.sessions.Create(ctx, alice, "phone")
	require.NoError(t, err)
	bobs, err := f.sessions.Create(ctx, bob, "tablet")
	require.NoError(t, err)

	list, err := f.sessions.ListActiveForUser(ctx, alice)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, s2.ID, list[0].ID)

	// Users can only delete their own sessions.
	require.ErrorIs(t, f.sessions.DeleteForUser(ctx, bobs.ID, alice), ErrSessionNotFound)
	require.NoError(t, f.sessions.DeleteForUser(ctx, s1.ID, alice))

	cur, err := f.sessions.GetWithUser(ctx, s2.ID)
	require.NoError(t, err)
	require.Equal(t, "alice@x.com", cur.User.Email)

	n, err := f.sessions.DeleteAllForUser(ctx, alice)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	_, err = f.sessions.Get(ctx, s2.ID)
	require.ErrorIs(t, err, ErrSessionNotFound)

	f.clock.Advance(DefaultSessionTTL)
	_, err = f.sessions.Active(ctx, bobs.ID)
	require.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSessionRenewNeverShortens(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	userID := f.register(t, "a@x.com", "p1")

	sess, err := f.sessions.Create(ctx, userID, "")
	require.NoError(t, err)

	f.clock.Advance(DefaultSessionTTL - time.Hour)
	renewed, ok, err := f.sessions.Renew(ctx, sess)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, f.clock.Now().Add(DefaultSessionTTL), renewed.ExpiresAt)

	// A stale copy with the old expiry does not pull the session back.
	f.clock.Advance(-time.Minute)
	again, ok, err := f.sessions.Renew(ctx, sess)
	require.NoError(t, err)
	require.False(t, ok)
	require.Equal(t, renewed.ExpiresAt, again.ExpiresAt)

	stored, err := f.sessions.Get(ctx, sess.ID)
	require.NoError(t, err)
	require.Equal(t, renewed.ExpiresAt, stored.ExpiresAt)
}

func TestHousekeepingCleanup(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	userID := f.register(t, "a@x.com", "p1")

	live, err := f.sessions.Create(ctx, userID, "")
	require.NoError(t, err)
	f.sessions.TTL = time.Minute
	dead, err := f.sessions.Create(ctx, userID, "")
	require.NoError(t, err)

	hk := NewHousekeepingService(f.store, discardLogger(), 0)
	require.Equal(t, time.Hour, hk.Interval)
	hk.Now = func() time.Time { return f.clock.Now().Add(time.Hour) }
	hk.Cleanup(ctx)

	_, err = f.sessions.Get(ctx, live.ID)
	require.NoError(t, err)
	_, err = f.sessions.Get(ctx, dead.ID)
	require.ErrorIs(t, err, ErrSessionNotFound)

	// The 45 minute email code from registration is gone too.
	code := f.mailer.codeFrom(t)
	_, err = f.auth.VerifyEmail(ctx, code)
	require.ErrorIs(t, err, ErrInvalidOrExpiredCode)
}

func TestHousekeepingStartStop(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	hk := NewHousekeepingService(f.store, discardLogger(), time.Hour)
	hk.Start()
	hk.Stop()
}
