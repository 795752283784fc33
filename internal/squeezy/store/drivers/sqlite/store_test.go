package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/aussiebroadwan/squeezy/internal/squeezy/domain"
	"github.com/aussiebroadwan/squeezy/internal/squeezy/store"
	"github.com/aussiebroadwan/squeezy/internal/squeezy/store/drivers/sqlite"
	"github.com/aussiebroadwan/squeezy/pkg/idx"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	s, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	require.NoError(t, s.ApplyMigrations())
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func seedUser(t *testing.T, s store.Store, email string) domain.User {
	t.Helper()
	now := time.Now().UTC()
	u := domain.User{
		ID:           idx.New().String(),
		Name:         "Test",
		Email:        email,
		PasswordHash: "hash",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, s.Users().CreateUser(context.Background(), u))
	return u
}

func TestUsers_EmailUniqueCaseInsensitive(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	u := seedUser(t, s, "Alice@Example.com")

	got, err := s.Users().GetUserByEmail(ctx, "ALICE@example.COM")
	require.NoError(t, err)
	require.Equal(t, u.ID, got.ID)
	require.Equal(t, "alice@example.com", got.Email)

	dup := u
	dup.ID = idx.New().String()
	dup.Email = "alice@EXAMPLE.com"
	require.ErrorIs(t, s.Users().CreateUser(ctx, dup), store.ErrAlreadyExists)

	_, err = s.Users().GetUserByEmail(ctx, "nobody@example.com")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestUsers_MFALifecycle(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	u := seedUser(t, s, "mfa@example.com")
	now := time.Now()

	// Enabling without a secret is refused.
	require.ErrorIs(t, s.Users().EnableMFA(ctx, u.ID, now), store.ErrNotFound)

	require.NoError(t, s.Users().UpdateMFASecret(ctx, u.ID, "JBSWY3DPEHPK3PXP", now))
	require.NoError(t, s.Users().EnableMFA(ctx, u.ID, now))

	got, err := s.Users().GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	require.True(t, got.MFAEnabled)
	require.NotNil(t, got.MFASecret)
	require.Equal(t, "JBSWY3DPEHPK3PXP", *got.MFASecret)

	require.NoError(t, s.Users().DisableMFA(ctx, u.ID, now))
	got, err = s.Users().GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	require.False(t, got.MFAEnabled)
	require.Nil(t, got.MFASecret)
}

func TestSessions_ExtendIsMonotonic(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	u := seedUser(t, s, "s@example.com")
	now := time.Now().UTC()

	sess := domain.Session{
		ID:        idx.New().String(),
		UserID:    u.ID,
		UserAgent: "test",
		CreatedAt: now,
		ExpiresAt: now.Add(12 * time.Hour),
	}
	require.NoError(t, s.Sessions().CreateSession(ctx, sess))

	later := now.Add(30 * 24 * time.Hour)
	ok, err := s.Sessions().ExtendSession(ctx, sess.ID, later)
	require.NoError(t, err)
	require.True(t, ok)

	// An older computed expiry must not shorten it.
	ok, err = s.Sessions().ExtendSession(ctx, sess.ID, now.Add(24*time.Hour))
	require.NoError(t, err)
	require.False(t, ok)

	got, err := s.Sessions().GetSessionByID(ctx, sess.ID)
	require.NoError(t, err)
	require.Equal(t, later.UnixMilli(), got.ExpiresAt.UnixMilli())
}

func TestSessions_ListDeleteAndExpire(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	alice := seedUser(t, s, "a@example.com")
	bob := seedUser(t, s, "b@example.com")
	now := time.Now().UTC()

	mk := func(userID string, created time.Time, expires time.Time) domain.Session {
		sess := domain.Session{ID: idx.NewAt(created).String(), UserID: userID, CreatedAt: created, ExpiresAt: expires}
		require.NoError(t, s.Sessions().CreateSession(ctx, sess))
		return sess
	}

	old := mk(alice.ID, now.Add(-2*time.Hour), now.Add(time.Hour))
	newer := mk(alice.ID, now.Add(-time.Hour), now.Add(time.Hour))
	expired := mk(alice.ID, now.Add(-3*time.Hour), now.Add(-time.Minute))
	bobs := mk(bob.ID, now, now.Add(time.Hour))

	list, err := s.Sessions().ListActiveSessions(ctx, alice.ID, now)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, newer.ID, list[0].ID)
	require.Equal(t, old.ID, list[1].ID)

	// Bob cannot delete Alice's session.
	require.ErrorIs(t, s.Sessions().DeleteUserSession(ctx, old.ID, bob.ID), store.ErrNotFound)
	require.NoError(t, s.Sessions().DeleteUserSession(ctx, old.ID, alice.ID))

	n, err := s.Sessions().DeleteExpiredSessions(ctx, now)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)
	_, err = s.Sessions().GetSessionByID(ctx, expired.ID)
	require.ErrorIs(t, err, store.ErrNotFound)

	n, err = s.Sessions().DeleteAllUserSessions(ctx, alice.ID)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	_, err = s.Sessions().GetSessionByID(ctx, bobs.ID)
	require.NoError(t, err)
}

func TestVerificationCodes(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	u := seedUser(t, s, "v@example.com")
	now := time.Now().UTC()

	c := domain.VerificationCode{
		ID:        idx.New().String(),
		UserID:    u.ID,
		Purpose:   domain.PurposePasswordReset,
		CodeHash:  "hash-1",
		ExpiresAt: now.Add(time.Hour),
		CreatedAt: now,
	}
	require.NoError(t, s.VerificationCodes().CreateVerificationCode(ctx, c))

	dup := c
	dup.ID = idx.New().String()
	require.ErrorIs(t, s.VerificationCodes().CreateVerificationCode(ctx, dup), store.ErrAlreadyExists)

	got, err := s.VerificationCodes().GetValidVerificationCode(ctx, "hash-1", domain.PurposePasswordReset, now)
	require.NoError(t, err)
	require.Equal(t, c.ID, got.ID)

	// Wrong purpose or past expiry is not valid.
	_, err = s.VerificationCodes().GetValidVerificationCode(ctx, "hash-1", domain.PurposeEmailVerification, now)
	require.ErrorIs(t, err, store.ErrNotFound)
	_, err = s.VerificationCodes().GetValidVerificationCode(ctx, "hash-1", domain.PurposePasswordReset, now.Add(2*time.Hour))
	require.ErrorIs(t, err, store.ErrNotFound)

	count, err := s.VerificationCodes().CountVerificationCodesSince(ctx, u.ID, domain.PurposePasswordReset, now.Add(-3*time.Minute))
	require.NoError(t, err)
	require.Equal(t, 1, count)
	count, err = s.VerificationCodes().CountVerificationCodesSince(ctx, u.ID, domain.PurposePasswordReset, now.Add(time.Minute))
	require.NoError(t, err)
	require.Zero(t, count)

	n, err := s.VerificationCodes().DeleteExpiredVerificationCodes(ctx, now.Add(2*time.Hour))
	require.NoError(t, err)
	require.EqualValues(t, 1, n)
}

func seedAuction(t *testing.T, s store.Store, owner string, status domain.AuctionStatus, price int64, start, end time.Time) domain.Auction {
	t.Helper()
	now := time.Now().UTC()
	a := domain.Auction{
		ID:           idx.New().String(),
		Title:        "Lamp",
		StartPrice:   price,
		CurrentPrice: price,
		Status:       status,
		StartTime:    start,
		EndTime:      end,
		OwnerID:      owner,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, s.Auctions().CreateAuction(context.Background(), a))
	return a
}

func TestAuctions_RaiseCurrentPriceCAS(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	u := seedUser(t, s, "o@example.com")
	now := time.Now().UTC()
	a := seedAuction(t, s, u.ID, domain.AuctionActive, 90, now.Add(-time.Hour), now.Add(time.Hour))

	ok, err := s.Auctions().RaiseCurrentPrice(ctx, a.ID, 100, now)
	require.NoError(t, err)
	require.True(t, ok)

	// Equal amount no longer beats the price.
	ok, err = s.Auctions().RaiseCurrentPrice(ctx, a.ID, 100, now)
	require.NoError(t, err)
	require.False(t, ok)

	// Lower amount never moves it backward.
	ok, err = s.Auctions().RaiseCurrentPrice(ctx, a.ID, 95, now)
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = s.Auctions().TransitionStatus(ctx, a.ID, domain.AuctionActive, domain.AuctionEnded, now)
	require.NoError(t, err)
	require.True(t, ok)

	// Ended auctions reject any raise.
	ok, err = s.Auctions().RaiseCurrentPrice(ctx, a.ID, 1000, now)
	require.NoError(t, err)
	require.False(t, ok)

	got, err := s.Auctions().GetAuctionByID(ctx, a.ID)
	require.NoError(t, err)
	require.EqualValues(t, 100, got.CurrentPrice)
	require.Equal(t, domain.AuctionEnded, got.Status)
}

func TestAuctions_TransitionStatusIsCAS(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	u := seedUser(t, s, "o@example.com")
	now := time.Now().UTC()
	a := seedAuction(t, s, u.ID, domain.AuctionPending, 0, now.Add(time.Hour), now.Add(2*time.Hour))

	ok, err := s.Auctions().TransitionStatus(ctx, a.ID, domain.AuctionActive, domain.AuctionEnded, now)
	require.NoError(t, err)
	require.False(t, ok, "stale from-status must not match")

	ok, err = s.Auctions().TransitionStatus(ctx, a.ID, domain.AuctionPending, domain.AuctionActive, now)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestAuctions_ListDueTransitions(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	u := seedUser(t, s, "o@example.com")
	now := time.Now().UTC()

	due := seedAuction(t, s, u.ID, domain.AuctionPending, 0, now.Add(-time.Minute), now.Add(time.Hour))
	over := seedAuction(t, s, u.ID, domain.AuctionActive, 0, now.Add(-2*time.Hour), now.Add(-time.Minute))
	_ = seedAuction(t, s, u.ID, domain.AuctionPending, 0, now.Add(time.Hour), now.Add(2*time.Hour))
	_ = seedAuction(t, s, u.ID, domain.AuctionActive, 0, now.Add(-time.Hour), now.Add(time.Hour))
	_ = seedAuction(t, s, u.ID, domain.AuctionEnded, 0, now.Add(-2*time.Hour), now.Add(-time.Hour))

	list, err := s.Auctions().ListDueTransitions(ctx, now)
	require.NoError(t, err)

	ids := make([]string, 0, len(list))
	for _, a := range list {
		ids = append(ids, a.ID)
	}
	require.ElementsMatch(t, []string{due.ID, over.ID}, ids)
}

func TestBids_NewestFirst(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	u := seedUser(t, s, "o@example.com")
	now := time.Now().UTC()
	a := seedAuction(t, s, u.ID, domain.AuctionActive, 0, now.Add(-time.Hour), now.Add(time.Hour))

	for i, amount := range []int64{10, 20, 30} {
		at := now.Add(time.Duration(i) * time.Second)
		require.NoError(t, s.Bids().CreateBid(ctx, domain.Bid{
			ID: idx.NewAt(at).String(), AuctionID: a.ID, BidderID: u.ID, Amount: amount, CreatedAt: at,
		}))
	}

	bids, err := s.Bids().ListBidsByAuction(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, bids, 3)
	require.EqualValues(t, 30, bids[0].Amount)
	require.EqualValues(t, 10, bids[2].Amount)
}

func TestWithTx_RollsBackOnError(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	u := seedUser(t, s, "tx@example.com")

	err := s.WithTx(ctx, func(tx store.Tx) error {
		require.NoError(t, tx.Users().MarkEmailVerified(ctx, u.ID, time.Now()))
		return store.ErrNotFound
	})
	require.ErrorIs(t, err, store.ErrNotFound)

	got, err := s.Users().GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	require.False(t, got.EmailVerified)
}

func TestApplyMigrations_Idempotent(t *testing.T) {
	s := newTestStore(t)

	version, dirty, err := s.SchemaVersion()
	require.NoError(t, err)
	require.False(t, dirty)
	require.EqualValues(t, 1, version)

	require.NoError(t, s.ApplyMigrations())
	again, _, err := s.SchemaVersion()
	require.NoError(t, err)
	require.Equal(t, version, again)
}

func TestWithTx_NoNesting(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	err := s.WithTx(ctx, func(tx store.Tx) error {
		_, err := tx.Tx(ctx)
		require.ErrorIs(t, err, store.ErrNestedTx)
		return tx.WithTx(ctx, func(store.Tx) error { return nil })
	})
	require.ErrorIs(t, err, store.ErrNestedTx)
}
