package store

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/squeezy/internal/squeezy/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
	ErrNestedTx      = errors.New("store: nested transactions are not supported")
)

// Store is the root data access interface. Drivers implement it and expose
// sub-repositories so a transaction can only be opened from the root, never
// nested inside another one.
type Store interface {
	Users() Users
	Sessions() Sessions
	VerificationCodes() VerificationCodes
	Auctions() Auctions
	Bids() Bids

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx runs fn inside a transaction. It commits when fn returns nil
	// and rolls back otherwise.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	Close() error
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Users interface {
	GetUserByID(ctx context.Context, id string) (domain.User, error)

	// GetUserByEmail matches case-insensitively.
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)

	// CreateUser inserts a new user. Returns ErrAlreadyExists on a duplicate email.
	CreateUser(ctx context.Context, u domain.User) error

	MarkEmailVerified(ctx context.Context, userID string, at time.Time) error
	UpdatePasswordHash(ctx context.Context, userID, newHash string, at time.Time) error

	// UpdateMFASecret stores a pending (unconfirmed) secret.
	UpdateMFASecret(ctx context.Context, userID, secret string, at time.Time) error

	EnableMFA(ctx context.Context, userID string, at time.Time) error

	// DisableMFA clears the secret and the enabled flag.
	DisableMFA(ctx context.Context, userID string, at time.Time) error
}

type Sessions interface {
	CreateSession(ctx context.Context, s domain.Session) error
	GetSessionByID(ctx context.Context, id string) (domain.Session, error)

	// ListActiveSessions returns the user's unexpired sessions, newest first.
	ListActiveSessions(ctx context.Context, userID string, now time.Time) ([]domain.Session, error)

	// ExtendSession moves expires_at to newExpiry only if that is later than
	// the stored value. It reports whether the row changed.
	ExtendSession(ctx context.Context, id string, newExpiry time.Time) (bool, error)

	DeleteSession(ctx context.Context, id string) error

	// DeleteUserSession deletes a session only if it belongs to userID.
	// Returns ErrNotFound otherwise.
	DeleteUserSession(ctx context.Context, id, userID string) error

	DeleteAllUserSessions(ctx context.Context, userID string) (int64, error)
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error)
}

type VerificationCodes interface {
	// CreateVerificationCode returns ErrAlreadyExists if the code hash collides.
	CreateVerificationCode(ctx context.Context, c domain.VerificationCode) error

	// GetValidVerificationCode returns an unexpired code with the given hash
	// and purpose.
	GetValidVerificationCode(ctx context.Context, codeHash string, purpose domain.VerificationPurpose, now time.Time) (domain.VerificationCode, error)

	// CountVerificationCodesSince counts codes of purpose created for the user
	// at or after since.
	CountVerificationCodesSince(ctx context.Context, userID string, purpose domain.VerificationPurpose, since time.Time) (int, error)

	DeleteVerificationCode(ctx context.Context, id string) error
	DeleteExpiredVerificationCodes(ctx context.Context, now time.Time) (int64, error)
}

type Auctions interface {
	CreateAuction(ctx context.Context, a domain.Auction) error
	GetAuctionByID(ctx context.Context, id string) (domain.Auction, error)

	// ListAuctions returns every auction, newest first.
	ListAuctions(ctx context.Context) ([]domain.Auction, error)

	// RaiseCurrentPrice sets current_price = amount only while the auction is
	// ACTIVE and its price is below amount. It reports whether the row changed.
	RaiseCurrentPrice(ctx context.Context, id string, amount int64, at time.Time) (bool, error)

	// TransitionStatus moves an auction from one status to another. It reports
	// false when the stored status was no longer from.
	TransitionStatus(ctx context.Context, id string, from, to domain.AuctionStatus, at time.Time) (bool, error)

	// ListDueTransitions returns auctions whose schedule says their status
	// should change at now: PENDING past start, or not ENDED past end.
	ListDueTransitions(ctx context.Context, now time.Time) ([]domain.Auction, error)
}

type Bids interface {
	CreateBid(ctx context.Context, b domain.Bid) error

	// ListBidsByAuction returns bids newest first.
	ListBidsByAuction(ctx context.Context, auctionID string) ([]domain.Bid, error)
}
