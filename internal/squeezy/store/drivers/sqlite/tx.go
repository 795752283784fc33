package sqlite

import (
	"context"
	"database/sql"

	"github.com/aussiebroadwan/squeezy/internal/squeezy/store"
)

// txStore serves the same repositories as Store, bound to one *sql.Tx.
type txStore struct {
	tx *sql.Tx
}

func (t *txStore) Users() store.Users       { return &usersRepo{db: t.tx} }
func (t *txStore) Sessions() store.Sessions { return &sessionsRepo{db: t.tx} }
func (t *txStore) VerificationCodes() store.VerificationCodes {
	return &verificationCodesRepo{db: t.tx}
}
func (t *txStore) Auctions() store.Auctions { return &auctionsRepo{db: t.tx} }
func (t *txStore) Bids() store.Bids         { return &bidsRepo{db: t.tx} }

func (t *txStore) Commit() error   { return t.tx.Commit() }
func (t *txStore) Rollback() error { return t.tx.Rollback() }

func (t *txStore) Tx(context.Context) (store.Tx, error) { return nil, store.ErrNestedTx }

func (t *txStore) WithTx(context.Context, func(store.Tx) error) error { return store.ErrNestedTx }

// The schema and connection belong to the parent Store.
func (t *txStore) ApplyMigrations() error     { return nil }
func (t *txStore) Close() error               { return nil }
func (t *txStore) Ping(context.Context) error { return nil }
