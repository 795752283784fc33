package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/aussiebroadwan/squeezy/internal/squeezy/domain"
)

type usersRepo struct {
	db dbtx
}

const userColumns = `id, name, email, password_hash, email_verified, mfa_enabled, mfa_secret, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (domain.User, error) {
	var (
		u                   domain.User
		verified, enabled   int
		secret              sql.NullString
		createdAt, updateAt int64
	)
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &verified, &enabled, &secret, &createdAt, &updateAt)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	u.EmailVerified = verified != 0
	u.MFAEnabled = enabled != 0
	u.MFASecret = mapNullStringPtr(secret)
	u.CreatedAt = fromMillis(createdAt)
	u.UpdatedAt = fromMillis(updateAt)
	return u, nil
}

func (r *usersRepo) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	return scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id))
}

func (r *usersRepo) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	return scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ?`, strings.ToLower(strings.TrimSpace(email))))
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID,
		u.Name,
		strings.ToLower(strings.TrimSpace(u.Email)),
		u.PasswordHash,
		boolToInt(u.EmailVerified),
		boolToInt(u.MFAEnabled),
		u.MFASecret,
		toMillis(u.CreatedAt),
		toMillis(u.UpdatedAt),
	)
	return mapConstraint(err)
}

func (r *usersRepo) MarkEmailVerified(ctx context.Context, userID string, at time.Time) error {
	return expectOne(r.db.ExecContext(ctx,
		`UPDATE users SET email_verified = 1, updated_at = ? WHERE id = ?`,
		toMillis(at), userID))
}

func (r *usersRepo) UpdatePasswordHash(ctx context.Context, userID, newHash string, at time.Time) error {
	return expectOne(r.db.ExecContext(ctx,
		`UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`,
		newHash, toMillis(at), userID))
}

func (r *usersRepo) UpdateMFASecret(ctx context.Context, userID, secret string, at time.Time) error {
	return expectOne(r.db.ExecContext(ctx,
		`UPDATE users SET mfa_secret = ?, updated_at = ? WHERE id = ?`,
		secret, toMillis(at), userID))
}

func (r *usersRepo) EnableMFA(ctx context.Context, userID string, at time.Time) error {
	return expectOne(r.db.ExecContext(ctx,
		`UPDATE users SET mfa_enabled = 1, updated_at = ? WHERE id = ? AND mfa_secret IS NOT NULL`,
		toMillis(at), userID))
}

func (r *usersRepo) DisableMFA(ctx context.Context, userID string, at time.Time) error {
	return expectOne(r.db.ExecContext(ctx,
		`UPDATE users SET mfa_enabled = 0, mfa_secret = NULL, updated_at = ? WHERE id = ?`,
		toMillis(at), userID))
}
