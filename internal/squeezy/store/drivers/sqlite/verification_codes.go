package sqlite

import (
	"context"
	"time"

	"github.com/aussiebroadwan/squeezy/internal/squeezy/domain"
)

type verificationCodesRepo struct {
	db dbtx
}

const verificationCodeColumns = `id, user_id, purpose, code_hash, expires_at, created_at`

func scanVerificationCode(row interface{ Scan(...any) error }) (domain.VerificationCode, error) {
	var (
		c                    domain.VerificationCode
		purpose              string
		expiresAt, createdAt int64
	)
	if err := row.Scan(&c.ID, &c.UserID, &purpose, &c.CodeHash, &expiresAt, &createdAt); err != nil {
		return domain.VerificationCode{}, mapNotFound(err)
	}
	c.Purpose = domain.VerificationPurpose(purpose)
	c.ExpiresAt = fromMillis(expiresAt)
	c.CreatedAt = fromMillis(createdAt)
	return c, nil
}

func (r *verificationCodesRepo) CreateVerificationCode(ctx context.Context, c domain.VerificationCode) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO verification_codes (`+verificationCodeColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		c.ID, c.UserID, string(c.Purpose), c.CodeHash, toMillis(c.ExpiresAt), toMillis(c.CreatedAt))
	return mapConstraint(err)
}

func (r *verificationCodesRepo) GetValidVerificationCode(
	ctx context.Context,
	codeHash string,
	purpose domain.VerificationPurpose,
	now time.Time,
) (domain.VerificationCode, error) {
	return scanVerificationCode(r.db.QueryRowContext(ctx,
		`SELECT `+verificationCodeColumns+` FROM verification_codes
		 WHERE code_hash = ? AND purpose = ? AND expires_at > ?`,
		codeHash, string(purpose), toMillis(now)))
}

func (r *verificationCodesRepo) CountVerificationCodesSince(
	ctx context.Context,
	userID string,
	purpose domain.VerificationPurpose,
	since time.Time,
) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM verification_codes
		 WHERE user_id = ? AND purpose = ? AND created_at >= ?`,
		userID, string(purpose), toMillis(since)).Scan(&n)
	return n, err
}

func (r *verificationCodesRepo) DeleteVerificationCode(ctx context.Context, id string) error {
	return expectOne(r.db.ExecContext(ctx, `DELETE FROM verification_codes WHERE id = ?`, id))
}

func (r *verificationCodesRepo) DeleteExpiredVerificationCodes(ctx context.Context, now time.Time) (int64, error) {
	return affected(r.db.ExecContext(ctx,
		`DELETE FROM verification_codes WHERE expires_at <= ?`, toMillis(now)))
}
