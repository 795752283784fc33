package sqlite

import (
	"context"
	"time"

	"github.com/aussiebroadwan/squeezy/internal/squeezy/domain"
)

type sessionsRepo struct {
	db dbtx
}

const sessionColumns = `id, user_id, user_agent, created_at, expires_at`

func scanSession(row interface{ Scan(...any) error }) (domain.Session, error) {
	var (
		s                    domain.Session
		createdAt, expiresAt int64
	)
	if err := row.Scan(&s.ID, &s.UserID, &s.UserAgent, &createdAt, &expiresAt); err != nil {
		return domain.Session{}, mapNotFound(err)
	}
	s.CreatedAt = fromMillis(createdAt)
	s.ExpiresAt = fromMillis(expiresAt)
	return s, nil
}

func (r *sessionsRepo) CreateSession(ctx context.Context, s domain.Session) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sessions (`+sessionColumns+`) VALUES (?, ?, ?, ?, ?)`,
		s.ID, s.UserID, s.UserAgent, toMillis(s.CreatedAt), toMillis(s.ExpiresAt))
	return mapConstraint(err)
}

func (r *sessionsRepo) GetSessionByID(ctx context.Context, id string) (domain.Session, error) {
	return scanSession(r.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id))
}

func (r *sessionsRepo) ListActiveSessions(ctx context.Context, userID string, now time.Time) ([]domain.Session, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions
		 WHERE user_id = ? AND expires_at > ?
		 ORDER BY created_at DESC, id DESC`,
		userID, toMillis(now))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Session, 0)
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *sessionsRepo) ExtendSession(ctx context.Context, id string, newExpiry time.Time) (bool, error) {
	// Only ever move expiry forward; a slower concurrent renewal cannot
	// shorten a session another request already extended.
	return changed(r.db.ExecContext(ctx,
		`UPDATE sessions SET expires_at = ? WHERE id = ? AND expires_at < ?`,
		toMillis(newExpiry), id, toMillis(newExpiry)))
}

func (r *sessionsRepo) DeleteSession(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	return err
}

func (r *sessionsRepo) DeleteUserSession(ctx context.Context, id, userID string) error {
	return expectOne(r.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE id = ? AND user_id = ?`, id, userID))
}

func (r *sessionsRepo) DeleteAllUserSessions(ctx context.Context, userID string) (int64, error) {
	return affected(r.db.ExecContext(ctx, `DELETE FROM sessions WHERE user_id = ?`, userID))
}

func (r *sessionsRepo) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	return affected(r.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= ?`, toMillis(now)))
}
