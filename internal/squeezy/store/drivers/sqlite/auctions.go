package sqlite

import (
	"context"
	"time"

	"github.com/aussiebroadwan/squeezy/internal/squeezy/domain"
)

type auctionsRepo struct {
	db dbtx
}

const auctionColumns = `id, title, description, image_url, start_price, current_price, status,
	start_time, end_time, owner_id, created_at, updated_at`

func scanAuction(row interface{ Scan(...any) error }) (domain.Auction, error) {
	var (
		a                                        domain.Auction
		status                                   string
		startTime, endTime, createdAt, updatedAt int64
	)
	err := row.Scan(
		&a.ID, &a.Title, &a.Description, &a.ImageURL, &a.StartPrice, &a.CurrentPrice, &status,
		&startTime, &endTime, &a.OwnerID, &createdAt, &updatedAt,
	)
	if err != nil {
		return domain.Auction{}, mapNotFound(err)
	}
	a.Status = domain.AuctionStatus(status)
	a.StartTime = fromMillis(startTime)
	a.EndTime = fromMillis(endTime)
	a.CreatedAt = fromMillis(createdAt)
	a.UpdatedAt = fromMillis(updatedAt)
	return a, nil
}

func (r *auctionsRepo) CreateAuction(ctx context.Context, a domain.Auction) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO auctions (`+auctionColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.Title, a.Description, a.ImageURL, a.StartPrice, a.CurrentPrice, string(a.Status),
		toMillis(a.StartTime), toMillis(a.EndTime), a.OwnerID, toMillis(a.CreatedAt), toMillis(a.UpdatedAt),
	)
	return mapConstraint(err)
}

func (r *auctionsRepo) GetAuctionByID(ctx context.Context, id string) (domain.Auction, error) {
	return scanAuction(r.db.QueryRowContext(ctx,
		`SELECT `+auctionColumns+` FROM auctions WHERE id = ?`, id))
}

func (r *auctionsRepo) ListAuctions(ctx context.Context) ([]domain.Auction, error) {
	return r.list(ctx, `SELECT `+auctionColumns+` FROM auctions ORDER BY created_at DESC, id DESC`)
}

func (r *auctionsRepo) RaiseCurrentPrice(ctx context.Context, id string, amount int64, at time.Time) (bool, error) {
	return changed(r.db.ExecContext(ctx,
		`UPDATE auctions SET current_price = ?, updated_at = ?
		 WHERE id = ? AND status = 'ACTIVE' AND current_price < ?`,
		amount, toMillis(at), id, amount))
}

func (r *auctionsRepo) TransitionStatus(
	ctx context.Context,
	id string,
	from, to domain.AuctionStatus,
	at time.Time,
) (bool, error) {
	return changed(r.db.ExecContext(ctx,
		`UPDATE auctions SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		string(to), toMillis(at), id, string(from)))
}

func (r *auctionsRepo) ListDueTransitions(ctx context.Context, now time.Time) ([]domain.Auction, error) {
	ms := toMillis(now)
	return r.list(ctx,
		`SELECT `+auctionColumns+` FROM auctions
		 WHERE (status = 'PENDING' AND start_time <= ?)
		    OR (status != 'ENDED' AND end_time <= ?)
		 ORDER BY end_time, id`,
		ms, ms)
}

func (r *auctionsRepo) list(ctx context.Context, query string, args ...any) ([]domain.Auction, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Auction, 0)
	for rows.Next() {
		a, err := scanAuction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
