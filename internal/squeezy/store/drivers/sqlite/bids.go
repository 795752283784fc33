package sqlite

import (
	"context"

	"github.com/aussiebroadwan/squeezy/internal/squeezy/domain"
)

type bidsRepo struct {
	db dbtx
}

func (r *bidsRepo) CreateBid(ctx context.Context, b domain.Bid) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO bids (id, auction_id, bidder_id, amount, created_at) VALUES (?, ?, ?, ?, ?)`,
		b.ID, b.AuctionID, b.BidderID, b.Amount, toMillis(b.CreatedAt))
	return mapConstraint(err)
}

func (r *bidsRepo) ListBidsByAuction(ctx context.Context, auctionID string) ([]domain.Bid, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, auction_id, bidder_id, amount, created_at FROM bids
		 WHERE auction_id = ?
		 ORDER BY created_at DESC, id DESC`,
		auctionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Bid, 0)
	for rows.Next() {
		var (
			b         domain.Bid
			createdAt int64
		)
		if err := rows.Scan(&b.ID, &b.AuctionID, &b.BidderID, &b.Amount, &createdAt); err != nil {
			return nil, err
		}
		b.CreatedAt = fromMillis(createdAt)
		out = append(out, b)
	}
	return out, rows.Err()
}
