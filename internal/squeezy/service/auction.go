package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/aussiebroadwan/squeezy/internal/squeezy/broadcast"
	"github.com/aussiebroadwan/squeezy/internal/squeezy/domain"
	"github.com/aussiebroadwan/squeezy/internal/squeezy/store"
	"github.com/aussiebroadwan/squeezy/pkg/idx"
	"github.com/aussiebroadwan/squeezy/pkg/slogx"
)

const maxTitleLength = 200

// AuctionService runs auctions: creation, bidding and the schedule driven
// status changes. Every accepted change is pushed to clients after it is
// stored.
type AuctionService struct {
	Store       store.Store
	Broadcaster broadcast.Broadcaster
	Now         func() time.Time
}

func (s *AuctionService) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now().UTC()
}

// CreateAuctionInput is what a seller submits.
type CreateAuctionInput struct {
	Title       string
	Description string
	ImageURL    string
	StartPrice  int64
	StartTime   time.Time
	EndTime     time.Time
	OwnerID     string
}

func (in CreateAuctionInput) validate(now time.Time) error {
	details := map[string]string{}

	title := strings.TrimSpace(in.Title)
	switch {
	case title == "":
		details["title"] = "is required"
	case utf8.RuneCountInString(title) > maxTitleLength:
		details["title"] = fmt.Sprintf("must be at most %d characters", maxTitleLength)
	}
	if in.StartPrice < 0 {
		details["startPrice"] = "must not be negative"
	}
	if in.StartTime.IsZero() {
		details["startTime"] = "is required"
	}
	switch {
	case in.EndTime.IsZero():
		details["endTime"] = "is required"
	case !in.EndTime.After(in.StartTime):
		details["endTime"] = "must be after startTime"
	case !in.EndTime.After(now):
		details["endTime"] = "must be in the future"
	}

	if len(details) > 0 {
		return &ValidationError{Message: "invalid auction", Details: details}
	}
	return nil
}

// CreateAuction stores a new auction. It opens immediately when its start
// time has already passed.
func (s *AuctionService) CreateAuction(ctx context.Context, in CreateAuctionInput) (domain.Auction, error) {
	now := s.now()
	if err := in.validate(now); err != nil {
		return domain.Auction{}, err
	}

	status := domain.AuctionPending
	if !in.StartTime.After(now) {
		status = domain.AuctionActive
	}

	a := domain.Auction{
		ID:           idx.NewAt(now).String(),
		Title:        strings.TrimSpace(in.Title),
		Description:  strings.TrimSpace(in.Description),
		ImageURL:     strings.TrimSpace(in.ImageURL),
		StartPrice:   in.StartPrice,
		CurrentPrice: in.StartPrice,
		Status:       status,
		StartTime:    in.StartTime.UTC(),
		EndTime:      in.EndTime.UTC(),
		OwnerID:      in.OwnerID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.Store.Auctions().CreateAuction(ctx, a); err != nil {
		return domain.Auction{}, fmt.Errorf("create auction: %w", err)
	}

	logger := slogx.FromContext(ctx)
	logger.Info("auction created", "auction_id", a.ID, "status", a.Status)

	if err := s.Broadcaster.Emit(ctx, broadcast.EventNewAuction, a); err != nil {
		logger.Error("failed to broadcast new auction", "auction_id", a.ID, "error", err)
	}
	return a, nil
}

// ListAuctions returns every auction, newest first.
func (s *AuctionService) ListAuctions(ctx context.Context) ([]domain.Auction, error) {
	auctions, err := s.Store.Auctions().ListAuctions(ctx)
	if err != nil {
		return nil, fmt.Errorf("list auctions: %w", err)
	}
	return auctions, nil
}

// GetAuction returns the auction with its bids, newest first.
func (s *AuctionService) GetAuction(ctx context.Context, id string) (domain.AuctionDetail, error) {
	if !idx.Valid(id) {
		return domain.AuctionDetail{}, ErrAuctionNotFound
	}

	a, err := s.Store.Auctions().GetAuctionByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return domain.AuctionDetail{}, ErrAuctionNotFound
	}
	if err != nil {
		return domain.AuctionDetail{}, fmt.Errorf("get auction: %w", err)
	}

	bids, err := s.Store.Bids().ListBidsByAuction(ctx, id)
	if err != nil {
		return domain.AuctionDetail{}, fmt.Errorf("list bids: %w", err)
	}
	if bids == nil {
		bids = []domain.Bid{}
	}
	return domain.AuctionDetail{Auction: a, Bids: bids}, nil
}

// BidResult is an accepted bid and the auction after it.
type BidResult struct {
	Bid     domain.Bid     `json:"bid"`
	Auction domain.Auction `json:"auction"`
}

// PlaceBid accepts a bid only while the auction is active and the amount
// beats the current price. The price update is a compare-and-swap, so of
// two concurrent bids at the same amount exactly one wins.
func (s *AuctionService) PlaceBid(ctx context.Context, auctionID, bidderID string, amount int64) (BidResult, error) {
	logger := slogx.FromContext(ctx)

	if amount <= 0 {
		return BidResult{}, &ValidationError{Message: "invalid bid", Details: map[string]string{"amount": "must be positive"}}
	}
	if !idx.Valid(auctionID) {
		return BidResult{}, ErrAuctionNotFound
	}

	now := s.now()
	var res BidResult
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		a, err := tx.Auctions().GetAuctionByID(ctx, auctionID)
		if errors.Is(err, store.ErrNotFound) {
			return ErrAuctionNotFound
		}
		if err != nil {
			return fmt.Errorf("get auction: %w", err)
		}
		if err := checkBid(a, amount); err != nil {
			return err
		}

		raised, err := tx.Auctions().RaiseCurrentPrice(ctx, a.ID, amount, now)
		if err != nil {
			return fmt.Errorf("raise price: %w", err)
		}
		if !raised {
			// Lost a race: find out what changed underneath us.
			fresh, err := tx.Auctions().GetAuctionByID(ctx, a.ID)
			if err != nil {
				return fmt.Errorf("reload auction: %w", err)
			}
			if err := checkBid(fresh, amount); err != nil {
				return err
			}
			return ErrBidTooLow
		}

		bid := domain.Bid{
			ID:        idx.NewAt(now).String(),
			AuctionID: a.ID,
			BidderID:  bidderID,
			Amount:    amount,
			CreatedAt: now,
		}
		if err := tx.Bids().CreateBid(ctx, bid); err != nil {
			return fmt.Errorf("create bid: %w", err)
		}

		a.CurrentPrice = amount
		a.UpdatedAt = now
		res = BidResult{Bid: bid, Auction: a}
		return nil
	})
	if err != nil {
		if KindOf(err) != KindInternal {
			logger.Info("bid rejected", "auction_id", auctionID, "bidder_id", bidderID, "amount", amount, "reason", err)
		}
		return BidResult{}, err
	}

	logger.Info("bid accepted", "auction_id", auctionID, "bid_id", res.Bid.ID, "amount", amount)

	room := broadcast.AuctionRoom(auctionID)
	if err := s.Broadcaster.EmitToRoom(ctx, room, broadcast.EventNewBid, res.Bid); err != nil {
		logger.Error("failed to broadcast bid", "auction_id", auctionID, "error", err)
	}
	if err := s.Broadcaster.EmitToRoom(ctx, room, broadcast.EventAuctionUpdated, res.Auction); err != nil {
		logger.Error("failed to broadcast auction update", "auction_id", auctionID, "error", err)
	}
	return res, nil
}

func checkBid(a domain.Auction, amount int64) error {
	if a.Status != domain.AuctionActive {
		return ErrAuctionNotActive
	}
	if amount <= a.CurrentPrice {
		return ErrBidTooLow
	}
	return nil
}

// SweepResult counts the transitions one sweep applied.
type SweepResult struct {
	Activated int
	Ended     int
	Failed    int
}

// SweepStatusTransitions moves auctions along their schedule. Each auction
// is a separate compare-and-swap on its previous status, so a failure or a
// concurrent change only skips that auction.
func (s *AuctionService) SweepStatusTransitions(ctx context.Context, now time.Time) (SweepResult, error) {
	logger := slogx.FromContext(ctx)
	now = now.UTC()

	due, err := s.Store.Auctions().ListDueTransitions(ctx, now)
	if err != nil {
		return SweepResult{}, fmt.Errorf("list due auctions: %w", err)
	}

	var res SweepResult
	for _, a := range due {
		target := a.StatusAt(now)
		if target == a.Status {
			continue
		}

		ok, err := s.Store.Auctions().TransitionStatus(ctx, a.ID, a.Status, target, now)
		if err != nil {
			res.Failed++
			logger.Error("auction transition failed", "auction_id", a.ID, "from", a.Status, "to", target, "error", err)
			continue
		}
		if !ok {
			logger.Debug("auction changed during sweep, skipping", "auction_id", a.ID)
			continue
		}

		from := a.Status
		a.Status = target
		a.UpdatedAt = now
		switch target {
		case domain.AuctionActive:
			res.Activated++
		case domain.AuctionEnded:
			res.Ended++
		}
		logger.Info("auction status changed", "auction_id", a.ID, "from", from, "to", target)

		if err := s.Broadcaster.Emit(ctx, broadcast.EventAuctionUpdated, a); err != nil {
			logger.Error("failed to broadcast auction update", "auction_id", a.ID, "error", err)
		}
		if err := s.Broadcaster.EmitToRoom(ctx, broadcast.AuctionRoom(a.ID), broadcast.EventAuctionUpdated, a); err != nil {
			logger.Error("failed to broadcast auction update", "auction_id", a.ID, "error", err)
		}
	}

	return res, nil
}
