package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/squeezy/pkg/slogx"
)

// AuctionSweeper applies schedule driven status changes on a ticker.
type AuctionSweeper struct {
	Auctions *AuctionService
	Interval time.Duration

	loop *ticker
}

// NewAuctionSweeper creates a sweeper. A non-positive interval means one
// minute.
func NewAuctionSweeper(auctions *AuctionService, logger *slog.Logger, interval time.Duration) *AuctionSweeper {
	if interval <= 0 {
		interval = time.Minute
	}

	s := &AuctionSweeper{Auctions: auctions, Interval: interval}
	s.loop = newTicker("auction sweeper", interval, logger, s.sweep)
	return s
}

func (s *AuctionSweeper) Start() { s.loop.start() }
func (s *AuctionSweeper) Stop()  { s.loop.stop() }

func (s *AuctionSweeper) sweep(ctx context.Context) {
	log := slogx.FromContext(ctx)

	res, err := s.Auctions.SweepStatusTransitions(ctx, s.Auctions.now())
	if err != nil {
		log.Error("auction sweep failed", "error", err)
		return
	}
	if res.Activated+res.Ended+res.Failed > 0 {
		log.Info("auction sweep completed", "activated", res.Activated, "ended", res.Ended, "failed", res.Failed)
	}
}
