package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/squeezy/internal/squeezy/store"
	"github.com/aussiebroadwan/squeezy/pkg/slogx"
)

// HousekeepingService periodically deletes expired sessions and
// verification codes.
type HousekeepingService struct {
	Store    store.Store
	Interval time.Duration
	Now      func() time.Time

	loop *ticker
}

// NewHousekeepingService creates a housekeeping service. A non-positive
// interval means one hour.
func NewHousekeepingService(st store.Store, logger *slog.Logger, interval time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = time.Hour
	}

	s := &HousekeepingService{Store: st, Interval: interval, Now: time.Now}
	s.loop = newTicker("housekeeping", interval, logger, s.Cleanup)
	return s
}

func (s *HousekeepingService) Start() { s.loop.start() }
func (s *HousekeepingService) Stop()  { s.loop.stop() }

// Cleanup deletes expired rows. A failure on one table does not stop the other.
func (s *HousekeepingService) Cleanup(ctx context.Context) {
	log := slogx.FromContext(ctx)
	now := s.Now().UTC()

	sessions, err := s.Store.Sessions().DeleteExpiredSessions(ctx, now)
	if err != nil {
		log.Error("failed to delete expired sessions", "error", err)
	}

	codes, err := s.Store.VerificationCodes().DeleteExpiredVerificationCodes(ctx, now)
	if err != nil {
		log.Error("failed to delete expired verification codes", "error", err)
	}

	log.Info("housekeeping cleanup completed", "sessions", sessions, "verification_codes", codes)
}
