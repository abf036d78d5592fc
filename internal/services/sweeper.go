package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"escrow-auction/internal/domain"
	"escrow-auction/pkg/logger"
)

// DeadlineSweeper persists the Closed status and publishes closure events
// for auctions whose deadlines have passed. Purely observational: the
// engine derives closedness from the clock and never waits on the sweeper.
type DeadlineSweeper struct {
	cron           *cron.Cron
	auctionRepo    domain.AuctionRepository
	statusCache    domain.AuctionStatusCache
	sink           domain.NotificationSink
	leaderElection domain.LeaderElection
	clock          domain.Clock
	instanceID     string
	interval       time.Duration
	log            logger.Logger
}

func NewDeadlineSweeper(
	auctionRepo domain.AuctionRepository,
	statusCache domain.AuctionStatusCache,
	sink domain.NotificationSink,
	leaderElection domain.LeaderElection,
	clock domain.Clock,
	instanceID string,
	interval time.Duration,
	log logger.Logger,
) *DeadlineSweeper {
	return &DeadlineSweeper{
		cron:           cron.New(cron.WithSeconds()),
		auctionRepo:    auctionRepo,
		statusCache:    statusCache,
		sink:           sink,
		leaderElection: leaderElection,
		clock:          clock,
		instanceID:     instanceID,
		interval:       interval,
		log:            log,
	}
}

func (s *DeadlineSweeper) Start(ctx context.Context) error {
	s.log.Info("Starting deadline sweeper", "interval", s.interval)

	spec := fmt.Sprintf("@every %s", s.interval)
	_, err := s.cron.AddFunc(spec, func() {
		s.sweep(ctx)
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	return nil
}

func (s *DeadlineSweeper) Stop() error {
	s.log.Info("Stopping deadline sweeper")
	s.cron.Stop()
	return nil
}

func (s *DeadlineSweeper) sweep(ctx context.Context) {
	isLeader, err := s.leaderElection.IsLeader(ctx, s.instanceID)
	if err != nil {
		s.log.Error("Leader check failed", "error", err)
		return
	}
	if !isLeader {
		return
	}

	now := s.clock.Now()
	auctions, err := s.auctionRepo.ListOpenPastDeadline(ctx, now)
	if err != nil {
		s.log.Error("Failed to list expired auctions", "error", err)
		return
	}

	for _, auction := range auctions {
		if err := s.auctionRepo.UpdateAuctionStatus(ctx, auction.ID, domain.AuctionClosed); err != nil {
			s.log.Error("Failed to mark auction closed", "auction_id", auction.ID, "error", err)
			continue
		}

		if err := s.statusCache.SetAuctionStatus(ctx, auction.ID, domain.AuctionClosed); err != nil {
			s.log.Error("Failed to cache closed status", "auction_id", auction.ID, "error", err)
		}

		if err := s.sink.Publish(ctx, &domain.AuctionEvent{
			ID:        uuid.NewString(),
			Type:      domain.AuctionClosedOut,
			AuctionID: auction.ID,
			Timestamp: now,
		}); err != nil {
			s.log.Error("Failed to publish closure event", "auction_id", auction.ID, "error", err)
		}

		s.log.Info("Auction closed", "auction_id", auction.ID, "deadline", auction.Deadline)
	}
}
