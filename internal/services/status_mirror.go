package services

import (
	"context"

	"escrow-auction/internal/domain"
	"escrow-auction/pkg/logger"
)

// StatusMirror decorates a notification sink and mirrors lifecycle events
// into the auction status cache, so observers like the feed gateway can
// answer "does this auction exist, and where is it" without touching the
// engine. Cache failures are logged, never surfaced: the cache is a mirror,
// not a source of truth.
type StatusMirror struct {
	inner domain.NotificationSink
	cache domain.AuctionStatusCache
	log   logger.Logger
}

func NewStatusMirror(inner domain.NotificationSink, cache domain.AuctionStatusCache, log logger.Logger) *StatusMirror {
	return &StatusMirror{
		inner: inner,
		cache: cache,
		log:   log,
	}
}

func (m *StatusMirror) Publish(ctx context.Context, event *domain.AuctionEvent) error {
	var status domain.AuctionStatus
	mirror := true

	switch event.Type {
	case domain.AuctionDeposited:
		status = domain.AuctionOpen
	case domain.AuctionClosedOut:
		status = domain.AuctionClosed
	case domain.AuctionSettledUp:
		status = domain.AuctionSettled
	default:
		mirror = false
	}

	if mirror {
		if err := m.cache.SetAuctionStatus(ctx, event.AuctionID, status); err != nil {
			m.log.Error("Failed to mirror auction status", "auction_id", event.AuctionID, "status", status.String(), "error", err)
		}
	}

	return m.inner.Publish(ctx, event)
}
