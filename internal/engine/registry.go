package engine

import (
	"context"
	"time"

	"github.com/google/uuid"

	"escrow-auction/internal/domain"
)

// Deposit escrows an asset and opens an auction for it. The custody
// transfer happens before the record is created; on any failure no record
// exists and no identifier is consumed.
func (e *Engine) Deposit(ctx context.Context, asset domain.Asset, deadlineOffset time.Duration, reservePrice uint64, seller string) (uint64, error) {
	if asset.IsZero() {
		return 0, domain.ErrInvalidAsset
	}
	if reservePrice == 0 {
		return 0, domain.ErrZeroReservePrice
	}

	now := e.clock.Now()
	deadline := now.Add(deadlineOffset)
	// A non-positive offset and an offset large enough to wrap the time
	// representation both land here.
	if !deadline.After(now) {
		return 0, domain.ErrDeadlineInPast
	}

	// Hold the registry lock across the custody call so no bid can be
	// observed against an auction whose asset is not yet in escrow.
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.custody.Transfer(ctx, asset, seller, e.escrowAccount); err != nil {
		return 0, domain.AssetTransferError(err)
	}

	auction := domain.Auction{
		ID:           e.nextID,
		Seller:       seller,
		Asset:        asset,
		Deadline:     deadline,
		ReservePrice: reservePrice,
		Status:       domain.AuctionOpen,
		CreatedAt:    now,
	}

	if err := e.auctionRepo.CreateAuction(ctx, &auction); err != nil {
		// Return the asset so the failed deposit leaves nothing in escrow.
		if rbErr := e.custody.Transfer(ctx, asset, e.escrowAccount, seller); rbErr != nil {
			e.log.Error("Failed to return asset after record failure", "asset", asset.String(), "seller", seller, "error", rbErr)
		}
		return 0, err
	}

	e.nextID++
	e.auctions[auction.ID] = &auctionState{
		auction: auction,
		index:   make(map[string]uint64),
	}

	e.log.Info("Auction deposited", "auction_id", auction.ID, "seller", seller, "asset", asset.String(), "deadline", deadline)

	e.publish(ctx, &domain.AuctionEvent{
		ID:        uuid.NewString(),
		Type:      domain.AuctionDeposited,
		AuctionID: auction.ID,
		Account:   seller,
		Timestamp: now,
	})

	return auction.ID, nil
}

// GetAuction returns a copy of the auction record, with Closed derived from
// the clock for auctions past their deadline but not yet settled.
func (e *Engine) GetAuction(auctionID uint64) (domain.Auction, bool) {
	state, ok := e.state(auctionID)
	if !ok {
		return domain.Auction{}, false
	}

	state.mu.Lock()
	defer state.mu.Unlock()

	a := state.auction
	if a.Status == domain.AuctionOpen && !e.clock.Now().Before(a.Deadline) {
		a.Status = domain.AuctionClosed
	}
	return a, true
}

// GetAuctionBids returns the auction's bid list in recording order.
func (e *Engine) GetAuctionBids(auctionID uint64) []domain.Bid {
	state, ok := e.state(auctionID)
	if !ok {
		return nil
	}

	state.mu.Lock()
	defer state.mu.Unlock()

	bids := make([]domain.Bid, len(state.bids))
	copy(bids, state.bids)
	return bids
}

// GetBidderAmount returns the bidder's outstanding escrowed amount, zero
// when there is none.
func (e *Engine) GetBidderAmount(auctionID uint64, bidder string) uint64 {
	state, ok := e.state(auctionID)
	if !ok {
		return 0
	}

	state.mu.Lock()
	defer state.mu.Unlock()
	return state.index[bidder]
}

// AuctionCount returns the number of auctions ever created.
func (e *Engine) AuctionCount() uint64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.nextID
}
